package source

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// GitHubLoader reads text files with recognized extensions from a directory of
// a GitHub repository.
type GitHubLoader struct {
	client     *github.Client
	owner      string
	repo       string
	basePath   string
	extensions []string
	logger     *slog.Logger
}

// NewGitHubClient creates a GitHub client that waits out rate limits.
// An empty token gives an unauthenticated client with lower limits.
func NewGitHubClient(token string) (*github.Client, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(rateLimiter)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client, nil
}

// ParseGitHubSource splits "owner/repo[/path]" into its parts.
func ParseGitHubSource(src string) (owner, repo, basePath string, err error) {
	parts := strings.SplitN(strings.Trim(src, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("%w: github source %q must be owner/repo[/path]", ErrSourceUnavailable, src)
	}
	if len(parts) == 3 {
		basePath = parts[2]
	}
	return parts[0], parts[1], basePath, nil
}

// NewGitHubLoader creates a loader for owner/repo, rooted at basePath.
func NewGitHubLoader(client *github.Client, owner, repo, basePath string, extensions []string, logger *slog.Logger) *GitHubLoader {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make([]string, len(extensions))
	for i, ext := range extensions {
		exts[i] = strings.ToLower(ext)
	}
	return &GitHubLoader{
		client:     client,
		owner:      owner,
		repo:       repo,
		basePath:   basePath,
		extensions: exts,
		logger:     logger,
	}
}

// Load lists matching files recursively and fetches each one.
func (l *GitHubLoader) Load(ctx context.Context) ([]Document, []LoadError, error) {
	paths, err := l.listRecursive(ctx, l.basePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var (
		docs    []Document
		skipped []LoadError
	)
	for _, p := range paths {
		doc, err := l.fetch(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			l.logger.Warn("Skipping unreadable file", "path", p, "error", err)
			skipped = append(skipped, LoadError{Path: p, Err: err})
			continue
		}
		docs = append(docs, doc)
	}

	l.logger.Info("Loaded documents", "repository", l.owner+"/"+l.repo, "documents", len(docs), "skipped", len(skipped))
	return docs, skipped, nil
}

// listRecursive traverses directories to find all files with a recognized extension.
func (l *GitHubLoader) listRecursive(ctx context.Context, dir string) ([]string, error) {
	_, dirContents, _, err := l.client.Repositories.GetContents(ctx, l.owner, l.repo, dir, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", dir, err)
	}

	var files []string
	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}
		itemPath := path.Join(dir, *item.Name)

		switch *item.Type {
		case "file":
			if slices.Contains(l.extensions, strings.ToLower(path.Ext(*item.Name))) {
				files = append(files, itemPath)
			}
		case "dir":
			sub, err := l.listRecursive(ctx, itemPath)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		}
	}
	return files, nil
}

func (l *GitHubLoader) fetch(ctx context.Context, filePath string) (Document, error) {
	fileContent, _, _, err := l.client.Repositories.GetContents(ctx, l.owner, l.repo, filePath, nil)
	if err != nil {
		return Document{}, fmt.Errorf("failed to get content: %w", err)
	}
	if fileContent == nil || fileContent.Content == nil {
		return Document{}, fmt.Errorf("no file content returned")
	}

	content, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return Document{}, fmt.Errorf("failed to decode content: %w", err)
	}
	if !utf8.Valid(content) {
		return Document{}, fmt.Errorf("not valid UTF-8 text")
	}

	ext := strings.ToLower(path.Ext(filePath))
	metadata := map[string]any{
		KeySource:     filePath,
		KeyFileName:   path.Base(filePath),
		KeyExtension:  ext,
		KeyRepository: l.owner + "/" + l.repo,
		KeyURL:        fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/HEAD/%s", l.owner, l.repo, filePath),
	}
	if ext == ".md" || ext == ".markdown" {
		if title := markdownTitle(content); title != "" {
			metadata[KeyTitle] = title
		}
	}

	return Document{Text: string(content), Metadata: metadata}, nil
}
