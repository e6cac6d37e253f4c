package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"
)

// FSLoader reads text files with recognized extensions from a directory.
type FSLoader struct {
	dir        string
	recursive  bool
	extensions []string
	logger     *slog.Logger
}

// NewFSLoader creates a loader for dir. Extensions are matched case-insensitively
// and include the leading dot.
func NewFSLoader(dir string, recursive bool, extensions []string, logger *slog.Logger) *FSLoader {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make([]string, len(extensions))
	for i, ext := range extensions {
		exts[i] = strings.ToLower(ext)
	}
	return &FSLoader{
		dir:        dir,
		recursive:  recursive,
		extensions: exts,
		logger:     logger,
	}
}

// Load walks the directory in lexical order.
func (l *FSLoader) Load(ctx context.Context) ([]Document, []LoadError, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", ErrSourceUnavailable, l.dir)
	}

	var (
		docs    []Document
		skipped []LoadError
	)

	err = filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == l.dir {
				return walkErr
			}
			skipped = append(skipped, LoadError{Path: path, Err: walkErr})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != l.dir && !l.recursive {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !slices.Contains(l.extensions, ext) {
			l.logger.Debug("Skipping unsupported file", "path", path)
			return nil
		}

		doc, err := l.loadFile(path, ext)
		if err != nil {
			l.logger.Warn("Skipping unreadable file", "path", path, "error", err)
			skipped = append(skipped, LoadError{Path: path, Err: err})
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	l.logger.Info("Loaded documents", "dir", l.dir, "documents", len(docs), "skipped", len(skipped))
	return docs, skipped, nil
}

func (l *FSLoader) loadFile(path, ext string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	if !utf8.Valid(content) {
		return Document{}, errors.New("not valid UTF-8 text")
	}

	metadata := map[string]any{
		KeySource:    path,
		KeyFileName:  filepath.Base(path),
		KeyExtension: ext,
	}
	if ext == ".md" || ext == ".markdown" {
		if title := markdownTitle(content); title != "" {
			metadata[KeyTitle] = title
		}
	}

	return Document{Text: string(content), Metadata: metadata}, nil
}
