// Package main provides the ingest CLI: load documents, embed their chunks and
// upload the vectors to a vector index.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bull/vector-ingest/internal/app"
	"github.com/bull/vector-ingest/internal/config"
	"github.com/bull/vector-ingest/internal/indexer"
)

var (
	configPath string
	quiet      bool
	verbose    bool
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:           "ingest",
	Short:         "Document ingestion tool for vector indexes",
	Long:          "CLI tool that chunks local documents, embeds them and uploads the vectors to Qdrant or Milvus",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		switch {
		case verbose:
			level = slog.LevelDebug
		case quiet:
			level = slog.LevelWarn
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest all documents into the configured index",
	Long: `Loads documents, splits them into chunks, embeds each chunk and uploads
the vectors in batches. The index is created on first use.

This command:
1. Connects to the vector index service
2. Loads documents from DATA_DIR (or GITHUB_SOURCE)
3. Creates the index if it does not exist, then waits PROVISION_TIMEOUT
4. Generates embeddings for every chunk
5. Uploads records in batches of BATCH_SIZE

Environment variables:
  OPENAI_API_KEY        OpenAI API key for embeddings (required for openai)
  VECTOR_INDEX_API_KEY  Vector index API key (required)
  VECTOR_INDEX_NAME     Target index name (required)
  VECTOR_INDEX_BACKEND  qdrant or milvus (default: qdrant)
  DATA_DIR              Source directory (default: data)
  VECTOR_DIMENSION      Embedding dimension (default: 1536)
  BATCH_SIZE            Records per upsert (default: 100)
  PROVISION_TIMEOUT     Wait after index creation (default: 80s)`,
	RunE: runIngest,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the index exists and how many vectors it holds",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (environment variables take precedence)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print warnings, errors and the final summary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	runCmd.Flags().StringVarP(&dataDir, "dir", "d", "", "read documents from this directory instead of the configured source")

	rootCmd.AddCommand(runCmd, statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if !quiet {
		fmt.Printf("Connecting to %s at %s...\n", cfg.Index.Backend, cfg.Index.Addr())
	}
	a, err := app.New(ctx, cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("Failed to initialize: %w", err)
	}
	if !quiet {
		color.Green("%s healthy", cfg.Index.Backend)
	}
	return a, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	loader, err := a.Loader(dataDir)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	onBatch := func(stat indexer.BatchStat) {
		if quiet {
			return
		}
		if bar == nil {
			bar = newProgressBar("Uploading")
		}
		_ = bar.Set(int(stat.Percent))
	}

	pipeline, err := a.NewPipeline(loader, onBatch)
	if err != nil {
		return err
	}

	desc := a.Descriptor()
	if !quiet {
		fmt.Println()
		fmt.Printf("Ingesting into index %q (dimension %d, %s)...\n", desc.Name, desc.Dimension, desc.Metric)
	}

	result, err := pipeline.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if result != nil {
		printResult(result)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("Ingestion interrupted: %w", err)
		}
		return fmt.Errorf("Ingestion failed: %w", err)
	}

	fmt.Println()
	color.Green("Ingestion complete!")
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func printResult(result *indexer.RunResult) {
	fmt.Println()
	fmt.Printf("  Documents: %d\n", result.Documents)
	fmt.Printf("  Chunks: %d\n", result.Chunks)
	fmt.Printf("  Index: %s\n", result.IndexState)
	if result.Upload != nil {
		fmt.Printf("  Uploaded: %d/%d records in %d/%d batches\n",
			result.Upload.Uploaded, result.Upload.TotalRecords,
			result.Upload.CompletedBatches, result.Upload.TotalBatches)
	}
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.Skipped) > 0 {
		fmt.Println()
		color.Yellow("Skipped files:")
		for _, skipped := range result.Skipped {
			fmt.Printf("  - %s: %v\n", skipped.Path, skipped.Err)
		}
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.Status(ctx)
	if err != nil {
		return fmt.Errorf("Failed to read index status: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Index: %s (%s)\n", status.Name, status.Backend)
	if !status.Exists {
		color.Yellow("  Not created yet. Run `ingest run` to create it.")
		return nil
	}
	fmt.Printf("  Vectors: %d\n", status.Vectors)
	return nil
}

func newProgressBar(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
