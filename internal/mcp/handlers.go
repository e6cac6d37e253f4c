package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/vector-ingest/internal/app"
	"github.com/bull/vector-ingest/internal/indexer"
)

// ErrIngestRunning is returned when an ingestion is requested while another is in progress.
var ErrIngestRunning = errors.New("an ingestion run is already in progress")

// Service is the ingestion backend the tools call into. *app.App implements it.
type Service interface {
	Ingest(ctx context.Context, dir string, onBatch func(indexer.BatchStat)) (*indexer.RunResult, error)
	Status(ctx context.Context) (*app.IndexStatus, error)
}

// makeIngestHandler creates the ingest_documents tool handler.
// Runs are serialized; a second call while one is active fails immediately.
func makeIngestHandler(svc Service, running *sync.Mutex) func(
	context.Context, *mcp.CallToolRequest, IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestInput) (
		*mcp.CallToolResult, IngestOutput, error,
	) {
		if !running.TryLock() {
			return nil, IngestOutput{}, ErrIngestRunning
		}
		defer running.Unlock()

		result, err := svc.Ingest(ctx, input.Dir, nil)
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("ingestion failed: %w", err)
		}

		return nil, toIngestOutput(result), nil
	}
}

func toIngestOutput(result *indexer.RunResult) IngestOutput {
	out := IngestOutput{
		Documents:  result.Documents,
		Skipped:    make([]SkippedFile, 0, len(result.Skipped)),
		Chunks:     result.Chunks,
		IndexState: result.IndexState.String(),
		DurationMS: result.Duration.Milliseconds(),
	}
	for _, s := range result.Skipped {
		out.Skipped = append(out.Skipped, SkippedFile{Path: s.Path, Reason: s.Err.Error()})
	}
	if result.Upload != nil {
		out.Uploaded = result.Upload.Uploaded
		out.Batches = result.Upload.TotalBatches
		out.Success = result.Upload.Success
	}
	return out
}

// makeStatusHandler creates the index_status tool handler.
func makeStatusHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		status, err := svc.Status(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("index_error: %w", err)
		}
		return nil, StatusOutput{
			Index:   status.Name,
			Backend: status.Backend,
			Exists:  status.Exists,
			Vectors: status.Vectors,
		}, nil
	}
}
