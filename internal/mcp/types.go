// Package mcp exposes document ingestion as Model Context Protocol tools.
package mcp

// IngestInput defines the input parameters for the ingest_documents tool.
type IngestInput struct {
	// Dir narrows ingestion to a directory under the configured source directory.
	Dir string `json:"dir,omitempty" jsonschema:"Subdirectory of the configured source directory to ingest instead; paths outside it are rejected"`
}

// IngestOutput summarizes one ingestion run.
type IngestOutput struct {
	// Documents is the number of documents loaded.
	Documents int `json:"documents"`
	// Skipped lists files that could not be read.
	Skipped []SkippedFile `json:"skipped"`
	// Chunks is the number of chunks embedded.
	Chunks int `json:"chunks"`
	// Uploaded is the number of records upserted.
	Uploaded int `json:"uploaded"`
	// Batches is the number of batches the records were split into.
	Batches int `json:"batches"`
	// IndexState is the provisioning outcome ("exists" or "ready").
	IndexState string `json:"index_state"`
	// Success is true when every batch was uploaded.
	Success bool `json:"success"`
	// DurationMS is the run time in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// SkippedFile is a document the loader could not read.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// StatusInput defines the input parameters for the index_status tool.
// This tool takes no parameters.
type StatusInput struct{}

// StatusOutput describes the configured index.
type StatusOutput struct {
	Index   string `json:"index"`
	Backend string `json:"backend"`
	Exists  bool   `json:"exists"`
	Vectors uint64 `json:"vectors"`
}
