package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bull/vector-ingest/internal/storage"
)

// ProvisionState tracks where a Provisioner is in ensuring its index.
type ProvisionState int

const (
	StateNotChecked ProvisionState = iota
	StateChecking
	StateExists
	StateCreating
	StateReady
	StateFailed
)

func (s ProvisionState) String() string {
	switch s {
	case StateNotChecked:
		return "not_checked"
	case StateChecking:
		return "checking"
	case StateExists:
		return "exists"
	case StateCreating:
		return "creating"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("ProvisionState(%d)", int(s))
}

// IndexHandle is a provisioned index that accepts upserts.
type IndexHandle struct {
	service storage.VectorIndexService
	name    string
}

// Name returns the index name.
func (h *IndexHandle) Name() string {
	return h.name
}

// Upsert writes one batch into the index.
func (h *IndexHandle) Upsert(ctx context.Context, records []storage.VectorRecord) error {
	return h.service.Upsert(ctx, h.name, records)
}

// Provisioner checks for an index and creates it when missing.
type Provisioner struct {
	service storage.VectorIndexService
	timeout time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger

	mu    sync.Mutex
	state ProvisionState
}

// NewProvisioner creates a Provisioner that waits timeout after creating an index.
func NewProvisioner(service storage.VectorIndexService, timeout time.Duration, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		service: service,
		timeout: timeout,
		sleep:   sleepContext,
		logger:  logger,
	}
}

// State returns the current provisioning state.
func (p *Provisioner) State() ProvisionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Provisioner) setState(s ProvisionState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// EnsureIndex returns a handle to desc.Name, creating the index if it does not
// exist. An existing index is used as is; its schema is not compared.
// A fresh index is assumed ready once the provisioning timeout has elapsed.
func (p *Provisioner) EnsureIndex(ctx context.Context, desc storage.IndexDescriptor) (*IndexHandle, error) {
	p.setState(StateChecking)

	names, err := p.service.ListIndexes(ctx)
	if err != nil {
		p.setState(StateFailed)
		return nil, fmt.Errorf("%w: list indexes: %w", ErrProvisioningFailure, err)
	}

	handle := &IndexHandle{service: p.service, name: desc.Name}
	if slices.Contains(names, desc.Name) {
		p.setState(StateExists)
		p.logger.Info("Index exists", "index", desc.Name)
		return handle, nil
	}

	p.setState(StateCreating)
	p.logger.Info("Creating index",
		"index", desc.Name,
		"dimension", desc.Dimension,
		"metric", desc.Metric,
		"cloud", desc.Cloud,
		"region", desc.Region,
	)
	if err := p.service.CreateIndex(ctx, desc); err != nil {
		p.setState(StateFailed)
		return nil, fmt.Errorf("%w: create index %s: %w", ErrProvisioningFailure, desc.Name, err)
	}

	p.logger.Info("Waiting for index to initialize", "index", desc.Name, "wait", p.timeout)
	if err := p.sleep(ctx, p.timeout); err != nil {
		p.setState(StateFailed)
		return nil, fmt.Errorf("%w: waiting for %s: %w", ErrProvisioningFailure, desc.Name, err)
	}

	p.setState(StateReady)
	p.logger.Info("Index ready", "index", desc.Name)
	return handle, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
