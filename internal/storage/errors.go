package storage

import "errors"

var (
	ErrBackendUnreachable = errors.New("vector index service unreachable")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrUnsupportedMetric  = errors.New("unsupported distance metric")
	ErrInvalidMetadata    = errors.New("metadata value not storable")
)
