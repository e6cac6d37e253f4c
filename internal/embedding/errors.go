package embedding

import "errors"

var (
	// ErrEmbeddingFailure marks any failed embedding request. It is fatal for the run.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// Provider status conditions, wrapped alongside ErrEmbeddingFailure when known.
	ErrUnauthorized = errors.New("embedding provider rejected credentials")
	ErrRateLimited  = errors.New("embedding provider rate limit exceeded")
	ErrInvalidInput = errors.New("embedding provider rejected input")

	ErrCountMismatch     = errors.New("embedding count mismatch")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// classifyStatus maps an HTTP status from a provider to a status condition.
func classifyStatus(status int) error {
	switch status {
	case 401, 403:
		return ErrUnauthorized
	case 429:
		return ErrRateLimited
	case 400, 413, 422:
		return ErrInvalidInput
	}
	return nil
}
