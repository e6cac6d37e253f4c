package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const healthTimeout = 3 * time.Second

// HealthResponse is the JSON body of the /health endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Backend    string `json:"backend"`
	Index      string `json:"index"`
	Connection string `json:"connection"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// HealthChecker is satisfied by both storage backends.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthTarget names the index the health check reports on.
type HealthTarget struct {
	Backend string
	Index   string
}

// NewHealthHandler reports whether the configured vector backend is reachable.
// An unreachable backend answers 503 with the backend's error.
func NewHealthHandler(store HealthChecker, target HealthTarget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := HealthResponse{
			Status:     "healthy",
			Backend:    target.Backend,
			Index:      target.Index,
			Connection: "connected",
		}
		code := http.StatusOK
		if err := store.Health(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Connection = "disconnected"
			resp.Error = err.Error()
			code = http.StatusServiceUnavailable
		}
		resp.Timestamp = time.Now().UTC().Format(time.RFC3339)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(resp)
	}
}
