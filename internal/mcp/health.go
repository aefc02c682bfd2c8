package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// healthTimeout bounds a single store probe.
const healthTimeout = 3 * time.Second

// HealthResponse is the /health body.
type HealthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Error     string `json:"error,omitempty"`
	CheckedAt string `json:"checked_at"`
}

// HealthChecker is satisfied by both vector stores.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler answers 200 while the store responds and 503 with the store's error
// otherwise.
func NewHealthHandler(store HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		code := http.StatusOK
		resp := HealthResponse{Status: "ok", Store: "reachable"}
		if err := store.Health(ctx); err != nil {
			code = http.StatusServiceUnavailable
			resp = HealthResponse{Status: "degraded", Store: "unreachable", Error: err.Error()}
		}
		resp.CheckedAt = time.Now().UTC().Format(time.RFC3339)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
