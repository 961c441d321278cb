package server

import (
	"context"
	"net/http"
	"time"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// Pinger is implemented by every record store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreHealthService verifies record store connectivity as part of health checks.
type StoreHealthService struct {
	Store Pinger
}

// Probe implements the HealthService interface.
func (s StoreHealthService) Probe(ctx context.Context) error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Ping(ctx)
}

type healthResponse struct {
	Status      string    `json:"status"`
	CurrentTime time.Time `json:"current_time"`
}

// handleHealth is the liveness endpoint; it never touches the store.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:      "HEALTHY",
		CurrentTime: time.Now().UTC(),
	})
}
