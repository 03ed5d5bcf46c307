package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"empires-server/internal/shared/response"
)

// Pinger is any backing service the health check reports on.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

type HealthHandler struct {
	services map[string]Pinger
}

// NewHealthHandler reports on the named services. A nil Pinger is reported as disabled.
func NewHealthHandler(services map[string]Pinger) *HealthHandler {
	return &HealthHandler{services: services}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Services:  make(map[string]string, len(h.services)),
	}

	for name, p := range h.services {
		if p == nil {
			resp.Services[name] = "disabled"
			continue
		}
		if err := p.PingContext(ctx); err != nil {
			logger.Warn("Service ping failed", "service", name, "error", err)
			resp.Services[name] = "disconnected"
			resp.Status = "degraded"
			continue
		}
		resp.Services[name] = "connected"
	}

	response.Success(w, http.StatusOK, resp)
}
