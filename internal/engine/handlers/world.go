package handlers

import (
	"log/slog"
	"net/http"

	"empires-server/internal/engine"
	"empires-server/internal/process"
	"empires-server/internal/shared/errors"
	"empires-server/internal/shared/request"
	"empires-server/internal/shared/response"
)

const defaultFailureLimit = 50

type WorldHandler struct {
	scheduler *engine.Scheduler
}

func NewWorldHandler(scheduler *engine.Scheduler) *WorldHandler {
	return &WorldHandler{scheduler: scheduler}
}

// GetWorld handles GET /api/world
func (h *WorldHandler) GetWorld(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_world")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	view, err := h.scheduler.View(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, view)
}

// Advance handles POST /api/world/advance - Admin only
func (h *WorldHandler) Advance(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "advance_world")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	report, err := h.scheduler.Advance(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	logger.Info("Manual advance completed",
		"from_tick", report.FromTick,
		"to_tick", report.ToTick,
		"resolved", report.ResolvedCount,
		"failed", report.FailedCount)
	response.Success(w, http.StatusOK, report)
}

// ListProcesses handles GET /api/processes?celestial=&handler=
func (h *WorldHandler) ListProcesses(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "list_processes")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	celestialID, err := request.QueryInt64(r, "celestial")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	filter := process.Filter{
		CelestialID: celestialID,
		HandlerID:   r.URL.Query().Get("handler"),
	}
	processes, err := h.scheduler.Pending(r.Context(), filter)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, processes)
}

// ListFailures handles GET /api/failures?limit=
func (h *WorldHandler) ListFailures(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "list_failures")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	limit, err := request.QueryInt64(r, "limit")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if limit == 0 {
		limit = defaultFailureLimit
	}

	failures, err := h.scheduler.Failures(r.Context(), int(limit))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, failures)
}
