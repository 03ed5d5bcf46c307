package handlers

import (
	"log/slog"
	"net/http"

	"empires-server/internal/shared/errors"
	"empires-server/internal/shared/request"
	"empires-server/internal/shared/response"
	"empires-server/internal/universe"
)

type UniverseHandler struct {
	service *universe.Service
	logger  *slog.Logger
}

func NewUniverseHandler(service *universe.Service, logger *slog.Logger) *UniverseHandler {
	return &UniverseHandler{
		service: service,
		logger:  logger,
	}
}

// Generate handles POST /api/universe - Admin only
func (h *UniverseHandler) Generate(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "generate_universe")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var cfg universe.Config
	if err := request.DecodeJSON(w, r, &cfg); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	summary, err := h.service.Generate(r.Context(), cfg)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	status := http.StatusCreated
	if summary.Skipped {
		status = http.StatusOK
	}
	response.Success(w, status, summary)
}

// ListSectors handles GET /api/sectors
func (h *UniverseHandler) ListSectors(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "list_sectors")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	sectors, err := h.service.ListSectors(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, sectors)
}

// GetSector handles GET /api/sectors/{id}
func (h *UniverseHandler) GetSector(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "get_sector")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := request.PathID(r, "sector")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	view, err := h.service.GetSector(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, view)
}

// GetCelestial handles GET /api/celestials/{id}
func (h *UniverseHandler) GetCelestial(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "get_celestial")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := request.PathID(r, "celestial")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	view, err := h.service.GetCelestial(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, view)
}
