package handlers

import (
	"log/slog"
	"net/http"

	"empires-server/internal/fleet"
	"empires-server/internal/hexgrid"
	"empires-server/internal/middleware"
	"empires-server/internal/shared/errors"
	"empires-server/internal/shared/request"
	"empires-server/internal/shared/response"
)

type MoveRequest struct {
	Destination *hexgrid.Cell `json:"destination"`
}

type MovableHandler struct {
	service *fleet.Service
}

func NewMovableHandler(service *fleet.Service) *MovableHandler {
	return &MovableHandler{service: service}
}

// Move handles POST /api/movables/{id}/move
func (h *MovableHandler) Move(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "move_movable")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	id, err := request.PathID(r, "movable")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req MoveRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if req.Destination == nil {
		response.Error(w, r, logger, errors.Validation("destination is required"))
		return
	}

	scheduled, err := h.service.Move(r.Context(), claims.EmpireID, id, *req.Destination)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusAccepted, scheduled)
}

// GetMovable handles GET /api/movables/{id}
func (h *MovableHandler) GetMovable(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_movable")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := request.PathID(r, "movable")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	view, err := h.service.GetMovable(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, view)
}

// ListEmpireMovables handles GET /api/empires/{id}/movables
func (h *MovableHandler) ListEmpireMovables(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "list_empire_movables")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := request.PathID(r, "empire")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	views, err := h.service.ListEmpireMovables(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, views)
}

// DemolishShip handles DELETE /api/ships/{id}
func (h *MovableHandler) DemolishShip(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "demolish_ship")

	if r.Method != http.MethodDelete {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	id, err := request.PathID(r, "ship")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if err := h.service.DemolishShip(r.Context(), claims.EmpireID, id); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusNoContent, nil)
}
