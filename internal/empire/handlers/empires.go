package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"empires-server/internal/auth"
	"empires-server/internal/empire"
	"empires-server/internal/hexgrid"
	"empires-server/internal/middleware"
	"empires-server/internal/shared/cookies"
	"empires-server/internal/shared/errors"
	"empires-server/internal/shared/request"
	"empires-server/internal/shared/response"
)

// CreatedResponse carries the token the new empire acts with.
type CreatedResponse struct {
	*empire.Created
	Token string `json:"token"`
}

type EmpireHandler struct {
	service *empire.Service
	issuer  *auth.TokenIssuer
}

func NewEmpireHandler(service *empire.Service, issuer *auth.TokenIssuer) *EmpireHandler {
	return &EmpireHandler{service: service, issuer: issuer}
}

// CreateEmpire handles POST /api/empires
func (h *EmpireHandler) CreateEmpire(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "create_empire")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req empire.CreateRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	token, err := h.issuer.Generate(created.Empire.ID, created.Empire.Name, auth.RoleEmpire)
	if err != nil {
		response.Error(w, r, logger, errors.WrapInternal("failed to issue empire token", err))
		return
	}
	cookies.SetAuthCookie(w, token)

	response.Success(w, http.StatusCreated, CreatedResponse{Created: created, Token: token})
}

// ListEmpires handles GET /api/empires
func (h *EmpireHandler) ListEmpires(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "list_empires")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	empires, err := h.service.List(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, empires)
}

// GetEmpire handles GET /api/empires/{id}
func (h *EmpireHandler) GetEmpire(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_empire")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := request.PathID(r, "empire")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, e)
}

// GetTerritory handles GET /api/empires/{id}/territory
func (h *EmpireHandler) GetTerritory(w http.ResponseWriter, r *http.Request) {
	h.serveCells(w, r, "get_territory", h.service.Territory)
}

// GetUnveiled handles GET /api/empires/{id}/unveiled - own empire or admin
func (h *EmpireHandler) GetUnveiled(w http.ResponseWriter, r *http.Request) {
	h.serveCells(w, r, "get_unveiled", h.service.Unveiled)
}

func (h *EmpireHandler) serveCells(w http.ResponseWriter, r *http.Request, name string,
	load func(ctx context.Context, empireID int64) (hexgrid.Set, error)) {
	logger := slog.With("handler", name)

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := request.PathID(r, "empire")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	cells, err := load(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, cells)
}

// ListBlueprints handles GET /api/empires/{id}/blueprints
func (h *EmpireHandler) ListBlueprints(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "list_blueprints")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := request.PathID(r, "empire")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	bps, err := h.service.ListBlueprints(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, bps)
}

// Settle handles POST /api/celestials/{id}/settle
func (h *EmpireHandler) Settle(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "settle_celestial")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	id, err := request.PathID(r, "celestial")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	settled, err := h.service.Settle(r.Context(), claims.EmpireID, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, settled)
}

// DemolishConstruction handles DELETE /api/constructions/{id}
func (h *EmpireHandler) DemolishConstruction(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "demolish_construction")

	if r.Method != http.MethodDelete {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	id, err := request.PathID(r, "construction")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if err := h.service.DemolishConstruction(r.Context(), claims.EmpireID, id); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusNoContent, nil)
}

// Logout handles /auth/logout
func (h *EmpireHandler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "logout")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	cookies.ClearAuthCookie(w)
	response.Success(w, http.StatusOK, map[string]string{"message": "logged out"})
}
