package handlers

import (
	"log/slog"
	"net/http"

	"empires-server/internal/blueprint"
	"empires-server/internal/middleware"
	"empires-server/internal/shared/errors"
	"empires-server/internal/shared/request"
	"empires-server/internal/shared/response"
)

type BuildRequest struct {
	BlueprintID int64 `json:"blueprint"`
	CelestialID int64 `json:"celestial"`
}

type BuildHandler struct {
	service *blueprint.Service
}

func NewBuildHandler(service *blueprint.Service) *BuildHandler {
	return &BuildHandler{service: service}
}

// ServeHTTP handles POST /api/build
func (h *BuildHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "build")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var req BuildRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if req.BlueprintID <= 0 || req.CelestialID <= 0 {
		response.Error(w, r, logger, errors.Validation("blueprint and celestial are required"))
		return
	}

	scheduled, err := h.service.Build(r.Context(), claims.EmpireID, req.BlueprintID, req.CelestialID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusAccepted, scheduled)
}
