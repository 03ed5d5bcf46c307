package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"empires-server/internal/shared/errors"
	"empires-server/internal/shared/response"
)

// RequireEmpire admits tokens issued to an empire. Admin tokens act for no empire.
func (a *Authenticator) RequireEmpire(next http.Handler) http.Handler {
	return a.JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "empire",
			"method", r.Method,
			"path", r.URL.Path,
		)

		claims := GetUserFromContext(r)
		if claims == nil {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}
		if claims.EmpireID == 0 {
			response.Error(w, r, logger, errors.Forbidden("empire token required"))
			return
		}

		next.ServeHTTP(w, r)
	}))
}

// RequireOwnEmpire guards routes whose {id} names an empire. Only that empire
// and admins may pass.
func (a *Authenticator) RequireOwnEmpire(next http.Handler) http.Handler {
	return a.JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "empire_access",
			"method", r.Method,
			"path", r.URL.Path,
		)

		claims := GetUserFromContext(r)
		if claims == nil {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		if claims.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}

		empireIDStr := r.PathValue("id")
		if empireIDStr == "" {
			response.Error(w, r, logger, errors.Validation("empire ID is required"))
			return
		}

		empireID, err := strconv.ParseInt(empireIDStr, 10, 64)
		if err != nil {
			response.Error(w, r, logger, errors.WrapValidation("invalid empire ID format", err))
			return
		}

		if empireID != claims.EmpireID {
			logger.Warn("Empire attempted to read another empire's view",
				"empire_id", claims.EmpireID,
				"target_empire_id", empireID)
			response.Error(w, r, logger, errors.Forbidden("access to this empire is not allowed"))
			return
		}

		next.ServeHTTP(w, r)
	}))
}
