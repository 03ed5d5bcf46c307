package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"empires-server/internal/auth"
	"empires-server/internal/shared/cookies"
	"empires-server/internal/shared/errors"
	"empires-server/internal/shared/response"
)

type contextKey string

const UserContextKey contextKey = "user"

type Authenticator struct {
	issuer *auth.TokenIssuer
}

func NewAuthenticator(issuer *auth.TokenIssuer) *Authenticator {
	return &Authenticator{issuer: issuer}
}

// JWTMiddleware accepts a bearer token or the auth cookie, in that order.
func (a *Authenticator) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "jwt",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		logger.Debug("Processing JWT authentication")

		token := tokenFromRequest(r)
		if token == "" {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		claims, err := a.issuer.Validate(token)
		if err != nil {
			response.Error(w, r, logger, errors.Unauthorized("invalid token"))
			return
		}

		logger.Debug("JWT authentication successful",
			"empire_id", claims.EmpireID,
			"empire_name", claims.EmpireName)

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(cookies.AuthCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// Helper to get user from context
func GetUserFromContext(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(UserContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
