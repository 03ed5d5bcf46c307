package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"empires-server/internal/auth"
	"empires-server/internal/shared/config"
	"empires-server/internal/shared/cookies"
)

func newAuthenticator(t *testing.T) (*Authenticator, *auth.TokenIssuer) {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(config.AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatal(err)
	}
	return NewAuthenticator(issuer), issuer
}

func token(t *testing.T, issuer *auth.TokenIssuer, empireID int64, role string) string {
	t.Helper()
	tok, err := issuer.Generate(empireID, "Vega", role)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func serve(h http.Handler, req *http.Request) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestJWTMiddlewareSources(t *testing.T) {
	a, issuer := newAuthenticator(t)
	tok := token(t, issuer, 7, auth.RoleEmpire)

	var seen *auth.Claims
	h := a.JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserFromContext(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if code := serve(h, req); code != http.StatusOK || seen == nil || seen.EmpireID != 7 {
		t.Fatalf("bearer: code %d, claims %+v", code, seen)
	}

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookies.AuthCookieName, Value: tok})
	if code := serve(h, req); code != http.StatusOK || seen == nil || seen.EmpireID != 7 {
		t.Fatalf("cookie: code %d, claims %+v", code, seen)
	}

	if code := serve(h, httptest.NewRequest(http.MethodGet, "/", nil)); code != http.StatusUnauthorized {
		t.Fatalf("missing token: code %d", code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	if code := serve(h, req); code != http.StatusUnauthorized {
		t.Fatalf("invalid token: code %d", code)
	}
}

func TestRoleGuards(t *testing.T) {
	a, issuer := newAuthenticator(t)
	empireTok := token(t, issuer, 7, auth.RoleEmpire)
	adminTok := token(t, issuer, 0, auth.RoleAdmin)

	tests := []struct {
		name  string
		guard func(http.Handler) http.Handler
		token string
		path  string
		want  int
	}{
		{"admin route with empire token", a.RequireAdmin, empireTok, "/x", http.StatusForbidden},
		{"admin route with admin token", a.RequireAdmin, adminTok, "/x", http.StatusNoContent},
		{"empire route with admin token", a.RequireEmpire, adminTok, "/x", http.StatusForbidden},
		{"empire route with empire token", a.RequireEmpire, empireTok, "/x", http.StatusNoContent},
		{"own empire", a.RequireOwnEmpire, empireTok, "/empires/7", http.StatusNoContent},
		{"other empire", a.RequireOwnEmpire, empireTok, "/empires/8", http.StatusForbidden},
		{"other empire as admin", a.RequireOwnEmpire, adminTok, "/empires/8", http.StatusNoContent},
		{"malformed empire id", a.RequireOwnEmpire, empireTok, "/empires/x", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.Handle("/empires/{id}", tt.guard(ok))
			mux.Handle("/x", tt.guard(ok))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			if code := serve(mux, req); code != tt.want {
				t.Fatalf("code = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, BurstSize: 2, TrustProxy: true})
	h := rl.Middleware(ok)

	request := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", client+", 10.0.0.1")
		return serve(h, req)
	}

	for i := 0; i < 2; i++ {
		if code := request("203.0.113.5"); code != http.StatusNoContent {
			t.Fatalf("request %d: code %d", i, code)
		}
	}
	if code := request("203.0.113.5"); code != http.StatusTooManyRequests {
		t.Fatalf("over burst: code %d", code)
	}
	if code := request("203.0.113.6"); code != http.StatusNoContent {
		t.Fatalf("other client: code %d", code)
	}
}

func TestClientIPIgnoresHeadersWithoutTrust(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4242"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")

	if ip := getClientIP(req, false); ip != "192.0.2.1" {
		t.Fatalf("ip = %q", ip)
	}
	if ip := getClientIP(req, true); ip != "203.0.113.5" {
		t.Fatalf("trusted ip = %q", ip)
	}
}
