package auth

import (
	"strings"
	"testing"
	"time"

	"empires-server/internal/shared/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(config.AuthConfig{JWTSecret: testSecret, TokenExpiration: time.Hour})
	if err != nil {
		t.Fatal(err)
	}

	token, err := issuer.Generate(7, "Vega", RoleEmpire)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.EmpireID != 7 || claims.EmpireName != "Vega" || claims.IsAdmin() {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestTokenRejections(t *testing.T) {
	if _, err := NewTokenIssuer(config.AuthConfig{JWTSecret: "short"}); err == nil {
		t.Fatal("short secret accepted")
	}

	issuer, _ := NewTokenIssuer(config.AuthConfig{JWTSecret: testSecret, TokenExpiration: time.Hour})
	token, _ := issuer.Generate(1, "Vega", RoleAdmin)

	other, _ := NewTokenIssuer(config.AuthConfig{JWTSecret: strings.Repeat("z", 32), TokenExpiration: time.Hour})
	if _, err := other.Validate(token); err == nil {
		t.Fatal("token signed with another secret accepted")
	}

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := issuer.Validate(token); err == nil {
		t.Fatal("expired token accepted")
	}
}
