// Package auth issues and validates the bearer tokens that identify empires.
package auth

import (
	"fmt"
	"time"

	"empires-server/internal/shared/config"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleEmpire = "empire"
	RoleAdmin  = "admin"
)

type Claims struct {
	EmpireID   int64  `json:"empire_id"`
	EmpireName string `json:"empire_name"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type TokenIssuer struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewTokenIssuer(cfg config.AuthConfig) (*TokenIssuer, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters long")
	}
	expiration := cfg.TokenExpiration
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &TokenIssuer{
		secret:     []byte(cfg.JWTSecret),
		expiration: expiration,
		now:        time.Now,
	}, nil
}

// Generate signs a token for an empire. Admin tokens carry empire id zero.
func (i *TokenIssuer) Generate(empireID int64, empireName, role string) (string, error) {
	now := i.now()
	claims := Claims{
		EmpireID:   empireID,
		EmpireName: empireName,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("empire_%d", empireID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("cannot generate JWT: %w", err)
	}
	return signed, nil
}

func (i *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
