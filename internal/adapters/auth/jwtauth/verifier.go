package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zerotouch-micropolicy/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured = errors.New("jwt verifier not configured")
	ErrTokenEmpty    = errors.New("token is empty")
	ErrTokenInvalid  = errors.New("token is invalid or expired")
)

// Config del verifier. Secret es obligatorio; Issuer opcional (si viene,
// se valida contra el claim iss).
type Config struct {
	Secret string
	Issuer string
}

// Verifier implementa auth.AuthVerifier con tokens HS256 firmados por el
// emisor de identidad (signup/login quedan fuera de este servicio).
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(cfg Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrNotConfigured
	}
	return &Verifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(cfg.Issuer),
	}, nil
}

// tokenClaims es el shape interno para el parseo del JWT.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	userID := strings.TrimSpace(parsed.UserID)
	if userID == "" {
		// tokens del backend legacy usan sub en vez de user_id
		userID = strings.TrimSpace(parsed.Subject)
	}
	if userID == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing user id", ErrTokenInvalid)
	}

	role := auth.Role(strings.TrimSpace(parsed.Role))
	if role == "" {
		role = auth.RoleCustomer
	}

	return auth.Claims{
		UserID: userID,
		Email:  strings.TrimSpace(parsed.Email),
		Role:   role,
	}, nil
}

// IssueForTest firma un token HS256 con los claims dados. Solo para tests y
// tooling local; el servicio nunca emite tokens en producción.
func IssueForTest(secret string, claims auth.Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   string(claims.Role),
	})
	return tok.SignedString([]byte(secret))
}
