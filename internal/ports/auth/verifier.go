package auth

import "context"

// AuthVerifier verifica un bearer token y devuelve claims o error.
// La implementación por defecto vive en adapters/auth/jwtauth.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
