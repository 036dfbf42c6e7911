package auth

import (
	"context"

	"github.com/producthunt/apiserver/types"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// WithClaims stores verified claims on ctx.
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, contextClaimsKey, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	claims, ok := ctx.Value(contextClaimsKey).(Claims)
	if !ok || claims.Email == "" {
		return Claims{}, ErrUnauthenticated
	}
	return claims, nil
}

// RequireAuthenticated verifies token and returns the authenticated claims.
func RequireAuthenticated(tokens *TokenService, token string) (Claims, error) {
	return tokens.Verify(token)
}

// RequireSelf allows the request only when the claimed identity is targetEmail.
// Roles grant no exemption.
func RequireSelf(claims Claims, targetEmail string) error {
	target := NormalizeEmail(targetEmail)
	if target == "" || NormalizeEmail(claims.Email) != target {
		return ErrForbidden
	}
	return nil
}

// RequireRole allows the request only when role is one of allowed.
func RequireRole(role types.Role, allowed ...types.Role) error {
	for _, candidate := range allowed {
		if role == candidate {
			return nil
		}
	}
	return ErrForbidden
}
