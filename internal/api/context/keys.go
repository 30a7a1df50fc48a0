package context

import (
	"context"

	"linkroute/internal/platform/auth"
)

type Key string

const (
	Claims Key = "claims"
)

// ClaimsFrom returns the authenticated caller, or nil on public routes.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(Claims).(*auth.Claims)
	return claims
}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, Claims, claims)
}
