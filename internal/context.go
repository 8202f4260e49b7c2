package internal

import (
	"context"
	"slices"
)

type ctxKey string

const ContextPrincipalKey ctxKey = "principal"

// Principal is the authenticated caller carried through request contexts.
type Principal struct {
	UserID   string
	Username string
	Roles    []string
}

func (p *Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ContextPrincipalKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(ContextPrincipalKey).(*Principal)
	return p, ok && p != nil
}
