package httpx

import "context"

// Principal is the authenticated identity attached to a request once its
// bearer token has passed both signature verification and the ledger check.
type Principal struct {
	Subject string
	Role    string
}

type ctxKey struct{}

// ContextWithPrincipal returns ctx carrying the resolved principal.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the request's principal, if one was attached.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
