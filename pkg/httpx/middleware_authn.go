package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/pallidlabs/authgate/pkg/jwtx"
	"github.com/pallidlabs/authgate/pkg/slogx"
)

// Verifier checks a token's signature and expiry and returns its claims.
type Verifier interface {
	Verify(raw string) (jwtx.Claims, error)
}

// TokenLedger answers whether an exact token string is still live, i.e.
// recorded and neither expired nor revoked.
type TokenLedger interface {
	IsLive(ctx context.Context, token string) (bool, error)
}

// BearerToken extracts the bearer token from the Authorization header.
// Returns "" when the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}

// AuthnMiddleware resolves a principal from the bearer token, if any. This
// is optional authentication: a missing header, a token that fails
// verification, or a token that is no longer live all let the request
// proceed unauthenticated; route-level guards decide whether anonymous is
// acceptable. A token authenticates only when both the codec and the ledger
// accept it.
//
// Resolution happens at most once per request: if a principal is already
// attached the middleware is a no-op, so gates compose safely.
func AuthnMiddleware(v Verifier, ledger TokenLedger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			if _, ok := PrincipalFromContext(ctx); ok {
				next.ServeHTTP(w, r)
				return
			}

			raw := BearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("token verification failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			live, err := ledger.IsLive(ctx, raw)
			if err != nil {
				// Ledger outage: fail fast rather than guess either way.
				log.Error("revocation ledger unreachable", "err", err)
				WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
				return
			}
			if !live {
				next.ServeHTTP(w, r)
				return
			}

			ctx = ContextWithPrincipal(ctx, Principal{
				Subject: claims.Subject,
				Role:    claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
