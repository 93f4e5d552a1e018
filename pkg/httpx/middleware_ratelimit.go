package httpx

import (
	"errors"
	"strconv"

	"net/http"

	"github.com/pallidlabs/authgate/pkg/ratelimit"
	"github.com/pallidlabs/authgate/pkg/slogx"
)

// RateLimitMiddleware applies the fixed-window limiter before any other
// processing. The limiter is fail-closed: if the counter store is down the
// request is rejected with 503, never silently admitted.
func RateLimitMiddleware(limiter *ratelimit.Limiter, keyFn ratelimit.KeyFunc) Middleware {
	if keyFn == nil {
		keyFn = ratelimit.RemoteAddrKey
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyFn(r)
			if key == "" {
				// Unidentifiable clients share one bucket; they are still
				// counted, never waved through.
				log.Warn("rate limit: unable to extract client key", "endpoint", r.URL.Path)
				key = "unknown"
			}

			allowed, err := limiter.Allow(ctx, key)
			if err != nil {
				if errors.Is(err, ratelimit.ErrStoreUnavailable) {
					log.Error("rate limit counter store unreachable", "err", err)
					WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
					return
				}
				log.Error("rate limit check failed", "err", err)
				WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
				return
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.Window.Seconds())))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit))
				log.Warn("rate limit exceeded", "key", key, "endpoint", r.URL.Path)
				WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
