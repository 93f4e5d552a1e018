// Package ratelimit implements a fixed-window request limiter backed by a
// shared atomic counter store. The window is fixed, not sliding: a client
// can burst up to twice the limit across a window boundary. That is an
// accepted approximation.
//
// The limiter is fail-closed: when the counter store is unreachable, Allow
// returns ErrStoreUnavailable and callers must reject the request rather
// than silently admit it.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrStoreUnavailable reports that the backing counter store could not be
// reached. The request it was raised for must not be admitted.
var ErrStoreUnavailable = errors.New("ratelimit: counter store unavailable")

// CounterStore atomically increments a windowed counter. The first
// increment of a window creates the counter with TTL equal to the window
// length; the counter expires on its own when the window elapses.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter applies a fixed-window limit per client key.
type Limiter struct {
	Store  CounterStore
	Limit  int
	Window time.Duration
}

// Allow increments the counter for key's current window and reports whether
// the request is within the limit. The request is counted even when it is
// the one that trips the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.Store.Incr(ctx, key, l.Window)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return count <= int64(l.Limit), nil
}

// KeyFunc extracts the client identity used as the counter key. Identity is
// a transport-level notion here; this runs before authentication.
type KeyFunc func(r *http.Request) string

// RemoteAddrKey keys by the connection's remote address, preferring the
// first X-Forwarded-For hop when present (proxied deployments). An empty or
// blank hop falls through to the remote address; the result is never "",
// so a crafted header cannot produce an unkeyed request.
func RemoteAddrKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}
