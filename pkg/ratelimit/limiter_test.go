package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestLimiterFixedWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()

	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	l := &Limiter{Store: store, Limit: 2, Window: time.Minute}

	t.Run("admits up to the limit, then rejects", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			ok, err := l.Allow(ctx, "client-a")
			require.NoError(t, err)
			require.True(t, ok)
		}

		ok, err := l.Allow(ctx, "client-a")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("keys are independent", func(t *testing.T) {
		ok, err := l.Allow(ctx, "client-b")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("window elapse resets the budget", func(t *testing.T) {
		now = now.Add(time.Minute + time.Second)

		ok, err := l.Allow(ctx, "client-a")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("rejected requests still consume budget", func(t *testing.T) {
		// The rejected third request above counted: one more admit is left
		// in this window, not two.
		ok, err := l.Allow(ctx, "client-a")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = l.Allow(ctx, "client-a")
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestLimiterFailClosed(t *testing.T) {
	t.Parallel()

	l := &Limiter{Store: failingStore{}, Limit: 10, Window: time.Minute}

	ok, err := l.Allow(context.Background(), "client-a")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.False(t, ok)
}

func TestMemoryStoreCleanup(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	_, err := store.Incr(context.Background(), "a", time.Minute)
	require.NoError(t, err)
	_, err = store.Incr(context.Background(), "b", time.Hour)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	store.Cleanup()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotContains(t, store.counters, "a")
	require.Contains(t, store.counters, "b")
}

func TestRemoteAddrKey(t *testing.T) {
	t.Parallel()

	t.Run("prefers first forwarded hop", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		require.Equal(t, "203.0.113.9", RemoteAddrKey(r))
	})

	t.Run("falls back to remote addr host", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "192.0.2.4:51234"
		require.Equal(t, "192.0.2.4", RemoteAddrKey(r))
	})

	t.Run("blank forwarded hop falls back to remote addr", func(t *testing.T) {
		for _, xff := range []string{",", " ", " , 10.0.0.1", ",,"} {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = "192.0.2.4:51234"
			r.Header.Set("X-Forwarded-For", xff)
			require.Equal(t, "192.0.2.4", RemoteAddrKey(r), "header %q", xff)
		}
	})

	t.Run("never returns an empty key", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = ""
		r.Header.Set("X-Forwarded-For", ",")
		require.Equal(t, "unknown", RemoteAddrKey(r))
	})
}
