package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	t.Run("accepts known roles case-insensitively", func(t *testing.T) {
		for input, want := range map[string]Role{
			"user":      RoleUser,
			"USER":      RoleUser,
			" Manager ": RoleManager,
			"admin":     RoleAdmin,
		} {
			got, err := ParseRole(input)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		_, err := ParseRole("superuser")
		require.Error(t, err)
	})
}

func TestIssuedTokenLive(t *testing.T) {
	t.Parallel()

	require.True(t, IssuedToken{}.Live())
	require.False(t, IssuedToken{Expired: true, Revoked: true}.Live())
	require.False(t, IssuedToken{Revoked: true}.Live())
}
