//go:build unit

package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSign_KnownVector(t *testing.T) {
	// HMAC-SHA256("secret", "message"), hex encoded.
	require.Equal(t,
		"8b5f48702995c1598c573db1e21866a9b825d4a794d169d7060a03605796360b",
		sign("secret", "message"))
}

func TestSign_DiffersPerSecret(t *testing.T) {
	msg := "1717243200000key5000{}"
	require.NotEqual(t, sign("s1", msg), sign("s2", msg))
}
