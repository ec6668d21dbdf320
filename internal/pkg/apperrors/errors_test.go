//go:build unit

package apperrors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKindOf_DirectError(t *testing.T) {
	err := Validation("bad input")
	require.Equal(t, KindValidation, KindOf(err))
}

func TestKindOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("operation failed: %w", SessionExpired())
	require.Equal(t, KindSessionExpired, KindOf(err))
	require.True(t, IsKind(err, KindSessionExpired))
}

func TestKindOf_PlainError(t *testing.T) {
	require.Equal(t, Kind(""), KindOf(errors.New("boom")))
}

func TestIsRetryable_RetryableKinds(t *testing.T) {
	for _, err := range []error{
		Network(errors.New("conn refused")),
		RateLimited(0),
		SessionExpired(),
		AntiBotBlock(),
	} {
		require.True(t, IsRetryable(err), "expected %v to be retryable", err)
	}
}

func TestIsRetryable_FatalKinds(t *testing.T) {
	for _, err := range []error{
		Validation("bad"),
		Auth("denied"),
		DuplicateAccount("exists"),
		NotFound("missing"),
		errors.New("unclassified"),
	} {
		require.False(t, IsRetryable(err), "expected %v to be fatal", err)
	}
}

func TestSuggestedDelay(t *testing.T) {
	require.Equal(t, 30*time.Second, SuggestedDelay(RateLimited(30*time.Second)))
	require.Equal(t, time.Duration(0), SuggestedDelay(Network(errors.New("x"))))
	require.Equal(t, time.Duration(0), SuggestedDelay(errors.New("plain")))
}

func TestError_UnwrapChain(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(KindNetwork, "fetch payout", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "network")
	require.Contains(t, err.Error(), "fetch payout")
}
