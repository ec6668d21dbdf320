//go:build unit

package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatebit/p2ptrader/internal/pkg/apperrors"
)

// fakeClock advances instantly on Sleep and records every requested wait.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func testConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialDelay:    10 * time.Millisecond,
		MaxDelay:        time.Second,
		ExponentialBase: 2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	clk := newFakeClock()
	p := NewPolicy(clk, zap.NewNop())

	calls := 0
	got, err := Do(context.Background(), p, testConfig(), "op",
		func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 1, calls)
	require.Empty(t, clk.sleeps)
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	clk := newFakeClock()
	p := NewPolicy(clk, zap.NewNop())

	calls := 0
	got, err := Do(context.Background(), p, testConfig(), "op",
		func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, apperrors.Network(errors.New("conn reset"))
			}
			return 42, nil
		})
	require.NoError(t, err)
	require.Equal(t, 42, got)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, clk.sleeps)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	clk := newFakeClock()
	p := NewPolicy(clk, zap.NewNop())

	calls := 0
	_, err := Do(context.Background(), p, testConfig(), "gate.fetch",
		func(ctx context.Context) (struct{}, error) {
			calls++
			return struct{}{}, apperrors.SessionExpired()
		})
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.Contains(t, err.Error(), "gate.fetch failed after 3 attempts")
	require.True(t, apperrors.IsKind(err, apperrors.KindSessionExpired))
}

func TestDo_FatalErrorShortCircuits(t *testing.T) {
	clk := newFakeClock()
	p := NewPolicy(clk, zap.NewNop())

	calls := 0
	_, err := Do(context.Background(), p, testConfig(), "op",
		func(ctx context.Context) (struct{}, error) {
			calls++
			return struct{}{}, apperrors.Validation("malformed id")
		})
	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, clk.sleeps)
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestDo_SuggestedDelayOverridesShorterBackoff(t *testing.T) {
	clk := newFakeClock()
	p := NewPolicy(clk, zap.NewNop())

	calls := 0
	_, err := Do(context.Background(), p, testConfig(), "op",
		func(ctx context.Context) (struct{}, error) {
			calls++
			if calls == 1 {
				return struct{}{}, apperrors.RateLimited(500 * time.Millisecond)
			}
			return struct{}{}, nil
		})
	require.NoError(t, err)
	require.Equal(t, []time.Duration{500 * time.Millisecond}, clk.sleeps)
}

func TestDo_DelayCappedAtMax(t *testing.T) {
	clk := newFakeClock()
	p := NewPolicy(clk, zap.NewNop())

	cfg := Config{
		MaxAttempts:     5,
		InitialDelay:    400 * time.Millisecond,
		MaxDelay:        time.Second,
		ExponentialBase: 2.0,
	}
	_, err := Do(context.Background(), p, cfg, "op",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, apperrors.Network(errors.New("down"))
		})
	require.Error(t, err)
	require.Equal(t, []time.Duration{
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}, clk.sleeps)
}

func TestDo_BaseOneMeansFixedDelay(t *testing.T) {
	clk := newFakeClock()
	p := NewPolicy(clk, zap.NewNop())

	cfg := testConfig()
	cfg.ExponentialBase = 1.0
	_, err := Do(context.Background(), p, cfg, "op",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, apperrors.Network(errors.New("down"))
		})
	require.Error(t, err)
	require.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, clk.sleeps)
}

func TestDo_SingleAttemptDisablesRetry(t *testing.T) {
	clk := newFakeClock()
	p := NewPolicy(clk, zap.NewNop())

	cfg := testConfig()
	cfg.MaxAttempts = 1
	calls := 0
	_, err := Do(context.Background(), p, cfg, "op",
		func(ctx context.Context) (struct{}, error) {
			calls++
			return struct{}{}, apperrors.Network(errors.New("down"))
		})
	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, clk.sleeps)
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	clk := newFakeClock()
	p := NewPolicy(clk, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, p, testConfig(), "op",
		func(ctx context.Context) (struct{}, error) {
			calls++
			cancel()
			return struct{}{}, apperrors.Network(errors.New("down"))
		})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
