package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gatebit/p2ptrader/internal/pkg/apperrors"
	"github.com/gatebit/p2ptrader/internal/pkg/clock"
)

// Config bounds the backoff schedule. Delays follow
// d0 = InitialDelay, d(i) = min(d(i-1) * ExponentialBase, MaxDelay).
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
}

// DefaultConfig mirrors the production defaults: three attempts,
// 1s initial delay doubling up to 60s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialDelay:    time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
	}
}

// Policy wraps fallible operations with bounded exponential-backoff retry.
// Fatal errors short-circuit; retryable ones are re-attempted after a sleep
// that is cancellable through the operation's context.
type Policy struct {
	clk    clock.Clock
	logger *zap.Logger
}

func NewPolicy(clk clock.Clock, logger *zap.Logger) *Policy {
	return &Policy{clk: clk, logger: logger}
}

// Do invokes op up to cfg.MaxAttempts times. MaxAttempts=1 disables
// retrying; ExponentialBase=1.0 degenerates to a fixed delay. An upstream
// Retry-After suggestion longer than the computed delay takes precedence.
func Do[T any](ctx context.Context, p *Policy, cfg Config, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	delay := cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		p.logger.Debug("attempting operation",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts))

		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				p.logger.Debug("operation succeeded after retries",
					zap.String("operation", name),
					zap.Int("attempts", attempt))
			}
			return result, nil
		}

		if !apperrors.IsRetryable(err) {
			p.logger.Warn("operation failed with non-retryable error",
				zap.String("operation", name),
				zap.Error(err))
			return zero, err
		}

		if attempt >= cfg.MaxAttempts {
			p.logger.Warn("operation exhausted retries",
				zap.String("operation", name),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return zero, fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
		}

		sleep := delay
		if suggested := apperrors.SuggestedDelay(err); suggested > sleep {
			sleep = suggested
		}
		p.logger.Warn("operation failed, retrying",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("delay", sleep),
			zap.Error(err))

		if serr := p.clk.Sleep(ctx, sleep); serr != nil {
			return zero, serr
		}

		next := time.Duration(float64(delay) * cfg.ExponentialBase)
		if next > cfg.MaxDelay {
			next = cfg.MaxDelay
		}
		delay = next
	}
}
