package service

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/gatebit/p2ptrader/internal/config"
	"github.com/gatebit/p2ptrader/internal/pkg/clock"
	"github.com/gatebit/p2ptrader/internal/pkg/ratelimit"
	"github.com/gatebit/p2ptrader/internal/pkg/retry"
	"github.com/gatebit/p2ptrader/internal/service/ports"
)

// ProvideLimiter builds the process-wide per-service rate limiter.
func ProvideLimiter(cfg *config.Config, clk clock.Clock) *ratelimit.Limiter {
	return ratelimit.New(clk, map[string]ratelimit.BucketConfig{
		"gate": {
			RequestsPerMinute: cfg.RateLimits.GateRequestsPerMinute,
			Burst:             cfg.RateLimits.DefaultBurstSize,
		},
		"bybit": {
			RequestsPerMinute: cfg.RateLimits.BybitRequestsPerMinute,
			Burst:             cfg.RateLimits.DefaultBurstSize,
		},
	})
}

// ProvideRetryPolicy builds the shared retry policy.
func ProvideRetryPolicy(clk clock.Clock, logger *zap.Logger) *retry.Policy {
	return retry.NewPolicy(clk, logger)
}

// ProvideAccountPool loads the pool from its store at startup.
func ProvideAccountPool(cfg *config.Config, store ports.SnapshotStore, clk clock.Clock, logger *zap.Logger) (*AccountPool, error) {
	return NewAccountPool(context.Background(), store, clk, logger, cfg.Trading.MaxAdsPerAccount)
}

// ProvideTransactionCache builds the payout cache with the configured TTL.
func ProvideTransactionCache(cfg *config.Config, client ports.PayoutClient, clk clock.Clock, logger *zap.Logger) *TransactionCache {
	return NewTransactionCache(client, clk, logger, cfg.Cache.TransactionTTL)
}

// ProviderSet is the Wire provider set for all services.
var ProviderSet = wire.NewSet(
	clock.New,
	ProvideLimiter,
	ProvideRetryPolicy,
	ProvideAccountPool,
	ProvideTransactionCache,
	NewTraderService,
)
