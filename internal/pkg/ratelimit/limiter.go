package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/gatebit/p2ptrader/internal/pkg/clock"
)

// BucketConfig describes one upstream service's call budget.
type BucketConfig struct {
	RequestsPerMinute int
	Burst             int
}

// Limiter bounds the outbound call rate per upstream service with one token
// bucket per service. Services without an explicit config share conservative
// default buckets (30 rpm, burst 5), one bucket per unknown service name.
type Limiter struct {
	clk clock.Clock

	mu      sync.Mutex
	buckets map[string]*bucket
	configs map[string]BucketConfig
	def     BucketConfig
}

type bucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

const (
	defaultRequestsPerMinute = 30
	defaultBurst             = 5
)

// New creates a limiter with per-service configs keyed by service name.
func New(clk clock.Clock, configs map[string]BucketConfig) *Limiter {
	cp := make(map[string]BucketConfig, len(configs))
	for name, cfg := range configs {
		cp[name] = cfg
	}
	return &Limiter{
		clk:     clk,
		buckets: make(map[string]*bucket),
		configs: cp,
		def:     BucketConfig{RequestsPerMinute: defaultRequestsPerMinute, Burst: defaultBurst},
	}
}

// Acquire blocks until one token is available for service, then consumes it.
// It only fails when ctx is cancelled; a cancelled wait consumes nothing.
func (l *Limiter) Acquire(ctx context.Context, service string) error {
	b := l.bucket(service)
	for {
		b.mu.Lock()
		b.refill(l.clk.Now())
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second))
		b.mu.Unlock()

		if err := l.clk.Sleep(ctx, wait); err != nil {
			return err
		}
		// Re-check: another caller may have drained the refilled tokens
		// while we slept.
	}
}

// TryAcquire consumes a token if one is immediately available.
func (l *Limiter) TryAcquire(service string) bool {
	b := l.bucket(service)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(l.clk.Now())
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (l *Limiter) bucket(service string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[service]; ok {
		return b
	}
	cfg, ok := l.configs[service]
	if !ok {
		cfg = l.def
	}
	b := &bucket{
		capacity:   float64(cfg.Burst),
		tokens:     float64(cfg.Burst),
		refillRate: float64(cfg.RequestsPerMinute) / 60.0,
		lastRefill: l.clk.Now(),
	}
	l.buckets[service] = b
	return b
}

// refill must be called with b.mu held.
func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}
