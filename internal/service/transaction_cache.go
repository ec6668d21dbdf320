package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gatebit/p2ptrader/internal/model"
	"github.com/gatebit/p2ptrader/internal/pkg/clock"
	"github.com/gatebit/p2ptrader/internal/service/ports"
)

// DefaultTransactionTTL matches the upstream polling cadence: a payout state
// older than this is refetched.
const DefaultTransactionTTL = 5 * time.Minute

type cacheEntry struct {
	// record is nil for a cached "not found" outcome.
	record     *model.TransactionRecord
	insertedAt time.Time
}

// TransactionCache memoizes payout lookups per transaction id within a fixed
// TTL, checked lazily at read time. Concurrent requesters for the same
// missing id coalesce onto one outbound fetch, so the rate-limited client is
// hit at most once per id at a time.
type TransactionCache struct {
	client ports.PayoutClient
	clk    clock.Clock
	logger *zap.Logger
	ttl    time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

func NewTransactionCache(client ports.PayoutClient, clk clock.Clock, logger *zap.Logger, ttl time.Duration) *TransactionCache {
	if ttl <= 0 {
		ttl = DefaultTransactionTTL
	}
	return &TransactionCache{
		client:  client,
		clk:     clk,
		logger:  logger,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// GetTransaction returns the cached payout for id, fetching through the
// client on a miss or after expiry. A nil record with nil error means the
// payout does not exist upstream; that outcome is cached too.
func (c *TransactionCache) GetTransaction(ctx context.Context, id string) (*model.TransactionRecord, error) {
	if record, ok := c.lookup(id); ok {
		return record, nil
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		// A coalesced caller may arrive right after the winner stored the
		// result; the recheck spares a duplicate fetch.
		if record, ok := c.lookup(id); ok {
			return record, nil
		}

		record, err := c.client.FetchTransaction(ctx, id)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[id] = cacheEntry{record: record, insertedAt: c.clk.Now()}
		c.mu.Unlock()

		if record == nil {
			c.logger.Debug("cached transaction absence", zap.String("transaction_id", id))
		}
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.TransactionRecord), nil
}

// GetMultipleTransactions resolves each distinct id through GetTransaction.
// Duplicate input ids collapse to one lookup; result order is not defined.
func (c *TransactionCache) GetMultipleTransactions(ctx context.Context, ids []string) (map[string]*model.TransactionRecord, error) {
	results := make(map[string]*model.TransactionRecord, len(ids))
	for _, id := range ids {
		if _, done := results[id]; done {
			continue
		}
		record, err := c.GetTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		results[id] = record
	}
	return results, nil
}

// GetTransactionStatus projects the payout's status code, nil when the
// payout does not exist.
func (c *TransactionCache) GetTransactionStatus(ctx context.Context, id string) (*int, error) {
	record, err := c.GetTransaction(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	status := record.Status
	return &status, nil
}

// IsTransactionCompleted reports whether the payout reached its terminal
// success status. A missing payout is not completed.
func (c *TransactionCache) IsTransactionCompleted(ctx context.Context, id string) (bool, error) {
	status, err := c.GetTransactionStatus(ctx, id)
	if err != nil || status == nil {
		return false, err
	}
	return *status == model.TransactionStatusCompleted, nil
}

// ClearCache drops every entry.
func (c *TransactionCache) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// RemoveFromCache drops one entry; no-op if absent. The next lookup for id
// always goes upstream.
func (c *TransactionCache) RemoveFromCache(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// CacheSize returns the number of entries, expired ones included.
func (c *TransactionCache) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// lookup returns the cached record for id unless the entry is missing or
// expired. An entry read at or past insertedAt+ttl is treated as absent.
func (c *TransactionCache) lookup(id string) (*model.TransactionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if c.clk.Now().Sub(entry.insertedAt) >= c.ttl {
		return nil, false
	}
	return entry.record, true
}
