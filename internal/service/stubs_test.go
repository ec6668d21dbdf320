//go:build unit

package service

import (
	"context"
	"sync"
	"time"

	"github.com/gatebit/p2ptrader/internal/model"
)

// fakeClock advances instantly on Sleep and supports manual advancing.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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
	c.advance(d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memStore is an in-memory SnapshotStore with injectable failures.
type memStore struct {
	mu       sync.Mutex
	snapshot *model.AccountSnapshot
	saves    int
	loadErr  error
	saveErr  error
}

func (s *memStore) Load(_ context.Context) (*model.AccountSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.snapshot == nil {
		return model.NewAccountSnapshot(), nil
	}
	return s.snapshot.Clone(), nil
}

func (s *memStore) Save(_ context.Context, snapshot *model.AccountSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.snapshot = snapshot.Clone()
	return nil
}

func (s *memStore) setSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *memStore) stored() *model.AccountSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil
	}
	return s.snapshot.Clone()
}

// fakePayoutClient serves canned payout records and counts outbound fetches.
type fakePayoutClient struct {
	mu       sync.Mutex
	records  map[string]*model.TransactionRecord
	fetches  int
	fetchErr error

	approveErr error
	approved   []string

	// When set, FetchTransaction blocks until the channel is closed.
	blockFetch chan struct{}
}

func newFakePayoutClient() *fakePayoutClient {
	return &fakePayoutClient{records: make(map[string]*model.TransactionRecord)}
}

func (c *fakePayoutClient) FetchTransaction(_ context.Context, id string) (*model.TransactionRecord, error) {
	c.mu.Lock()
	block := c.blockFetch
	c.mu.Unlock()
	if block != nil {
		<-block
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches++
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	record, ok := c.records[id]
	if !ok {
		return nil, nil
	}
	cp := *record
	return &cp, nil
}

func (c *fakePayoutClient) ApproveTransaction(_ context.Context, id string, _ []byte) (*model.TransactionRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.approveErr != nil {
		return nil, c.approveErr
	}
	c.approved = append(c.approved, id)
	record, ok := c.records[id]
	if !ok {
		return nil, nil
	}
	cp := *record
	cp.Status = model.TransactionStatusCompleted
	return &cp, nil
}

func (c *fakePayoutClient) fetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// fakeAdPublisher records published and removed ads.
type fakeAdPublisher struct {
	mu         sync.Mutex
	publishErr error
	removeErr  error
	published  []string
	removed    []string
}

func (p *fakeAdPublisher) PublishAd(_ context.Context, account *model.BybitAccount, tx *model.TransactionRecord) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return "", p.publishErr
	}
	adID := "ad-" + tx.ID
	p.published = append(p.published, adID)
	return adID, nil
}

func (p *fakeAdPublisher) RemoveAd(_ context.Context, _ *model.BybitAccount, adID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.removeErr != nil {
		return p.removeErr
	}
	p.removed = append(p.removed, adID)
	return nil
}
