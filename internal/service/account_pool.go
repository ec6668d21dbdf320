package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gatebit/p2ptrader/internal/model"
	"github.com/gatebit/p2ptrader/internal/pkg/apperrors"
	"github.com/gatebit/p2ptrader/internal/pkg/clock"
	"github.com/gatebit/p2ptrader/internal/service/ports"
)

// AccountPool owns the authoritative inventory of Gate and Bybit accounts.
// Every mutation runs under one mutex and is written through to the store
// before it becomes visible: the mutation is prepared on a cloned snapshot,
// saved, and only then committed, so a failed save leaves no trace.
type AccountPool struct {
	store  ports.SnapshotStore
	clk    clock.Clock
	logger *zap.Logger
	maxAds int

	mu       sync.Mutex
	snapshot *model.AccountSnapshot
}

// NewAccountPool loads the inventory from the store. Startup never falls
// back to in-memory defaults: a store error is fatal to construction.
func NewAccountPool(ctx context.Context, store ports.SnapshotStore, clk clock.Clock, logger *zap.Logger, maxAdsPerAccount int) (*AccountPool, error) {
	if maxAdsPerAccount <= 0 {
		maxAdsPerAccount = model.DefaultMaxAdsPerAccount
	}
	snapshot, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load account snapshot: %w", err)
	}
	if snapshot == nil {
		snapshot = model.NewAccountSnapshot()
	}
	return &AccountPool{
		store:    store,
		clk:      clk,
		logger:   logger,
		maxAds:   maxAdsPerAccount,
		snapshot: snapshot,
	}, nil
}

// commit saves next and, on success, makes it the live snapshot.
// Must be called with p.mu held.
func (p *AccountPool) commit(ctx context.Context, next *model.AccountSnapshot) error {
	next.LastUpdated = p.clk.Now()
	if err := p.store.Save(ctx, next); err != nil {
		return fmt.Errorf("persist account snapshot: %w", err)
	}
	p.snapshot = next
	return nil
}

// AddGateAccount registers a Gate account with status active and zero
// balance, returning its id.
func (p *AccountPool) AddGateAccount(ctx context.Context, email, password string) (int64, error) {
	if email == "" || password == "" {
		return 0, apperrors.Validation("email and password are required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.snapshot.GateAccounts {
		if p.snapshot.GateAccounts[i].Email == email {
			return 0, apperrors.DuplicateAccount("gate account already exists: " + email)
		}
	}

	next := p.snapshot.Clone()
	now := p.clk.Now()
	id := nextGateID(next)
	next.GateAccounts = append(next.GateAccounts, model.GateAccount{
		ID:        id,
		Email:     email,
		Password:  password,
		Status:    model.GateStatusActive,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	})

	if err := p.commit(ctx, next); err != nil {
		return 0, err
	}
	p.logger.Info("gate account added", zap.Int64("id", id), zap.String("email", email))
	return id, nil
}

// AddBybitAccount registers a Bybit account with status available and no
// running ads, returning its id.
func (p *AccountPool) AddBybitAccount(ctx context.Context, name, apiKey, apiSecret string) (int64, error) {
	if name == "" || apiKey == "" || apiSecret == "" {
		return 0, apperrors.Validation("name, api key and api secret are required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.snapshot.BybitAccounts {
		if p.snapshot.BybitAccounts[i].Name == name {
			return 0, apperrors.DuplicateAccount("bybit account already exists: " + name)
		}
	}

	next := p.snapshot.Clone()
	now := p.clk.Now()
	id := nextBybitID(next)
	next.BybitAccounts = append(next.BybitAccounts, model.BybitAccount{
		ID:        id,
		Name:      name,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Status:    model.BybitStatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	})

	if err := p.commit(ctx, next); err != nil {
		return 0, err
	}
	p.logger.Info("bybit account added", zap.Int64("id", id), zap.String("name", name))
	return id, nil
}

// ListActiveGateAccounts returns active Gate accounts in ascending id order.
func (p *AccountPool) ListActiveGateAccounts() []model.GateAccount {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.GateAccount, 0, len(p.snapshot.GateAccounts))
	for i := range p.snapshot.GateAccounts {
		if p.snapshot.GateAccounts[i].IsActive() {
			out = append(out, p.snapshot.GateAccounts[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetGateAccount returns the Gate account with the given id, or nil.
func (p *AccountPool) GetGateAccount(id int64) *model.GateAccount {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.snapshot.GateAccounts {
		if p.snapshot.GateAccounts[i].ID == id {
			a := p.snapshot.GateAccounts[i]
			return &a
		}
	}
	return nil
}

// GetBybitAccount returns the Bybit account with the given id, or nil.
func (p *AccountPool) GetBybitAccount(id int64) *model.BybitAccount {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.snapshot.BybitAccounts {
		if p.snapshot.BybitAccounts[i].ID == id {
			a := p.snapshot.BybitAccounts[i]
			return &a
		}
	}
	return nil
}

// ListBybitAccounts returns all Bybit accounts in ascending id order.
func (p *AccountPool) ListBybitAccounts() []model.BybitAccount {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.BybitAccount, len(p.snapshot.BybitAccounts))
	copy(out, p.snapshot.BybitAccounts)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AcquireBybitAccountForAd atomically allocates one ad slot. It picks the
// available account with the most free slots, breaking ties by lowest id,
// increments its ad count and flips it to busy at the cap. Returns
// (nil, nil) when no account has a free slot; callers treat that as "no
// resource currently available", not as an error.
func (p *AccountPool) AcquireBybitAccountForAd(ctx context.Context) (*model.BybitAccount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := -1
	for i := range p.snapshot.BybitAccounts {
		a := &p.snapshot.BybitAccounts[i]
		if !a.CanTakeAd(p.maxAds) {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		b := &p.snapshot.BybitAccounts[best]
		if a.FreeSlots(p.maxAds) > b.FreeSlots(p.maxAds) ||
			(a.FreeSlots(p.maxAds) == b.FreeSlots(p.maxAds) && a.ID < b.ID) {
			best = i
		}
	}
	if best == -1 {
		return nil, nil
	}

	next := p.snapshot.Clone()
	acct := &next.BybitAccounts[best]
	acct.ActiveAdCount++
	if acct.ActiveAdCount >= p.maxAds {
		acct.Status = model.BybitStatusBusy
	}
	acct.UpdatedAt = p.clk.Now()

	if err := p.commit(ctx, next); err != nil {
		return nil, err
	}

	granted := *acct
	p.logger.Info("ad slot acquired",
		zap.Int64("account_id", granted.ID),
		zap.Int("active_ads", granted.ActiveAdCount))
	return &granted, nil
}

// ReleaseBybitAdSlot returns one ad slot to the account, flooring the count
// at zero and restoring availability if the account was busy.
func (p *AccountPool) ReleaseBybitAdSlot(ctx context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := indexOfBybit(p.snapshot, id)
	if idx == -1 {
		return apperrors.NotFound(fmt.Sprintf("bybit account %d not found", id))
	}

	next := p.snapshot.Clone()
	acct := &next.BybitAccounts[idx]
	if acct.ActiveAdCount > 0 {
		acct.ActiveAdCount--
	}
	if acct.Status == model.BybitStatusBusy && acct.ActiveAdCount < p.maxAds {
		acct.Status = model.BybitStatusAvailable
	}
	acct.UpdatedAt = p.clk.Now()

	if err := p.commit(ctx, next); err != nil {
		return err
	}
	p.logger.Info("ad slot released",
		zap.Int64("account_id", id),
		zap.Int("active_ads", acct.ActiveAdCount))
	return nil
}

// UpdateGateBalance overwrites the Gate account's balance.
func (p *AccountPool) UpdateGateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := indexOfGate(p.snapshot, id)
	if idx == -1 {
		return apperrors.NotFound(fmt.Sprintf("gate account %d not found", id))
	}

	next := p.snapshot.Clone()
	next.GateAccounts[idx].Balance = balance
	next.GateAccounts[idx].UpdatedAt = p.clk.Now()

	if err := p.commit(ctx, next); err != nil {
		return err
	}
	p.logger.Info("gate balance updated",
		zap.Int64("account_id", id),
		zap.String("balance", balance.String()))
	return nil
}

// UpdateGateSession stores a fresh session blob and marks the account active.
func (p *AccountPool) UpdateGateSession(ctx context.Context, id int64, session []byte, expiry time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := indexOfGate(p.snapshot, id)
	if idx == -1 {
		return apperrors.NotFound(fmt.Sprintf("gate account %d not found", id))
	}

	next := p.snapshot.Clone()
	acct := &next.GateAccounts[idx]
	acct.Session = append([]byte(nil), session...)
	acct.SessionExpiry = &expiry
	acct.Status = model.GateStatusActive
	acct.UpdatedAt = p.clk.Now()

	if err := p.commit(ctx, next); err != nil {
		return err
	}
	p.logger.Info("gate session refreshed", zap.Int64("account_id", id))
	return nil
}

// GetStats summarizes the live snapshot.
func (p *AccountPool) GetStats() model.AccountStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := model.AccountStats{
		GateTotal:  len(p.snapshot.GateAccounts),
		BybitTotal: len(p.snapshot.BybitAccounts),
	}
	for i := range p.snapshot.GateAccounts {
		if p.snapshot.GateAccounts[i].IsActive() {
			stats.GateActive++
		}
	}
	for i := range p.snapshot.BybitAccounts {
		if p.snapshot.BybitAccounts[i].Status == model.BybitStatusAvailable {
			stats.BybitAvailable++
		}
		stats.TotalActiveAds += p.snapshot.BybitAccounts[i].ActiveAdCount
	}
	return stats
}

// Reload replaces the live snapshot with the stored one.
func (p *AccountPool) Reload(ctx context.Context) error {
	snapshot, err := p.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload account snapshot: %w", err)
	}
	if snapshot == nil {
		snapshot = model.NewAccountSnapshot()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot = snapshot
	return nil
}

func nextGateID(s *model.AccountSnapshot) int64 {
	var max int64
	for i := range s.GateAccounts {
		if s.GateAccounts[i].ID > max {
			max = s.GateAccounts[i].ID
		}
	}
	return max + 1
}

func nextBybitID(s *model.AccountSnapshot) int64 {
	var max int64
	for i := range s.BybitAccounts {
		if s.BybitAccounts[i].ID > max {
			max = s.BybitAccounts[i].ID
		}
	}
	return max + 1
}

func indexOfGate(s *model.AccountSnapshot, id int64) int {
	for i := range s.GateAccounts {
		if s.GateAccounts[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfBybit(s *model.AccountSnapshot, id int64) int {
	for i := range s.BybitAccounts {
		if s.BybitAccounts[i].ID == id {
			return i
		}
	}
	return -1
}
