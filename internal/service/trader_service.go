package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatebit/p2ptrader/internal/model"
	"github.com/gatebit/p2ptrader/internal/service/ports"
)

// WorkflowOutcome classifies how one pending payout was handled.
type WorkflowOutcome string

const (
	OutcomeApproved WorkflowOutcome = "approved"  // ad published, payout approved
	OutcomeSkipped  WorkflowOutcome = "skipped"   // already completed or cancelled
	OutcomeAbsent   WorkflowOutcome = "absent"    // payout does not exist upstream
	OutcomeDeferred WorkflowOutcome = "deferred"  // no ad slot free right now
)

// WorkflowResult reports what ProcessPayout did for one transaction.
type WorkflowResult struct {
	RunID     string
	Outcome   WorkflowOutcome
	AccountID int64  // bybit account, when a slot was used
	AdID      string // published ad, when the outcome is approved
}

// TraderService drives one arbitrage step per pending payout: read the
// payout state through the cache, allocate a Bybit ad slot, publish the
// counter-advertisement and approve the payout. The clients handle their own
// rate limiting and retries; the service only reacts to final outcomes.
type TraderService struct {
	cache   *TransactionCache
	pool    *AccountPool
	payouts ports.PayoutClient
	ads     ports.AdPublisher
	logger  *zap.Logger
}

func NewTraderService(cache *TransactionCache, pool *AccountPool, payouts ports.PayoutClient, ads ports.AdPublisher, logger *zap.Logger) *TraderService {
	return &TraderService{
		cache:   cache,
		pool:    pool,
		payouts: payouts,
		ads:     ads,
		logger:  logger,
	}
}

// ProcessPayout handles one pending transaction end to end. A deferred
// outcome (no slot free) is not an error; the caller decides whether to
// requeue. A slot acquired for a publish that then fails is always released.
func (s *TraderService) ProcessPayout(ctx context.Context, txID string) (*WorkflowResult, error) {
	result := &WorkflowResult{RunID: uuid.NewString()}
	log := s.logger.With(zap.String("run_id", result.RunID), zap.String("transaction_id", txID))

	tx, err := s.cache.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("fetch transaction %s: %w", txID, err)
	}
	if tx == nil {
		log.Info("payout not found upstream")
		result.Outcome = OutcomeAbsent
		return result, nil
	}
	if tx.Status != model.TransactionStatusPending {
		log.Info("payout not pending, skipping", zap.Int("status", tx.Status))
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	account, err := s.pool.AcquireBybitAccountForAd(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire ad slot: %w", err)
	}
	if account == nil {
		log.Info("no ad slot available, deferring")
		result.Outcome = OutcomeDeferred
		return result, nil
	}
	result.AccountID = account.ID
	log = log.With(zap.Int64("account_id", account.ID))

	adID, err := s.ads.PublishAd(ctx, account, tx)
	if err != nil {
		if relErr := s.pool.ReleaseBybitAdSlot(ctx, account.ID); relErr != nil {
			log.Error("failed to release slot after publish failure", zap.Error(relErr))
		}
		return nil, fmt.Errorf("publish ad: %w", err)
	}
	result.AdID = adID
	log.Info("ad published", zap.String("ad_id", adID))

	approved, err := s.payouts.ApproveTransaction(ctx, txID, nil)
	if err != nil {
		// The ad stays up; the slot is released when the ad is taken down
		// via CompleteAd.
		return nil, fmt.Errorf("approve transaction %s: %w", txID, err)
	}

	// The cached state is stale the moment the approval lands.
	s.cache.RemoveFromCache(txID)
	if approved != nil {
		log.Info("payout approved", zap.Int("status", approved.Status))
	}

	result.Outcome = OutcomeApproved
	return result, nil
}

// CompleteAd takes the advertisement down and returns its slot to the pool.
func (s *TraderService) CompleteAd(ctx context.Context, accountID int64, adID string) error {
	account := s.pool.GetBybitAccount(accountID)
	if account == nil {
		return s.pool.ReleaseBybitAdSlot(ctx, accountID) // surfaces not-found
	}
	if err := s.ads.RemoveAd(ctx, account, adID); err != nil {
		return fmt.Errorf("remove ad %s: %w", adID, err)
	}
	return s.pool.ReleaseBybitAdSlot(ctx, accountID)
}
