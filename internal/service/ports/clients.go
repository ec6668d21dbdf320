package ports

import (
	"context"

	"github.com/gatebit/p2ptrader/internal/model"
)

// PayoutClient fetches and approves Gate payouts. Implementations own their
// session, cookie and anti-bot mechanics; the core only reacts to the
// apperrors kind they surface. FetchTransaction returns (nil, nil) when the
// payout does not exist.
type PayoutClient interface {
	FetchTransaction(ctx context.Context, id string) (*model.TransactionRecord, error)
	ApproveTransaction(ctx context.Context, id string, evidence []byte) (*model.TransactionRecord, error)
}

// AdPublisher manages P2P advertisements on a Bybit account. PublishAd
// returns the upstream ad id.
type AdPublisher interface {
	PublishAd(ctx context.Context, account *model.BybitAccount, tx *model.TransactionRecord) (string, error)
	RemoveAd(ctx context.Context, account *model.BybitAccount, adID string) error
}
