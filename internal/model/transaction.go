package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gate payout status codes, as reported by the upstream API.
const (
	TransactionStatusPending   = 4
	TransactionStatusCompleted = 5
	TransactionStatusCancelled = 9
)

// TransactionRecord is an immutable snapshot of an upstream payout. Identity
// is the transaction id; the record itself is owned by the fetch source and
// only cached here.
type TransactionRecord struct {
	ID         string          `json:"id"`
	Status     int             `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Wallet     string          `json:"wallet"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	ApprovedAt *time.Time      `json:"approved_at,omitempty"`
}

// IsCompleted reports whether the payout reached its terminal success state.
func (t *TransactionRecord) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}
