package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Gate account statuses.
const (
	GateStatusActive   = "active"
	GateStatusInactive = "inactive"
	GateStatusBanned   = "banned"
)

// Bybit account statuses.
const (
	BybitStatusAvailable = "available"
	BybitStatusBusy      = "busy"
	BybitStatusDisabled  = "disabled"
)

// DefaultMaxAdsPerAccount caps concurrent P2P advertisements per Bybit account.
const DefaultMaxAdsPerAccount = 4

// GateAccount is a scraped Gate.io trading account. The session blob is an
// opaque cookie dump owned by the Gate client; the pool only stores it.
type GateAccount struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	Email         string          `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password      string          `gorm:"size:255;not null" json:"password"`
	Status        string          `gorm:"size:20;default:active;not null" json:"status"`
	Balance       decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"balance"`
	Session       json.RawMessage `gorm:"type:jsonb" json:"session,omitempty"`
	SessionExpiry *time.Time      `json:"session_expiry,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

func (GateAccount) TableName() string { return "gate_accounts" }

// IsActive reports whether the account can be used for trading.
func (a *GateAccount) IsActive() bool { return a.Status == GateStatusActive }

// HasValidSession reports whether the stored session blob is still usable.
func (a *GateAccount) HasValidSession(now time.Time) bool {
	return len(a.Session) > 0 && a.SessionExpiry != nil && now.Before(*a.SessionExpiry)
}

// BybitAccount is an API-keyed Bybit account running P2P advertisements.
type BybitAccount struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	APIKey        string    `gorm:"size:255;not null" json:"api_key"`
	APISecret     string    `gorm:"size:255;not null" json:"api_secret"`
	Status        string    `gorm:"size:20;default:available;not null" json:"status"`
	ActiveAdCount int       `gorm:"default:0;not null" json:"active_ad_count"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (BybitAccount) TableName() string { return "bybit_accounts" }

// FreeSlots returns the remaining ad capacity under the given cap.
func (a *BybitAccount) FreeSlots(maxAds int) int {
	free := maxAds - a.ActiveAdCount
	if free < 0 {
		return 0
	}
	return free
}

// CanTakeAd reports whether the account may run one more advertisement.
func (a *BybitAccount) CanTakeAd(maxAds int) bool {
	return a.Status == BybitStatusAvailable && a.ActiveAdCount < maxAds
}

// AccountSnapshot is the persisted inventory of both account kinds. It is
// the unit of write-through persistence: stores load and save it whole.
type AccountSnapshot struct {
	GateAccounts  []GateAccount  `json:"gate_accounts"`
	BybitAccounts []BybitAccount `json:"bybit_accounts"`
	LastUpdated   time.Time      `json:"last_updated"`
}

// NewAccountSnapshot returns an empty snapshot.
func NewAccountSnapshot() *AccountSnapshot {
	return &AccountSnapshot{
		GateAccounts:  []GateAccount{},
		BybitAccounts: []BybitAccount{},
	}
}

// Clone deep-copies the snapshot so a mutation can be prepared, persisted
// and only then committed.
func (s *AccountSnapshot) Clone() *AccountSnapshot {
	out := &AccountSnapshot{
		GateAccounts:  make([]GateAccount, len(s.GateAccounts)),
		BybitAccounts: make([]BybitAccount, len(s.BybitAccounts)),
		LastUpdated:   s.LastUpdated,
	}
	copy(out.GateAccounts, s.GateAccounts)
	for i := range out.GateAccounts {
		if sess := s.GateAccounts[i].Session; sess != nil {
			out.GateAccounts[i].Session = append(json.RawMessage(nil), sess...)
		}
		if exp := s.GateAccounts[i].SessionExpiry; exp != nil {
			e := *exp
			out.GateAccounts[i].SessionExpiry = &e
		}
	}
	copy(out.BybitAccounts, s.BybitAccounts)
	return out
}

// AccountStats is a point-in-time summary of the pool.
type AccountStats struct {
	GateActive     int `json:"gate_active"`
	GateTotal      int `json:"gate_total"`
	BybitAvailable int `json:"bybit_available"`
	BybitTotal     int `json:"bybit_total"`
	TotalActiveAds int `json:"total_active_ads"`
}
