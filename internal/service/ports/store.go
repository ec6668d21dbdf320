package ports

import (
	"context"

	"github.com/gatebit/p2ptrader/internal/model"
)

// SnapshotStore persists the account inventory. Any keyed durable store
// works; the pool treats Save as the commit point of every mutation.
type SnapshotStore interface {
	// Load returns the stored snapshot, or an empty one if nothing has been
	// saved yet.
	Load(ctx context.Context) (*model.AccountSnapshot, error)
	Save(ctx context.Context, snapshot *model.AccountSnapshot) error
}
