package repository

import (
	"fmt"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gatebit/p2ptrader/internal/config"
	"github.com/gatebit/p2ptrader/internal/service/ports"
)

// ProvideSnapshotStore selects the snapshot store from config.
func ProvideSnapshotStore(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (ports.SnapshotStore, error) {
	switch cfg.Storage.Driver {
	case "file", "":
		return NewFileSnapshotStore(cfg.Storage.Path), nil
	case "postgres":
		store := NewPostgresSnapshotStore(db)
		if err := store.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("migrate account tables: %w", err)
		}
		return store, nil
	case "redis":
		return NewRedisSnapshotStore(rdb), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// ProviderSet is the Wire provider set for stores and upstream clients.
var ProviderSet = wire.NewSet(
	ProvideSnapshotStore,
	NewGateClient,
	NewBybitClient,

	wire.Bind(new(ports.PayoutClient), new(*GateClient)),
	wire.Bind(new(ports.AdPublisher), new(*BybitClient)),
)
