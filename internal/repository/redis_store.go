package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gatebit/p2ptrader/internal/model"
	"github.com/gatebit/p2ptrader/internal/service/ports"
)

const snapshotKey = "accounts:snapshot"

// RedisSnapshotStore keeps the account snapshot as one JSON blob under a
// fixed key. The snapshot never expires; it is authoritative state, not a
// cache.
type RedisSnapshotStore struct {
	rdb *redis.Client
}

func NewRedisSnapshotStore(rdb *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{rdb: rdb}
}

func (s *RedisSnapshotStore) Load(ctx context.Context) (*model.AccountSnapshot, error) {
	data, err := s.rdb.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.NewAccountSnapshot(), nil
		}
		return nil, fmt.Errorf("get %s: %w", snapshotKey, err)
	}

	var snapshot model.AccountSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse %s: %w", snapshotKey, err)
	}
	if snapshot.GateAccounts == nil {
		snapshot.GateAccounts = []model.GateAccount{}
	}
	if snapshot.BybitAccounts == nil {
		snapshot.BybitAccounts = []model.BybitAccount{}
	}
	return &snapshot, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, snapshot *model.AccountSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", snapshotKey, err)
	}
	return nil
}

var _ ports.SnapshotStore = (*RedisSnapshotStore)(nil)
