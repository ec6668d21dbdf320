package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gatebit/p2ptrader/internal/model"
	"github.com/gatebit/p2ptrader/internal/service/ports"
)

// PostgresSnapshotStore persists accounts in two tables. Save upserts the
// whole snapshot in one transaction and prunes rows that left it, so the
// tables always mirror the last committed snapshot.
type PostgresSnapshotStore struct {
	db *gorm.DB
}

func NewPostgresSnapshotStore(db *gorm.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// AutoMigrate creates the account tables. GORM only adds missing columns,
// never drops existing ones.
func (s *PostgresSnapshotStore) AutoMigrate() error {
	return s.db.AutoMigrate(&model.GateAccount{}, &model.BybitAccount{})
}

func (s *PostgresSnapshotStore) Load(ctx context.Context) (*model.AccountSnapshot, error) {
	snapshot := model.NewAccountSnapshot()

	if err := s.db.WithContext(ctx).Order("id ASC").Find(&snapshot.GateAccounts).Error; err != nil {
		return nil, fmt.Errorf("load gate accounts: %w", err)
	}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&snapshot.BybitAccounts).Error; err != nil {
		return nil, fmt.Errorf("load bybit accounts: %w", err)
	}

	for i := range snapshot.GateAccounts {
		if snapshot.GateAccounts[i].UpdatedAt.After(snapshot.LastUpdated) {
			snapshot.LastUpdated = snapshot.GateAccounts[i].UpdatedAt
		}
	}
	for i := range snapshot.BybitAccounts {
		if snapshot.BybitAccounts[i].UpdatedAt.After(snapshot.LastUpdated) {
			snapshot.LastUpdated = snapshot.BybitAccounts[i].UpdatedAt
		}
	}
	return snapshot, nil
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, snapshot *model.AccountSnapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(snapshot.GateAccounts) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&snapshot.GateAccounts).Error; err != nil {
				return fmt.Errorf("upsert gate accounts: %w", err)
			}
		}
		if len(snapshot.BybitAccounts) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&snapshot.BybitAccounts).Error; err != nil {
				return fmt.Errorf("upsert bybit accounts: %w", err)
			}
		}

		gateIDs := make([]int64, 0, len(snapshot.GateAccounts))
		for i := range snapshot.GateAccounts {
			gateIDs = append(gateIDs, snapshot.GateAccounts[i].ID)
		}
		bybitIDs := make([]int64, 0, len(snapshot.BybitAccounts))
		for i := range snapshot.BybitAccounts {
			bybitIDs = append(bybitIDs, snapshot.BybitAccounts[i].ID)
		}

		gateDel := tx.Model(&model.GateAccount{})
		if len(gateIDs) > 0 {
			gateDel = gateDel.Where("id NOT IN ?", gateIDs)
		} else {
			gateDel = gateDel.Where("1 = 1")
		}
		if err := gateDel.Delete(&model.GateAccount{}).Error; err != nil {
			return fmt.Errorf("prune gate accounts: %w", err)
		}

		bybitDel := tx.Model(&model.BybitAccount{})
		if len(bybitIDs) > 0 {
			bybitDel = bybitDel.Where("id NOT IN ?", bybitIDs)
		} else {
			bybitDel = bybitDel.Where("1 = 1")
		}
		if err := bybitDel.Delete(&model.BybitAccount{}).Error; err != nil {
			return fmt.Errorf("prune bybit accounts: %w", err)
		}
		return nil
	})
}

var _ ports.SnapshotStore = (*PostgresSnapshotStore)(nil)
