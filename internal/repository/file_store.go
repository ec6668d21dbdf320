package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gatebit/p2ptrader/internal/model"
	"github.com/gatebit/p2ptrader/internal/service/ports"
)

// FileSnapshotStore persists the account snapshot as pretty-printed JSON.
// Saves go through a temp file plus rename so a crash mid-write never
// truncates the inventory.
type FileSnapshotStore struct {
	path string
}

func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

func (s *FileSnapshotStore) Load(_ context.Context) (*model.AccountSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewAccountSnapshot(), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var snapshot model.AccountSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if snapshot.GateAccounts == nil {
		snapshot.GateAccounts = []model.GateAccount{}
	}
	if snapshot.BybitAccounts == nil {
		snapshot.BybitAccounts = []model.BybitAccount{}
	}
	return &snapshot, nil
}

func (s *FileSnapshotStore) Save(_ context.Context, snapshot *model.AccountSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".accounts-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

var _ ports.SnapshotStore = (*FileSnapshotStore)(nil)
