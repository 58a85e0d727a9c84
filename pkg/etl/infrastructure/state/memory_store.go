package state

import (
	"context"
	"sync"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	repository "github.com/driftworks/cascade/pkg/etl/core/domain/repository"
)

// MemoryStore keeps the most recent snapshot in memory. It is used in
// tests and when no persistence is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	last      *model.StateSnapshot
	saveCount int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveState retains the snapshot.
func (s *MemoryStore) SaveState(ctx context.Context, snapshot *model.StateSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = snapshot
	s.saveCount++
	return nil
}

// Last returns the most recently saved snapshot, or nil.
func (s *MemoryStore) Last() *model.StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// SaveCount returns how many snapshots have been saved.
func (s *MemoryStore) SaveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveCount
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ repository.StateStore = (*MemoryStore)(nil)
