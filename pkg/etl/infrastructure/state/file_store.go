// Package state provides StateStore implementations: a JSON file store
// for the operator-facing audit document, a gorm-backed relational store
// for execution records, an in-memory store for tests, and a fan-out
// store combining several sinks.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	repository "github.com/driftworks/cascade/pkg/etl/core/domain/repository"
)

// FileStore writes each state snapshot as an indented JSON document,
// replacing the previous one. The write goes through a temp file and a
// rename so a crash never leaves a truncated document.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// SaveState writes the snapshot to the configured file.
func (s *FileStore) SaveState(ctx context.Context, snapshot *model.StateSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

var _ repository.StateStore = (*FileStore)(nil)
