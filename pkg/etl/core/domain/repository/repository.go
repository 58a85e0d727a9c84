// Package repository defines the persistence port of the orchestrator.
// Saving state is a narrow, write-only collaborator: the orchestrator
// hands over a snapshot after every job run and never reads it back.
package repository

import (
	"context"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
)

// StateStore persists orchestrator state snapshots. Implementations must
// be safe for concurrent use; jobs within a level complete in parallel.
type StateStore interface {
	// SaveState persists one snapshot. Errors are reported but the
	// orchestrator treats saving as best effort and never fails a job
	// over it.
	SaveState(ctx context.Context, snapshot *model.StateSnapshot) error
	// Close releases resources held by the store.
	Close() error
}
