package state

import (
	"context"

	"github.com/hashicorp/go-multierror"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	repository "github.com/driftworks/cascade/pkg/etl/core/domain/repository"
)

// MultiStore fans a snapshot out to several stores. Every store is
// attempted regardless of earlier failures; the combined error carries
// each sink's failure.
type MultiStore struct {
	stores []repository.StateStore
}

// NewMultiStore creates a MultiStore over the given stores.
func NewMultiStore(stores ...repository.StateStore) *MultiStore {
	return &MultiStore{stores: stores}
}

// SaveState saves the snapshot to every store.
func (s *MultiStore) SaveState(ctx context.Context, snapshot *model.StateSnapshot) error {
	var errs *multierror.Error
	for _, store := range s.stores {
		if err := store.SaveState(ctx, snapshot); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// Close closes every store.
func (s *MultiStore) Close() error {
	var errs *multierror.Error
	for _, store := range s.stores {
		if err := store.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

var _ repository.StateStore = (*MultiStore)(nil)
