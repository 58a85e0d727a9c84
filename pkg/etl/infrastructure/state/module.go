package state

import (
	"go.uber.org/fx"

	config "github.com/driftworks/cascade/pkg/etl/core/config"
	repository "github.com/driftworks/cascade/pkg/etl/core/domain/repository"
)

// NewStateStoreFromConfig builds the StateStore the orchestrator writes
// snapshots to. The JSON file store is always active; when a database
// path is configured, execution records are mirrored into SQLite as well.
func NewStateStoreFromConfig(cfg *config.Config, lc fx.Lifecycle) (repository.StateStore, error) {
	var store repository.StateStore = NewFileStore(cfg.Cascade.Orchestrator.StateFile)

	if dbPath := cfg.Cascade.Orchestrator.DatabaseFile; dbPath != "" {
		gormStore, err := NewSQLiteStore(dbPath)
		if err != nil {
			return nil, err
		}
		store = NewMultiStore(store, gormStore)
	}

	lc.Append(fx.StopHook(store.Close))
	return store, nil
}

// Module provides the configured StateStore to Fx.
var Module = fx.Options(
	fx.Provide(NewStateStoreFromConfig),
)
