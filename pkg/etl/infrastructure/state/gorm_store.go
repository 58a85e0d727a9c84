package state

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	repository "github.com/driftworks/cascade/pkg/etl/core/domain/repository"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
)

// executionRow is the relational shape of a persisted execution record.
type executionRow struct {
	ExecutionID     string   `gorm:"column:execution_id;primaryKey"`
	JobID           string   `gorm:"column:job_id;index"`
	State           string   `gorm:"column:state"`
	StartedAt       *string  `gorm:"column:started_at"`
	EndedAt         *string  `gorm:"column:ended_at"`
	DurationSeconds *float64 `gorm:"column:duration_seconds"`
	ErrorMessage    string   `gorm:"column:error_message"`
	RetryCount      int      `gorm:"column:retry_count"`
}

// TableName returns the table used for execution records.
func (executionRow) TableName() string {
	return "pipeline_executions"
}

// GormStore persists execution records to a relational database through
// gorm. Execution records are immutable, so existing rows are never
// updated; overlapping snapshots simply skip rows already written.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore over an open gorm handle and migrates
// the execution table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&executionRow{}); err != nil {
		return nil, exception.New("state", "failed to migrate execution table", err, false)
	}
	return &GormStore{db: db}, nil
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path
// and returns a GormStore over it.
func NewSQLiteStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, exception.New("state", fmt.Sprintf("failed to open sqlite database %s", path), err, false)
	}
	return NewGormStore(db)
}

// SaveState inserts the snapshot's execution records, skipping rows that
// were already persisted by an earlier snapshot.
func (s *GormStore) SaveState(ctx context.Context, snapshot *model.StateSnapshot) error {
	if len(snapshot.RecentExecutions) == 0 {
		return nil
	}

	rows := make([]executionRow, 0, len(snapshot.RecentExecutions))
	for _, rec := range snapshot.RecentExecutions {
		rows = append(rows, executionRow{
			ExecutionID:     rec.ExecutionID,
			JobID:           rec.JobID,
			State:           rec.State,
			StartedAt:       rec.StartedAt,
			EndedAt:         rec.EndedAt,
			DurationSeconds: rec.DurationSeconds,
			ErrorMessage:    rec.ErrorMessage,
			RetryCount:      rec.RetryCount,
		})
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return exception.New("state", "failed to persist execution records", result.Error, true)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ repository.StateStore = (*GormStore)(nil)
