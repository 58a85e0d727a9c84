// Package warehouse is the demo's storage layer: synthetic users and
// events land in SQLite tables, the merge job joins them into an
// activity table, and the report job reads the result back.
package warehouse

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

// User is a synthetic user row.
type User struct {
	ID    string `gorm:"column:id;primaryKey"`
	Name  string `gorm:"column:name"`
	Email string `gorm:"column:email;index"`
	RunID string `gorm:"column:run_id;index"`
}

// TableName specifies the table name for User.
func (User) TableName() string { return "users" }

// Event is a synthetic activity event row.
type Event struct {
	ID         string    `gorm:"column:id;primaryKey"`
	UserEmail  string    `gorm:"column:user_email;index"`
	Action     string    `gorm:"column:action"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
	RunID      string    `gorm:"column:run_id;index"`
}

// TableName specifies the table name for Event.
func (Event) TableName() string { return "events" }

// Activity is one row of the merged user-activity table.
type Activity struct {
	UserEmail  string    `gorm:"column:user_email;primaryKey"`
	UserName   string    `gorm:"column:user_name"`
	EventCount int       `gorm:"column:event_count"`
	LastAction string    `gorm:"column:last_action"`
	LastSeenAt time.Time `gorm:"column:last_seen_at"`
}

// TableName specifies the table name for Activity.
func (Activity) TableName() string { return "activity" }

// Warehouse wraps the demo database. All writes tag rows with the run ID
// that produced them so a failed run can be rolled back.
type Warehouse struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite warehouse at the given path and
// migrates its tables.
func Open(path string) (*Warehouse, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, exception.New("warehouse", "failed to open warehouse database", err, false)
	}
	if err := db.AutoMigrate(&User{}, &Event{}, &Activity{}); err != nil {
		return nil, exception.New("warehouse", "failed to migrate warehouse tables", err, false)
	}
	return &Warehouse{db: db}, nil
}

// InsertUsers writes a batch of users, skipping IDs already present.
func (w *Warehouse) InsertUsers(ctx context.Context, users []User) error {
	if len(users) == 0 {
		return nil
	}
	result := w.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&users)
	if result.Error != nil {
		return exception.New("warehouse", "failed to insert users", result.Error, true)
	}
	return nil
}

// InsertEvents writes a batch of events, skipping IDs already present.
func (w *Warehouse) InsertEvents(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	result := w.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&events)
	if result.Error != nil {
		return exception.New("warehouse", "failed to insert events", result.Error, true)
	}
	return nil
}

// DeleteUsersByRun removes the users a run wrote. Used by rollback.
func (w *Warehouse) DeleteUsersByRun(ctx context.Context, runID string) error {
	result := w.db.WithContext(ctx).Where("run_id = ?", runID).Delete(&User{})
	if result.Error != nil {
		return exception.New("warehouse", "failed to delete users by run", result.Error, true)
	}
	logger.Debugf("Warehouse: deleted %d users for run %s", result.RowsAffected, runID)
	return nil
}

// DeleteEventsByRun removes the events a run wrote. Used by rollback.
func (w *Warehouse) DeleteEventsByRun(ctx context.Context, runID string) error {
	result := w.db.WithContext(ctx).Where("run_id = ?", runID).Delete(&Event{})
	if result.Error != nil {
		return exception.New("warehouse", "failed to delete events by run", result.Error, true)
	}
	logger.Debugf("Warehouse: deleted %d events for run %s", result.RowsAffected, runID)
	return nil
}

// ListUsers returns every stored user.
func (w *Warehouse) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := w.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, exception.New("warehouse", "failed to list users", err, true)
	}
	return users, nil
}

// ListEvents returns every stored event.
func (w *Warehouse) ListEvents(ctx context.Context) ([]Event, error) {
	var events []Event
	if err := w.db.WithContext(ctx).Find(&events).Error; err != nil {
		return nil, exception.New("warehouse", "failed to list events", err, true)
	}
	return events, nil
}

// ReplaceActivity rebuilds the activity table from the given rows in one
// transaction.
func (w *Warehouse) ReplaceActivity(ctx context.Context, rows []Activity) error {
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Activity{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return exception.New("warehouse", "failed to replace activity table", err, true)
	}
	return nil
}

// TruncateActivity empties the activity table. Used by rollback.
func (w *Warehouse) TruncateActivity(ctx context.Context) error {
	err := w.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Activity{}).Error
	if err != nil {
		return exception.New("warehouse", "failed to truncate activity table", err, true)
	}
	return nil
}

// ListActivity returns the merged activity rows ordered by event count.
func (w *Warehouse) ListActivity(ctx context.Context) ([]Activity, error) {
	var rows []Activity
	if err := w.db.WithContext(ctx).Order("event_count DESC").Find(&rows).Error; err != nil {
		return nil, exception.New("warehouse", "failed to list activity", err, true)
	}
	return rows, nil
}

// Close closes the underlying database connection.
func (w *Warehouse) Close() error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
