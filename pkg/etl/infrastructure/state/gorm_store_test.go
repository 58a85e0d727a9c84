package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
)

// newMockGormStore opens a gorm handle over a sqlmock connection. The
// reported sqlite version predates RETURNING support so inserts go
// through plain Exec statements.
func newMockGormStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	mock.ExpectQuery("select sqlite_version()").
		WillReturnRows(sqlmock.NewRows([]string{"sqlite_version()"}).AddRow("3.30.1"))

	db, err := gorm.Open(sqlite.Dialector{Conn: conn}, &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               gormlogger.Discard,
	})
	require.NoError(t, err)

	return &GormStore{db: db}, mock
}

func recordedSnapshot() *model.StateSnapshot {
	je := model.NewJobExecution("job-a")
	je.MarkAsRunning()
	je.MarkAsFailed("boom")

	return &model.StateSnapshot{
		Name:             "audit",
		SavedAt:          time.Now().UTC(),
		Jobs:             []string{"job-a"},
		RecentExecutions: []model.ExecutionRecord{je.Record()},
	}
}

func TestGormStore_SaveStateInsertsRecords(t *testing.T) {
	store, mock := newMockGormStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO .pipeline_executions.").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.SaveState(context.Background(), recordedSnapshot())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SaveStateEmptySnapshotIsNoOp(t *testing.T) {
	store, mock := newMockGormStore(t)

	err := store.SaveState(context.Background(), &model.StateSnapshot{Name: "empty"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SaveStateWrapsDatabaseErrors(t *testing.T) {
	store, mock := newMockGormStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO .pipeline_executions.").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := store.SaveState(context.Background(), recordedSnapshot())
	require.Error(t, err)
	assert.True(t, exception.IsRetryable(err))
	assert.Contains(t, err.Error(), "failed to persist execution records")
}
