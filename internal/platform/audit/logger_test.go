package audit

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkroute/internal/platform/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(sqlDB, database.DriverSQLite)
	_, err = database.Migrate(context.Background(), db)
	require.NoError(t, err)
	return db
}

func TestLogger_LogAndList(t *testing.T) {
	ctx := context.Background()
	l := NewLogger(setupTestDB(t))
	ts := time.UnixMilli(1700000000000)
	l.now = func() time.Time { ts = ts.Add(time.Second); return ts }

	l.Log(ctx, "user1", ActionCreate, "link-1", map[string]interface{}{"alias": "promo"})
	l.Log(ctx, "user1", ActionUpdate, "link-1", nil)
	l.Log(ctx, "mod", ActionRestriction, "link-2", map[string]interface{}{"restricted": true})

	entries, err := l.List(ctx, "link-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionUpdate, entries[0].Action)
	assert.Equal(t, ActionCreate, entries[1].Action)
	assert.Equal(t, "promo", entries[1].Metadata["alias"])
	assert.Equal(t, ResourceLink, entries[1].ResourceType)
	assert.Empty(t, entries[0].Metadata)

	entries, err = l.List(ctx, "link-1", 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLogger_WriteFailureIsSwallowed(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errors.New("read-only"))

	l := NewLogger(database.New(mockDB, database.DriverSQLite))
	l.Log(context.Background(), "user1", ActionArchive, "link-1", nil)
	assert.NoError(t, mock.ExpectationsWereMet())
}
