package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func withMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	original := DB
	DB = mockDB

	return mock, func() {
		DB = original
		_ = mockDB.Close()
	}
}

func TestRefreshView(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	mock.ExpectExec("REFRESH MATERIALIZED VIEW CONCURRENTLY daily_event_counts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, RefreshView(context.Background(), DailyEventCountsView))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshViewError(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	mock.ExpectExec("REFRESH MATERIALIZED VIEW CONCURRENTLY daily_event_counts").
		WillReturnError(assert.AnError)

	err := RefreshView(context.Background(), DailyEventCountsView)
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "refresh daily_event_counts")
}

func TestViewRefresherRefreshesOnStartAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	mock, cleanup := withMockDB(t)
	defer cleanup()
	mock.MatchExpectationsInOrder(false)
	mock.ExpectExec("REFRESH MATERIALIZED VIEW CONCURRENTLY daily_event_counts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	vr := NewViewRefresher(time.Hour)
	vr.Start()
	require.Eventually(t, func() bool { return mock.ExpectationsWereMet() == nil }, time.Second, 5*time.Millisecond)
	vr.Stop()
	vr.Stop()
}

func TestViewRefresherSkipsWithoutDatabase(t *testing.T) {
	original := DB
	DB = nil
	defer func() { DB = original }()

	vr := NewViewRefresher(time.Hour)
	vr.refresh(DailyEventCountsView)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := MigrationsFS().ReadDir("migrations")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_funnel_schema.up.sql")
	assert.Contains(t, names, "000001_funnel_schema.down.sql")
}

func TestMigratorRequiresURL(t *testing.T) {
	require.ErrorIs(t, RunMigrations(""), ErrNoDatabaseURL)
	require.ErrorIs(t, RollbackMigrations("", 1), ErrNoDatabaseURL)
	_, _, err := GetMigrationVersion("")
	require.ErrorIs(t, err, ErrNoDatabaseURL)
	require.Error(t, RollbackMigrations("postgres://x", 0))
}
