package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunary/analytics/internal/domain"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func sampleRow() *domain.CanonicalEvent {
	return &domain.CanonicalEvent{
		EventID:   "5e8848c1-93d6-5bb8-9f6e-111111111111",
		EventType: domain.EventPageViewed,
		UserID:    "user_1",
		PagePath:  "/horoscope",
		Metadata:  map[string]any{"canonical_event_type": "page_viewed"},
	}
}

func TestInsertIfNew_Inserted(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`INSERT INTO conversion_events`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("row-id-1"))

	repo := NewEventRepo(db)
	inserted, err := repo.InsertIfNew(context.Background(), sampleRow())
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertIfNew_DuplicateIsNoOp(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	// ON CONFLICT DO NOTHING yields zero RETURNING rows for a duplicate.
	mock.ExpectQuery(`INSERT INTO conversion_events`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewEventRepo(db)
	inserted, err := repo.InsertIfNew(context.Background(), sampleRow())
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestInsertIfNew_RaceFirstWriterWins(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`INSERT INTO conversion_events`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("row-id-1"))
	mock.ExpectQuery(`INSERT INTO conversion_events`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewEventRepo(db)
	row := sampleRow()

	first, err := repo.InsertIfNew(context.Background(), row)
	require.NoError(t, err)
	second, err := repo.InsertIfNew(context.Background(), row)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestInsertIfNew_StorageErrorPropagates(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	boom := errors.New("connection refused")
	mock.ExpectQuery(`INSERT INTO conversion_events`).WillReturnError(boom)

	repo := NewEventRepo(db)
	inserted, err := repo.InsertIfNew(context.Background(), sampleRow())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, inserted)
}

func TestInsertBatch_CountsInsertedAndDuplicates(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`INSERT INTO conversion_events`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1).AddRow(1))

	repo := NewEventRepo(db)
	rows := []*domain.CanonicalEvent{sampleRow(), sampleRow(), sampleRow()}

	inserted, duplicates, err := repo.InsertBatch(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 1, duplicates)
}

func TestInsertBatch_Empty(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEventRepo(db)
	inserted, duplicates, err := repo.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Zero(t, duplicates)
}

func TestActiveUsers(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT COUNT\(DISTINCT user_id\) FROM conversion_events`).
		WithArgs("2026-02-10", "2026-02-16").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	repo := NewEventRepo(db)
	n, err := repo.ActiveUsers(context.Background(), "2026-02-10", "2026-02-16")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestTopPages(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT page_path, COUNT\(\*\) AS views FROM conversion_events`).
		WillReturnRows(sqlmock.NewRows([]string{"page_path", "views"}).
			AddRow("/horoscope", 120).
			AddRow("/grimoire", 80))

	repo := NewEventRepo(db)
	pages, err := repo.TopPages(context.Background(), "2026-02-16", 10)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "/horoscope", pages[0].PagePath)
	assert.Equal(t, 120, pages[0].Views)
}
