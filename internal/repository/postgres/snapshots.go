package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lunary/analytics/internal/domain"
)

// SnapshotRepo persists daily KPI snapshots. Snapshots are idempotent per
// UTC date: recomputing a day overwrites its row.
type SnapshotRepo struct{ db *sql.DB }

// NewSnapshotRepo creates a Postgres-backed snapshot repository.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// Upsert writes the snapshot for its date, replacing any previous run.
func (r *SnapshotRepo) Upsert(ctx context.Context, s *domain.DailySnapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analytics_daily_snapshots (snapshot_date, dau, wau, mau, signups, page_views, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (snapshot_date) DO UPDATE SET
			dau = $2, wau = $3, mau = $4, signups = $5, page_views = $6, computed_at = NOW()
	`, s.SnapshotDate, s.DAU, s.WAU, s.MAU, s.Signups, s.PageViews)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot, or nil when none exists yet.
func (r *SnapshotRepo) Latest(ctx context.Context) (*domain.DailySnapshot, error) {
	var s domain.DailySnapshot
	err := r.db.QueryRowContext(ctx, `
		SELECT snapshot_date, dau, wau, mau, signups, page_views, computed_at
		FROM analytics_daily_snapshots
		ORDER BY snapshot_date DESC
		LIMIT 1
	`).Scan(&s.SnapshotDate, &s.DAU, &s.WAU, &s.MAU, &s.Signups, &s.PageViews, &s.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &s, nil
}
