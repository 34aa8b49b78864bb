// Package postgres implements the event store against PostgreSQL.
//
// The insertion path deliberately never reads before writing: the unique
// constraint on conversion_events.event_id is the sole dedup mechanism, so
// concurrent submissions of the same logical event race harmlessly and
// exactly one row survives.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lunary/analytics/internal/domain"
)

const eventColumns = `event_id, event_type, user_id, anonymous_id, user_email,
		plan_type, trial_days_remaining, feature_name, page_path,
		entity_type, entity_id, metadata, created_at`

// EventRepo persists canonical events.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed event repository.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// InsertIfNew attempts to persist the row. A duplicate event_id makes the
// insert a no-op and returns (false, nil); that outcome is benign and
// expected under retries and request races. Any other failure propagates.
func (r *EventRepo) InsertIfNew(ctx context.Context, row *domain.CanonicalEvent) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO conversion_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13::timestamptz, NOW()))
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id
	`, row.EventID, row.EventType,
		nullString(row.UserID), nullString(row.AnonymousID), nullString(row.UserEmail),
		nullString(row.PlanType), nullInt(row.TrialDaysRemaining), nullString(row.FeatureName),
		nullString(row.PagePath), nullString(row.EntityType), nullString(row.EntityID),
		metadataJSON(row.Metadata), nullTime(row.CreatedAt),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return true, nil
}

// InsertBatch persists many rows in one statement. Duplicates within the
// store (or within the batch itself) are dropped by the same ON CONFLICT
// clause; the returned counts always sum to len(rows).
func (r *EventRepo) InsertBatch(ctx context.Context, rows []*domain.CanonicalEvent) (inserted, duplicates int, err error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	var (
		values []string
		args   []any
	)
	push := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	for _, row := range rows {
		values = append(values, fmt.Sprintf("(%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, COALESCE(%s::timestamptz, NOW()))",
			push(row.EventID), push(row.EventType),
			push(nullString(row.UserID)), push(nullString(row.AnonymousID)), push(nullString(row.UserEmail)),
			push(nullString(row.PlanType)), push(nullInt(row.TrialDaysRemaining)), push(nullString(row.FeatureName)),
			push(nullString(row.PagePath)), push(nullString(row.EntityType)), push(nullString(row.EntityID)),
			push(metadataJSON(row.Metadata)), push(nullTime(row.CreatedAt)),
		))
	}

	res, err := r.db.QueryContext(ctx, `
		INSERT INTO conversion_events (`+eventColumns+`)
		VALUES `+strings.Join(values, ", ")+`
		ON CONFLICT (event_id) DO NOTHING
		RETURNING 1
	`, args...)
	if err != nil {
		return 0, 0, fmt.Errorf("insert event batch: %w", err)
	}
	defer res.Close()

	for res.Next() {
		inserted++
	}
	if err := res.Err(); err != nil {
		return 0, 0, fmt.Errorf("insert event batch: %w", err)
	}
	return inserted, len(rows) - inserted, nil
}

// ActiveUsers counts distinct authenticated users with any event in the
// half-open UTC date range [from, to].
func (r *EventRepo) ActiveUsers(ctx context.Context, from, to string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id) FROM conversion_events
		WHERE user_id IS NOT NULL
		  AND created_at >= $1::date
		  AND created_at < $2::date + INTERVAL '1 day'
	`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return n, nil
}

// SignupsOn counts completed signups on the given UTC date.
func (r *EventRepo) SignupsOn(ctx context.Context, day string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversion_events
		WHERE event_type = $1
		  AND created_at >= $2::date
		  AND created_at < $2::date + INTERVAL '1 day'
	`, domain.EventSignupCompleted, day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count signups: %w", err)
	}
	return n, nil
}

// PageViewsOn counts page_viewed events on the given UTC date.
func (r *EventRepo) PageViewsOn(ctx context.Context, day string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversion_events
		WHERE event_type = $1
		  AND created_at >= $2::date
		  AND created_at < $2::date + INTERVAL '1 day'
	`, domain.EventPageViewed, day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count page views: %w", err)
	}
	return n, nil
}

// TopPages returns the most-viewed paths for the given UTC date.
func (r *EventRepo) TopPages(ctx context.Context, day string, limit int) ([]domain.PageViewCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT page_path, COUNT(*) AS views FROM conversion_events
		WHERE event_type = $1
		  AND page_path IS NOT NULL
		  AND created_at >= $2::date
		  AND created_at < $2::date + INTERVAL '1 day'
		GROUP BY page_path
		ORDER BY views DESC, page_path
		LIMIT $3
	`, domain.EventPageViewed, day, limit)
	if err != nil {
		return nil, fmt.Errorf("top pages: %w", err)
	}
	defer rows.Close()

	var out []domain.PageViewCount
	for rows.Next() {
		var p domain.PageViewCount
		if err := rows.Scan(&p.PagePath, &p.Views); err != nil {
			return nil, fmt.Errorf("scan top page: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// metadataJSON serializes the metadata bag for the jsonb column, or NULL
// when the bag is empty.
func metadataJSON(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		// Metadata is sanitized to scalars upstream; marshal failure here
		// means a programming error, and dropping the bag beats losing the event.
		return nil
	}
	return string(data)
}
