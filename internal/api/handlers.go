// Package api exposes the HTTP surface of the analytics service: the
// tracking endpoints, the admin summary, and health/metrics.
package api

import (
	"context"

	"github.com/lunary/analytics/internal/auth"
	"github.com/lunary/analytics/internal/canonical"
	"github.com/lunary/analytics/internal/domain"
	"github.com/lunary/analytics/internal/pkg/logger"
	"github.com/lunary/analytics/internal/ratelimit"
)

// EventStore is the slice of the event repository the handlers use.
type EventStore interface {
	InsertIfNew(ctx context.Context, row *domain.CanonicalEvent) (bool, error)
	InsertBatch(ctx context.Context, rows []*domain.CanonicalEvent) (inserted, duplicates int, err error)
	ActiveUsers(ctx context.Context, from, to string) (int, error)
	SignupsOn(ctx context.Context, day string) (int, error)
	TopPages(ctx context.Context, day string, limit int) ([]domain.PageViewCount, error)
}

// SnapshotStore reads precomputed daily snapshots.
type SnapshotStore interface {
	Latest(ctx context.Context) (*domain.DailySnapshot, error)
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	builder   *canonical.Builder
	events    EventStore
	snapshots SnapshotStore
	limiter   *ratelimit.Limiter
	verifier  *auth.Verifier
	log       *logger.Logger

	adminToken string
	batchMax   int
}

// NewHandlers creates a Handlers instance.
func NewHandlers(
	builder *canonical.Builder,
	events EventStore,
	snapshots SnapshotStore,
	limiter *ratelimit.Limiter,
	verifier *auth.Verifier,
	log *logger.Logger,
	adminToken string,
	batchMax int,
) *Handlers {
	return &Handlers{
		builder:    builder,
		events:     events,
		snapshots:  snapshots,
		limiter:    limiter,
		verifier:   verifier,
		log:        log,
		adminToken: adminToken,
		batchMax:   batchMax,
	}
}
