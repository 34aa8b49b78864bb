// Package snapshot precomputes daily KPI rollups (DAU/WAU/MAU, signups,
// page views) from the raw event stream into analytics_daily_snapshots so
// the admin dashboard reads one row instead of scanning events. A
// distributed lock keeps the computation to one service instance per day.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lunary/analytics/internal/domain"
	"github.com/lunary/analytics/internal/metrics"
	"github.com/lunary/analytics/internal/pkg/distlock"
	"github.com/lunary/analytics/internal/pkg/logger"
)

// EventStats is the slice of the event repository the worker reads.
type EventStats interface {
	ActiveUsers(ctx context.Context, from, to string) (int, error)
	SignupsOn(ctx context.Context, day string) (int, error)
	PageViewsOn(ctx context.Context, day string) (int, error)
}

// SnapshotStore persists computed snapshots.
type SnapshotStore interface {
	Upsert(ctx context.Context, s *domain.DailySnapshot) error
}

// Worker recomputes the current UTC day's snapshot on an interval.
type Worker struct {
	events   EventStats
	store    SnapshotStore
	lock     distlock.DistLock
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time
	done     chan struct{}
}

// NewWorker creates a snapshot worker. lock may be nil for single-instance
// deployments.
func NewWorker(events EventStats, store SnapshotStore, lock distlock.DistLock, interval time.Duration, log *logger.Logger) *Worker {
	return &Worker{
		events:   events,
		store:    store,
		lock:     lock,
		interval: interval,
		log:      log,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start launches the recompute loop. It returns immediately.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("snapshot worker started", "interval", w.interval)
	go w.run(ctx)
}

// Stop terminates the loop.
func (w *Worker) Stop() { close(w.done) }

func (w *Worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if w.lock != nil {
		acquired, err := w.lock.Acquire(ctx)
		if err != nil {
			w.log.Warn("snapshot lock unavailable", "error", err)
			return
		}
		if !acquired {
			// Another instance is computing; nothing to do.
			return
		}
		defer w.lock.Release(ctx)
	}

	runID := uuid.NewString()
	day := w.now().UTC().Format("2006-01-02")
	if err := w.ComputeOnce(ctx, day); err != nil {
		w.log.Error("snapshot run failed", "run_id", runID, "date", day, "error", err)
		metrics.SnapshotRunsTotal.WithLabelValues("error").Inc()
		return
	}
	w.log.Info("snapshot run completed", "run_id", runID, "date", day)
	metrics.SnapshotRunsTotal.WithLabelValues("ok").Inc()
}

// ComputeOnce recomputes and stores the snapshot for one UTC date.
func (w *Worker) ComputeOnce(ctx context.Context, day string) error {
	date, err := time.Parse("2006-01-02", day)
	if err != nil {
		return fmt.Errorf("parse snapshot date: %w", err)
	}

	dau, err := w.events.ActiveUsers(ctx, day, day)
	if err != nil {
		return err
	}
	wau, err := w.events.ActiveUsers(ctx, date.AddDate(0, 0, -6).Format("2006-01-02"), day)
	if err != nil {
		return err
	}
	mau, err := w.events.ActiveUsers(ctx, date.AddDate(0, 0, -29).Format("2006-01-02"), day)
	if err != nil {
		return err
	}
	signups, err := w.events.SignupsOn(ctx, day)
	if err != nil {
		return err
	}
	pageViews, err := w.events.PageViewsOn(ctx, day)
	if err != nil {
		return err
	}

	return w.store.Upsert(ctx, &domain.DailySnapshot{
		SnapshotDate: day,
		DAU:          dau,
		WAU:          wau,
		MAU:          mau,
		Signups:      signups,
		PageViews:    pageViews,
	})
}
