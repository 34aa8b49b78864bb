package api

import (
	"net/http"
	"time"

	"github.com/lunary/analytics/internal/domain"
	"github.com/lunary/analytics/internal/pkg/httputil"
)

const topPagesLimit = 10

// HandleSummary serves the live KPI rollup for the admin dashboard, plus
// the most recent precomputed snapshot for trend context.
//
//	GET /api/analytics/summary
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now().UTC()
	today := now.Format("2006-01-02")
	weekStart := now.AddDate(0, 0, -6).Format("2006-01-02")

	dau, err := h.events.ActiveUsers(ctx, today, today)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	wau, err := h.events.ActiveUsers(ctx, weekStart, today)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	signups, err := h.events.SignupsOn(ctx, today)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	topPages, err := h.events.TopPages(ctx, today, topPagesLimit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	summary := domain.AnalyticsSummary{
		Date:         today,
		DAU:          dau,
		WAU:          wau,
		SignupsToday: signups,
		TopPages:     topPages,
	}

	// The snapshot is best-effort context; its absence is not an error.
	var latest *domain.DailySnapshot
	if h.snapshots != nil {
		latest, err = h.snapshots.Latest(ctx)
		if err != nil {
			h.log.Warn("latest snapshot unavailable", "error", err)
			latest = nil
		}
	}

	httputil.OK(w, map[string]any{
		"summary":         summary,
		"latest_snapshot": latest,
	})
}
