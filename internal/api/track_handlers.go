package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/lunary/analytics/internal/canonical"
	"github.com/lunary/analytics/internal/domain"
	"github.com/lunary/analytics/internal/metrics"
	"github.com/lunary/analytics/internal/pkg/httputil"
	"github.com/lunary/analytics/internal/pkg/logger"
)

// trackRequest is the JSON body for a single tracking call. The
// authenticated identity comes from the session token, never the body.
type trackRequest struct {
	EventType          string         `json:"event_type"`
	AnonymousID        string         `json:"anonymous_id,omitempty"`
	PagePath           string         `json:"page_path,omitempty"`
	PlanType           string         `json:"plan_type,omitempty"`
	TrialDaysRemaining *int           `json:"trial_days_remaining,omitempty"`
	FeatureName        string         `json:"feature_name,omitempty"`
	EntityType         string         `json:"entity_type,omitempty"`
	EntityID           string         `json:"entity_id,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	OccurredAt         *time.Time     `json:"occurred_at,omitempty"`
}

type trackResponse struct {
	Status   string `json:"status"` // "tracked" or "skipped"
	Inserted bool   `json:"inserted,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type batchRequest struct {
	Events []trackRequest `json:"events"`
}

type batchResponse struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

func (h *Handlers) canonicalRequest(r *http.Request, body trackRequest) canonical.Request {
	req := canonical.Request{
		EventType:          body.EventType,
		AnonymousID:        body.AnonymousID,
		PagePath:           body.PagePath,
		PlanType:           body.PlanType,
		TrialDaysRemaining: body.TrialDaysRemaining,
		FeatureName:        body.FeatureName,
		EntityType:         body.EntityType,
		EntityID:           body.EntityID,
		Metadata:           body.Metadata,
		OccurredAt:         body.OccurredAt,
	}
	if id, ok := identityFrom(r.Context()); ok {
		req.UserID = id.UserID
		req.UserEmail = id.Email
	}
	return req
}

// rateLimitIdentity picks the bucket key for a request: the resolved
// session user, the anonymous token, or as a last resort the client IP
// (RealIP middleware has already normalized RemoteAddr).
func rateLimitIdentity(r *http.Request, body trackRequest) string {
	if id, ok := identityFrom(r.Context()); ok {
		return id.UserID
	}
	if body.AnonymousID != "" {
		return domain.AnonymousIdentityPrefix + body.AnonymousID
	}
	return "ip:" + r.RemoteAddr
}

// HandleTrack ingests one event.
//
//	POST /api/track
func (h *Handlers) HandleTrack(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { metrics.TrackDuration.Observe(time.Since(start).Seconds()) }()
	metrics.EventsReceivedTotal.Inc()

	var body trackRequest
	if !httputil.Decode(w, r, &body) {
		return
	}

	if !h.limiter.Allow(r.Context(), rateLimitIdentity(r, body)) {
		metrics.EventsRateLimitedTotal.Inc()
		httputil.TooManyRequests(w, "rate limit exceeded")
		return
	}

	res := h.builder.Canonicalise(h.canonicalRequest(r, body))
	if !res.OK {
		// Policy skip, not an error: reply 200 so clients never retry.
		metrics.EventsSkippedTotal.WithLabelValues(res.Reason).Inc()
		httputil.OK(w, trackResponse{Status: "skipped", Reason: res.Reason})
		return
	}

	inserted, err := h.events.InsertIfNew(r.Context(), res.Row)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if inserted {
		metrics.EventsInsertedTotal.Inc()
	} else {
		metrics.EventsDuplicateTotal.Inc()
	}

	h.log.Debug("event tracked",
		"request_id", middleware.GetReqID(r.Context()),
		"event_type", string(res.Row.EventType),
		"identity", logger.RedactIdentity(res.Row.Identity()),
		"inserted", inserted,
	)
	httputil.OK(w, trackResponse{Status: "tracked", Inserted: inserted})
}

// HandleTrackBatch ingests a batch of events in one round trip. Offline
// clients (the iOS app) flush queued events through this endpoint.
//
//	POST /api/track/batch
func (h *Handlers) HandleTrackBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { metrics.TrackDuration.Observe(time.Since(start).Seconds()) }()

	var body batchRequest
	if !httputil.Decode(w, r, &body) {
		return
	}
	if len(body.Events) == 0 {
		httputil.BadRequest(w, "events is required")
		return
	}
	if len(body.Events) > h.batchMax {
		httputil.BadRequest(w, "too many events in batch")
		return
	}

	if !h.limiter.Allow(r.Context(), rateLimitIdentity(r, body.Events[0])) {
		metrics.EventsRateLimitedTotal.Inc()
		httputil.TooManyRequests(w, "rate limit exceeded")
		return
	}

	var (
		rows    []*domain.CanonicalEvent
		skipped int
	)
	for _, evt := range body.Events {
		metrics.EventsReceivedTotal.Inc()
		res := h.builder.Canonicalise(h.canonicalRequest(r, evt))
		if !res.OK {
			metrics.EventsSkippedTotal.WithLabelValues(res.Reason).Inc()
			skipped++
			continue
		}
		rows = append(rows, res.Row)
	}

	var inserted, duplicates int
	if len(rows) > 0 {
		var err error
		inserted, duplicates, err = h.events.InsertBatch(r.Context(), rows)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
	}
	metrics.EventsInsertedTotal.Add(float64(inserted))
	metrics.EventsDuplicateTotal.Add(float64(duplicates))

	httputil.OK(w, batchResponse{Inserted: inserted, Duplicates: duplicates, Skipped: skipped})
}
