// Package canonical normalizes raw tracking requests into storage-ready
// event rows. It owns the event catalog (which types exist, which require
// authentication, which deduplicate per page path), legacy name resolution,
// field normalization, metadata sanitisation, and the wiring of the
// deterministic event id.
//
// Skips are data, not errors: a request that fails a policy check (unknown
// type, missing identity, auth-required type without a user) produces a
// Result with OK=false and a machine-readable reason, and callers report it
// as a normal outcome.
package canonical

import (
	"strings"
	"time"

	"github.com/lunary/analytics/internal/domain"
	"github.com/lunary/analytics/internal/eventid"
)

// Skip reasons surfaced to callers. These are contract, not prose: clients
// and tests match on them.
const (
	ReasonUnknownEventType = "unknown_event_type"
	ReasonNotAuthenticated = "not_authenticated"
	ReasonNoIdentity       = "no_identity"
)

// Request is the raw, untrusted tracking payload plus the identity the HTTP
// layer resolved from the session. All fields except EventType are optional.
type Request struct {
	EventType          string
	UserID             string
	UserEmail          string
	AnonymousID        string
	PagePath           string
	PlanType           string
	TrialDaysRemaining *int
	FeatureName        string
	EntityType         string
	EntityID           string
	Metadata           map[string]any
	OccurredAt         *time.Time
}

// Result is the outcome of canonicalising one request. When OK is false,
// Reason explains the policy skip and Row is nil.
type Result struct {
	OK     bool
	Reason string
	Row    *domain.CanonicalEvent
}

func skipped(reason string) Result { return Result{Reason: reason} }

// Builder turns Requests into CanonicalEvents. It performs no I/O; the only
// ambient input is the clock, injected so tests can pin the date bucket.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder using the wall clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderWithClock returns a Builder with a fixed clock source.
func NewBuilderWithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Canonicalise validates and normalizes a raw request into an insertable
// row. The UTC date bucket is read once per call, so every insert attempted
// for this request shares one deterministic event id even across a midnight
// boundary.
func (b *Builder) Canonicalise(req Request) Result {
	eventType, legacyName, ok := resolveEventType(strings.TrimSpace(req.EventType))
	if !ok {
		return skipped(ReasonUnknownEventType)
	}
	pol := catalog[eventType]

	userID := strings.TrimSpace(req.UserID)
	anonymousID := strings.TrimSpace(req.AnonymousID)
	if pol.AuthRequired && userID == "" {
		return skipped(ReasonNotAuthenticated)
	}

	row := &domain.CanonicalEvent{
		EventType:   eventType,
		PagePath:    normalizePath(req.PagePath),
		UserEmail:   normalizeEmail(req.UserEmail),
		PlanType:    strings.TrimSpace(req.PlanType),
		FeatureName: strings.TrimSpace(req.FeatureName),
		EntityType:  strings.TrimSpace(req.EntityType),
		EntityID:    strings.TrimSpace(req.EntityID),
	}

	// Exactly one identity branch is populated, authenticated preferred.
	switch {
	case userID != "":
		row.UserID = userID
	case anonymousID != "":
		row.AnonymousID = anonymousID
	default:
		return skipped(ReasonNoIdentity)
	}

	if req.TrialDaysRemaining != nil {
		v := *req.TrialDaysRemaining
		row.TrialDaysRemaining = &v
	}
	if req.OccurredAt != nil {
		row.CreatedAt = req.OccurredAt.UTC()
	}

	if eventType == domain.EventGrimoireViewed {
		if row.EntityType == "" {
			row.EntityType = "grimoire"
		}
		if row.EntityID == "" {
			row.EntityID = grimoireEntityID(row.PagePath)
		}
	}

	row.Metadata = sanitizeMetadata(eventType, req.Metadata, legacyName)

	dateBucket := b.now().UTC().Format("2006-01-02")
	var contextFields []string
	if pol.PerPath {
		contextFields = append(contextFields, row.PagePath)
	}
	row.EventID = eventid.Compute(
		string(eventType),
		row.Identity(),
		append(contextFields, dateBucket)...,
	)

	return Result{OK: true, Row: row}
}
