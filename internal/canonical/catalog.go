package canonical

import "github.com/lunary/analytics/internal/domain"

// policy describes how a canonical event type is deduplicated and who may
// emit it.
type policy struct {
	// AuthRequired events are silently skipped for unauthenticated callers.
	// This is a business rule, not an error.
	AuthRequired bool
	// PerPath events deduplicate per normalized page path per UTC day; the
	// path is appended as a context field when computing the event id.
	PerPath bool
}

// catalog is the single source of truth for which event types exist and how
// each one behaves. The identifier component order per type is fixed:
//
//	type : identity : [page path, if PerPath] : date bucket
var catalog = map[domain.EventType]policy{
	domain.EventAppOpened:               {},
	domain.EventProductOpened:           {AuthRequired: true},
	domain.EventPageViewed:              {PerPath: true},
	domain.EventCTAClicked:              {PerPath: true},
	domain.EventUserSignedUp:            {},
	domain.EventUserLoggedIn:            {},
	domain.EventNavTabClicked:           {},
	domain.EventWidgetCTAClicked:        {},
	domain.EventWidgetExpanded:          {},
	domain.EventTarotDrawStarted:        {},
	domain.EventTarotCardDrawn:          {},
	domain.EventTarotReadingCompleted:   {},
	domain.EventTarotPatternsViewed:     {},
	domain.EventTarotCardModalOpened:    {},
	domain.EventHoroscopeViewed:         {},
	domain.EventHoroscopeExpanded:       {},
	domain.EventJournalModeActivated:    {AuthRequired: true},
	domain.EventReflectionStarted:       {AuthRequired: true},
	domain.EventReflectionSaved:         {AuthRequired: true},
	domain.EventArchetypeModalOpened:    {},
	domain.EventCollectionPageViewed:    {PerPath: true},
	domain.EventCollectionFilterApplied: {},
	domain.EventCollectionItemOpened:    {},
	domain.EventGuideAssistClicked:      {},
	domain.EventGuideMessageSent:        {AuthRequired: true},
	domain.EventGrimoireViewed:          {PerPath: true},
	domain.EventChartViewed:             {},
	domain.EventDailyDashboardViewed:    {},
	domain.EventAstralChatUsed:          {},
	domain.EventTarotDrawn:              {},
	domain.EventRitualStarted:           {},
	domain.EventSignupCompleted:         {},
	domain.EventSubscriptionStarted:     {AuthRequired: true},
	domain.EventSubscriptionCancelled:   {AuthRequired: true},
	domain.EventTrialStarted:            {AuthRequired: true},
}

// legacyAliases maps event names still sent by older clients to their
// canonical type. The original name is preserved in metadata under
// legacy_event_type for auditability.
var legacyAliases = map[string]domain.EventType{
	"birth_chart_viewed": domain.EventChartViewed,
	"dashboard_viewed":   domain.EventDailyDashboardViewed,
	"ai_chat":            domain.EventAstralChatUsed,
	"tarot_viewed":       domain.EventTarotDrawn,
	"ritual_view":        domain.EventRitualStarted,
	"signup":             domain.EventSignupCompleted,
	// Trial conversion counts as a subscription start for KPI purposes.
	"trial_converted": domain.EventSubscriptionStarted,
}

// resolveEventType maps a raw client-supplied name to a canonical type.
// The second return is the legacy name when an alias was applied.
func resolveEventType(raw string) (domain.EventType, string, bool) {
	et := domain.EventType(raw)
	if _, ok := catalog[et]; ok {
		return et, "", true
	}
	if canonical, ok := legacyAliases[raw]; ok {
		return canonical, raw, true
	}
	return "", "", false
}
