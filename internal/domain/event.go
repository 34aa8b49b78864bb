package domain

import "time"

// EventType identifies a canonical product event.
type EventType string

// Canonical event types. Legacy client names are resolved to these by the
// canonicaliser; only canonical types ever reach storage.
const (
	EventAppOpened               EventType = "app_opened"
	EventProductOpened           EventType = "product_opened"
	EventPageViewed              EventType = "page_viewed"
	EventCTAClicked              EventType = "cta_clicked"
	EventUserSignedUp            EventType = "user_signed_up"
	EventUserLoggedIn            EventType = "user_logged_in"
	EventNavTabClicked           EventType = "nav_tab_clicked"
	EventWidgetCTAClicked        EventType = "dashboard_widget_cta_clicked"
	EventWidgetExpanded          EventType = "dashboard_widget_expanded"
	EventTarotDrawStarted        EventType = "tarot_draw_started"
	EventTarotCardDrawn          EventType = "tarot_card_drawn"
	EventTarotReadingCompleted   EventType = "tarot_reading_completed"
	EventTarotPatternsViewed     EventType = "tarot_patterns_viewed"
	EventTarotCardModalOpened    EventType = "tarot_card_modal_opened"
	EventHoroscopeViewed         EventType = "horoscope_viewed"
	EventHoroscopeExpanded       EventType = "horoscope_section_expanded"
	EventJournalModeActivated    EventType = "journal_mode_activated"
	EventReflectionStarted       EventType = "reflection_started"
	EventReflectionSaved         EventType = "reflection_saved"
	EventArchetypeModalOpened    EventType = "archetype_modal_opened"
	EventCollectionPageViewed    EventType = "collection_page_viewed"
	EventCollectionFilterApplied EventType = "collection_filter_applied"
	EventCollectionItemOpened    EventType = "collection_item_opened"
	EventGuideAssistClicked      EventType = "guide_assist_clicked"
	EventGuideMessageSent        EventType = "guide_message_sent"
	EventGrimoireViewed          EventType = "grimoire_viewed"
	EventChartViewed             EventType = "chart_viewed"
	EventDailyDashboardViewed    EventType = "daily_dashboard_viewed"
	EventAstralChatUsed          EventType = "astral_chat_used"
	EventTarotDrawn              EventType = "tarot_drawn"
	EventRitualStarted           EventType = "ritual_started"
	EventSignupCompleted         EventType = "signup_completed"
	EventSubscriptionStarted     EventType = "subscription_started"
	EventSubscriptionCancelled   EventType = "subscription_cancelled"
	EventTrialStarted            EventType = "trial_started"
)

// AnonymousIdentityPrefix marks identities derived from an anonymous device
// token. The prefix keeps an authenticated user whose id happens to equal an
// anonymous token in a separate identity space, so the two can never share a
// deduplication bucket.
const AnonymousIdentityPrefix = "anon:"

// CanonicalEvent is the normalized, storage-ready representation of a
// tracked event. Exactly one of UserID/AnonymousID is set, matching which
// identity branch the canonicaliser resolved. The row is immutable once
// built: it is either inserted exactly once or silently dropped as a
// duplicate of an identical row inserted earlier the same UTC day.
type CanonicalEvent struct {
	EventID            string         `json:"event_id"`
	EventType          EventType      `json:"event_type"`
	UserID             string         `json:"user_id,omitempty"`
	AnonymousID        string         `json:"anonymous_id,omitempty"`
	UserEmail          string         `json:"user_email,omitempty"`
	PlanType           string         `json:"plan_type,omitempty"`
	TrialDaysRemaining *int           `json:"trial_days_remaining,omitempty"`
	FeatureName        string         `json:"feature_name,omitempty"`
	PagePath           string         `json:"page_path,omitempty"`
	EntityType         string         `json:"entity_type,omitempty"`
	EntityID           string         `json:"entity_id,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	// CreatedAt is the client-supplied occurrence time. Zero means "let the
	// store default to NOW()".
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Identity returns the deduplication identity for the event: the user id
// for authenticated events, the prefixed anonymous id otherwise.
func (e *CanonicalEvent) Identity() string {
	if e.UserID != "" {
		return e.UserID
	}
	if e.AnonymousID != "" {
		return AnonymousIdentityPrefix + e.AnonymousID
	}
	return ""
}

// DailySnapshot is one row of the precomputed KPI rollup written by the
// snapshot worker.
type DailySnapshot struct {
	SnapshotDate string    `json:"snapshot_date"` // YYYY-MM-DD (UTC)
	DAU          int       `json:"dau"`
	WAU          int       `json:"wau"`
	MAU          int       `json:"mau"`
	Signups      int       `json:"signups"`
	PageViews    int       `json:"page_views"`
	ComputedAt   time.Time `json:"computed_at"`
}
