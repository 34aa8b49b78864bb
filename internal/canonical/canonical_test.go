package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunary/analytics/internal/domain"
)

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, "2026-02-16T09:30:00Z")
	require.NoError(t, err)
	return func() time.Time { return at }
}

func TestCanonicalise_AuthenticatedEvent(t *testing.T) {
	b := NewBuilderWithClock(fixedClock(t))

	res := b.Canonicalise(Request{
		EventType: "app_opened",
		UserID:    "user_1",
		UserEmail: "  Luna@Example.COM ",
	})
	require.True(t, res.OK)
	assert.Equal(t, domain.EventAppOpened, res.Row.EventType)
	assert.Equal(t, "user_1", res.Row.UserID)
	assert.Empty(t, res.Row.AnonymousID)
	assert.Equal(t, "luna@example.com", res.Row.UserEmail)
	assert.NotEmpty(t, res.Row.EventID)
}

func TestCanonicalise_AuthGate(t *testing.T) {
	b := NewBuilderWithClock(fixedClock(t))

	res := b.Canonicalise(Request{EventType: "product_opened", AnonymousID: "tok123"})
	require.False(t, res.OK)
	assert.Equal(t, ReasonNotAuthenticated, res.Reason)
	assert.Nil(t, res.Row)
}

func TestCanonicalise_AnonymousFallback(t *testing.T) {
	b := NewBuilderWithClock(fixedClock(t))

	res := b.Canonicalise(Request{EventType: "app_opened", AnonymousID: "tok123"})
	require.True(t, res.OK)
	assert.Empty(t, res.Row.UserID)
	assert.Equal(t, "tok123", res.Row.AnonymousID)
	assert.Equal(t, "anon:tok123", res.Row.Identity())
}

func TestCanonicalise_NoIdentity(t *testing.T) {
	b := NewBuilderWithClock(fixedClock(t))

	res := b.Canonicalise(Request{EventType: "app_opened"})
	require.False(t, res.OK)
	assert.Equal(t, ReasonNoIdentity, res.Reason)
}

func TestCanonicalise_UnknownEventType(t *testing.T) {
	b := NewBuilderWithClock(fixedClock(t))

	res := b.Canonicalise(Request{EventType: "totally_made_up", UserID: "user_1"})
	require.False(t, res.OK)
	assert.Equal(t, ReasonUnknownEventType, res.Reason)
}

func TestCanonicalise_LegacyAlias(t *testing.T) {
	b := NewBuilderWithClock(fixedClock(t))

	res := b.Canonicalise(Request{EventType: "birth_chart_viewed", UserID: "user_1"})
	require.True(t, res.OK)
	assert.Equal(t, domain.EventChartViewed, res.Row.EventType)
	assert.Equal(t, "birth_chart_viewed", res.Row.Metadata["legacy_event_type"])
	assert.Equal(t, "chart_viewed", res.Row.Metadata["canonical_event_type"])
}

func TestCanonicalise_PathNormalization(t *testing.T) {
	b := NewBuilderWithClock(fixedClock(t))

	cases := map[string]string{
		"https://lunary.app/horoscope?utm_source=x": "/horoscope",
		"/horoscope/":          "/horoscope",
		"/grimoire/houses/mars#sec": "/grimoire/houses/mars",
		"https://lunary.app/":  "/",
		"   ":                  "",
	}
	for in, want := range cases {
		res := b.Canonicalise(Request{EventType: "page_viewed", UserID: "user_1", PagePath: in})
		require.True(t, res.OK, in)
		assert.Equal(t, want, res.Row.PagePath, in)
	}
}

func TestCanonicalise_PerPathDedupContext(t *testing.T) {
	b := NewBuilderWithClock(fixedClock(t))

	horoscope := b.Canonicalise(Request{EventType: "page_viewed", UserID: "user_1", PagePath: "/horoscope"})
	grimoire := b.Canonicalise(Request{EventType: "page_viewed", UserID: "user_1", PagePath: "/grimoire"})
	horoscopeAgain := b.Canonicalise(Request{EventType: "page_viewed", UserID: "user_1", PagePath: "/horoscope"})

	require.True(t, horoscope.OK)
	require.True(t, grimoire.OK)
	require.True(t, horoscopeAgain.OK)

	// Same user/day, different paths: different ids, both storable.
	assert.NotEqual(t, horoscope.Row.EventID, grimoire.Row.EventID)
	// Same user/day/path: identical id, second insert becomes a no-op.
	assert.Equal(t, horoscope.Row.EventID, horoscopeAgain.Row.EventID)
}

func TestCanonicalise_DateBucketChangesID(t *testing.T) {
	day1 := time.Date(2026, 2, 16, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 17, 0, 1, 0, 0, time.UTC)

	a := NewBuilderWithClock(func() time.Time { return day1 }).
		Canonicalise(Request{EventType: "app_opened", UserID: "user_1"})
	b := NewBuilderWithClock(func() time.Time { return day2 }).
		Canonicalise(Request{EventType: "app_opened", UserID: "user_1"})

	require.True(t, a.OK)
	require.True(t, b.OK)
	assert.NotEqual(t, a.Row.EventID, b.Row.EventID)
}

func TestCanonicalise_GrimoireEntityDerivation(t *testing.T) {
	b := NewBuilderWithClock(fixedClock(t))

	res := b.Canonicalise(Request{
		EventType: "grimoire_viewed",
		UserID:    "user_1",
		PagePath:  "/grimoire/houses/mars/",
	})
	require.True(t, res.OK)
	assert.Equal(t, "grimoire", res.Row.EntityType)
	assert.Equal(t, "houses/mars", res.Row.EntityID)

	bare := b.Canonicalise(Request{EventType: "grimoire_viewed", UserID: "user_1", PagePath: "/grimoire"})
	require.True(t, bare.OK)
	assert.Empty(t, bare.Row.EntityID)
}

func TestCanonicalise_MetadataSanitisation(t *testing.T) {
	b := NewBuilderWithClock(fixedClock(t))

	res := b.Canonicalise(Request{
		EventType: "astral_chat_used",
		UserID:    "user_1",
		Metadata: map[string]any{
			"utm_source": "newsletter",
			"device":     "ios",
			"prompt":     "tell me about my moon sign", // blocked
			"nested":     map[string]any{"x": 1},       // not scalar
			"count":      3,
		},
	})
	require.True(t, res.OK)
	md := res.Row.Metadata
	assert.Equal(t, "newsletter", md["utm_source"])
	assert.Equal(t, "ios", md["device"])
	assert.Equal(t, 3, md["count"])
	assert.NotContains(t, md, "prompt")
	assert.NotContains(t, md, "nested")
}

func TestCanonicalise_TrialDaysCopied(t *testing.T) {
	b := NewBuilderWithClock(fixedClock(t))
	days := 5

	res := b.Canonicalise(Request{EventType: "trial_started", UserID: "user_1", TrialDaysRemaining: &days})
	require.True(t, res.OK)
	require.NotNil(t, res.Row.TrialDaysRemaining)
	assert.Equal(t, 5, *res.Row.TrialDaysRemaining)

	// The row owns its own copy.
	days = 99
	assert.Equal(t, 5, *res.Row.TrialDaysRemaining)
}
