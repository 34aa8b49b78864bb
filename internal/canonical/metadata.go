package canonical

import "github.com/lunary/analytics/internal/domain"

// Conversational payloads must never land in the analytics store, whatever
// shape a client sends them in.
var blockedMetadataKeys = map[string]struct{}{
	"message": {}, "messages": {}, "prompt": {}, "completion": {},
	"input": {}, "output": {}, "text": {}, "content": {},
	"conversation": {}, "thread": {}, "assistant": {}, "response": {},
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// sanitizeMetadata filters a client metadata bag down to privacy-safe
// scalars (attribution keys like utm_*, referrer, device, plan and similar
// all survive this), records the canonical event type, and preserves the
// legacy name when an alias was resolved. Nested values are dropped: large
// structured content has no business in the analytics store.
func sanitizeMetadata(eventType domain.EventType, input map[string]any, legacyEventType string) map[string]any {
	out := map[string]any{
		"canonical_event_type": string(eventType),
	}
	if legacyEventType != "" {
		out["legacy_event_type"] = legacyEventType
	}

	for key, value := range input {
		if _, blocked := blockedMetadataKeys[key]; blocked {
			continue
		}
		if !isScalar(value) {
			continue
		}
		out[key] = value
	}
	return out
}
