// Package eventid derives deterministic, UUID-shaped identifiers for
// analytics events. The identifier is a pure function of the event's
// semantic key (type, identity, ordered context fields, UTC date bucket),
// which lets the event store enforce per-day deduplication with a plain
// uniqueness constraint instead of application-level locking: retried or
// racing submissions of the same logical event always carry the same id.
package eventid

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Separator joins the key components before hashing. Callers are expected
// to keep colons out of field values; a stray colon only shifts which
// bucket an event dedups into, it never breaks the id format.
const Separator = ":"

// Compute returns the deterministic identifier for an event. The component
// order is fixed: event type, identity, any context fields in the order the
// event catalog documents for that type, and the YYYY-MM-DD UTC date bucket
// last. Swapping two context fields yields a different id, so callers must
// pass them in the documented order.
//
// Compute never fails. Empty components are accepted and produce a
// deterministic (if degenerate) id; the storage uniqueness constraint, not
// this function, is the correctness backstop.
//
// The output is shaped like a version-5 UUID: the digest's hex characters
// laid out 8-4-4-4-12, with the version nibble forced to 5 and the variant
// nibble taken from the digest so the result stays RFC 4122 shaped while
// remaining fully deterministic.
func Compute(eventType, identity string, parts ...string) string {
	components := make([]string, 0, 2+len(parts))
	components = append(components, eventType, identity)
	components = append(components, parts...)

	sum := md5.Sum([]byte(strings.Join(components, Separator)))

	// Force version 5 and an RFC 4122 variant (10xx), both derived
	// deterministically from the digest bits.
	sum[6] = (sum[6] & 0x0f) | 0x50
	sum[8] = (sum[8] & 0x3f) | 0x80

	var buf [36]byte
	hex.Encode(buf[0:8], sum[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], sum[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], sum[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], sum[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:36], sum[10:16])
	return string(buf[:])
}
