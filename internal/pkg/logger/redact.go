package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactIdentity masks a tracking identity. Anonymous tokens keep their
// prefix and first characters so log lines stay correlatable without
// exposing the full device token.
func RedactIdentity(identity string) string {
	if rest, ok := strings.CutPrefix(identity, "anon:"); ok {
		if len(rest) > 4 {
			return "anon:" + rest[:4] + "***"
		}
		return "anon:***"
	}
	if strings.Contains(identity, "@") {
		return RedactEmail(identity)
	}
	return identity
}
