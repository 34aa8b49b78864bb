// Package auth verifies the signed session tokens the Lunary web app hands
// to its clients. A token is the base64url-encoded payload
// "userID|email|expiresUnix" plus an HMAC-SHA256 signature over it; the
// analytics service only verifies, it never issues tokens outside of tests
// and tooling.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed or tamper-signed tokens.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrTokenExpired means the token was valid but past its expiry.
	ErrTokenExpired = errors.New("session token expired")
)

// Identity is the authenticated principal carried by a session token.
type Identity struct {
	UserID string
	Email  string
}

// Verifier validates session tokens against the shared signing key.
type Verifier struct {
	signingKey []byte
	now        func() time.Time
}

// NewVerifier creates a Verifier for the given signing key.
func NewVerifier(signingKey string) *Verifier {
	return &Verifier{signingKey: []byte(signingKey), now: time.Now}
}

// NewVerifierWithClock creates a Verifier with a fixed clock (tests).
func NewVerifierWithClock(signingKey string, now func() time.Time) *Verifier {
	return &Verifier{signingKey: []byte(signingKey), now: now}
}

// Sign issues a token for the identity, expiring at the given time. Used by
// tests and by the ops tooling that mints service tokens.
func (v *Verifier) Sign(id Identity, expires time.Time) string {
	payload := fmt.Sprintf("%s|%s|%d", id.UserID, id.Email, expires.Unix())
	encoded := base64.URLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + v.sign(payload)
}

// Verify parses and validates a token, returning the identity it carries.
func (v *Verifier) Verify(token string) (Identity, error) {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	payload := string(decoded)
	if !hmac.Equal([]byte(v.sign(payload)), []byte(signature)) {
		return Identity{}, ErrInvalidToken
	}

	parts := strings.Split(payload, "|")
	if len(parts) != 3 {
		return Identity{}, ErrInvalidToken
	}
	expires, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	if v.now().Unix() > expires {
		return Identity{}, ErrTokenExpired
	}
	if parts[0] == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: parts[0], Email: parts[1]}, nil
}

func (v *Verifier) sign(data string) string {
	h := hmac.New(sha256.New, v.signingKey)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
