package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)
}

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifierWithClock("test-signing-key", fixedNow)

	token := v.Sign(Identity{UserID: "user_1", Email: "luna@example.com"}, fixedNow().Add(time.Hour))
	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", id.UserID)
	assert.Equal(t, "luna@example.com", id.Email)
}

func TestVerifier_RejectsTamperedToken(t *testing.T) {
	v := NewVerifierWithClock("test-signing-key", fixedNow)
	token := v.Sign(Identity{UserID: "user_1"}, fixedNow().Add(time.Hour))

	// Flip a character in the signature.
	tampered := token[:len(token)-1] + flip(token[len(token)-1])
	_, err := v.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsWrongKey(t *testing.T) {
	issuer := NewVerifierWithClock("key-a", fixedNow)
	verifier := NewVerifierWithClock("key-b", fixedNow)

	token := issuer.Sign(Identity{UserID: "user_1"}, fixedNow().Add(time.Hour))
	_, err := verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsExpired(t *testing.T) {
	v := NewVerifierWithClock("test-signing-key", fixedNow)
	token := v.Sign(Identity{UserID: "user_1"}, fixedNow().Add(-time.Minute))

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifier_RejectsGarbage(t *testing.T) {
	v := NewVerifierWithClock("test-signing-key", fixedNow)
	for _, token := range []string{"", "no-dot", "a.b", "!!!.sig", strings.Repeat("x", 200)} {
		_, err := v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}

func flip(b byte) string {
	if b == '0' {
		return "1"
	}
	return "0"
}
