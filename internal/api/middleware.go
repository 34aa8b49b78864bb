package api

import (
	"context"
	"crypto/hmac"
	"errors"
	"net/http"
	"strings"

	"github.com/lunary/analytics/internal/auth"
	"github.com/lunary/analytics/internal/pkg/httputil"
)

type contextKey string

const identityKey contextKey = "identity"

// withIdentity resolves the caller's session token into an Identity on the
// request context. A missing, expired, or invalid token downgrades the
// request to anonymous instead of rejecting it: stale sessions must not
// break tracking, and auth-required event types are skipped later by
// policy, not here.
func (h *Handlers) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := h.verifier.Verify(token)
		if err != nil {
			if !errors.Is(err, auth.ErrTokenExpired) {
				h.log.Debug("session token rejected", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// requireAdmin guards the analytics read endpoints with the static admin
// token. Comparison is constant-time.
func (h *Handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken == "" {
			httputil.Unauthorized(w, "admin access not configured")
			return
		}
		if !hmac.Equal([]byte(bearerToken(r)), []byte(h.adminToken)) {
			httputil.Unauthorized(w, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
