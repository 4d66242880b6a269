package handler

import (
	"crypto/subtle"
	"net/http"
)

// userIDHeader carries the caller identity set by the webapp frontend.
const userIDHeader = "X-USER-ID"

// adminKeyHeader carries the shared secret protecting admin routes.
const adminKeyHeader = "X-API-KEY"

// identityFields are the body fields a caller may use to supply their
// identity. They are embedded in request payloads so resolveIdentity can
// apply the header -> body -> query precedence without re-reading the body.
type identityFields struct {
	UserID    string `json:"user_id"`
	CreatorID string `json:"creator_id"`
	UserIDAlt string `json:"userId"`
}

func (f identityFields) candidates() []string {
	return []string{f.UserID, f.CreatorID, f.UserIDAlt}
}

// resolveIdentity extracts the caller identity: header first, then any body
// candidates in order, then query parameters. Empty string means absent.
func resolveIdentity(r *http.Request, bodyCandidates ...string) string {
	if id := r.Header.Get(userIDHeader); id != "" {
		return id
	}
	for _, id := range bodyCandidates {
		if id != "" {
			return id
		}
	}
	if id := r.URL.Query().Get("user_id"); id != "" {
		return id
	}
	return r.URL.Query().Get("userId")
}

// requireAdmin guards admin routes with an exact-match shared-secret header.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(adminKeyHeader)
		if h.adminKey == "" || key == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(h.adminKey)) != 1 {
			h.writeMessage(w, http.StatusUnauthorized, "Authorization Failed: Missing or invalid API key.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
