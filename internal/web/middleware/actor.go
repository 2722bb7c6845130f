package middleware

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/console/internal/core"
)

// Headers set by the authenticating proxy in front of the console.
const (
	UserIDHeader    = "X-Forwarded-User"
	UserEmailHeader = "X-Forwarded-Email"
	UserNameHeader  = "X-Forwarded-Preferred-Username"
)

// Actor stores the console user named by the proxy headers in the request
// context, where audit logging picks it up. It must run after TrustedRealIP;
// headers on requests that did not come through a trusted proxy are ignored.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromTrustedProxy(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}

		a := core.Actor{
			ID:    strings.TrimSpace(r.Header.Get(UserIDHeader)),
			Email: strings.ToLower(strings.TrimSpace(r.Header.Get(UserEmailHeader))),
			Name:  strings.TrimSpace(r.Header.Get(UserNameHeader)),
		}
		if a.ID == "" && a.Email == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(core.ContextWithActor(r.Context(), a)))
	})
}
