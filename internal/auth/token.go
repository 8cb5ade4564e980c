package auth

import "net/http"

const (
	TokenHeader   = "X-LIFTLOG-TOKEN"
	SessionCookie = "liftlog_session"
)

// TokenFromRequest reads the session token from the custom header
// (native app clients) or from the session cookie (browsers).
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get(TokenHeader); token != "" {
		return token
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
