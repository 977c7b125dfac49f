package auth

import (
	"net/http"
	"time"
)

const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

// CookieWriter issues and clears the session cookie pair. Both cookies are
// HttpOnly, Secure and SameSite=Strict; MaxAge tracks the token TTLs so the
// browser drops them roughly when they stop verifying anyway.
type CookieWriter struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCookieWriter(accessTTL, refreshTTL time.Duration) *CookieWriter {
	return &CookieWriter{accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (c *CookieWriter) Set(w http.ResponseWriter, pair TokenPair) {
	http.SetCookie(w, sessionCookie(AccessCookieName, pair.AccessToken, int(c.accessTTL.Seconds())))
	http.SetCookie(w, sessionCookie(RefreshCookieName, pair.RefreshToken, int(c.refreshTTL.Seconds())))
}

func (c *CookieWriter) Clear(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie(AccessCookieName, "", -1))
	http.SetCookie(w, sessionCookie(RefreshCookieName, "", -1))
}

func sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
