package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// The refresh form uses a double-submit token: the dashboard sets it as a
// cookie and repeats it in a hidden field, and a refresh POST must echo both.
const (
	refreshTokenName  = "csrf_token"
	refreshTokenBytes = 32
)

// csrfToken returns the refresh token bound to the browser, setting the cookie
// on first visit.
func csrfToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(refreshTokenName); err == nil && c.Value != "" {
		return c.Value
	}

	token := newRefreshToken()
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
	})
	return token
}

// validateCSRF reports whether a refresh request carries its cookie token in
// the form or the X-CSRF-Token header.
func validateCSRF(r *http.Request) bool {
	c, err := r.Cookie(refreshTokenName)
	if err != nil || c.Value == "" {
		return false
	}

	submitted := r.Header.Get("X-CSRF-Token")
	if submitted == "" {
		submitted = r.PostFormValue(refreshTokenName)
	}
	if submitted == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(submitted), []byte(c.Value)) == 1
}

func newRefreshToken() string {
	b := make([]byte, refreshTokenBytes)
	// crypto/rand.Read does not fail on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
