// Package session maps the token pair to and from HTTP cookies. It knows
// nothing about token contents; issuing and verification live in utils.
package session

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Cookie names used for the session pair.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Attach sets both session cookies on the outgoing response. Max-age follows
// each token's validity window. Cookies are HttpOnly and SameSite=Lax;
// Secure is set only in production so local development over plain HTTP
// still works.
func Attach(c echo.Context, access, refresh string, accessTTL, refreshTTL time.Duration, secure bool) {
	c.SetCookie(sessionCookie(AccessCookie, access, int(accessTTL/time.Second), secure))
	c.SetCookie(sessionCookie(RefreshCookie, refresh, int(refreshTTL/time.Second), secure))
}

// Clear expires both session cookies. Used on logout.
func Clear(c echo.Context, secure bool) {
	c.SetCookie(sessionCookie(AccessCookie, "", -1, secure))
	c.SetCookie(sessionCookie(RefreshCookie, "", -1, secure))
}

// ReadAccessToken extracts the access token from the request, if present.
// No validation happens here.
func ReadAccessToken(r *http.Request) (string, bool) {
	return readCookie(r, AccessCookie)
}

// ReadRefreshToken extracts the refresh token from the request, if present.
func ReadRefreshToken(r *http.Request) (string, bool) {
	return readCookie(r, RefreshCookie)
}

func readCookie(r *http.Request, name string) (string, bool) {
	ck, err := r.Cookie(name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

func sessionCookie(name, value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
