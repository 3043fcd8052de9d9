// Package middleware provides shared request processing: the session route
// guard, role enforcement, rate limiting and response caching.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/worldautistic/worldautistic-api/internal/model"
	"github.com/worldautistic/worldautistic-api/internal/session"
	"github.com/worldautistic/worldautistic-api/internal/utils"
)

// Pages the guard redirects browsers to.
const (
	SignInPath  = "/entrar" // sign-in screen, target for unauthenticated page requests
	LandingPath = "/inicio" // default authenticated landing, target for non-admins on admin pages
)

// adminPrefixes lists path prefixes reserved for ADMIN sessions.
var adminPrefixes = []string{
	"/v1/admin",
	"/admin",
}

// publicPrefixes lists path prefixes that pass through without a session.
// Everything not listed here or in adminPrefixes requires a valid access
// token.
var publicPrefixes = []string{
	"/healthz",
	"/v1/auth/",
	"/v1/webhooks/",
	"/v1/cards",
	"/v1/subscription/check",
	"/entrar",
	"/cadastro",
	"/assets/",
}

// RouteGuard gates every request before it reaches a handler. It reads only
// the access-token cookie; expired access tokens force re-authentication
// here regardless of any refresh token, because renewal is an explicit
// client-invoked operation on /v1/auth/refresh.
//
// Failure shape depends on the caller: API paths (/v1/...) receive JSON
// 401/403, page paths are redirected. An authenticated non-admin hitting an
// admin area goes to the landing page, not sign-in: that is an
// authorization failure, not an authentication one.
func RouteGuard(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			admin := hasAnyPrefix(path, adminPrefixes)
			if !admin && (path == "/" || hasAnyPrefix(path, publicPrefixes)) {
				return next(c)
			}

			raw, ok := session.ReadAccessToken(c.Request())
			if !ok {
				return unauthenticated(c, path)
			}
			claims, ok := utils.ParseAccessToken(secret, raw)
			if !ok {
				return unauthenticated(c, path)
			}
			if admin && claims.Role != model.RoleAdmin {
				if isAPIPath(path) {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
				}
				return c.Redirect(http.StatusSeeOther, LandingPath)
			}

			// Downstream handlers may assume a valid, role-known principal.
			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context, path string) error {
	if isAPIPath(path) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.Redirect(http.StatusSeeOther, SignInPath)
}

func isAPIPath(path string) bool { return strings.HasPrefix(path, "/v1/") }

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if matchesPrefix(path, p) {
			return true
		}
	}
	return false
}

// matchesPrefix matches whole path segments: "/v1/cards" covers itself and
// "/v1/cards/7" but not "/v1/cardsfoo", and "/admin" does not capture
// "/administracao".
func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) || strings.HasSuffix(prefix, "/") {
		return true
	}
	return path[len(prefix)] == '/'
}

// CurrentUserID returns the principal set by RouteGuard, or 0 for requests
// that reached a handler through a public prefix.
func CurrentUserID(c echo.Context) uint64 {
	if v, ok := c.Get("user_id").(uint64); ok {
		return v
	}
	return 0
}
