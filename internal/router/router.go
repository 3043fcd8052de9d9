// Package router wires handlers, middleware and route groups onto the Echo
// instance. The route guard runs first on every request; groups below only
// add concerns the guard does not cover (rate limiting, caching, the
// explicit admin role fence).
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/worldautistic/worldautistic-api/internal/config"
	"github.com/worldautistic/worldautistic-api/internal/handler"
	"github.com/worldautistic/worldautistic-api/internal/middleware"
	"github.com/worldautistic/worldautistic-api/internal/model"
)

// Handlers collects everything the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Subs      *handler.SubscriptionHandler
	Webhook   *handler.WebhookHandler
	Cards     *handler.CardHandler
	Whitelist *handler.WhitelistHandler
	Users     *handler.AdminUserHandler
	Streaks   *handler.StreakHandler
}

// Register mounts all routes. rdb may be nil; rate limiting and caching
// then degrade to pass-throughs.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.Use(middleware.RouteGuard(cfg.JWTSecret))

	e.GET("/healthz", handler.Health)

	// Unauthenticated session operations, rate limited: email-only login
	// invites enumeration and brute force.
	auth := e.Group("/v1/auth")
	auth.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/admin/login", h.Auth.AdminLogin)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Public content catalog, cached.
	cards := e.Group("/v1/cards")
	cards.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	cards.GET("", h.Cards.List)
	cards.GET("/:id", h.Cards.Get)

	// Advisory subscription check, public so the client can poll before a
	// session exists.
	e.GET("/v1/subscription/check", h.Subs.Check)

	// Payment provider callback.
	e.POST("/v1/webhooks/hotmart", h.Webhook.Hotmart)

	// Session-holder endpoints; the guard has already verified the cookie.
	e.GET("/v1/me", h.Auth.Me)
	e.GET("/v1/streak", h.Streaks.Get)

	// Back-office. The guard redirects/403s non-admins by prefix; the role
	// fence stays as an explicit second check on the group.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", h.Users.List)
	admin.GET("/users/:id", h.Users.Get)
	admin.POST("/users/:id/subscription/activate", h.Subs.Activate)
	admin.POST("/users/:id/subscription/deactivate", h.Subs.Deactivate)
	admin.GET("/purchases", h.Users.ListPurchases)
	admin.GET("/whitelist", h.Whitelist.List)
	admin.POST("/whitelist", h.Whitelist.Add)
	admin.DELETE("/whitelist/:id", h.Whitelist.Remove)
	admin.POST("/cards", h.Cards.Create)
	admin.PUT("/cards/:id", h.Cards.Update)
	admin.DELETE("/cards/:id", h.Cards.Delete)
}
