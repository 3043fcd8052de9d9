package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/worldautistic/worldautistic-api/internal/config"
	"github.com/worldautistic/worldautistic-api/internal/middleware"
	"github.com/worldautistic/worldautistic-api/internal/model"
	"github.com/worldautistic/worldautistic-api/internal/repository"
	"github.com/worldautistic/worldautistic-api/internal/service"
	"github.com/worldautistic/worldautistic-api/internal/session"
	"github.com/worldautistic/worldautistic-api/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg       config.Config
	Users     repository.UserStore
	Tokens    repository.TokenStore
	Whitelist repository.WhitelistStore
	Streaks   *service.StreakService
	Subs      *service.SubscriptionService
}

func NewAuthHandler(cfg config.Config, users repository.UserStore, tokens repository.TokenStore,
	wl repository.WhitelistStore, streaks *service.StreakService, subs *service.SubscriptionService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, Whitelist: wl, Streaks: streaks, Subs: subs}
}

// ----- DTOs -----

type registerReq struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
type loginReq struct {
	Email string `json:"email"`
}
type adminLoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPart struct {
	ID                    uint64     `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	Role                  string     `json:"role"`
	HasActiveSubscription bool       `json:"hasActiveSubscription"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:                    u.ID,
		Email:                 u.Email,
		Name:                  u.Name,
		Role:                  u.Role,
		HasActiveSubscription: u.HasActiveSubscription,
		SubscriptionExpiresAt: u.SubscriptionExpiresAt,
	}
}

// Register creates a whitelisted user and opens a session immediately. The
// subscription gate applies to later logins, not to registration itself:
// a fresh account gets a session so the family can finish onboarding.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	allowed, err := h.Whitelist.Contains(ctx, req.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "whitelist check failed"})
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not_whitelisted"})
	}

	uid, err := h.Users.Create(ctx, req.Email, req.Name, "", model.RoleUser)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	if err := h.openSession(c, ctx, u); err != nil {
		c.Logger().Errorf("open session failed for user %d: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "open session failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": toUserPart(u)})
}

// Login is the child-app flow: email only. Refused outright for a non-admin
// whose subscription is not valid — no tokens, no cookies. The 403 reason
// code lets the client show "renew subscription" instead of a generic
// failure.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown_email"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !h.Subs.IsAccessValid(u) {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":      "subscription_required",
			"expires_at": u.SubscriptionExpiresAt,
		})
	}

	if err := h.openSession(c, ctx, u); err != nil {
		c.Logger().Errorf("open session failed for user %d: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "open session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// AdminLogin is the back-office flow: email plus password, bcrypt-checked.
// Non-admin roles are rejected even with a correct password. Admins bypass
// the subscription gate.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.PasswordHash == "" || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials"})
	}
	if u.Role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin_only"})
	}

	if err := h.openSession(c, ctx, u); err != nil {
		c.Logger().Errorf("open session failed for user %d: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "open session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// Refresh exchanges a valid, server-known refresh token for a fresh pair,
// rotating the stored token. Every failure path is a plain 401; the store,
// not the signature, is the authority for revocation, so a signed-valid but
// deleted or store-expired token is rejected here.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw, ok := session.ReadRefreshToken(c.Request())
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	userID, ok := utils.ParseRefreshToken(h.Cfg.JWTSecret, raw)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// One invariant here: the store gains a new row only when the client is
	// handed the matching token. The user load goes first so a vanished
	// account cannot leave an orphaned replacement row behind.
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	newRefresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, userID, h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}

	err = h.Tokens.Rotate(ctx, userID, utils.HashRefreshToken(raw),
		utils.HashRefreshToken(newRefresh.Token), newRefresh.Exp)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rotate failed"})
	}

	session.Attach(c, access.Token, newRefresh.Token, h.accessTTL(), h.refreshTTL(), h.Cfg.IsProd())
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Logout deletes the stored refresh token when one is presented and clears
// both cookies. Logging out twice is not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	if raw, ok := session.ReadRefreshToken(c.Request()); ok {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := h.Tokens.Delete(ctx, utils.HashRefreshToken(raw)); err != nil &&
			!errors.Is(err, repository.ErrTokenNotFound) {
			c.Logger().Warnf("logout: delete refresh token failed: %v", err)
		}
	}
	session.Clear(c, h.Cfg.IsProd())
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Me returns the current user's public profile. The route guard has already
// verified the access token; a user row deleted since then still yields 401.
func (h *AuthHandler) Me(c echo.Context) error {
	userID := middleware.CurrentUserID(c)
	if userID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// openSession mints the token pair, registers the refresh token and sets
// both cookies. A non-nil return means no session was opened and the caller
// responds 500. The streak update and last-login touch are best-effort:
// they are logged on failure and never abort the login.
func (h *AuthHandler) openSession(c echo.Context, ctx context.Context, u model.User) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.ID, h.Cfg.RefreshTTLDays)
	if err != nil {
		return err
	}
	if err := h.Tokens.Store(ctx, u.ID, utils.HashRefreshToken(refresh.Token), refresh.Exp); err != nil {
		return err
	}
	session.Attach(c, access.Token, refresh.Token, h.accessTTL(), h.refreshTTL(), h.Cfg.IsProd())

	if err := h.Streaks.RecordLogin(ctx, u.ID); err != nil {
		c.Logger().Warnf("login: streak update failed for user %d: %v", u.ID, err)
	}
	if err := h.Users.TouchLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		c.Logger().Warnf("login: last_login_at touch failed for user %d: %v", u.ID, err)
	}
	return nil
}

func (h *AuthHandler) accessTTL() time.Duration {
	return time.Duration(h.Cfg.AccessTTLMin) * time.Minute
}

func (h *AuthHandler) refreshTTL() time.Duration {
	return time.Duration(h.Cfg.RefreshTTLDays) * 24 * time.Hour
}
