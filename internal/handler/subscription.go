package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/worldautistic/worldautistic-api/internal/repository"
	"github.com/worldautistic/worldautistic-api/internal/service"
)

// SubscriptionHandler exposes the advisory check endpoint and the manual
// admin activate/deactivate actions that mirror the Hotmart webhook.
type SubscriptionHandler struct {
	Subs *service.SubscriptionService
}

func NewSubscriptionHandler(subs *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{Subs: subs}
}

// Check is enforcement point B: the cached boolean plus expiry for UI
// banners ("expires in N days"). It is advisory only — the login-time gate
// remains the sole authority for issuing a session.
func (h *SubscriptionHandler) Check(c echo.Context) error {
	userID, err := strconv.ParseUint(c.QueryParam("userId"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	active, expiresAt, err := h.Subs.Check(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hasActiveSubscription": active,
		"subscriptionExpiresAt": expiresAt,
	})
}

type activateReq struct {
	ExpiresAt time.Time `json:"expiresAt"`
}
type deactivateReq struct {
	Status string `json:"status"`
}

// Activate is the manual admin counterpart of a purchase-approved webhook.
func (h *SubscriptionHandler) Activate(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req activateReq
	if err := c.Bind(&req); err != nil || req.ExpiresAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expiresAt required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Subs.Activate(ctx, userID, req.ExpiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Deactivate is the manual admin counterpart of a cancel/refund webhook.
func (h *SubscriptionHandler) Deactivate(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req deactivateReq
	_ = c.Bind(&req) // empty body falls back to canceled

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Subs.Deactivate(ctx, userID, req.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
