package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/worldautistic/worldautistic-api/internal/model"
	"github.com/worldautistic/worldautistic-api/internal/repository"
)

// AdminUserHandler serves the back-office user screens.
type AdminUserHandler struct {
	Users     repository.UserStore
	Purchases repository.PurchaseStore
}

func NewAdminUserHandler(users repository.UserStore, purchases repository.PurchaseStore) *AdminUserHandler {
	return &AdminUserHandler{Users: users, Purchases: purchases}
}

type adminUserResp struct {
	ID                    uint64     `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	Role                  string     `json:"role"`
	SubscriptionStatus    string     `json:"subscriptionStatus"`
	HasActiveSubscription bool       `json:"hasActiveSubscription"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt"`
	LastLoginAt           *time.Time `json:"lastLoginAt"`
	CreatedAt             time.Time  `json:"createdAt"`
}

func toAdminUserResp(u model.User) adminUserResp {
	return adminUserResp{
		ID:                    u.ID,
		Email:                 u.Email,
		Name:                  u.Name,
		Role:                  u.Role,
		SubscriptionStatus:    u.SubscriptionStatus,
		HasActiveSubscription: u.HasActiveSubscription,
		SubscriptionExpiresAt: u.SubscriptionExpiresAt,
		LastLoginAt:           u.LastLoginAt,
		CreatedAt:             u.CreatedAt,
	}
}

// List returns all users, newest first.
func (h *AdminUserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminUserResp, 0, len(users))
	for _, u := range users {
		out = append(out, toAdminUserResp(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// Get returns one user with full subscription fields.
func (h *AdminUserHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toAdminUserResp(u)})
}

// ListPurchases returns the Hotmart purchase ledger.
func (h *AdminUserHandler) ListPurchases(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	purchases, err := h.Purchases.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"purchases": purchases})
}
