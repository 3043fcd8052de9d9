package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/worldautistic/worldautistic-api/internal/middleware"
	"github.com/worldautistic/worldautistic-api/internal/service"
)

// StreakHandler exposes the current user's login streak for the app's
// engagement screen.
type StreakHandler struct {
	Streaks *service.StreakService
}

func NewStreakHandler(streaks *service.StreakService) *StreakHandler {
	return &StreakHandler{Streaks: streaks}
}

// Get returns the caller's streak. Users who never logged in get zeros, not
// a 404: the row is created lazily on first login.
func (h *StreakHandler) Get(c echo.Context) error {
	userID := middleware.CurrentUserID(c)
	if userID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	st, err := h.Streaks.Get(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	resp := echo.Map{
		"currentStreak": st.CurrentStreak,
		"longestStreak": st.LongestStreak,
	}
	if !st.LastActiveDate.IsZero() {
		resp["lastActiveDate"] = st.LastActiveDate.Format("2006-01-02")
	}
	return c.JSON(http.StatusOK, resp)
}
