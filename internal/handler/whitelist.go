package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/worldautistic/worldautistic-api/internal/repository"
)

// WhitelistHandler manages the registration allow-list (admin only).
type WhitelistHandler struct {
	Whitelist repository.WhitelistStore
}

func NewWhitelistHandler(wl repository.WhitelistStore) *WhitelistHandler {
	return &WhitelistHandler{Whitelist: wl}
}

type whitelistAddReq struct {
	Email string `json:"email"`
	Note  string `json:"note"`
}

// List returns all whitelist entries.
func (h *WhitelistHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Whitelist.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

// Add inserts an email. Duplicate inserts are an error, not a no-op, so the
// operator notices a double entry.
func (h *WhitelistHandler) Add(c echo.Context) error {
	var req whitelistAddReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Whitelist.Add(ctx, req.Email, req.Note)
	if err != nil {
		if errors.Is(err, repository.ErrEmailWhitelisted) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already whitelisted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Remove deletes an entry by id.
func (h *WhitelistHandler) Remove(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Whitelist.Remove(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
