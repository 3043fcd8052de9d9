package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/worldautistic/worldautistic-api/internal/model"
	"github.com/worldautistic/worldautistic-api/internal/repository"
)

// CardHandler serves the public card catalog and the admin CRUD over it.
// Cards are plain content rows; there is no access logic here beyond the
// route-level guards.
type CardHandler struct {
	Cards repository.CardStore
}

func NewCardHandler(cards repository.CardStore) *CardHandler { return &CardHandler{Cards: cards} }

type cardReq struct {
	Category string `json:"category"`
	NamePT   string `json:"namePt"`
	NameEN   string `json:"nameEn"`
	NameES   string `json:"nameEs"`
	ImageURL string `json:"imageUrl"`
	AudioURL string `json:"audioUrl"`
	IsActive bool   `json:"isActive"`
}

type cardResp struct {
	ID       uint64 `json:"id"`
	Category string `json:"category"`
	NamePT   string `json:"namePt"`
	NameEN   string `json:"nameEn"`
	NameES   string `json:"nameEs"`
	ImageURL string `json:"imageUrl"`
	AudioURL string `json:"audioUrl"`
	IsActive bool   `json:"isActive"`
}

func toCardResp(c model.Card) cardResp {
	return cardResp{
		ID: c.ID, Category: c.Category,
		NamePT: c.NamePT, NameEN: c.NameEN, NameES: c.NameES,
		ImageURL: c.ImageURL, AudioURL: c.AudioURL, IsActive: c.IsActive,
	}
}

var validCategories = map[string]bool{
	model.CategoryAnimals: true,
	model.CategoryColors:  true,
	model.CategoryFood:    true,
	model.CategoryObjects: true,
}

// List is the public catalog: active cards only, optional ?category= filter.
// The redis response cache sits in front of this route.
func (h *CardHandler) List(c echo.Context) error {
	category := strings.ToLower(strings.TrimSpace(c.QueryParam("category")))
	if category != "" && !validCategories[category] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cards, err := h.Cards.List(ctx, category, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]cardResp, 0, len(cards))
	for _, card := range cards {
		out = append(out, toCardResp(card))
	}
	return c.JSON(http.StatusOK, echo.Map{"cards": out})
}

// Get returns a single card by id.
func (h *CardHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	card, err := h.Cards.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "card not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"card": toCardResp(card)})
}

// Create inserts a new card (admin).
func (h *CardHandler) Create(c echo.Context) error {
	var req cardReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	card, ok := cardFrom(req, 0)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category and names required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Cards.Create(ctx, &card); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create card failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"card": toCardResp(card)})
}

// Update overwrites a card (admin).
func (h *CardHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card id"})
	}
	var req cardReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	card, ok := cardFrom(req, id)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category and names required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Cards.Update(ctx, &card); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "card not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update card failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"card": toCardResp(card)})
}

// Delete removes a card (admin).
func (h *CardHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Cards.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "card not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete card failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func cardFrom(req cardReq, id uint64) (model.Card, bool) {
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if !validCategories[category] || req.NamePT == "" || req.NameEN == "" || req.NameES == "" {
		return model.Card{}, false
	}
	return model.Card{
		ID:       id,
		Category: category,
		NamePT:   req.NamePT,
		NameEN:   req.NameEN,
		NameES:   req.NameES,
		ImageURL: req.ImageURL,
		AudioURL: req.AudioURL,
		IsActive: req.IsActive,
	}, true
}
