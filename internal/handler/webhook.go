package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/worldautistic/worldautistic-api/internal/config"
	"github.com/worldautistic/worldautistic-api/internal/model"
	"github.com/worldautistic/worldautistic-api/internal/queue"
	"github.com/worldautistic/worldautistic-api/internal/repository"
	"github.com/worldautistic/worldautistic-api/internal/service"
)

// hottokHeader carries Hotmart's shared-secret webhook signature.
const hottokHeader = "X-HOTMART-HOTTOK"

// Hotmart event names this receiver understands.
const (
	eventPurchaseApproved = "PURCHASE_APPROVED"
	eventPurchaseComplete = "PURCHASE_COMPLETE"
	eventPurchaseCanceled = "PURCHASE_CANCELED"
	eventPurchaseRefunded = "PURCHASE_REFUNDED"
	eventChargeback       = "PURCHASE_CHARGEBACK"
	eventSubCancellation  = "SUBSCRIPTION_CANCELLATION"
)

// WebhookHandler receives Hotmart's asynchronous purchase notifications and
// mutates subscription state. After the shared-secret check passes, the
// response is ALWAYS 200: failing a webhook makes the provider retry, and a
// poisoned payload would retry forever. Failures are logged and shipped to
// the purchase queue for reconciliation instead.
type WebhookHandler struct {
	Cfg       config.Config
	Users     repository.UserStore
	Purchases repository.PurchaseStore
	Subs      *service.SubscriptionService
}

func NewWebhookHandler(cfg config.Config, users repository.UserStore,
	purchases repository.PurchaseStore, subs *service.SubscriptionService) *WebhookHandler {
	return &WebhookHandler{Cfg: cfg, Users: users, Purchases: purchases, Subs: subs}
}

type hotmartPayload struct {
	Event string `json:"event"`
	Data  struct {
		Buyer struct {
			Email string `json:"email"`
		} `json:"buyer"`
		Purchase struct {
			Transaction    string `json:"transaction"`
			DateNextCharge int64  `json:"date_next_charge"` // epoch millis, optional
		} `json:"purchase"`
	} `json:"data"`
}

// Hotmart handles POST /v1/webhooks/hotmart.
func (h *WebhookHandler) Hotmart(c echo.Context) error {
	if c.Request().Header.Get(hottokHeader) != h.Cfg.HotmartToken {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid hottok"})
	}

	var p hotmartPayload
	if err := c.Bind(&p); err != nil {
		c.Logger().Errorf("hotmart webhook: malformed payload: %v", err)
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev := queue.PurchaseEvent{
		Transaction: p.Data.Purchase.Transaction,
		Event:       p.Event,
		BuyerEmail:  strings.ToLower(strings.TrimSpace(p.Data.Buyer.Email)),
		ReceivedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	ev.Status, ev.UserID, ev.Applied = h.apply(ctx, c, p)
	if !ev.Applied {
		ev.Error = "not applied, see server log"
	}

	if err := h.Purchases.Record(ctx, &model.Purchase{
		Transaction: ev.Transaction,
		Event:       ev.Event,
		BuyerEmail:  ev.BuyerEmail,
		Status:      ev.Status,
	}); err != nil {
		c.Logger().Errorf("hotmart webhook: record purchase failed: %v", err)
	}
	_ = queue.PublishPurchaseEvent(ctx, ev) // best-effort audit trail

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// apply dispatches one event to the subscription service and reports the
// mapped status, the affected user and whether the mutation was applied.
func (h *WebhookHandler) apply(ctx context.Context, c echo.Context, p hotmartPayload) (string, uint64, bool) {
	email := strings.ToLower(strings.TrimSpace(p.Data.Buyer.Email))
	if email == "" {
		c.Logger().Errorf("hotmart webhook: event %s without buyer email", p.Event)
		return "", 0, false
	}

	var (
		status     string
		deactivate bool
	)
	switch p.Event {
	case eventPurchaseApproved, eventPurchaseComplete:
		status = model.SubscriptionActive
	case eventPurchaseCanceled, eventSubCancellation:
		status, deactivate = model.SubscriptionCanceled, true
	case eventPurchaseRefunded:
		status, deactivate = model.SubscriptionRefunded, true
	case eventChargeback:
		status, deactivate = model.SubscriptionChargeback, true
	default:
		c.Logger().Warnf("hotmart webhook: ignoring unknown event %q", p.Event)
		return "", 0, false
	}

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.Logger().Errorf("hotmart webhook: no user for buyer %s (event %s)", email, p.Event)
		} else {
			c.Logger().Errorf("hotmart webhook: lookup %s failed: %v", email, err)
		}
		return status, 0, false
	}

	if deactivate {
		err = h.Subs.Deactivate(ctx, u.ID, status)
	} else {
		err = h.Subs.Activate(ctx, u.ID, expiryFrom(p))
	}
	if err != nil {
		c.Logger().Errorf("hotmart webhook: apply %s for user %d failed: %v", p.Event, u.ID, err)
		return status, u.ID, false
	}
	return status, u.ID, true
}

// expiryFrom derives the new access expiry: the next charge date when the
// payload carries one, otherwise one year out (one-off purchases).
func expiryFrom(p hotmartPayload) time.Time {
	if ms := p.Data.Purchase.DateNextCharge; ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Now().UTC().AddDate(1, 0, 0)
}
