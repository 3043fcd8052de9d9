package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldautistic/worldautistic-api/internal/model"
)

// hotmartBody builds the slice of Hotmart's payload the receiver reads.
func hotmartBody(event, email, transaction string, nextChargeMs int64) map[string]interface{} {
	return map[string]interface{}{
		"event": event,
		"data": map[string]interface{}{
			"buyer": map[string]interface{}{"email": email},
			"purchase": map[string]interface{}{
				"transaction":      transaction,
				"date_next_charge": nextChargeMs,
			},
		},
	}
}

// doJSONWithHeader posts a JSON body with the Hotmart shared-secret header.
func doJSONWithHeader(e *echo.Echo, path, hottok string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-HOTMART-HOTTOK", hottok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsBadHottok(t *testing.T) {
	e, env := newTestApp()
	seedSubscriber(env, "buyer@example.com")

	rec := doJSON(e, http.MethodPost, "/v1/webhooks/hotmart",
		hotmartBody("PURCHASE_APPROVED", "buyer@example.com", "HP-1", 0))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing hottok header")

	rows, err := env.purchases.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows, "unauthenticated calls never reach the ledger")
}

func TestWebhookPurchaseApprovedActivates(t *testing.T) {
	e, env := newTestApp()
	u := env.users.seed(model.User{
		Email: "buyer@example.com", Role: model.RoleUser,
		SubscriptionStatus: model.SubscriptionNone,
	})
	nextCharge := time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC)

	rec := doJSONWithHeader(e, "/v1/webhooks/hotmart", testHottok,
		hotmartBody("PURCHASE_APPROVED", "Buyer@Example.com", "HP-7", nextCharge.UnixMilli()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := env.users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, got.SubscriptionStatus)
	assert.True(t, got.HasActiveSubscription)
	require.NotNil(t, got.SubscriptionExpiresAt)
	assert.True(t, got.SubscriptionExpiresAt.Equal(nextCharge), "expiry follows date_next_charge")

	rows, err := env.purchases.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "HP-7", rows[0].Transaction)
	assert.Equal(t, "buyer@example.com", rows[0].BuyerEmail)
	assert.Equal(t, model.SubscriptionActive, rows[0].Status)

	// Redelivery: same outcome, one more ledger row, no state drift.
	rec = doJSONWithHeader(e, "/v1/webhooks/hotmart", testHottok,
		hotmartBody("PURCHASE_APPROVED", "buyer@example.com", "HP-7", nextCharge.UnixMilli()))
	require.Equal(t, http.StatusOK, rec.Code)
	again, _ := env.users.GetByID(context.Background(), u.ID)
	assert.Equal(t, got, again)
	rows, _ = env.purchases.List(context.Background())
	assert.Len(t, rows, 2)
}

func TestWebhookApprovedWithoutNextChargeDefaultsToOneYear(t *testing.T) {
	e, env := newTestApp()
	u := env.users.seed(model.User{Email: "buyer@example.com", Role: model.RoleUser})

	rec := doJSONWithHeader(e, "/v1/webhooks/hotmart", testHottok,
		hotmartBody("PURCHASE_COMPLETE", "buyer@example.com", "HP-8", 0))
	require.Equal(t, http.StatusOK, rec.Code)

	got, _ := env.users.GetByID(context.Background(), u.ID)
	require.NotNil(t, got.SubscriptionExpiresAt)
	lower := time.Now().UTC().AddDate(1, 0, 0).Add(-time.Minute)
	assert.True(t, got.SubscriptionExpiresAt.After(lower), "one-off purchases get a year of access")
}

func TestWebhookDeactivationEvents(t *testing.T) {
	cases := []struct {
		event      string
		wantStatus string
	}{
		{"PURCHASE_CANCELED", model.SubscriptionCanceled},
		{"SUBSCRIPTION_CANCELLATION", model.SubscriptionCanceled},
		{"PURCHASE_REFUNDED", model.SubscriptionRefunded},
		{"PURCHASE_CHARGEBACK", model.SubscriptionChargeback},
	}
	for _, tc := range cases {
		t.Run(tc.event, func(t *testing.T) {
			e, env := newTestApp()
			u := seedSubscriber(env, "buyer@example.com")

			rec := doJSONWithHeader(e, "/v1/webhooks/hotmart", testHottok,
				hotmartBody(tc.event, "buyer@example.com", "HP-9", 0))
			require.Equal(t, http.StatusOK, rec.Code)

			got, err := env.users.GetByID(context.Background(), u.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, got.SubscriptionStatus)
			assert.False(t, got.HasActiveSubscription)
			assert.NotNil(t, got.SubscriptionExpiresAt, "expiry kept for the record")
		})
	}
}

func TestWebhookUnknownBuyerStillAcknowledged(t *testing.T) {
	// Hotmart retries on non-200; a buyer that never registered must not
	// wedge the provider's retry queue.
	e, env := newTestApp()
	rec := doJSONWithHeader(e, "/v1/webhooks/hotmart", testHottok,
		hotmartBody("PURCHASE_APPROVED", "stranger@example.com", "HP-10", 0))
	assert.Equal(t, http.StatusOK, rec.Code)

	rows, err := env.purchases.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1, "still recorded for reconciliation")
	assert.Equal(t, "stranger@example.com", rows[0].BuyerEmail)
}

func TestWebhookUnknownEventIgnoredButAcknowledged(t *testing.T) {
	e, env := newTestApp()
	u := seedSubscriber(env, "buyer@example.com")

	rec := doJSONWithHeader(e, "/v1/webhooks/hotmart", testHottok,
		hotmartBody("SWITCH_PLAN", "buyer@example.com", "HP-11", 0))
	assert.Equal(t, http.StatusOK, rec.Code)

	got, _ := env.users.GetByID(context.Background(), u.ID)
	assert.Equal(t, model.SubscriptionActive, got.SubscriptionStatus, "unknown events mutate nothing")
}

func TestWebhookMalformedBodyAcknowledged(t *testing.T) {
	e, _ := newTestApp()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/hotmart", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-HOTMART-HOTTOK", testHottok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "poison payloads must not trigger provider retries")
}
