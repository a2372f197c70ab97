package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func signStripe(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func stripeEvent(eventType, paymentStatus, metadataID string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": "evt_1",
  "object": "event",
  "type": %q,
  "api_version": "2020-08-27",
  "data": {"object": {
    "id": "cs_test_1",
    "object": "checkout.session",
    "payment_status": %q,
    "client_reference_id": "12",
    "metadata": {"booking_id": %q},
    "payment_intent": "pi_123"
  }}
}`, eventType, paymentStatus, metadataID))
}

func TestParseStripeWebhookCompletedSession(t *testing.T) {
	payload := stripeEvent("checkout.session.completed", "paid", "12")
	ev, ok, err := parseStripeWebhook(payload, signStripe(payload, testWebhookSecret, time.Now()), testWebhookSecret)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CardPaymentEvent{BookingID: 12, PaymentRef: "pi_123"}, ev)
}

func TestParseStripeWebhookFallsBackToClientReference(t *testing.T) {
	payload := stripeEvent("checkout.session.completed", "paid", "")
	ev, ok, err := parseStripeWebhook(payload, signStripe(payload, testWebhookSecret, time.Now()), testWebhookSecret)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(12), ev.BookingID)
}

func TestParseStripeWebhookIgnoresOtherEvents(t *testing.T) {
	for _, payload := range [][]byte{
		stripeEvent("checkout.session.expired", "unpaid", "12"),
		stripeEvent("checkout.session.completed", "unpaid", "12"),
	} {
		_, ok, err := parseStripeWebhook(payload, signStripe(payload, testWebhookSecret, time.Now()), testWebhookSecret)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestParseStripeWebhookRejectsBadSignature(t *testing.T) {
	payload := stripeEvent("checkout.session.completed", "paid", "12")

	_, _, err := parseStripeWebhook(payload, signStripe(payload, "whsec_other", time.Now()), testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidWebhook)

	_, _, err = parseStripeWebhook(payload, signStripe(payload, testWebhookSecret, time.Now().Add(-time.Hour)), testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidWebhook)

	_, _, err = parseStripeWebhook(payload, "", testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidWebhook)
}
