package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/flavor-entertainers/booking-platform/internal/config"
)

// PaymentInstructions tell a client how to pay a deposit by PayID.
type PaymentInstructions struct {
	Method      string    `json:"method"`
	PayID       string    `json:"payid"`
	AccountName string    `json:"account_name"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Reference   string    `json:"reference"`
	DueBy       time.Time `json:"due_by"`
	CardEnabled bool      `json:"card_enabled"`
}

// CheckoutRequest describes the deposit a card checkout collects.
type CheckoutRequest struct {
	BookingID     uint64
	Reference     string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	Description   string
}

// CheckoutSession is the hosted payment page a client is redirected to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CardPaymentEvent is a verified, completed card payment for a booking.
type CardPaymentEvent struct {
	BookingID  uint64
	PaymentRef string
}

// CardGateway is the card payment provider.
type CardGateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	// ParseWebhook verifies a webhook delivery.  ok is false for events
	// that do not complete a booking deposit.
	ParseWebhook(payload []byte, signature string) (ev CardPaymentEvent, ok bool, err error)
}

// ErrInvalidWebhook is returned when a webhook signature or body does not
// verify.
var ErrInvalidWebhook = errors.New("invalid webhook payload")

// StripeGateway implements CardGateway with Stripe Checkout.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewStripeGateway(cfg config.PaymentConfig) *StripeGateway {
	return &StripeGateway{
		api:           client.New(cfg.StripeSecretKey, nil),
		webhookSecret: cfg.StripeWebhookSecret,
		successURL:    cfg.StripeSuccessURL,
		cancelURL:     cfg.StripeCancelURL,
	}
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	id := strconv.FormatUint(req.BookingID, 10)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(id),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(req.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
		}},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("booking_id", id)
	params.AddMetadata("reference", req.Reference)
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe checkout: %w", err)
	}
	return CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (CardPaymentEvent, bool, error) {
	return parseStripeWebhook(payload, signature, g.webhookSecret)
}

func parseStripeWebhook(payload []byte, signature, secret string) (CardPaymentEvent, bool, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return CardPaymentEvent{}, false, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	if string(ev.Type) != "checkout.session.completed" {
		return CardPaymentEvent{}, false, nil
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return CardPaymentEvent{}, false, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return CardPaymentEvent{}, false, nil
	}
	raw := sess.Metadata["booking_id"]
	if raw == "" {
		raw = sess.ClientReferenceID
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return CardPaymentEvent{}, false, fmt.Errorf("%w: session %s has no booking id", ErrInvalidWebhook, sess.ID)
	}
	ref := sess.ID
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		ref = sess.PaymentIntent.ID
	}
	return CardPaymentEvent{BookingID: id, PaymentRef: ref}, true, nil
}
