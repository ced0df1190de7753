// Package payments verifies provider webhooks and reconciles payment state
// into local orders.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lojapijamas/storefront/internal/events"
	"github.com/lojapijamas/storefront/internal/metrics"
	"github.com/lojapijamas/storefront/internal/models"
)

const (
	topicPayment = "payment"

	fallbackCustomer = "Cliente"
	fallbackProduct  = "Produto não especificado"
	fallbackAddress  = "—"
)

// Outcome is the result of a successfully acknowledged notification.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	// OutcomeIgnored covers non-payment topics and notifications without a
	// payment id. They are acknowledged so the provider does not redeliver.
	OutcomeIgnored Outcome = "ignored"
)

// Notification is an inbound webhook delivery.
type Notification struct {
	Body      []byte
	Signature string
	RequestID string
}

// UpstreamError wraps a provider or store failure. The caller should answer
// with a server error so the provider redelivers.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PaymentLookup fetches authoritative payment details.
type PaymentLookup interface {
	GetPayment(ctx context.Context, id string) (*Payment, error)
}

// OrderStore persists orders keyed by payment id. UpsertByPaymentID must be
// atomic; created reports whether a new order was inserted.
type OrderStore interface {
	UpsertByPaymentID(ctx context.Context, order *models.Order) (*models.Order, bool, error)
}

type Reconciler struct {
	secret    string
	lookup    PaymentLookup
	orders    OrderStore
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewReconciler creates a Reconciler. An empty secret disables signature checks.
func NewReconciler(secret string, lookup PaymentLookup, orders OrderStore, publisher events.Publisher, logger *slog.Logger) *Reconciler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Reconciler{
		secret:    secret,
		lookup:    lookup,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Reconcile processes one notification. It returns ErrInvalidSignature for a
// bad signature, a *models.ValidationError for an unparseable body and an
// *UpstreamError when the provider or the store fails.
func (r *Reconciler) Reconcile(ctx context.Context, n Notification) (Outcome, error) {
	logger := r.logger.With(slog.String("request_id", n.RequestID))

	outcome, err := r.reconcile(ctx, n, logger)

	label := string(outcome)
	switch {
	case errors.Is(err, ErrInvalidSignature):
		label = "rejected"
	case err != nil:
		label = "failed"
	}
	metrics.WebhookNotificationsTotal.WithLabelValues(label).Inc()

	return outcome, err
}

func (r *Reconciler) reconcile(ctx context.Context, n Notification, logger *slog.Logger) (Outcome, error) {
	if r.secret != "" && n.Signature != "" {
		if err := VerifySignature(r.secret, n.Signature, n.Body); err != nil {
			logger.Warn("webhook signature rejected")
			return "", err
		}
	}

	topic, paymentID, err := parseNotification(n.Body)
	if err != nil {
		return "", err
	}

	if topic != topicPayment {
		logger.Debug("ignoring webhook topic", slog.String("topic", topic))
		return OutcomeIgnored, nil
	}

	if paymentID == "" {
		logger.Warn("payment webhook without payment id")
		return OutcomeIgnored, nil
	}

	payment, err := r.lookup.GetPayment(ctx, paymentID)
	if err != nil {
		logger.Error("payment lookup failed",
			slog.String("payment_id", paymentID),
			slog.Any("error", err),
		)
		return "", &UpstreamError{Op: "payment lookup", Err: err}
	}

	order := orderFromPayment(paymentID, payment)

	saved, created, err := r.orders.UpsertByPaymentID(ctx, order)
	if errors.Is(err, models.ErrConflict) {
		// A concurrent delivery inserted first; the retry lands as an update.
		logger.Info("order upsert raced, retrying", slog.String("payment_id", paymentID))
		saved, created, err = r.orders.UpsertByPaymentID(ctx, order)
	}
	if err != nil {
		logger.Error("order upsert failed",
			slog.String("payment_id", paymentID),
			slog.Any("error", err),
		)
		return "", &UpstreamError{Op: "order upsert", Err: err}
	}

	outcome := OutcomeUpdated
	if created {
		outcome = OutcomeCreated
	}

	logger.Info("order reconciled",
		slog.String("order_id", saved.ID),
		slog.String("payment_id", paymentID),
		slog.String("status", string(saved.Status)),
		slog.String("outcome", string(outcome)),
	)

	event := events.OrderStatusChanged{
		EventType:  events.EventTypeOrderStatusChanged,
		Source:     events.SourceWebhook,
		OrderID:    saved.ID,
		PaymentID:  paymentID,
		Status:     string(saved.Status),
		Total:      saved.Total,
		Email:      saved.Email,
		Created:    created,
		OccurredAt: r.now(),
	}
	if err := r.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		logger.Error("failed to publish order event",
			slog.String("order_id", saved.ID),
			slog.Any("error", err),
		)
	}

	return outcome, nil
}

// parseNotification extracts the topic and payment id. "type" takes
// precedence over "topic", and "data.id" over a top-level "id". Fields of an
// unexpected shape are treated as absent.
func parseNotification(body []byte) (topic, paymentID string, err error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", "", nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", "", models.NewValidationError("notification body must be a JSON object")
	}

	topic = stringField(fields, "type")
	if topic == "" {
		topic = stringField(fields, "topic")
	}

	if raw, ok := fields["data"]; ok {
		var data struct {
			ID FlexibleID `json:"id"`
		}
		if json.Unmarshal(raw, &data) == nil {
			paymentID = data.ID.String()
		}
	}
	if paymentID == "" {
		if raw, ok := fields["id"]; ok {
			var id FlexibleID
			if json.Unmarshal(raw, &id) == nil {
				paymentID = id.String()
			}
		}
	}

	return topic, paymentID, nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// orderFromPayment derives the order fields from the provider's payment.
// An empty email keeps the stored email on update.
func orderFromPayment(paymentID string, p *Payment) *models.Order {
	customer := p.Payer.FirstName
	if customer == "" {
		customer = p.Payer.Name
	}
	if customer == "" {
		customer = fallbackCustomer
	}

	product := p.Description
	if product == "" {
		product = fallbackProduct
	}

	quantity := 1
	firstTitle := ""
	if items := p.AdditionalInfo.Items; len(items) > 0 {
		if items[0].Quantity > 0 {
			quantity = int(items[0].Quantity)
		}
		firstTitle = items[0].Title
	}

	address := p.AdditionalInfo.Shipments.ReceiverAddress.Street
	if address == "" {
		address = firstTitle
	}
	if address == "" {
		address = fallbackAddress
	}

	return &models.Order{
		CustomerName: customer,
		Email:        p.Payer.Email,
		Product:      product,
		Quantity:     quantity,
		Total:        FormatBRL(p.TransactionAmount),
		Status:       MapStatus(p.Status),
		Address:      address,
		PaymentID:    &paymentID,
	}
}
