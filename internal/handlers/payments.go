package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/lojapijamas/storefront/internal/models"
	"github.com/lojapijamas/storefront/internal/payments"
	pkghttp "github.com/lojapijamas/storefront/pkg/http"
)

// maxWebhookBody bounds the notification body read into memory.
const maxWebhookBody = 1 << 20

type CheckoutInterface interface {
	CreatePreference(ctx context.Context, cart []payments.CartItem, clientTotal *decimal.Decimal, payerEmail string) (*payments.CheckoutResult, error)
}

type ReconcilerInterface interface {
	Reconcile(ctx context.Context, n payments.Notification) (payments.Outcome, error)
}

type PaymentHandler struct {
	checkout   CheckoutInterface
	reconciler ReconcilerInterface
	logger     *slog.Logger
}

func NewPaymentHandler(checkout CheckoutInterface, reconciler ReconcilerInterface, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, reconciler: reconciler, logger: logger}
}

type CreatePreferenceRequest struct {
	Cart       []payments.CartItem `json:"cart"`
	TotalPrice *decimal.Decimal    `json:"total_price"`
	PayerEmail string              `json:"payer_email" validate:"omitempty,email"`
}

// CreatePreference registers a checkout preference for the cart
// @Router /api/payments/preference [post]
func (h *PaymentHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	var req CreatePreferenceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.checkout.CreatePreference(r.Context(), req.Cart, req.TotalPrice, req.PayerEmail)
	if err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			writeBadRequest(w, validationErr.Message)
			return
		}
		h.logger.Error("failed to create payment preference", slog.Any("error", err))
		pkghttp.WriteBadGateway(w, "Erro ao gerar preferência de pagamento")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// Webhook receives payment provider notifications. Anything but a server
// error is acknowledged so the provider stops redelivering.
// @Router /api/mercadopago/webhook [post]
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid body")
		return
	}

	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = middleware.GetReqID(r.Context())
	}

	_, err = h.reconciler.Reconcile(r.Context(), payments.Notification{
		Body:      body,
		Signature: r.Header.Get("X-Signature"),
		RequestID: requestID,
	})

	var validationErr *models.ValidationError
	switch {
	case err == nil:
		writeText(w, http.StatusOK, "OK")
	case errors.Is(err, payments.ErrInvalidSignature):
		writeText(w, http.StatusUnauthorized, "invalid signature")
	case errors.As(err, &validationErr):
		writeText(w, http.StatusBadRequest, "invalid notification")
	default:
		writeText(w, http.StatusInternalServerError, "Erro ao processar webhook")
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
