package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/lojapijamas/storefront/internal/models"
	"github.com/lojapijamas/storefront/internal/shipping"
	pkghttp "github.com/lojapijamas/storefront/pkg/http"
)

type ShippingQuoter interface {
	Quote(ctx context.Context, req shipping.QuoteRequest) ([]shipping.Option, error)
}

type ShippingHandler struct {
	quoter ShippingQuoter
	logger *slog.Logger
}

func NewShippingHandler(quoter ShippingQuoter, logger *slog.Logger) *ShippingHandler {
	return &ShippingHandler{quoter: quoter, logger: logger}
}

type ShippingQuoteRequest struct {
	PostalCode    string          `json:"postal_code"`
	ProductID     string          `json:"product_id"`
	DeclaredValue decimal.Decimal `json:"declared_value"`
	Quantity      int             `json:"quantity" validate:"gte=0"`
}

type ShippingQuoteResponse struct {
	Message string            `json:"message"`
	Data    []shipping.Option `json:"data"`
}

// Quote returns the carrier options for delivering a product to a postal code
// @Router /api/shipping/quote [post]
func (h *ShippingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req ShippingQuoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	options, err := h.quoter.Quote(r.Context(), shipping.QuoteRequest{
		PostalCode:    req.PostalCode,
		ProductID:     req.ProductID,
		DeclaredValue: req.DeclaredValue,
		Quantity:      req.Quantity,
	})
	if err != nil {
		var validationErr *models.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeBadRequest(w, validationErr.Message)
		case errors.Is(err, shipping.ErrNoServices):
			writeBadRequest(w, "Nenhum frete disponível para o CEP informado.")
		case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteNotFound(w, "Produto não encontrado.")
		case errors.Is(err, models.ErrServiceUnavailable):
			pkghttp.WriteServiceUnavailable(w, "Token da SuperFrete não configurado.")
		default:
			h.logger.Error("shipping quote failed", slog.Any("error", err))
			pkghttp.WriteBadGateway(w, "Erro ao calcular frete.")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ShippingQuoteResponse{
		Message: "Frete calculado com sucesso!",
		Data:    options,
	})
}
