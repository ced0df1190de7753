package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lojapijamas/storefront/internal/auth"
	"github.com/lojapijamas/storefront/internal/models"
	pkghttp "github.com/lojapijamas/storefront/pkg/http"
)

type OrderServiceInterface interface {
	ListOrders(ctx context.Context) ([]*models.Order, error)
	ListMine(ctx context.Context, requester *models.TokenClaims) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Order, error)
}

type OrderHandler struct {
	service OrderServiceInterface
}

func NewOrderHandler(service OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: service}
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ListOrders returns every order, newest first
// @Router /api/orders [get]
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Erro ao buscar pedidos")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, orders)
}

// ListMine returns the orders placed with the caller's email
// @Router /api/orders/mine [get]
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListMine(r.Context(), auth.GetUserFromContext(r))
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Não autenticado")
			return
		}
		pkghttp.WriteInternalError(w, "Erro ao buscar pedidos")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, orders)
}

// UpdateStatus sets the order status from the admin vocabulary
// @Router /api/orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		var validationErr *models.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeBadRequest(w, validationErr.Message)
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Pedido não encontrado")
		default:
			pkghttp.WriteInternalError(w, "Erro ao atualizar status")
		}
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, order)
}
