package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lojapijamas/storefront/internal/events"
	"github.com/lojapijamas/storefront/internal/models"
)

type OrderRepository interface {
	List(ctx context.Context) ([]*models.Order, error)
	ListByEmail(ctx context.Context, email string) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}

// UserLookup resolves the account behind a session that carries no email.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type OrderService struct {
	repo      OrderRepository
	users     UserLookup
	publisher events.Publisher
	logger    *slog.Logger
}

func NewOrderService(repo OrderRepository, users UserLookup, publisher events.Publisher, logger *slog.Logger) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &OrderService{repo: repo, users: users, publisher: publisher, logger: logger}
}

func (s *OrderService) ListOrders(ctx context.Context) ([]*models.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list orders", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return orders, nil
}

// ListMine returns the orders placed with the requester's email address.
func (s *OrderService) ListMine(ctx context.Context, requester *models.TokenClaims) ([]*models.Order, error) {
	if requester == nil || requester.UserID == "" {
		return nil, models.ErrUnauthorized
	}

	email := requester.Email
	if email == "" && validID(requester.UserID) {
		user, err := s.users.GetByID(ctx, requester.UserID)
		switch {
		case err == nil:
			email = user.Email
		case !errors.Is(err, models.ErrNotFound):
			s.logger.Error("failed to resolve order owner", slog.String("user_id", requester.UserID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}
	if email == "" {
		return []*models.Order{}, nil
	}

	orders, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to list orders by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return orders, nil
}

// UpdateStatus sets a fulfilment status chosen by an administrator.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*models.Order, error) {
	next := models.OrderStatus(strings.TrimSpace(status))
	if !next.IsAdminAssignable() {
		return nil, models.NewValidationError("Status inválido")
	}
	if !validID(id) {
		return nil, models.ErrNotFound
	}

	order, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update order status", slog.String("order_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if order.PaymentID != nil {
		event := events.OrderStatusChanged{
			EventType:  events.EventTypeOrderStatusChanged,
			Source:     events.SourceAdmin,
			OrderID:    order.ID,
			PaymentID:  *order.PaymentID,
			Status:     string(order.Status),
			Total:      order.Total,
			Email:      order.Email,
			OccurredAt: order.UpdatedAt,
		}
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Warn("failed to publish order status change", slog.String("order_id", order.ID), slog.Any("error", err))
		}
	}

	return order, nil
}
