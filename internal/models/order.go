package models

import "time"

// OrderStatus is the local order status vocabulary.
type OrderStatus string

const (
	OrderStatusApproved    OrderStatus = "Aprovado"
	OrderStatusAuthorized  OrderStatus = "Autorizado"
	OrderStatusInProcess   OrderStatus = "Em processamento"
	OrderStatusPending     OrderStatus = "Pendente"
	OrderStatusRejected    OrderStatus = "Rejeitado"
	OrderStatusCancelled   OrderStatus = "Cancelado"
	OrderStatusRefunded    OrderStatus = "Reembolsado"
	OrderStatusChargedBack OrderStatus = "Contestação"

	// Fulfilment statuses, set by administrators only.
	OrderStatusInProgress OrderStatus = "Em andamento"
	OrderStatusShipped    OrderStatus = "Enviado"
	OrderStatusDelivered  OrderStatus = "Entregue"
)

// AdminOrderStatuses lists every status an administrator may assign.
var AdminOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusInProcess,
	OrderStatusApproved,
	OrderStatusAuthorized,
	OrderStatusRejected,
	OrderStatusRefunded,
	OrderStatusChargedBack,
}

// IsAdminAssignable reports whether s may be set through the admin status endpoint.
func (s OrderStatus) IsAdminAssignable() bool {
	for _, allowed := range AdminOrderStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}

// Order is one checkout transaction. PaymentID is unique when set; orders
// created outside the webhook path may have none.
type Order struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customer_name"`
	Email        string      `json:"email"`
	Product      string      `json:"product"`
	Quantity     int         `json:"quantity"`
	Total        string      `json:"total"`
	Status       OrderStatus `json:"status"`
	Address      string      `json:"address"`
	PaymentID    *string     `json:"payment_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
