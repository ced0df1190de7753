package payments

import "github.com/lojapijamas/storefront/internal/models"

var providerStatuses = map[string]models.OrderStatus{
	"approved":     models.OrderStatusApproved,
	"authorized":   models.OrderStatusAuthorized,
	"in_process":   models.OrderStatusInProcess,
	"pending":      models.OrderStatusPending,
	"rejected":     models.OrderStatusRejected,
	"cancelled":    models.OrderStatusCancelled,
	"refunded":     models.OrderStatusRefunded,
	"charged_back": models.OrderStatusChargedBack,
}

// MapStatus translates a provider payment status into the local vocabulary.
// Unrecognized statuses map to Pendente.
func MapStatus(providerStatus string) models.OrderStatus {
	if status, ok := providerStatuses[providerStatus]; ok {
		return status
	}
	return models.OrderStatusPending
}
