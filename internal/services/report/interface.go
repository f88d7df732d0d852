package report

import (
	"context"

	"restaurant-orders/internal/models"
)

// OrderReader reads persisted orders. Implemented by the order stores.
type OrderReader interface {
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
}
