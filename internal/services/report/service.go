package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/models"
)

// RevenueReport lists the paid orders and the sum of their totals
type RevenueReport struct {
	Orders       []models.Order
	TotalRevenue decimal.Decimal
}

// Service answers read-only queries over orders. Totals are read as stored
// and never recomputed here.
type Service struct {
	orders OrderReader
	logger *logger.Logger
}

// NewService creates a new report service
func NewService(orders OrderReader, log *logger.Logger) *Service {
	return &Service{
		orders: orders,
		logger: log,
	}
}

// ListOrders returns the orders matching filter, most recent first
func (s *Service) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		s.logger.Error("db_query_failed", "Failed to list orders", logger.RequestID(ctx), err, nil)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Revenue selects every paid order and sums their totals
func (s *Service) Revenue(ctx context.Context) (*RevenueReport, error) {
	paid := models.StatusPaid
	orders, err := s.ListOrders(ctx, models.OrderFilter{Status: &paid})
	if err != nil {
		return nil, err
	}

	report := &RevenueReport{
		Orders:       orders,
		TotalRevenue: models.Revenue(orders),
	}

	s.logger.Debug("revenue_report", fmt.Sprintf("Revenue over %d paid orders", len(orders)),
		logger.RequestID(ctx), map[string]interface{}{
			"total_revenue": models.FormatMoney(report.TotalRevenue),
		})
	return report, nil
}
