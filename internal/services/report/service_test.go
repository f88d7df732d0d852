package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"restaurant-orders/internal/database"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/models"
	"restaurant-orders/internal/services/order"
)

type mockOrderReader struct {
	mock.Mock
}

func (m *mockOrderReader) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	args := m.Called(ctx, filter)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func newOrderService(t *testing.T) (*order.Service, *order.SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "report.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.RunMigrations(ctx))

	store := order.NewSQLiteStore(db)
	return order.NewService(store, nil, logger.NewNop(), 3), store
}

func TestRevenue_PaidOrdersOnly(t *testing.T) {
	ctx := context.Background()
	orders, store := newOrderService(t)

	item, err := orders.CreateMenuItem(ctx, "Soup", decimal.RequireFromString("12.50"))
	require.NoError(t, err)

	pending, err := orders.CreateOrder(ctx, order.CreateOrderInput{TableNumber: 2, Status: "pending"})
	require.NoError(t, err)
	_, err = orders.AddLine(ctx, pending.ID, item.ID, 2)
	require.NoError(t, err)

	paid, err := orders.CreateOrder(ctx, order.CreateOrderInput{
		TableNumber: 2,
		Items:       []order.LineInput{{MenuItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = orders.UpdateStatus(ctx, paid.ID, "paid")
	require.NoError(t, err)

	ready, err := orders.CreateOrder(ctx, order.CreateOrderInput{TableNumber: 5, Status: "ready"})
	require.NoError(t, err)
	_, err = orders.AddLine(ctx, ready.ID, item.ID, 4)
	require.NoError(t, err)

	s := NewService(store, logger.NewNop())

	report, err := s.Revenue(ctx)
	require.NoError(t, err)
	require.Len(t, report.Orders, 1)
	assert.Equal(t, paid.ID, report.Orders[0].ID)
	assert.Equal(t, "12.50", models.FormatMoney(report.TotalRevenue))

	table := 2
	status := models.StatusPending
	filtered, err := s.ListOrders(ctx, models.OrderFilter{TableNumber: &table, Status: &status})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, pending.ID, filtered[0].ID)
}

func TestRevenue_SumsStoredTotals(t *testing.T) {
	reader := new(mockOrderReader)
	paid := models.StatusPaid
	reader.On("ListOrders", mock.Anything, models.OrderFilter{Status: &paid}).Return([]models.Order{
		{ID: 1, Status: models.StatusPaid, TotalPrice: decimal.RequireFromString("10.00")},
		{ID: 2, Status: models.StatusPaid, TotalPrice: decimal.RequireFromString("2.50")},
		{ID: 3, Status: models.StatusPaid, TotalPrice: decimal.Zero},
	}, nil)

	report, err := NewService(reader, logger.NewNop()).Revenue(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Orders, 3)
	assert.Equal(t, "12.50", models.FormatMoney(report.TotalRevenue))
	reader.AssertExpectations(t)
}

func TestRevenue_NoPaidOrders(t *testing.T) {
	reader := new(mockOrderReader)
	reader.On("ListOrders", mock.Anything, mock.Anything).Return([]models.Order{}, nil)

	report, err := NewService(reader, logger.NewNop()).Revenue(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Orders)
	assert.True(t, report.TotalRevenue.IsZero())
}

func TestRevenue_StoreError(t *testing.T) {
	reader := new(mockOrderReader)
	reader.On("ListOrders", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := NewService(reader, logger.NewNop()).Revenue(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}
