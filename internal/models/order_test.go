package models

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range OrderStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, OrderStatus("cooking").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestNewOrderLine_SnapshotsPrice(t *testing.T) {
	item := MenuItem{ID: 3, Name: "Coffee", Price: money("5.00")}
	line := NewOrderLine(9, item, 2)

	assert.Equal(t, int64(9), line.OrderID)
	assert.Equal(t, int64(3), line.MenuItemID)
	assert.Equal(t, "10.00", FormatMoney(line.LinePrice))

	item.Price = money("7.50")
	assert.Equal(t, "5.00", FormatMoney(line.UnitPrice))
}

func TestOrderLine_SetQuantity(t *testing.T) {
	line := NewOrderLine(1, MenuItem{ID: 1, Name: "Tea", Price: money("3.00")}, 3)
	assert.Equal(t, "9.00", FormatMoney(line.LinePrice))

	line.SetQuantity(1)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, "3.00", FormatMoney(line.LinePrice))
}

func TestCalculateTotal(t *testing.T) {
	tests := []struct {
		name   string
		prices []string
		want   string
	}{
		{name: "no lines", want: "0.00"},
		{name: "single line", prices: []string{"10.00"}, want: "10.00"},
		{name: "several lines", prices: []string{"10.00", "9.00", "0.10", "0.20"}, want: "19.30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices := make([]decimal.Decimal, len(tt.prices))
			for i, p := range tt.prices {
				prices[i] = money(p)
			}
			total := CalculateTotal(prices)
			assert.Equal(t, tt.want, FormatMoney(total))
			assert.True(t, total.Equal(CalculateTotal(prices)), "recompute must be stable")
		})
	}
}

func TestRevenue_OnlyPaid(t *testing.T) {
	orders := []Order{
		{Status: StatusPending, TotalPrice: money("4.00")},
		{Status: StatusPaid, TotalPrice: money("12.50")},
		{Status: StatusReady, TotalPrice: money("1.00")},
		{Status: StatusPaid, TotalPrice: money("0.50")},
	}
	assert.Equal(t, "13.00", FormatMoney(Revenue(orders)))
	assert.Equal(t, "0.00", FormatMoney(Revenue(nil)))
}

func TestMoneyHelpers(t *testing.T) {
	assert.True(t, HasMoneyPrecision(money("12.50")))
	assert.True(t, HasMoneyPrecision(money("12")))
	assert.False(t, HasMoneyPrecision(money("12.505")))

	cents, err := ToCents(money("12.5"))
	require.NoError(t, err)
	assert.Equal(t, int64(1250), cents)
	assert.Equal(t, "12.50", FormatMoney(FromCents(1250)))

	cents, err = ToCents(money("0.07"))
	require.NoError(t, err)
	assert.True(t, money("0.07").Equal(FromCents(cents)))
}

func TestToCents_OutOfRange(t *testing.T) {
	cents, err := ToCents(money("92233720368547758.07"))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), cents)

	for _, raw := range []string{"92233720368547758.08", "184467440737325574.18", "-92233720368547758.09"} {
		_, err := ToCents(money(raw))
		assert.ErrorIs(t, err, ErrAmountOutOfRange, raw)
	}
}

func TestOrderEvent_RoutingKey(t *testing.T) {
	order := &Order{ID: 4, TableNumber: 2, Status: StatusReady, TotalPrice: money("8.00")}
	evt := NewOrderEvent(EventOrderStatusChanged, order)

	assert.Equal(t, "order.status_changed", evt.RoutingKey())
	assert.Equal(t, int64(4), evt.OrderID)
	assert.NotEmpty(t, evt.EventID)
	assert.False(t, evt.OccurredAt.IsZero())
}
