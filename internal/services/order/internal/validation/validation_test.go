package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-orders/internal/models"
)

func TestValidateMenuItem(t *testing.T) {
	tests := []struct {
		name      string
		itemName  string
		price     string
		wantErr   bool
		wantField string
	}{
		{name: "valid item", itemName: "Coffee", price: "5.00"},
		{name: "free item", itemName: "Water", price: "0"},
		{name: "max price", itemName: "Caviar", price: "999999.99"},
		{name: "missing name", itemName: "", price: "5.00", wantErr: true, wantField: "name"},
		{name: "blank name", itemName: "   ", price: "5.00", wantErr: true, wantField: "name"},
		{name: "name too long", itemName: strings.Repeat("a", 101), price: "5.00", wantErr: true, wantField: "name"},
		{name: "negative price", itemName: "Tea", price: "-0.01", wantErr: true, wantField: "price"},
		{name: "three decimals", itemName: "Tea", price: "3.005", wantErr: true, wantField: "price"},
		{name: "price too large", itemName: "Tea", price: "1000000.00", wantErr: true, wantField: "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMenuItem(tt.itemName, decimal.RequireFromString(tt.price))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestValidateTableNumber(t *testing.T) {
	assert.NoError(t, ValidateTableNumber(1))
	assert.Error(t, ValidateTableNumber(0))
	assert.Error(t, ValidateTableNumber(-3))
}

func TestValidateStatus(t *testing.T) {
	for _, s := range models.OrderStatuses {
		got, err := ValidateStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	for _, raw := range []string{"", "PAID", "cancelled"} {
		_, err := ValidateStatus(raw)
		assert.Error(t, err, raw)
	}
}

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, ValidateQuantity(1))
	assert.NoError(t, ValidateQuantity(42))
	assert.NoError(t, ValidateQuantity(MaxQuantity))
	assert.Error(t, ValidateQuantity(0))
	assert.Error(t, ValidateQuantity(-1))
	assert.Error(t, ValidateQuantity(MaxQuantity+1))
	assert.Error(t, ValidateQuantity(184467442582))
}

func TestMaxQuantityFitsInCents(t *testing.T) {
	line := models.CalculateLinePrice(models.MaxPrice, MaxQuantity)
	cents, err := models.ToCents(line)
	require.NoError(t, err)
	assert.Equal(t, int64(9999999900), cents)
}

func TestValidateMenuItemPatch(t *testing.T) {
	name := "Borscht"
	blank := "  "
	price := decimal.RequireFromString("12.50")
	negative := decimal.RequireFromString("-1")

	assert.NoError(t, ValidateMenuItemPatch(&name, nil))
	assert.NoError(t, ValidateMenuItemPatch(nil, &price))
	assert.NoError(t, ValidateMenuItemPatch(&name, &price))

	for _, tc := range []struct {
		name      string
		itemName  *string
		price     *decimal.Decimal
		wantField string
	}{
		{"empty patch", nil, nil, "name"},
		{"blank name", &blank, nil, "name"},
		{"negative price", nil, &negative, "price"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var ve ValidationError
			require.ErrorAs(t, ValidateMenuItemPatch(tc.itemName, tc.price), &ve)
			assert.Equal(t, tc.wantField, ve.Field)
		})
	}
}

func TestValidateOrderUpdate(t *testing.T) {
	table := 5
	zero := 0
	paid := "paid"
	unknown := "served"

	status, err := ValidateOrderUpdate(&table, nil)
	require.NoError(t, err)
	assert.Nil(t, status)

	status, err = ValidateOrderUpdate(&table, &paid)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.StatusPaid, *status)

	for _, tc := range []struct {
		name      string
		table     *int
		status    *string
		wantField string
	}{
		{"empty update", nil, nil, "status"},
		{"zero table", &zero, &paid, "table_number"},
		{"unknown status", &table, &unknown, "status"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateOrderUpdate(tc.table, tc.status)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.wantField, ve.Field)
		})
	}
}

func TestValidateCreateOrder(t *testing.T) {
	tests := []struct {
		name       string
		table      int
		status     string
		items      []LineInput
		wantStatus models.OrderStatus
		wantField  string
	}{
		{name: "defaults to pending", table: 1, wantStatus: models.StatusPending},
		{name: "explicit status", table: 2, status: "paid", wantStatus: models.StatusPaid},
		{
			name:       "with items",
			table:      3,
			items:      []LineInput{{MenuItemID: 1, Quantity: 2}, {MenuItemID: 2, Quantity: 1}},
			wantStatus: models.StatusPending,
		},
		{name: "zero table", table: 0, wantField: "table_number"},
		{name: "unknown status", table: 1, status: "served", wantField: "status"},
		{name: "missing menu item", table: 1, items: []LineInput{{Quantity: 1}}, wantField: "items[0].menu_item_id"},
		{
			name:      "quantity too large",
			table:     1,
			items:     []LineInput{{MenuItemID: 1, Quantity: MaxQuantity + 1}},
			wantField: "items[0].quantity",
		},
		{
			name:      "zero quantity",
			table:     1,
			items:     []LineInput{{MenuItemID: 1, Quantity: 1}, {MenuItemID: 2, Quantity: 0}},
			wantField: "items[1].quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := ValidateCreateOrder(tt.table, tt.status, tt.items)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, status)
				return
			}

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestParseOrderFilter(t *testing.T) {
	filter, err := ParseOrderFilter("", "")
	require.NoError(t, err)
	assert.Nil(t, filter.TableNumber)
	assert.Nil(t, filter.Status)

	filter, err = ParseOrderFilter("2", "pending")
	require.NoError(t, err)
	require.NotNil(t, filter.TableNumber)
	require.NotNil(t, filter.Status)
	assert.Equal(t, 2, *filter.TableNumber)
	assert.Equal(t, models.StatusPending, *filter.Status)

	for _, tc := range []struct{ table, status string }{
		{"abc", ""},
		{"0", ""},
		{"-1", ""},
		{"", "unknown"},
	} {
		_, err := ParseOrderFilter(tc.table, tc.status)
		assert.Error(t, err, "table=%q status=%q", tc.table, tc.status)
	}
}
