package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusPending OrderStatus = "pending"
	StatusReady   OrderStatus = "ready"
	StatusPaid    OrderStatus = "paid"
)

// OrderStatuses lists every status an order can be in
var OrderStatuses = []OrderStatus{StatusPending, StatusReady, StatusPaid}

// Valid reports whether s is one of the enumerated statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReady, StatusPaid:
		return true
	default:
		return false
	}
}

// MenuItem is a purchasable item of the catalog
type MenuItem struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Order is a table's tab. TotalPrice is derived from Lines and never set by callers.
type Order struct {
	ID          int64           `json:"id"`
	TableNumber int             `json:"table_number"`
	Status      OrderStatus     `json:"status"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Lines       []OrderLine     `json:"items"`
}

// OrderLine is one entry of an order. UnitPrice is the menu price captured when the line was created.
type OrderLine struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	MenuItemID   int64           `json:"menu_item_id"`
	MenuItemName string          `json:"menu_item_name,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LinePrice    decimal.Decimal `json:"price"`
}

// NewOrderLine snapshots the item's current price into a new line for orderID
func NewOrderLine(orderID int64, item MenuItem, quantity int) OrderLine {
	return OrderLine{
		OrderID:      orderID,
		MenuItemID:   item.ID,
		MenuItemName: item.Name,
		Quantity:     quantity,
		UnitPrice:    item.Price,
		LinePrice:    CalculateLinePrice(item.Price, quantity),
	}
}

// SetQuantity changes the quantity and recomputes the line price from the snapshot unit price
func (l *OrderLine) SetQuantity(quantity int) {
	l.Quantity = quantity
	l.LinePrice = CalculateLinePrice(l.UnitPrice, quantity)
}

// CalculateLinePrice returns unit price × quantity
func CalculateLinePrice(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// CalculateTotal sums line prices. An order without lines totals zero.
// The total is always recomputed from scratch, never adjusted by deltas.
func CalculateTotal(linePrices []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range linePrices {
		total = total.Add(p)
	}
	return total
}

// LinePrices extracts the line prices of lines
func LinePrices(lines []OrderLine) []decimal.Decimal {
	prices := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		prices[i] = l.LinePrice
	}
	return prices
}

// Revenue sums the stored totals of paid orders; other statuses never contribute.
func Revenue(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if o.Status == StatusPaid {
			total = total.Add(o.TotalPrice)
		}
	}
	return total
}

// OrderFilter narrows an order listing. Nil fields match everything; set fields are ANDed.
type OrderFilter struct {
	TableNumber *int
	Status      *OrderStatus
}

// Matches reports whether o satisfies the filter
func (f OrderFilter) Matches(o Order) bool {
	if f.TableNumber != nil && o.TableNumber != *f.TableNumber {
		return false
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	return true
}
