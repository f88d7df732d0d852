package web

import (
	"time"

	"restaurant-orders/internal/models"
)

// Money values are rendered as strings with exactly two decimals.

type MenuItemResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type OrderLineResponse struct {
	ID           int64  `json:"id"`
	OrderID      int64  `json:"order_id"`
	MenuItemID   int64  `json:"menu_item_id"`
	MenuItemName string `json:"menu_item_name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	Price        string `json:"price"`
}

type OrderResponse struct {
	ID          int64               `json:"id"`
	TableNumber int                 `json:"table_number"`
	Status      models.OrderStatus  `json:"status"`
	TotalPrice  string              `json:"total_price"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Items       []OrderLineResponse `json:"items"`
}

func NewMenuItemResponse(item models.MenuItem) MenuItemResponse {
	return MenuItemResponse{
		ID:    item.ID,
		Name:  item.Name,
		Price: models.FormatMoney(item.Price),
	}
}

func NewMenuItemsResponse(items []models.MenuItem) []MenuItemResponse {
	out := make([]MenuItemResponse, len(items))
	for i, item := range items {
		out[i] = NewMenuItemResponse(item)
	}
	return out
}

func NewOrderLineResponse(line models.OrderLine) OrderLineResponse {
	return OrderLineResponse{
		ID:           line.ID,
		OrderID:      line.OrderID,
		MenuItemID:   line.MenuItemID,
		MenuItemName: line.MenuItemName,
		Quantity:     line.Quantity,
		UnitPrice:    models.FormatMoney(line.UnitPrice),
		Price:        models.FormatMoney(line.LinePrice),
	}
}

func NewOrderResponse(order models.Order) OrderResponse {
	items := make([]OrderLineResponse, len(order.Lines))
	for i, line := range order.Lines {
		items[i] = NewOrderLineResponse(line)
	}
	return OrderResponse{
		ID:          order.ID,
		TableNumber: order.TableNumber,
		Status:      order.Status,
		TotalPrice:  models.FormatMoney(order.TotalPrice),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		Items:       items,
	}
}

func NewOrdersResponse(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, order := range orders {
		out[i] = NewOrderResponse(order)
	}
	return out
}
