package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names what happened to an order. It doubles as the routing key.
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderTableChanged  EventType = "order.table_changed"
	EventOrderDeleted       EventType = "order.deleted"
	EventLineAdded          EventType = "order.line_added"
	EventLineUpdated        EventType = "order.line_updated"
	EventLineRemoved        EventType = "order.line_removed"
)

// OrderEvent is published after an order mutation has been committed
type OrderEvent struct {
	EventID     string          `json:"event_id"`
	Type        EventType       `json:"type"`
	OrderID     int64           `json:"order_id"`
	TableNumber int             `json:"table_number"`
	Status      OrderStatus     `json:"status"`
	OldStatus   OrderStatus     `json:"old_status,omitempty"`
	OldTable    int             `json:"old_table_number,omitempty"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	LineID      int64           `json:"line_id,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewOrderEvent builds an event describing the committed state of order
func NewOrderEvent(eventType EventType, order *Order) OrderEvent {
	return OrderEvent{
		EventID:     uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID,
		TableNumber: order.TableNumber,
		Status:      order.Status,
		TotalPrice:  order.TotalPrice,
		OccurredAt:  time.Now().UTC(),
	}
}

// RoutingKey returns the key the event is published under
func (e OrderEvent) RoutingKey() string {
	return string(e.Type)
}
