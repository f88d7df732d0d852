package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-orders/internal/models"
)

func testEvent() models.OrderEvent {
	order := &models.Order{
		ID:          42,
		TableNumber: 3,
		Status:      models.StatusReady,
		TotalPrice:  decimal.RequireFromString("19.00"),
	}
	event := models.NewOrderEvent(models.EventLineAdded, order)
	event.LineID = 7
	return event
}

func TestNewEventPublishing(t *testing.T) {
	event := testEvent()

	publishing, err := newEventPublishing(event)
	require.NoError(t, err)
	assert.Equal(t, "application/json", publishing.ContentType)
	assert.Equal(t, amqp091.Persistent, publishing.DeliveryMode)
	assert.Equal(t, event.EventID, publishing.MessageId)
	assert.Equal(t, "order.line_added", publishing.Type)

	var decoded models.OrderEvent
	require.NoError(t, json.Unmarshal(publishing.Body, &decoded))
	assert.Equal(t, event.OrderID, decoded.OrderID)
	assert.Equal(t, event.LineID, decoded.LineID)
	assert.True(t, event.TotalPrice.Equal(decoded.TotalPrice))
}

func TestNewEventRecord(t *testing.T) {
	event := testEvent()

	rec, err := newEventRecord("restaurant.orders", event)
	require.NoError(t, err)
	assert.Equal(t, "restaurant.orders", rec.Topic)
	assert.Equal(t, "42", string(rec.Key))
	assert.Equal(t, event.OccurredAt, rec.Timestamp)
	require.Len(t, rec.Headers, 2)
	assert.Equal(t, "order.line_added", string(rec.Headers[1].Value))
}

func TestParseMessage(t *testing.T) {
	var event models.OrderEvent
	require.NoError(t, ParseMessage([]byte(`{"type":"order.created","order_id":1,"total_price":"0"}`), &event))
	assert.Equal(t, models.EventOrderCreated, event.Type)

	err := ParseMessage([]byte(`{broken`), &event)
	require.Error(t, err)
	assert.True(t, isMalformed(err))
	assert.True(t, isMalformed(fmt.Errorf("handler: %w", err)))
	assert.False(t, isMalformed(errors.New("timeout")))
}

func TestOrderEventsBindingMatchesRoutingKeys(t *testing.T) {
	// every routing key is a two-word "order.*" key, covered by "order.#"
	for _, typ := range []models.EventType{
		models.EventOrderCreated, models.EventOrderStatusChanged, models.EventOrderTableChanged, models.EventOrderDeleted,
		models.EventLineAdded, models.EventLineUpdated, models.EventLineRemoved,
	} {
		assert.Regexp(t, `^order\.[a-z_]+$`, models.OrderEvent{Type: typ, OccurredAt: time.Now()}.RoutingKey())
	}
}
