package order

import (
	"context"
	"time"

	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/metrics"
	"restaurant-orders/internal/models"
)

const publishTimeout = 5 * time.Second

// EventPublisher delivers committed order events to an external sink
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, models.OrderEvent) error { return nil }

// publish hands event to the sink. Failures are logged and counted only:
// the business operation has already been committed.
func (s *Service) publish(ctx context.Context, event models.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		metrics.EventsPublished.WithLabelValues(string(event.Type), "failed").Inc()
		s.logger.Error("event_publish_failed", "Failed to publish order event",
			logger.RequestID(ctx), err, map[string]interface{}{
				"event_type": event.Type,
				"order_id":   event.OrderID,
			})
		return
	}
	metrics.EventsPublished.WithLabelValues(string(event.Type), "ok").Inc()
}
