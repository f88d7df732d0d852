package notification

import (
	"context"
	"fmt"
	"io"

	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/messaging"
	"restaurant-orders/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// EventSource delivers raw order event messages to a handler until ctx is done
type EventSource interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber prints one human-readable line per order event
type Subscriber struct {
	source EventSource
	out    io.Writer
	logger *logger.Logger
}

// NewSubscriber creates a new notification subscriber writing to out
func NewSubscriber(source EventSource, out io.Writer, log *logger.Logger) *Subscriber {
	return &Subscriber{
		source: source,
		out:    out,
		logger: log,
	}
}

// Start consumes events until ctx is cancelled, then closes the source
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	err := s.source.StartConsuming(ctx, s.handleNotification)

	s.logger.Info("graceful_shutdown", "Starting graceful shutdown", requestID, nil)
	if closeErr := s.source.Close(); closeErr != nil {
		s.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, closeErr, nil)
	}

	if err != nil && ctx.Err() == nil {
		s.logger.Error("consumer_failed", "Notification consumer failed", requestID, err, nil)
		return err
	}
	s.logger.Info("graceful_shutdown", "Graceful shutdown completed", requestID, nil)
	return nil
}

// handleNotification parses an order event and displays it
func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	var event models.OrderEvent
	if err := messaging.ParseMessage(body, &event); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse notification message", "", err, nil)
		return fmt.Errorf("failed to parse notification: %w", err)
	}

	s.logger.Debug("notification_received", "Received order event", event.EventID, map[string]interface{}{
		"event_type": event.Type,
		"order_id":   event.OrderID,
	})

	if _, err := fmt.Fprintln(s.out, FormatNotification(event)); err != nil {
		return fmt.Errorf("failed to display notification: %w", err)
	}
	return nil
}

// FormatNotification renders event as a single line
func FormatNotification(event models.OrderEvent) string {
	timestamp := event.OccurredAt.Format(timeLayout)
	total := models.FormatMoney(event.TotalPrice)

	switch event.Type {
	case models.EventOrderCreated:
		return fmt.Sprintf("[%s] Order %d opened for table %d (total %s).",
			timestamp, event.OrderID, event.TableNumber, total)
	case models.EventLineAdded:
		return fmt.Sprintf("[%s] Order %d: line %d added, total is now %s.",
			timestamp, event.OrderID, event.LineID, total)
	case models.EventLineUpdated:
		return fmt.Sprintf("[%s] Order %d: line %d changed, total is now %s.",
			timestamp, event.OrderID, event.LineID, total)
	case models.EventLineRemoved:
		return fmt.Sprintf("[%s] Order %d: line %d removed, total is now %s.",
			timestamp, event.OrderID, event.LineID, total)
	case models.EventOrderStatusChanged:
		if event.Status == models.StatusPaid {
			return fmt.Sprintf("[%s] Order %d for table %d has been paid: %s.",
				timestamp, event.OrderID, event.TableNumber, total)
		}
		return fmt.Sprintf("[%s] Order %d status changed from '%s' to '%s'.",
			timestamp, event.OrderID, event.OldStatus, event.Status)
	case models.EventOrderTableChanged:
		return fmt.Sprintf("[%s] Order %d moved from table %d to table %d.",
			timestamp, event.OrderID, event.OldTable, event.TableNumber)
	case models.EventOrderDeleted:
		return fmt.Sprintf("[%s] Order %d for table %d has been deleted.",
			timestamp, event.OrderID, event.TableNumber)
	default:
		return fmt.Sprintf("[%s] Order %d: %s.", timestamp, event.OrderID, event.Type)
	}
}
