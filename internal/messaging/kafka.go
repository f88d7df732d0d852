package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"restaurant-orders/internal/config"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/models"
)

// KafkaPublisher publishes order events to a Kafka topic. Records are keyed
// by order id so the events of one order stay in one partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *logger.Logger
}

// NewKafkaPublisher creates the producer client. Brokers are contacted on first publish.
func NewKafkaPublisher(cfg config.KafkaConfig, log *logger.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("kafka_producer_created", fmt.Sprintf("Kafka producer for topic %s", cfg.Topic), "startup",
		map[string]interface{}{"brokers": cfg.Brokers})

	return &KafkaPublisher{
		client: client,
		topic:  cfg.Topic,
		logger: log,
	}, nil
}

// PublishOrderEvent produces event synchronously
func (p *KafkaPublisher) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	rec, err := newEventRecord(p.topic, event)
	if err != nil {
		return err
	}

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("publish to kafka topic %s: %w", p.topic, err)
	}

	p.logger.Debug("message_published", fmt.Sprintf("Published message to topic %s", p.topic),
		logger.RequestID(ctx), map[string]interface{}{
			"event_type":   event.Type,
			"message_size": len(rec.Value),
		})
	return nil
}

func newEventRecord(topic string, event models.OrderEvent) (*kgo.Record, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return &kgo.Record{
		Topic:     topic,
		Key:       []byte(strconv.FormatInt(event.OrderID, 10)),
		Value:     body,
		Timestamp: event.OccurredAt,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

// Close closes the producer client
func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
