package cli

import (
	"context"
	"fmt"

	"restaurant-orders/internal/config"
	"restaurant-orders/internal/database"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/messaging"
	"restaurant-orders/internal/services/order"
)

// openStore connects to the configured database, applies pending migrations
// and returns the matching store with its release func.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (order.Store, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Database.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return order.NewSQLiteStore(db), func() { _ = db.Close() }, nil

	case config.DriverPostgres:
		db, err := database.New(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return order.NewPostgresStore(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver: %q", cfg.Database.Driver)
	}
}

// openPublisher builds the event sink selected by events.sink
func openPublisher(cfg *config.Config, log *logger.Logger) (order.EventPublisher, func(), error) {
	switch cfg.Events.Sink {
	case config.SinkRabbitMQ:
		conn, err := messaging.New(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		publisher := messaging.NewPublisher(conn, log)
		return publisher, func() { _ = publisher.Close() }, nil

	case config.SinkKafka:
		publisher, err := messaging.NewKafkaPublisher(cfg.Kafka, log)
		if err != nil {
			return nil, nil, err
		}
		return publisher, func() { _ = publisher.Close() }, nil

	default:
		return order.NopPublisher{}, func() {}, nil
	}
}
