package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that override config.yaml.
// Nested keys are separated by a double underscore, e.g. RESTAURANT_DATABASE__HOST.
const EnvPrefix = "RESTAURANT_"

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Supported event sinks
const (
	SinkNone     = "none"
	SinkRabbitMQ = "rabbitmq"
	SinkKafka    = "kafka"
)

// Config holds all configuration for the restaurant system
type Config struct {
	App      AppConfig      `koanf:"app"`
	HTTP     HTTPConfig     `koanf:"http"`
	Database DatabaseConfig `koanf:"database"`
	RabbitMQ RabbitMQConfig `koanf:"rabbitmq"`
	Kafka    KafkaConfig    `koanf:"kafka"`
	Events   EventsConfig   `koanf:"events"`
	Orders   OrdersConfig   `koanf:"orders"`
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Name     string `koanf:"name"`
	Env      string `koanf:"env"`
	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"`
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver     string `koanf:"driver"`
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	User       string `koanf:"user"`
	Password   string `koanf:"password"`
	Database   string `koanf:"database"`
	SSLMode    string `koanf:"sslmode"`
	MaxConns   int    `koanf:"max_conns"`
	SQLitePath string `koanf:"sqlite_path"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Exchange string `koanf:"exchange"`
	Queue    string `koanf:"queue"`
}

// KafkaConfig holds Kafka producer configuration
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// EventsConfig selects where order events are published
type EventsConfig struct {
	Sink string `koanf:"sink"`
}

// OrdersConfig tunes the order aggregate
type OrdersConfig struct {
	MaxRetries int `koanf:"max_retries"`
}

// Default returns the configuration used for keys missing from every source.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:     "restaurant-orders",
			Env:      "development",
			LogLevel: "info",
		},
		HTTP: HTTPConfig{
			Port:            3000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:     DriverPostgres,
			Host:       "localhost",
			Port:       5432,
			SSLMode:    "disable",
			MaxConns:   25,
			SQLitePath: "restaurant.db",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			Exchange: "restaurant.orders",
			Queue:    "order_notifications",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "restaurant.orders",
		},
		Events: EventsConfig{Sink: SinkNone},
		Orders: OrdersConfig{MaxRetries: 3},
	}
}

// Load reads configuration from a YAML file, then applies .env and RESTAURANT_* overrides.
// A missing file is not an error: defaults plus environment are enough to run.
func Load(filename string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if filename != "" {
		if err := k.Load(file.Provider(filename), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Brokers may arrive as a single comma-separated env value.
	cfg.Kafka.Brokers = splitAndTrim(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the services cannot start with
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port is invalid: %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Database == "" {
			return fmt.Errorf("database config is incomplete")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	switch c.Events.Sink {
	case SinkNone, "":
	case SinkRabbitMQ:
		if c.RabbitMQ.Host == "" || c.RabbitMQ.Exchange == "" {
			return fmt.Errorf("rabbitmq config is incomplete")
		}
	case SinkKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("kafka config is incomplete")
		}
	default:
		return fmt.Errorf("unknown events sink: %q", c.Events.Sink)
	}

	if c.Orders.MaxRetries < 1 {
		return fmt.Errorf("orders.max_retries must be at least 1")
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database, sslMode)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

// HTTPAddr returns the listen address of the HTTP server
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}

func splitAndTrim(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, p := range strings.Split(entry, ",") {
			if val := strings.TrimSpace(p); val != "" {
				out = append(out, val)
			}
		}
	}
	return out
}
