package logger

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls how the logger is built
type Options struct {
	// Env selects the encoder: "production"/"prod" writes JSON, anything else a console layout.
	Env   string
	Level string
	// File, when set, receives a copy of every entry and is rotated by size.
	File string
}

// Logger writes structured entries tagged with service, hostname, action and request id
type Logger struct {
	service  string
	hostname string
	zap      *zap.Logger
}

// New creates a logger for the given service with default options
func New(service string) *Logger {
	return NewWithOptions(service, Options{Env: "production", Level: "debug"})
}

// NewWithOptions creates a logger for the given service
func NewWithOptions(service string, opts Options) *Logger {
	hostname, _ := os.Hostname()

	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if opts.Env == "production" || opts.Env == "prod" {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "timestamp"
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	level := parseLevel(opts.Level)
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}

	if opts.File != "" {
		rot := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(rot), level))
	}

	base := zap.New(zapcore.NewTee(cores...)).With(
		zap.String("service", service),
		zap.String("hostname", hostname),
	)

	return &Logger{
		service:  service,
		hostname: hostname,
		zap:      base,
	}
}

// NewWithCore wraps an existing zap core, e.g. an observer in tests
func NewWithCore(service string, core zapcore.Core) *Logger {
	return &Logger{service: service, zap: zap.New(core).With(zap.String("service", service))}
}

// NewNop returns a logger that discards everything, used in tests.
func NewNop() *Logger {
	return &Logger{service: "nop", zap: zap.NewNop()}
}

// Service returns the service name attached to every entry
func (l *Logger) Service() string {
	return l.service
}

// Debug logs a message at debug level
func (l *Logger) Debug(action, message, requestID string, fields map[string]interface{}) {
	l.zap.Debug(message, l.fields(action, requestID, nil, fields)...)
}

// Info logs a message at info level
func (l *Logger) Info(action, message, requestID string, fields map[string]interface{}) {
	l.zap.Info(message, l.fields(action, requestID, nil, fields)...)
}

// Warn logs a message at warn level
func (l *Logger) Warn(action, message, requestID string, fields map[string]interface{}) {
	l.zap.Warn(message, l.fields(action, requestID, nil, fields)...)
}

// Error logs a message at error level. err may be nil.
func (l *Logger) Error(action, message, requestID string, err error, fields map[string]interface{}) {
	l.zap.Error(message, l.fields(action, requestID, err, fields)...)
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

func (l *Logger) fields(action, requestID string, err error, extra map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(extra)+3)
	out = append(out, zap.String("action", action))
	if requestID != "" {
		out = append(out, zap.String("request_id", requestID))
	}
	if err != nil {
		out = append(out, zap.Error(err))
	}
	for k, v := range extra {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func parseLevel(raw string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// GenerateRequestID returns a new random request id
func GenerateRequestID() string {
	return uuid.NewString()
}

type requestIDKey struct{}

// WithRequestID stores the request id in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request id stored in ctx, or "" when there is none
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}
