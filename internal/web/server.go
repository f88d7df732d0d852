package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"restaurant-orders/internal/config"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/metrics"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-Id"

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewEngine creates the gin engine with recovery, metrics and request logging,
// plus the /health and /metrics routes.
func NewEngine(log *logger.Logger, store Pinger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.Middleware(), RequestLogging(log))

	r.GET("/health", HealthCheck(log, store))
	r.GET("/metrics", metrics.Handler())
	return r
}

// NewServer wraps the engine in an http.Server configured from cfg
func NewServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// RequestLogging assigns a request id (honouring an incoming X-Request-Id),
// stores it in the request context and logs every request.
func RequestLogging(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))

		log.Debug("request_started",
			fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      c.Request.Method,
				"path":        c.Request.URL.Path,
				"remote_addr": c.ClientIP(),
				"user_agent":  c.Request.UserAgent(),
			})

		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": status,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		message := fmt.Sprintf("%s %s - %d", c.Request.Method, c.Request.URL.Path, status)
		if status >= http.StatusInternalServerError {
			log.Warn("request_completed", message, requestID, fields)
			return
		}
		log.Debug("request_completed", message, requestID, fields)
	}
}

// WriteError writes the JSON error envelope and aborts the chain
func WriteError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": logger.RequestID(c.Request.Context()),
	})
}

// HealthCheck handles GET /health
func HealthCheck(log *logger.Logger, store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		response := gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   log.Service(),
		}

		if err := store.Ping(ctx); err != nil {
			log.Error("health_check_failed", "Store is unreachable", logger.RequestID(ctx), err, nil)
			response["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		c.JSON(http.StatusOK, response)
	}
}
