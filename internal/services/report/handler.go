package report

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/models"
	"restaurant-orders/internal/services/order"
	"restaurant-orders/internal/web"
)

// Handler handles HTTP requests for reports
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new report handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

type revenueResponse struct {
	Orders       []web.OrderResponse `json:"orders"`
	PaidOrders   int                 `json:"paid_orders"`
	TotalRevenue string              `json:"total_revenue"`
}

// RegisterRoutes mounts the report routes under /api/reports
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/reports/revenue", h.Revenue)
}

// Revenue handles GET /api/reports/revenue
func (h *Handler) Revenue(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	report, err := h.service.Revenue(ctx)
	if err != nil {
		status := order.StatusForError(err)
		h.logger.Error("revenue_report_failed", "Failed to build revenue report",
			logger.RequestID(c.Request.Context()), err, map[string]interface{}{"status_code": status})
		_ = c.Error(err)

		message := err.Error()
		if status == http.StatusInternalServerError {
			message = "Internal server error"
		}
		web.WriteError(c, status, message)
		return
	}

	c.JSON(http.StatusOK, revenueResponse{
		Orders:       web.NewOrdersResponse(report.Orders),
		PaidOrders:   len(report.Orders),
		TotalRevenue: models.FormatMoney(report.TotalRevenue),
	})
}
