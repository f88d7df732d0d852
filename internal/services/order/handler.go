package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/models"
	"restaurant-orders/internal/services/order/internal/validation"
	"restaurant-orders/internal/web"
)

const defaultRequestTimeout = 30 * time.Second

// Handler handles HTTP requests for the menu catalog and orders
type Handler struct {
	service *Service
	logger  *logger.Logger
	timeout time.Duration
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Handler{
		service: service,
		logger:  log,
		timeout: timeout,
	}
}

// RegisterRoutes mounts the catalog and order routes under /api
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")

	api.GET("/menu-items", h.ListMenuItems)
	api.POST("/menu-items", h.CreateMenuItem)
	api.GET("/menu-items/:id", h.GetMenuItem)
	api.PUT("/menu-items/:id", h.UpdateMenuItem)
	api.PATCH("/menu-items/:id", h.PatchMenuItem)
	api.DELETE("/menu-items/:id", h.DeleteMenuItem)

	api.POST("/orders", h.CreateOrder)
	api.GET("/orders", h.ListOrders)
	api.GET("/orders/:id", h.GetOrder)
	api.PUT("/orders/:id", h.ReplaceOrder)
	api.PATCH("/orders/:id", h.UpdateOrder)
	api.DELETE("/orders/:id", h.DeleteOrder)
	api.POST("/orders/:id/items", h.AddLine)

	api.PATCH("/order-items/:id", h.UpdateLineQuantity)
	api.DELETE("/order-items/:id", h.RemoveLine)
}

type menuItemRequest struct {
	Name  string              `json:"name"`
	Price decimal.NullDecimal `json:"price"`
}

type menuItemPatchRequest struct {
	Name  *string             `json:"name"`
	Price decimal.NullDecimal `json:"price"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) CreateMenuItem(c *gin.Context) {
	var req menuItemRequest
	if !h.bind(c, &req) {
		return
	}

	if !req.Price.Valid {
		h.fail(c, "menu_item_creation_failed", validation.Required("price"))
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	item, err := h.service.CreateMenuItem(ctx, req.Name, req.Price.Decimal)
	if err != nil {
		h.fail(c, "menu_item_creation_failed", err)
		return
	}
	c.JSON(http.StatusCreated, web.NewMenuItemResponse(*item))
}

func (h *Handler) ListMenuItems(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	items, err := h.service.ListMenuItems(ctx, c.Query("name"))
	if err != nil {
		h.fail(c, "menu_items_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, web.NewMenuItemsResponse(items))
}

func (h *Handler) GetMenuItem(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	item, err := h.service.GetMenuItem(ctx, id)
	if err != nil {
		h.fail(c, "menu_item_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, web.NewMenuItemResponse(*item))
}

func (h *Handler) UpdateMenuItem(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	var req menuItemRequest
	if !h.bind(c, &req) {
		return
	}

	if !req.Price.Valid {
		h.fail(c, "menu_item_update_failed", validation.Required("price"))
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	item, err := h.service.UpdateMenuItem(ctx, id, req.Name, req.Price.Decimal)
	if err != nil {
		h.fail(c, "menu_item_update_failed", err)
		return
	}
	c.JSON(http.StatusOK, web.NewMenuItemResponse(*item))
}

// PatchMenuItem handles PATCH /api/menu-items/:id
func (h *Handler) PatchMenuItem(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	var req menuItemPatchRequest
	if !h.bind(c, &req) {
		return
	}

	patch := MenuItemPatch{Name: req.Name}
	if req.Price.Valid {
		patch.Price = &req.Price.Decimal
	}

	ctx, cancel := h.context(c)
	defer cancel()

	item, err := h.service.PatchMenuItem(ctx, id, patch)
	if err != nil {
		h.fail(c, "menu_item_update_failed", err)
		return
	}
	c.JSON(http.StatusOK, web.NewMenuItemResponse(*item))
}

func (h *Handler) DeleteMenuItem(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.service.DeleteMenuItem(ctx, id); err != nil {
		h.fail(c, "menu_item_delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateOrder handles POST /api/orders
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderInput
	if !h.bind(c, &req) {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	order, err := h.service.CreateOrder(ctx, req)
	if err != nil {
		h.fail(c, "order_creation_failed", err)
		return
	}
	c.JSON(http.StatusCreated, web.NewOrderResponse(*order))
}

// ListOrders handles GET /api/orders?table=&status=
func (h *Handler) ListOrders(c *gin.Context) {
	filter, err := ParseListFilter(c.Query("table"), c.Query("status"))
	if err != nil {
		h.fail(c, "orders_list_failed", err)
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	orders, err := h.service.ListOrders(ctx, filter)
	if err != nil {
		h.fail(c, "orders_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, web.NewOrdersResponse(orders))
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	order, err := h.service.GetOrder(ctx, id)
	if err != nil {
		h.fail(c, "order_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, web.NewOrderResponse(*order))
}

// UpdateOrder handles PATCH /api/orders/:id with table_number and/or status
func (h *Handler) UpdateOrder(c *gin.Context) {
	h.updateOrder(c, false)
}

// ReplaceOrder handles PUT /api/orders/:id; table_number and status are both required
func (h *Handler) ReplaceOrder(c *gin.Context) {
	h.updateOrder(c, true)
}

func (h *Handler) updateOrder(c *gin.Context, full bool) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	var req UpdateOrderInput
	if !h.bind(c, &req) {
		return
	}

	if full {
		switch {
		case req.TableNumber == nil:
			h.fail(c, "order_update_failed", validation.Required("table_number"))
			return
		case req.Status == nil:
			h.fail(c, "order_update_failed", validation.Required("status"))
			return
		}
	}

	ctx, cancel := h.context(c)
	defer cancel()

	order, err := h.service.UpdateOrder(ctx, id, req)
	if err != nil {
		h.fail(c, "order_update_failed", err)
		return
	}
	c.JSON(http.StatusOK, web.NewOrderResponse(*order))
}

func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.service.DeleteOrder(ctx, id); err != nil {
		h.fail(c, "order_delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddLine handles POST /api/orders/:id/items
func (h *Handler) AddLine(c *gin.Context) {
	orderID, ok := h.id(c)
	if !ok {
		return
	}
	var req LineInput
	if !h.bind(c, &req) {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	line, err := h.service.AddLine(ctx, orderID, req.MenuItemID, req.Quantity)
	if err != nil {
		h.fail(c, "line_add_failed", err)
		return
	}
	c.JSON(http.StatusCreated, web.NewOrderLineResponse(*line))
}

// UpdateLineQuantity handles PATCH /api/order-items/:id
func (h *Handler) UpdateLineQuantity(c *gin.Context) {
	lineID, ok := h.id(c)
	if !ok {
		return
	}
	var req quantityRequest
	if !h.bind(c, &req) {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	line, err := h.service.UpdateLineQuantity(ctx, lineID, req.Quantity)
	if err != nil {
		h.fail(c, "line_update_failed", err)
		return
	}
	c.JSON(http.StatusOK, web.NewOrderLineResponse(*line))
}

// RemoveLine handles DELETE /api/order-items/:id
func (h *Handler) RemoveLine(c *gin.Context) {
	lineID, ok := h.id(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	if _, err := h.service.RemoveLine(ctx, lineID); err != nil {
		h.fail(c, "line_remove_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Warn("validation_failed", "Failed to parse request body",
			logger.RequestID(c.Request.Context()), map[string]interface{}{"error": err.Error()})
		web.WriteError(c, http.StatusBadRequest, "Invalid JSON format")
		return false
	}
	return true
}

func (h *Handler) id(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		web.WriteError(c, http.StatusBadRequest, fmt.Sprintf("invalid id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

// fail maps err to a status code, logs it and writes the error envelope
func (h *Handler) fail(c *gin.Context, action string, err error) {
	status := StatusForError(err)
	requestID := logger.RequestID(c.Request.Context())

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(action, "Request failed", requestID, err, nil)
		message = "Internal server error"
	} else {
		h.logger.Debug(action, err.Error(), requestID, map[string]interface{}{"status_code": status})
	}
	_ = c.Error(err)
	web.WriteError(c, status, message)
}

// StatusForError maps service errors to HTTP status codes
func StatusForError(err error) int {
	var ce *ConsistencyError
	switch {
	case IsValidationError(err), errors.Is(err, models.ErrAmountOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMenuItemInUse):
		return http.StatusConflict
	case errors.As(err, &ce), errors.Is(err, ErrConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ParseListFilter builds an order filter from the raw table and status query values
func ParseListFilter(table, status string) (models.OrderFilter, error) {
	return validation.ParseOrderFilter(table, status)
}
