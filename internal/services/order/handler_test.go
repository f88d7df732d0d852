package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/models"
	"restaurant-orders/internal/services/order/internal/validation"
	"restaurant-orders/internal/web"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newTestStore(t)
	log := logger.NewNop()
	service := NewService(store, nil, log, 3)

	r := web.NewEngine(log, store)
	NewHandler(service, log, 0).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(web.RequestIDHeader, "test-request")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandler_OrderLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/menu-items", map[string]interface{}{"name": "Coffee", "price": "5.00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	coffee := decode[web.MenuItemResponse](t, w)
	assert.Equal(t, "5.00", coffee.Price)

	w = doJSON(t, r, http.MethodPost, "/api/menu-items", map[string]interface{}{"name": "Tea", "price": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tea := decode[web.MenuItemResponse](t, w)
	assert.Equal(t, "3.00", tea.Price)

	w = doJSON(t, r, http.MethodPost, "/api/orders", map[string]interface{}{"table_number": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[web.OrderResponse](t, w)
	assert.Equal(t, "0.00", order.TotalPrice)
	assert.Equal(t, "pending", string(order.Status))
	assert.Empty(t, order.Items)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/orders/%d/items", order.ID),
		map[string]interface{}{"menu_item_id": coffee.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	coffeeLine := decode[web.OrderLineResponse](t, w)
	assert.Equal(t, "10.00", coffeeLine.Price)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/orders/%d/items", order.ID),
		map[string]interface{}{"menu_item_id": tea.ID, "quantity": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	teaLine := decode[web.OrderLineResponse](t, w)

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/order-items/%d", teaLine.ID),
		map[string]interface{}{"quantity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "3.00", decode[web.OrderLineResponse](t, w).Price)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[web.OrderResponse](t, w)
	assert.Equal(t, "8.00", got.TotalPrice)
	assert.Len(t, got.Items, 2)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/order-items/%d", coffeeLine.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/orders/%d", order.ID), map[string]interface{}{"status": "paid"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decode[web.OrderResponse](t, w)
	assert.Equal(t, "paid", string(got.Status))
	assert.Equal(t, "3.00", got.TotalPrice)
	assert.Len(t, got.Items, 1)

	w = doJSON(t, r, http.MethodGet, "/api/orders?table=1&status=paid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]web.OrderResponse](t, w), 1)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/menu-items/%d", tea.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/orders/%d", order.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Errors(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"negative price", http.MethodPost, "/api/menu-items", map[string]interface{}{"name": "Tea", "price": "-1"}, http.StatusBadRequest},
		{"empty name", http.MethodPost, "/api/menu-items", map[string]interface{}{"name": "", "price": "1"}, http.StatusBadRequest},
		{"non-positive table", http.MethodPost, "/api/orders", map[string]interface{}{"table_number": 0}, http.StatusBadRequest},
		{"unknown status", http.MethodPost, "/api/orders", map[string]interface{}{"table_number": 1, "status": "served"}, http.StatusBadRequest},
		{"bad table filter", http.MethodGet, "/api/orders?table=abc", nil, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/api/orders?status=served", nil, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/orders/abc", nil, http.StatusBadRequest},
		{"missing order", http.MethodGet, "/api/orders/42", nil, http.StatusNotFound},
		{"missing menu item", http.MethodGet, "/api/menu-items/42", nil, http.StatusNotFound},
		{"add to missing order", http.MethodPost, "/api/orders/42/items", map[string]interface{}{"menu_item_id": 1, "quantity": 1}, http.StatusNotFound},
		{"missing line", http.MethodDelete, "/api/order-items/42", nil, http.StatusNotFound},
		{"zero quantity", http.MethodPatch, "/api/order-items/42", map[string]interface{}{"quantity": 0}, http.StatusBadRequest},
		{"quantity too large", http.MethodPost, "/api/orders", map[string]interface{}{"table_number": 1, "items": []map[string]interface{}{{"menu_item_id": 1, "quantity": 184467442582}}}, http.StatusBadRequest},
		{"create without price", http.MethodPost, "/api/menu-items", map[string]interface{}{"name": "Soup"}, http.StatusBadRequest},
		{"replace without price", http.MethodPut, "/api/menu-items/42", map[string]interface{}{"name": "Soup"}, http.StatusBadRequest},
		{"empty menu item patch", http.MethodPatch, "/api/menu-items/42", map[string]interface{}{}, http.StatusBadRequest},
		{"patch missing menu item", http.MethodPatch, "/api/menu-items/42", map[string]interface{}{"price": "2.00"}, http.StatusNotFound},
		{"empty order update", http.MethodPatch, "/api/orders/42", map[string]interface{}{}, http.StatusBadRequest},
		{"move to table zero", http.MethodPatch, "/api/orders/42", map[string]interface{}{"table_number": 0}, http.StatusBadRequest},
		{"replace order without status", http.MethodPut, "/api/orders/42", map[string]interface{}{"table_number": 2}, http.StatusBadRequest},
		{"replace missing order", http.MethodPut, "/api/orders/42", map[string]interface{}{"table_number": 2, "status": "paid"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, tt.method, tt.path, tt.body)
			require.Equal(t, tt.want, w.Code, w.Body.String())

			body := decode[map[string]interface{}](t, w)
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["timestamp"])
			assert.Equal(t, "test-request", body["request_id"])
		})
	}
}

func TestHandler_MenuItemRequiresPrice(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/menu-items", map[string]interface{}{"name": "Soup"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decode[map[string]interface{}](t, w)["error"], "price")

	w = doJSON(t, r, http.MethodPost, "/api/menu-items", map[string]interface{}{"name": "Soup", "price": nil})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/menu-items", map[string]interface{}{"name": "Water", "price": "0"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	water := decode[web.MenuItemResponse](t, w)
	assert.Equal(t, "0.00", water.Price)

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/menu-items/%d", water.ID), map[string]interface{}{"name": "Still water"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decode[map[string]interface{}](t, w)["error"], "price")

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/menu-items/%d", water.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Water", decode[web.MenuItemResponse](t, w).Name)
}

func TestHandler_PatchMenuItem(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/menu-items", map[string]interface{}{"name": "Coffee", "price": "5.00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	coffee := decode[web.MenuItemResponse](t, w)
	path := fmt.Sprintf("/api/menu-items/%d", coffee.ID)

	w = doJSON(t, r, http.MethodPatch, path, map[string]interface{}{"price": "5.50"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[web.MenuItemResponse](t, w)
	assert.Equal(t, "Coffee", got.Name)
	assert.Equal(t, "5.50", got.Price)

	w = doJSON(t, r, http.MethodPatch, path, map[string]interface{}{"name": "Espresso"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decode[web.MenuItemResponse](t, w)
	assert.Equal(t, "Espresso", got.Name)
	assert.Equal(t, "5.50", got.Price)

	w = doJSON(t, r, http.MethodPatch, path, map[string]interface{}{"price": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_UpdateOrder(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/orders", map[string]interface{}{"table_number": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[web.OrderResponse](t, w)
	path := fmt.Sprintf("/api/orders/%d", order.ID)

	w = doJSON(t, r, http.MethodPatch, path, map[string]interface{}{"table_number": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[web.OrderResponse](t, w)
	assert.Equal(t, 5, got.TableNumber)
	assert.Equal(t, "pending", string(got.Status))

	w = doJSON(t, r, http.MethodPut, path, map[string]interface{}{"table_number": 3})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decode[map[string]interface{}](t, w)["error"], "status")

	w = doJSON(t, r, http.MethodPut, path, map[string]interface{}{"table_number": 3, "status": "ready"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decode[web.OrderResponse](t, w)
	assert.Equal(t, 3, got.TableNumber)
	assert.Equal(t, "ready", string(got.Status))

	w = doJSON(t, r, http.MethodPatch, path, map[string]interface{}{"table_number": -2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/orders?table=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]web.OrderResponse](t, w), 1)
}

func TestHandler_InvalidJSON(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, w.Header().Get(web.RequestIDHeader))
}

func TestHandler_Health(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]interface{}](t, w)["status"])
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{validation.ValidationError{Field: "quantity", Message: "quantity must be at least 1"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", notFound("order", 1)), http.StatusNotFound},
		{fmt.Errorf("line price: %w", models.ErrAmountOutOfRange), http.StatusBadRequest},
		{ErrMenuItemInUse, http.StatusConflict},
		{&ConsistencyError{Op: "add_line", Attempts: 3, Err: ErrConflict}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForError(tt.err), tt.err.Error())
	}
}
