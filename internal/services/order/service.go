package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/metrics"
	"restaurant-orders/internal/models"
	"restaurant-orders/internal/services/order/internal/validation"
)

const (
	defaultMaxRetries = 3
	retryBackoff      = 10 * time.Millisecond
)

// LineInput requests quantity units of a menu item
type LineInput struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
}

// CreateOrderInput describes a new order. Status defaults to pending.
type CreateOrderInput struct {
	TableNumber int         `json:"table_number"`
	Status      string      `json:"status"`
	Items       []LineInput `json:"items"`
}

// UpdateOrderInput changes an order's table and/or status. Absent fields keep their value.
type UpdateOrderInput struct {
	TableNumber *int    `json:"table_number"`
	Status      *string `json:"status"`
}

// MenuItemPatch is a partial menu item update; nil fields are kept
type MenuItemPatch struct {
	Name  *string
	Price *decimal.Decimal
}

// Service implements the menu catalog and the order aggregate.
// Every operation that changes an order's lines recomputes the order total
// from the persisted lines in the same transaction.
type Service struct {
	store      Store
	events     EventPublisher
	logger     *logger.Logger
	maxRetries int
	now        func() time.Time
}

// NewService creates a new order service. A nil publisher drops events.
func NewService(store Store, events EventPublisher, log *logger.Logger, maxRetries int) *Service {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	if maxRetries < 1 {
		maxRetries = defaultMaxRetries
	}
	return &Service{
		store:      store,
		events:     events,
		logger:     log,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// HealthCheck reports whether the store is reachable
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// CreateMenuItem adds an item to the catalog
func (s *Service) CreateMenuItem(ctx context.Context, name string, price decimal.Decimal) (item *models.MenuItem, err error) {
	defer s.observe("create_menu_item", &err)

	if err := validation.ValidateMenuItem(name, price); err != nil {
		return nil, err
	}

	item = &models.MenuItem{Name: strings.TrimSpace(name), Price: price}
	if err := s.store.CreateMenuItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}

	s.logger.Info("menu_item_created", fmt.Sprintf("Menu item %q created", item.Name),
		logger.RequestID(ctx), map[string]interface{}{
			"menu_item_id": item.ID,
			"price":        models.FormatMoney(item.Price),
		})
	return item, nil
}

func (s *Service) GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	return s.store.GetMenuItem(ctx, id)
}

// ListMenuItems lists the catalog, optionally filtered by name
func (s *Service) ListMenuItems(ctx context.Context, name string) ([]models.MenuItem, error) {
	return s.store.ListMenuItems(ctx, strings.TrimSpace(name))
}

// UpdateMenuItem renames or reprices an item. Existing order lines keep the
// unit price they were created with.
func (s *Service) UpdateMenuItem(ctx context.Context, id int64, name string, price decimal.Decimal) (item *models.MenuItem, err error) {
	defer s.observe("update_menu_item", &err)

	if err := validation.ValidateMenuItem(name, price); err != nil {
		return nil, err
	}

	item = &models.MenuItem{ID: id, Name: strings.TrimSpace(name), Price: price}
	if err := s.store.UpdateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// PatchMenuItem changes the fields present in patch and keeps the others
func (s *Service) PatchMenuItem(ctx context.Context, id int64, patch MenuItemPatch) (item *models.MenuItem, err error) {
	defer s.observe("patch_menu_item", &err)

	if err := validation.ValidateMenuItemPatch(patch.Name, patch.Price); err != nil {
		return nil, err
	}

	if item, err = s.store.GetMenuItem(ctx, id); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		item.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if err := s.store.UpdateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteMenuItem removes an item that no order line references
func (s *Service) DeleteMenuItem(ctx context.Context, id int64) (err error) {
	defer s.observe("delete_menu_item", &err)
	return s.store.DeleteMenuItem(ctx, id)
}

// CreateOrder creates an order and its initial lines. Without items the order
// starts empty with a zero total.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (order *models.Order, err error) {
	defer s.observe("create_order", &err)

	items := make([]validation.LineInput, len(input.Items))
	for i, it := range input.Items {
		items[i] = validation.LineInput{MenuItemID: it.MenuItemID, Quantity: it.Quantity}
	}
	status, err := validation.ValidateCreateOrder(input.TableNumber, input.Status, items)
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, "create_order", func(tx Tx) error {
		now := s.now()
		order = &models.Order{
			TableNumber: input.TableNumber,
			Status:      status,
			TotalPrice:  decimal.Zero,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		if len(input.Items) == 0 {
			order.Lines = []models.OrderLine{}
			return nil
		}

		for _, it := range input.Items {
			item, err := tx.GetMenuItem(ctx, it.MenuItemID)
			if err != nil {
				return err
			}
			line := models.NewOrderLine(order.ID, *item, it.Quantity)
			if err := tx.InsertLine(ctx, &line); err != nil {
				return err
			}
		}
		return recalculate(ctx, tx, order, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_created", fmt.Sprintf("Order %d created for table %d", order.ID, order.TableNumber),
		logger.RequestID(ctx), map[string]interface{}{
			"order_id":    order.ID,
			"lines":       len(order.Lines),
			"total_price": models.FormatMoney(order.TotalPrice),
		})
	s.publish(ctx, models.NewOrderEvent(models.EventOrderCreated, order))
	return order, nil
}

// GetOrder returns the order with its lines
func (s *Service) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// ListOrders returns the orders matching filter, most recent first
func (s *Service) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	return s.store.ListOrders(ctx, filter)
}

// AddLine adds quantity units of a menu item to an order, snapshotting the
// item's current price, and returns the created line.
func (s *Service) AddLine(ctx context.Context, orderID, menuItemID int64, quantity int) (line *models.OrderLine, err error) {
	defer s.observe("add_line", &err)

	if err := validation.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.withTx(ctx, "add_line", func(tx Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		item, err := tx.GetMenuItem(ctx, menuItemID)
		if err != nil {
			return err
		}

		created := models.NewOrderLine(order.ID, *item, quantity)
		if err := tx.InsertLine(ctx, &created); err != nil {
			return err
		}
		line = &created
		return recalculate(ctx, tx, order, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("line_added", fmt.Sprintf("Line %d added to order %d", line.ID, order.ID),
		logger.RequestID(ctx), map[string]interface{}{
			"menu_item_id": menuItemID,
			"quantity":     quantity,
			"total_price":  models.FormatMoney(order.TotalPrice),
		})
	event := models.NewOrderEvent(models.EventLineAdded, order)
	event.LineID = line.ID
	s.publish(ctx, event)
	return line, nil
}

// UpdateLineQuantity changes a line's quantity; its price is recomputed from
// the unit price captured when the line was created.
func (s *Service) UpdateLineQuantity(ctx context.Context, lineID int64, quantity int) (line *models.OrderLine, err error) {
	defer s.observe("update_line_quantity", &err)

	if err := validation.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.withTx(ctx, "update_line_quantity", func(tx Tx) error {
		var err error
		if order, err = tx.LockOrderForLine(ctx, lineID); err != nil {
			return err
		}
		if line, err = tx.GetLine(ctx, lineID); err != nil {
			return err
		}

		line.SetQuantity(quantity)
		if err := tx.UpdateLine(ctx, line); err != nil {
			return err
		}
		return recalculate(ctx, tx, order, s.now())
	})
	if err != nil {
		return nil, err
	}

	event := models.NewOrderEvent(models.EventLineUpdated, order)
	event.LineID = line.ID
	s.publish(ctx, event)
	return line, nil
}

// RemoveLine deletes a line and returns its order with the remaining lines
func (s *Service) RemoveLine(ctx context.Context, lineID int64) (order *models.Order, err error) {
	defer s.observe("remove_line", &err)

	err = s.withTx(ctx, "remove_line", func(tx Tx) error {
		var err error
		if order, err = tx.LockOrderForLine(ctx, lineID); err != nil {
			return err
		}
		if err := tx.DeleteLine(ctx, lineID); err != nil {
			return err
		}
		return recalculate(ctx, tx, order, s.now())
	})
	if err != nil {
		return nil, err
	}

	event := models.NewOrderEvent(models.EventLineRemoved, order)
	event.LineID = lineID
	s.publish(ctx, event)
	return order, nil
}

// UpdateStatus sets the order status. Any status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, rawStatus string) (*models.Order, error) {
	return s.UpdateOrder(ctx, orderID, UpdateOrderInput{Status: &rawStatus})
}

// UpdateOrder moves an order to another table and/or sets its status.
// Lines and total are left untouched.
func (s *Service) UpdateOrder(ctx context.Context, orderID int64, input UpdateOrderInput) (order *models.Order, err error) {
	defer s.observe("update_order", &err)

	status, err := validation.ValidateOrderUpdate(input.TableNumber, input.Status)
	if err != nil {
		return nil, err
	}

	var (
		oldStatus models.OrderStatus
		oldTable  int
	)
	err = s.withTx(ctx, "update_order", func(tx Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		oldStatus, oldTable = order.Status, order.TableNumber

		if input.TableNumber != nil {
			order.TableNumber = *input.TableNumber
		}
		if status != nil {
			order.Status = *status
		}
		order.UpdatedAt = s.now()
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}

		order.Lines, err = tx.ListLines(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_updated", fmt.Sprintf("Order %d updated", order.ID),
		logger.RequestID(ctx), map[string]interface{}{
			"order_id":         order.ID,
			"old_status":       oldStatus,
			"new_status":       order.Status,
			"old_table_number": oldTable,
			"new_table_number": order.TableNumber,
		})

	if order.TableNumber != oldTable {
		event := models.NewOrderEvent(models.EventOrderTableChanged, order)
		event.OldTable = oldTable
		s.publish(ctx, event)
	}
	if status != nil {
		event := models.NewOrderEvent(models.EventOrderStatusChanged, order)
		event.OldStatus = oldStatus
		s.publish(ctx, event)
	}
	return order, nil
}

// DeleteOrder deletes an order together with its lines
func (s *Service) DeleteOrder(ctx context.Context, orderID int64) (err error) {
	defer s.observe("delete_order", &err)

	var order *models.Order
	err = s.withTx(ctx, "delete_order", func(tx Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("order_deleted", fmt.Sprintf("Order %d deleted", orderID), logger.RequestID(ctx), nil)
	s.publish(ctx, models.NewOrderEvent(models.EventOrderDeleted, order))
	return nil
}

// RecalculateTotal recomputes and stores an order's total from its lines.
// Repeating it without intervening line changes yields the same total.
func (s *Service) RecalculateTotal(ctx context.Context, orderID int64) (order *models.Order, err error) {
	defer s.observe("recalculate_total", &err)

	err = s.withTx(ctx, "recalculate_total", func(tx Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		return recalculate(ctx, tx, order, s.now())
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// recalculate loads the order's persisted lines, recomputes the total from
// scratch and stores it. The order must be locked by tx.
func recalculate(ctx context.Context, tx Tx, order *models.Order, now time.Time) error {
	lines, err := tx.ListLines(ctx, order.ID)
	if err != nil {
		return err
	}

	total := models.CalculateTotal(models.LinePrices(lines))
	if err := tx.SetOrderTotal(ctx, order.ID, total, now); err != nil {
		return err
	}

	order.Lines = lines
	order.TotalPrice = total
	order.UpdatedAt = now
	return nil
}

// withTx runs fn in a transaction, re-running it from scratch when the store
// reports a conflict. fn must not keep state between attempts.
func (s *Service) withTx(ctx context.Context, op string, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err = s.store.InTx(ctx, fn)
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if attempt == s.maxRetries {
			break
		}

		metrics.TxRetries.WithLabelValues(op).Inc()
		s.logger.Warn("tx_retry", fmt.Sprintf("Transaction conflict in %s, retrying", op),
			logger.RequestID(ctx), map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	return &ConsistencyError{Op: op, Attempts: s.maxRetries, Err: err}
}

func (s *Service) observe(op string, errp *error) {
	metrics.OrderOperations.WithLabelValues(op, outcome(*errp)).Inc()
}
