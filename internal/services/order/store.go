package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-orders/internal/models"
)

// Store persists the menu catalog and orders.
// Lookups of missing rows return a *NotFoundError; lost races return ErrConflict.
type Store interface {
	Ping(ctx context.Context) error

	CreateMenuItem(ctx context.Context, item *models.MenuItem) error
	GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error)
	// ListMenuItems returns items ordered by name; a non-empty name filters by
	// case-insensitive substring.
	ListMenuItems(ctx context.Context, name string) ([]models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, item *models.MenuItem) error
	// DeleteMenuItem returns ErrMenuItemInUse while order lines reference the item
	DeleteMenuItem(ctx context.Context, id int64) error

	// GetOrder returns the order with its lines, read from one snapshot
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	// ListOrders returns matching orders with their lines, most recent first
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)

	// InTx runs fn in a single write transaction. The transaction is committed
	// when fn returns nil and rolled back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes the order aggregate performs inside a transaction.
// Every order read through Tx is locked until the transaction ends.
type Tx interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	// LockOrder locks and returns the order row without its lines
	LockOrder(ctx context.Context, id int64) (*models.Order, error)
	// LockOrderForLine locks and returns the order owning lineID
	LockOrderForLine(ctx context.Context, lineID int64) (*models.Order, error)
	// UpdateOrder writes the order's table number, status and updated_at
	UpdateOrder(ctx context.Context, order *models.Order) error
	SetOrderTotal(ctx context.Context, id int64, total decimal.Decimal, updatedAt time.Time) error
	DeleteOrder(ctx context.Context, id int64) error

	// GetMenuItem reads the item and keeps it from being deleted until the transaction ends
	GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error)

	GetLine(ctx context.Context, id int64) (*models.OrderLine, error)
	ListLines(ctx context.Context, orderID int64) ([]models.OrderLine, error)
	InsertLine(ctx context.Context, line *models.OrderLine) error
	UpdateLine(ctx context.Context, line *models.OrderLine) error
	DeleteLine(ctx context.Context, id int64) error
}

// lineCents converts the unit and line price of line to integer cents
func lineCents(line *models.OrderLine) (unit, total int64, err error) {
	if unit, err = models.ToCents(line.UnitPrice); err != nil {
		return 0, 0, err
	}
	if total, err = models.ToCents(line.LinePrice); err != nil {
		return 0, 0, err
	}
	return unit, total, nil
}
