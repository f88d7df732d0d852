package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"restaurant-orders/internal/database"
	"restaurant-orders/internal/models"
)

// PostgreSQL error codes
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgForeignKeyViolation  = "23503"
)

// PostgresStore implements Store on a pgx pool. Line mutations serialize on
// the parent order row through SELECT ... FOR UPDATE.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	cents, err := models.ToCents(item.Price)
	if err != nil {
		return err
	}
	if err := s.db.QueryRow(ctx, database.InsertMenuItemSQL, item.Name, cents).Scan(&item.ID); err != nil {
		return fmt.Errorf("failed to insert menu item: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	return pgGetMenuItem(ctx, s.db.Pool, database.GetMenuItemSQL, id)
}

func (s *PostgresStore) ListMenuItems(ctx context.Context, name string) ([]models.MenuItem, error) {
	rows, err := s.db.Query(ctx, database.ListMenuItemsSQL, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var (
			item  models.MenuItem
			cents int64
		)
		if err := rows.Scan(&item.ID, &item.Name, &cents); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		item.Price = models.FromCents(cents)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateMenuItem(ctx context.Context, item *models.MenuItem) error {
	cents, err := models.ToCents(item.Price)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, database.UpdateMenuItemSQL, item.ID, item.Name, cents)
	if err != nil {
		return fmt.Errorf("failed to update menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("menu item", item.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteMenuItem(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, database.DeleteMenuItemSQL, id)
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return ErrMenuItemInUse
		}
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("menu item", id)
	}
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order *models.Order
	err := s.readTx(ctx, func(tx pgx.Tx) error {
		var err error
		if order, err = pgScanOrder(tx.QueryRow(ctx, database.GetOrderSQL, id), id); err != nil {
			return err
		}
		order.Lines, err = pgListLines(ctx, tx, database.ListLinesSQL, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var status *string
	if filter.Status != nil {
		v := string(*filter.Status)
		status = &v
	}

	orders := []models.Order{}
	err := s.readTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, database.ListOrdersSQL, filter.TableNumber, status)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			order, err := pgScanOrder(rows, 0)
			if err != nil {
				return err
			}
			orders = append(orders, *order)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		if len(orders) == 0 {
			return nil
		}
		ids := make([]int64, len(orders))
		for i := range orders {
			ids[i] = orders[i].ID
		}
		lines, err := pgListLines(ctx, tx, database.ListLinesForOrdersSQL, ids)
		if err != nil {
			return err
		}
		attachLines(orders, lines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// readTx runs fn in a read-only REPEATABLE READ transaction so an order and
// its lines come from the same snapshot.
func (s *PostgresStore) readTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return pgTranslate(fmt.Errorf("failed to start transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return pgTranslate(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return pgTranslate(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// pgTranslate maps retryable PostgreSQL failures to ErrConflict
func pgTranslate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}
	return err
}

func isPgForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) InsertOrder(ctx context.Context, order *models.Order) error {
	total, err := models.ToCents(order.TotalPrice)
	if err != nil {
		return err
	}
	err = t.tx.QueryRow(ctx, database.InsertOrderSQL,
		order.TableNumber, string(order.Status), total,
		order.CreatedAt, order.UpdatedAt).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (t *pgTx) LockOrder(ctx context.Context, id int64) (*models.Order, error) {
	return pgScanOrder(t.tx.QueryRow(ctx, database.LockOrderSQL, id), id)
}

func (t *pgTx) LockOrderForLine(ctx context.Context, lineID int64) (*models.Order, error) {
	order, err := pgScanOrder(t.tx.QueryRow(ctx, database.LockOrderForLineSQL, lineID), 0)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("order line", lineID)
	}
	return order, err
}

func (t *pgTx) UpdateOrder(ctx context.Context, order *models.Order) error {
	return t.execOne(ctx, "order", order.ID, database.UpdateOrderSQL,
		order.ID, order.TableNumber, string(order.Status), order.UpdatedAt)
}

func (t *pgTx) SetOrderTotal(ctx context.Context, id int64, total decimal.Decimal, updatedAt time.Time) error {
	cents, err := models.ToCents(total)
	if err != nil {
		return err
	}
	return t.execOne(ctx, "order", id, database.SetOrderTotalSQL, id, cents, updatedAt)
}

func (t *pgTx) DeleteOrder(ctx context.Context, id int64) error {
	return t.execOne(ctx, "order", id, database.DeleteOrderSQL, id)
}

func (t *pgTx) GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	return pgGetMenuItem(ctx, t.tx, database.GetMenuItemForShareSQL, id)
}

func (t *pgTx) GetLine(ctx context.Context, id int64) (*models.OrderLine, error) {
	lines, err := pgListLines(ctx, t.tx, database.GetLineSQL, id)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, notFound("order line", id)
	}
	return &lines[0], nil
}

func (t *pgTx) ListLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	return pgListLines(ctx, t.tx, database.ListLinesSQL, orderID)
}

func (t *pgTx) InsertLine(ctx context.Context, line *models.OrderLine) error {
	unitCents, priceCents, err := lineCents(line)
	if err != nil {
		return err
	}
	err = t.tx.QueryRow(ctx, database.InsertLineSQL,
		line.OrderID, line.MenuItemID, line.Quantity, unitCents, priceCents).Scan(&line.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order line: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateLine(ctx context.Context, line *models.OrderLine) error {
	cents, err := models.ToCents(line.LinePrice)
	if err != nil {
		return err
	}
	return t.execOne(ctx, "order line", line.ID, database.UpdateLineSQL, line.ID, line.Quantity, cents)
}

func (t *pgTx) DeleteLine(ctx context.Context, id int64) error {
	return t.execOne(ctx, "order line", id, database.DeleteLineSQL, id)
}

// execOne runs a statement that must affect exactly the row identified by id
func (t *pgTx) execOne(ctx context.Context, resource string, id int64, sql string, args ...interface{}) error {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to write %s %d: %w", resource, id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(resource, id)
	}
	return nil
}

// pgQuerier is satisfied by both the pool and a transaction
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgGetMenuItem(ctx context.Context, q pgQuerier, sql string, id int64) (*models.MenuItem, error) {
	var (
		item  models.MenuItem
		cents int64
	)
	err := q.QueryRow(ctx, sql, id).Scan(&item.ID, &item.Name, &cents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("menu item", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	item.Price = models.FromCents(cents)
	return &item, nil
}

// pgScanOrder scans an order row; id names the order in a not-found error
func pgScanOrder(row pgx.Row, id int64) (*models.Order, error) {
	var (
		order  models.Order
		status string
		cents  int64
	)
	err := row.Scan(&order.ID, &order.TableNumber, &status, &cents, &order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	order.Status = models.OrderStatus(status)
	order.TotalPrice = models.FromCents(cents)
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return &order, nil
}

func pgListLines(ctx context.Context, q pgQuerier, sql string, arg interface{}) ([]models.OrderLine, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list order lines: %w", err)
	}
	defer rows.Close()

	lines := []models.OrderLine{}
	for rows.Next() {
		var (
			line             models.OrderLine
			unitCents, cents int64
		)
		if err := rows.Scan(&line.ID, &line.OrderID, &line.MenuItemID, &line.MenuItemName,
			&line.Quantity, &unitCents, &cents); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		line.UnitPrice = models.FromCents(unitCents)
		line.LinePrice = models.FromCents(cents)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// attachLines distributes lines (ordered by order id) onto their orders
func attachLines(orders []models.Order, lines []models.OrderLine) {
	byOrder := make(map[int64][]models.OrderLine, len(orders))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}
	for i := range orders {
		if ls, ok := byOrder[orders[i].ID]; ok {
			orders[i].Lines = ls
		} else {
			orders[i].Lines = []models.OrderLine{}
		}
	}
}
