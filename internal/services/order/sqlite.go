package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"restaurant-orders/internal/database"
	"restaurant-orders/internal/models"
)

// SQLiteStore implements Store on a single-connection SQLite database.
// Write transactions begin IMMEDIATE, so writers are serialized by the database lock.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *database.SQLite) *SQLiteStore {
	return &SQLiteStore{db: db.DB}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	cents, err := models.ToCents(item.Price)
	if err != nil {
		return err
	}
	if err := s.db.QueryRowContext(ctx, database.SQLiteInsertMenuItemSQL, item.Name, cents).Scan(&item.ID); err != nil {
		return fmt.Errorf("failed to insert menu item: %w", sqliteTranslate(err))
	}
	return nil
}

func (s *SQLiteStore) GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	return sqliteGetMenuItem(ctx, s.db, id)
}

func (s *SQLiteStore) ListMenuItems(ctx context.Context, name string) ([]models.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, database.SQLiteListMenuItemsSQL, name)
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

func (s *SQLiteStore) UpdateMenuItem(ctx context.Context, item *models.MenuItem) error {
	cents, err := models.ToCents(item.Price)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, database.SQLiteUpdateMenuItemSQL, item.ID, item.Name, cents)
	if err != nil {
		return fmt.Errorf("failed to update menu item: %w", sqliteTranslate(err))
	}
	return expectOne(res, "menu item", item.ID)
}

func (s *SQLiteStore) DeleteMenuItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, database.SQLiteDeleteMenuItemSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrMenuItemInUse
		}
		return fmt.Errorf("failed to delete menu item: %w", sqliteTranslate(err))
	}
	return expectOne(res, "menu item", id)
}

func (s *SQLiteStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := sqliteScanOrder(s.db.QueryRowContext(ctx, database.SQLiteGetOrderSQL, id), id)
	if err != nil {
		return nil, err
	}
	if order.Lines, err = sqliteListLines(ctx, s.db, database.SQLiteListLinesSQL, id); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *SQLiteStore) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var table, status interface{}
	if filter.TableNumber != nil {
		table = *filter.TableNumber
	}
	if filter.Status != nil {
		status = string(*filter.Status)
	}

	orders, err := s.listOrders(ctx, table, status)
	if err != nil || len(orders) == 0 {
		return orders, err
	}

	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order ids: %w", err)
	}

	lines, err := sqliteListLines(ctx, s.db, database.SQLiteListLinesForOrdersSQL, string(encoded))
	if err != nil {
		return nil, err
	}
	attachLines(orders, lines)
	return orders, nil
}

// listOrders reads the order rows and releases the connection before lines are queried
func (s *SQLiteStore) listOrders(ctx context.Context, table, status interface{}) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, database.SQLiteListOrdersSQL, table, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := sqliteScanOrder(rows, 0)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sqliteTranslate(fmt.Errorf("failed to start transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return sqliteTranslate(err)
	}
	if err := tx.Commit(); err != nil {
		return sqliteTranslate(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// sqliteTranslate maps a busy or locked database to ErrConflict
func sqliteTranslate(err error) error {
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %s", ErrConflict, sqErr.Error())
		}
	}
	return err
}

func isForeignKeyViolation(err error) bool {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	return sqErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqErr.Error(), "FOREIGN KEY")
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) InsertOrder(ctx context.Context, order *models.Order) error {
	total, err := models.ToCents(order.TotalPrice)
	if err != nil {
		return err
	}
	err = t.tx.QueryRowContext(ctx, database.SQLiteInsertOrderSQL,
		order.TableNumber, string(order.Status), total,
		order.CreatedAt, order.UpdatedAt).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// LockOrder reads the order; the IMMEDIATE transaction already holds the write lock
func (t *sqliteTx) LockOrder(ctx context.Context, id int64) (*models.Order, error) {
	return sqliteScanOrder(t.tx.QueryRowContext(ctx, database.SQLiteGetOrderSQL, id), id)
}

func (t *sqliteTx) LockOrderForLine(ctx context.Context, lineID int64) (*models.Order, error) {
	order, err := sqliteScanOrder(t.tx.QueryRowContext(ctx, database.SQLiteGetOrderForLineSQL, lineID), 0)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("order line", lineID)
	}
	return order, err
}

func (t *sqliteTx) UpdateOrder(ctx context.Context, order *models.Order) error {
	return t.execOne(ctx, "order", order.ID, database.SQLiteUpdateOrderSQL,
		order.ID, order.TableNumber, string(order.Status), order.UpdatedAt)
}

func (t *sqliteTx) SetOrderTotal(ctx context.Context, id int64, total decimal.Decimal, updatedAt time.Time) error {
	cents, err := models.ToCents(total)
	if err != nil {
		return err
	}
	return t.execOne(ctx, "order", id, database.SQLiteSetOrderTotalSQL, id, cents, updatedAt)
}

func (t *sqliteTx) DeleteOrder(ctx context.Context, id int64) error {
	return t.execOne(ctx, "order", id, database.SQLiteDeleteOrderSQL, id)
}

func (t *sqliteTx) GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	return sqliteGetMenuItem(ctx, t.tx, id)
}

func (t *sqliteTx) GetLine(ctx context.Context, id int64) (*models.OrderLine, error) {
	lines, err := sqliteListLines(ctx, t.tx, database.SQLiteGetLineSQL, id)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, notFound("order line", id)
	}
	return &lines[0], nil
}

func (t *sqliteTx) ListLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	return sqliteListLines(ctx, t.tx, database.SQLiteListLinesSQL, orderID)
}

func (t *sqliteTx) InsertLine(ctx context.Context, line *models.OrderLine) error {
	unitCents, priceCents, err := lineCents(line)
	if err != nil {
		return err
	}
	err = t.tx.QueryRowContext(ctx, database.SQLiteInsertLineSQL,
		line.OrderID, line.MenuItemID, line.Quantity, unitCents, priceCents).Scan(&line.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order line: %w", err)
	}
	return nil
}

func (t *sqliteTx) UpdateLine(ctx context.Context, line *models.OrderLine) error {
	cents, err := models.ToCents(line.LinePrice)
	if err != nil {
		return err
	}
	return t.execOne(ctx, "order line", line.ID, database.SQLiteUpdateLineSQL, line.ID, line.Quantity, cents)
}

func (t *sqliteTx) DeleteLine(ctx context.Context, id int64) error {
	return t.execOne(ctx, "order line", id, database.SQLiteDeleteLineSQL, id)
}

func (t *sqliteTx) execOne(ctx context.Context, resource string, id int64, query string, args ...interface{}) error {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to write %s %d: %w", resource, id, err)
	}
	return expectOne(res, resource, id)
}

func expectOne(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound(resource, id)
	}
	return nil
}

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqlScanner interface {
	Scan(dest ...interface{}) error
}

func sqliteGetMenuItem(ctx context.Context, q sqlQuerier, id int64) (*models.MenuItem, error) {
	var (
		item  models.MenuItem
		cents int64
	)
	err := q.QueryRowContext(ctx, database.SQLiteGetMenuItemSQL, id).Scan(&item.ID, &item.Name, &cents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("menu item", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	item.Price = models.FromCents(cents)
	return &item, nil
}

func sqliteScanOrder(row sqlScanner, id int64) (*models.Order, error) {
	var (
		order  models.Order
		status string
		cents  int64
	)
	err := row.Scan(&order.ID, &order.TableNumber, &status, &cents, &order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
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

func sqliteListLines(ctx context.Context, q sqlQuerier, query string, arg interface{}) ([]models.OrderLine, error) {
	rows, err := q.QueryContext(ctx, query, arg)
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
