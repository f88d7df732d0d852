package order

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-orders/internal/database"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "orders.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.RunMigrations(ctx))
	return NewSQLiteStore(db)
}

func newTestService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	events := &recordingPublisher{}
	return NewService(newTestStore(t), events, logger.NewNop(), 3), events
}

func mustMenuItem(t *testing.T, s *Service, name, price string) *models.MenuItem {
	t.Helper()
	item, err := s.CreateMenuItem(context.Background(), name, decimal.RequireFromString(price))
	require.NoError(t, err)
	return item
}

func mustOrder(t *testing.T, s *Service, table int, status string) *models.Order {
	t.Helper()
	order, err := s.CreateOrder(context.Background(), CreateOrderInput{TableNumber: table, Status: status})
	require.NoError(t, err)
	return order
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, models.FormatMoney(got))
}

// assertConsistent checks that the stored total equals the sum of the line
// prices and that every line price equals unit price times quantity.
func assertConsistent(t *testing.T, s *Service, orderID int64) *models.Order {
	t.Helper()
	order, err := s.GetOrder(context.Background(), orderID)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, l := range order.Lines {
		assert.True(t, l.LinePrice.Equal(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))),
			"line %d: %s != %s x %d", l.ID, l.LinePrice, l.UnitPrice, l.Quantity)
		sum = sum.Add(l.LinePrice)
	}
	assert.True(t, order.TotalPrice.Equal(sum), "total %s != sum of lines %s", order.TotalPrice, sum)
	return order
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type failingPublisher struct{}

func (failingPublisher) PublishOrderEvent(context.Context, models.OrderEvent) error {
	return errors.New("broker unavailable")
}

// conflictStore reports a write conflict for the first failures transactions
type conflictStore struct {
	Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *conflictStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()

	if fail {
		return ErrConflict
	}
	return s.Store.InTx(ctx, fn)
}
