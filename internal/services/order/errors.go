package order

import (
	"errors"
	"fmt"

	"restaurant-orders/internal/models"
	"restaurant-orders/internal/services/order/internal/validation"
)

var (
	// ErrNotFound is wrapped by every NotFoundError
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by stores when a transaction lost a race
	// (serialization failure, deadlock, busy database) and may be retried.
	ErrConflict = errors.New("transaction conflict")

	// ErrMenuItemInUse is returned when deleting a menu item still referenced by order lines
	ErrMenuItemInUse = errors.New("menu item is referenced by order lines")
)

// NotFoundError reports a missing order, menu item or order line
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConsistencyError is returned when a line mutation and its total recomputation
// could not be committed together within the retry budget. Nothing was written.
type ConsistencyError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

func notFound(resource string, id int64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsValidationError reports whether err is caused by invalid input
func IsValidationError(err error) bool {
	var ve validation.ValidationError
	return errors.As(err, &ve)
}

// outcome classifies err for metrics labels
func outcome(err error) string {
	var ce *ConsistencyError
	switch {
	case err == nil:
		return "ok"
	case IsValidationError(err), errors.Is(err, models.ErrAmountOutOfRange):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &ce), errors.Is(err, ErrConflict), errors.Is(err, ErrMenuItemInUse):
		return "conflict"
	default:
		return "error"
	}
}
