package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"restaurant-orders/internal/models"
)

const maxNameLength = 100

// MaxQuantity bounds a line's quantity. MaxPrice × MaxQuantity stays far
// below the int64 cents range of line prices and order totals.
const MaxQuantity = 10000

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LineInput is a requested order line
type LineInput struct {
	MenuItemID int64
	Quantity   int
}

func ValidateMenuItem(name string, price decimal.Decimal) error {
	if err := validateName(name); err != nil {
		return err
	}
	return validatePrice(price)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError{
			Field:   "name",
			Message: "name is required",
		}
	}

	if utf8.RuneCountInString(name) > maxNameLength {
		return ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("name must be at most %d characters", maxNameLength),
		}
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return ValidationError{
			Field:   "price",
			Message: "price must not be negative",
		}
	}

	if !models.HasMoneyPrecision(price) {
		return ValidationError{
			Field:   "price",
			Message: "price must have at most 2 decimal places",
		}
	}

	if price.GreaterThan(models.MaxPrice) {
		return ValidationError{
			Field:   "price",
			Message: fmt.Sprintf("price must be at most %s", models.FormatMoney(models.MaxPrice)),
		}
	}
	return nil
}

// Required reports a missing field
func Required(field string) error {
	return ValidationError{
		Field:   field,
		Message: field + " is required",
	}
}

// ValidateMenuItemPatch checks the fields present in a partial menu item update
func ValidateMenuItemPatch(name *string, price *decimal.Decimal) error {
	if name == nil && price == nil {
		return ValidationError{
			Field:   "name",
			Message: "at least one of name or price is required",
		}
	}
	if name != nil {
		if err := validateName(*name); err != nil {
			return err
		}
	}
	if price != nil {
		return validatePrice(*price)
	}
	return nil
}

func ValidateTableNumber(tableNumber int) error {
	if tableNumber <= 0 {
		return ValidationError{
			Field:   "table_number",
			Message: "table number must be a positive integer",
		}
	}
	return nil
}

// ValidateStatus parses raw into a status. An empty value is rejected.
func ValidateStatus(raw string) (models.OrderStatus, error) {
	status := models.OrderStatus(raw)
	if !status.Valid() {
		return "", ValidationError{
			Field:   "status",
			Message: "status must be one of: pending, ready, paid",
		}
	}
	return status, nil
}

func ValidateQuantity(quantity int) error {
	return validateQuantity(quantity, "quantity")
}

func validateQuantity(quantity int, field string) error {
	if quantity < 1 {
		return ValidationError{
			Field:   field,
			Message: "quantity must be at least 1",
		}
	}

	if quantity > MaxQuantity {
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("quantity must be at most %d", MaxQuantity),
		}
	}
	return nil
}

// ValidateCreateOrder checks the fields of a new order. An empty status means pending.
func ValidateCreateOrder(tableNumber int, status string, items []LineInput) (models.OrderStatus, error) {
	if err := ValidateTableNumber(tableNumber); err != nil {
		return "", err
	}

	parsed := models.StatusPending
	if status != "" {
		var err error
		if parsed, err = ValidateStatus(status); err != nil {
			return "", err
		}
	}

	for i, item := range items {
		if item.MenuItemID <= 0 {
			return "", ValidationError{
				Field:   fmt.Sprintf("items[%d].menu_item_id", i),
				Message: "menu item is required",
			}
		}
		if err := validateQuantity(item.Quantity, fmt.Sprintf("items[%d].quantity", i)); err != nil {
			return "", err
		}
	}
	return parsed, nil
}

// ValidateOrderUpdate checks the fields present in an order update and
// returns the parsed status, nil when status is absent.
func ValidateOrderUpdate(tableNumber *int, status *string) (*models.OrderStatus, error) {
	if tableNumber == nil && status == nil {
		return nil, ValidationError{
			Field:   "status",
			Message: "at least one of table_number or status is required",
		}
	}
	if tableNumber != nil {
		if err := ValidateTableNumber(*tableNumber); err != nil {
			return nil, err
		}
	}
	if status == nil {
		return nil, nil
	}
	parsed, err := ValidateStatus(*status)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ParseOrderFilter builds a listing filter from optional raw query values
func ParseOrderFilter(table, status string) (models.OrderFilter, error) {
	var filter models.OrderFilter

	if table != "" {
		n, err := strconv.Atoi(table)
		if err != nil {
			return filter, ValidationError{
				Field:   "table",
				Message: "table must be an integer",
			}
		}
		if err := ValidateTableNumber(n); err != nil {
			return filter, ValidationError{Field: "table", Message: "table must be a positive integer"}
		}
		filter.TableNumber = &n
	}

	if status != "" {
		s, err := ValidateStatus(status)
		if err != nil {
			return filter, err
		}
		filter.Status = &s
	}

	return filter, nil
}
