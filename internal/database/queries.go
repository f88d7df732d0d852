package database

// PostgreSQL statements. Money columns hold integer cents.

// Menu item queries
const (
	InsertMenuItemSQL = `
		INSERT INTO menu_items (name, price_cents)
		VALUES ($1, $2)
		RETURNING id`

	GetMenuItemSQL = `
		SELECT id, name, price_cents
		FROM menu_items WHERE id = $1`

	// GetMenuItemForShareSQL keeps the item from being deleted while a line referencing it is written
	GetMenuItemForShareSQL = GetMenuItemSQL + `
		FOR KEY SHARE`

	ListMenuItemsSQL = `
		SELECT id, name, price_cents
		FROM menu_items
		WHERE $1::text = '' OR strpos(lower(name), lower($1::text)) > 0
		ORDER BY name, id`

	UpdateMenuItemSQL = `
		UPDATE menu_items SET name = $2, price_cents = $3
		WHERE id = $1`

	DeleteMenuItemSQL = `
		DELETE FROM menu_items WHERE id = $1`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (table_number, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	GetOrderSQL = `
		SELECT id, table_number, status, total_cents, created_at, updated_at
		FROM orders WHERE id = $1`

	LockOrderSQL = GetOrderSQL + `
		FOR UPDATE`

	LockOrderForLineSQL = `
		SELECT o.id, o.table_number, o.status, o.total_cents, o.created_at, o.updated_at
		FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		WHERE l.id = $1
		FOR UPDATE OF o`

	ListOrdersSQL = `
		SELECT id, table_number, status, total_cents, created_at, updated_at
		FROM orders
		WHERE ($1::integer IS NULL OR table_number = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id DESC`

	UpdateOrderSQL = `
		UPDATE orders SET table_number = $2, status = $3, updated_at = $4
		WHERE id = $1`

	SetOrderTotalSQL = `
		UPDATE orders SET total_cents = $2, updated_at = $3
		WHERE id = $1`

	DeleteOrderSQL = `
		DELETE FROM orders WHERE id = $1`
)

// Order line queries
const (
	lineColumnsSQL = `
		SELECT l.id, l.order_id, l.menu_item_id, m.name, l.quantity, l.unit_price_cents, l.line_price_cents
		FROM order_lines l
		JOIN menu_items m ON m.id = l.menu_item_id`

	GetLineSQL = lineColumnsSQL + `
		WHERE l.id = $1`

	ListLinesSQL = lineColumnsSQL + `
		WHERE l.order_id = $1
		ORDER BY l.id`

	ListLinesForOrdersSQL = lineColumnsSQL + `
		WHERE l.order_id = ANY($1)
		ORDER BY l.order_id, l.id`

	InsertLineSQL = `
		INSERT INTO order_lines (order_id, menu_item_id, quantity, unit_price_cents, line_price_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	UpdateLineSQL = `
		UPDATE order_lines SET quantity = $2, line_price_cents = $3
		WHERE id = $1`

	DeleteLineSQL = `
		DELETE FROM order_lines WHERE id = $1`
)
