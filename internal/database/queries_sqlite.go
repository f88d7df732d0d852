package database

// SQLite statements. Numbered parameters (?1) may be referenced more than once.

const (
	SQLiteInsertMenuItemSQL = `
		INSERT INTO menu_items (name, price_cents)
		VALUES (?1, ?2)
		RETURNING id`

	SQLiteGetMenuItemSQL = `
		SELECT id, name, price_cents
		FROM menu_items WHERE id = ?1`

	SQLiteListMenuItemsSQL = `
		SELECT id, name, price_cents
		FROM menu_items
		WHERE ?1 = '' OR instr(lower(name), lower(?1)) > 0
		ORDER BY name, id`

	SQLiteUpdateMenuItemSQL = `
		UPDATE menu_items SET name = ?2, price_cents = ?3
		WHERE id = ?1`

	SQLiteDeleteMenuItemSQL = `
		DELETE FROM menu_items WHERE id = ?1`
)

const (
	SQLiteInsertOrderSQL = `
		INSERT INTO orders (table_number, status, total_cents, created_at, updated_at)
		VALUES (?1, ?2, ?3, ?4, ?5)
		RETURNING id`

	SQLiteGetOrderSQL = `
		SELECT id, table_number, status, total_cents, created_at, updated_at
		FROM orders WHERE id = ?1`

	SQLiteGetOrderForLineSQL = `
		SELECT o.id, o.table_number, o.status, o.total_cents, o.created_at, o.updated_at
		FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		WHERE l.id = ?1`

	SQLiteListOrdersSQL = `
		SELECT id, table_number, status, total_cents, created_at, updated_at
		FROM orders
		WHERE (?1 IS NULL OR table_number = ?1)
		  AND (?2 IS NULL OR status = ?2)
		ORDER BY created_at DESC, id DESC`

	SQLiteUpdateOrderSQL = `
		UPDATE orders SET table_number = ?2, status = ?3, updated_at = ?4
		WHERE id = ?1`

	SQLiteSetOrderTotalSQL = `
		UPDATE orders SET total_cents = ?2, updated_at = ?3
		WHERE id = ?1`

	SQLiteDeleteOrderSQL = `
		DELETE FROM orders WHERE id = ?1`
)

const (
	sqliteLineColumnsSQL = `
		SELECT l.id, l.order_id, l.menu_item_id, m.name, l.quantity, l.unit_price_cents, l.line_price_cents
		FROM order_lines l
		JOIN menu_items m ON m.id = l.menu_item_id`

	SQLiteGetLineSQL = sqliteLineColumnsSQL + `
		WHERE l.id = ?1`

	SQLiteListLinesSQL = sqliteLineColumnsSQL + `
		WHERE l.order_id = ?1
		ORDER BY l.id`

	// SQLiteListLinesForOrdersSQL takes the order ids as a JSON array
	SQLiteListLinesForOrdersSQL = sqliteLineColumnsSQL + `
		WHERE l.order_id IN (SELECT value FROM json_each(?1))
		ORDER BY l.order_id, l.id`

	SQLiteInsertLineSQL = `
		INSERT INTO order_lines (order_id, menu_item_id, quantity, unit_price_cents, line_price_cents)
		VALUES (?1, ?2, ?3, ?4, ?5)
		RETURNING id`

	SQLiteUpdateLineSQL = `
		UPDATE order_lines SET quantity = ?2, line_price_cents = ?3
		WHERE id = ?1`

	SQLiteDeleteLineSQL = `
		DELETE FROM order_lines WHERE id = ?1`
)
