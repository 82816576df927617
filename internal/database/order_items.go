package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type CreateOrderItemParams struct {
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Subtotal    pgtype.Numeric
	Remark      pgtype.Text
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, subtotal, remark)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, product_id, product_name, quantity, unit_price, subtotal, remark
`

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.ProductName, arg.Quantity,
		arg.UnitPrice, arg.Subtotal, arg.Remark,
	).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity,
		&it.UnitPrice, &it.Subtotal, &it.Remark)
	return it, err
}

const listOrderItemsByOrder = `
SELECT id, order_id, product_id, product_name, quantity, unit_price, subtotal, remark
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.Subtotal, &it.Remark); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type CreateOrderItemModifierParams struct {
	OrderItemID int64
	ModifierID  int64
	Name        string
	Price       pgtype.Numeric
}

const createOrderItemModifier = `
INSERT INTO order_item_modifiers (order_item_id, modifier_id, name, price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_item_id, modifier_id, name, price
`

// CreateOrderItemModifier stores the name+price pair snapshotted at
// order time so receipts stay accurate after menu edits.
func (q *Queries) CreateOrderItemModifier(ctx context.Context, arg CreateOrderItemModifierParams) (OrderItemModifier, error) {
	var m OrderItemModifier
	err := q.db.QueryRow(ctx, createOrderItemModifier,
		arg.OrderItemID, arg.ModifierID, arg.Name, arg.Price,
	).Scan(&m.ID, &m.OrderItemID, &m.ModifierID, &m.Name, &m.Price)
	return m, err
}

const listOrderItemModifiersByOrderItem = `
SELECT id, order_item_id, modifier_id, name, price
FROM order_item_modifiers
WHERE order_item_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID int64) ([]OrderItemModifier, error) {
	rows, err := q.db.Query(ctx, listOrderItemModifiersByOrderItem, orderItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []OrderItemModifier
	for rows.Next() {
		var m OrderItemModifier
		if err := rows.Scan(&m.ID, &m.OrderItemID, &m.ModifierID, &m.Name, &m.Price); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}
