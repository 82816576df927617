package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type GetProductForOrderParams struct {
	ID       int64
	BranchID int64
}

type GetProductForOrderRow struct {
	ID        int64
	Name      string
	Price     pgtype.Numeric
	Available bool
}

const getProductForOrder = `
SELECT id, name, price, available
FROM products
WHERE id = $1 AND branch_id = $2
`

func (q *Queries) GetProductForOrder(ctx context.Context, arg GetProductForOrderParams) (GetProductForOrderRow, error) {
	var row GetProductForOrderRow
	err := q.db.QueryRow(ctx, getProductForOrder, arg.ID, arg.BranchID).
		Scan(&row.ID, &row.Name, &row.Price, &row.Available)
	return row, err
}

type GetModifierForOrderRow struct {
	ID        int64
	ProductID int64
	Name      string
	Price     pgtype.Numeric
}

const getModifierForOrder = `
SELECT id, product_id, name, price
FROM modifiers
WHERE id = $1
`

func (q *Queries) GetModifierForOrder(ctx context.Context, id int64) (GetModifierForOrderRow, error) {
	var row GetModifierForOrderRow
	err := q.db.QueryRow(ctx, getModifierForOrder, id).
		Scan(&row.ID, &row.ProductID, &row.Name, &row.Price)
	return row, err
}
