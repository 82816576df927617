package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, branch_id, table_id, delivery_partner_id, created_by,
	order_type, status, subtotal, discount_amount, total_amount,
	daily_sequence, sequence_date, cooking_started_at, ready_at, paid_at,
	prep_minutes, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.BranchID, &o.TableID, &o.DeliveryPartnerID, &o.CreatedBy,
		&o.OrderType, &o.Status, &o.Subtotal, &o.DiscountAmount, &o.TotalAmount,
		&o.DailySequence, &o.SequenceDate, &o.CookingStartedAt, &o.ReadyAt, &o.PaidAt,
		&o.PrepMinutes, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

type GetNextDailySequenceParams struct {
	BranchID     int64
	SequenceDate pgtype.Date
}

const getNextDailySequence = `
SELECT COALESCE(MAX(daily_sequence), 0) + 1
FROM orders
WHERE branch_id = $1 AND sequence_date = $2
`

// GetNextDailySequence computes the next per-branch, per-day kitchen
// ticket number. Concurrent callers can read the same value; the unique
// constraint on (branch_id, sequence_date, daily_sequence) catches the
// race and the service retries.
func (q *Queries) GetNextDailySequence(ctx context.Context, arg GetNextDailySequenceParams) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, getNextDailySequence, arg.BranchID, arg.SequenceDate).Scan(&next)
	return next, err
}

type CreateOrderParams struct {
	BranchID          int64
	TableID           pgtype.Int8
	DeliveryPartnerID pgtype.Int8
	CreatedBy         pgtype.Int8
	OrderType         string
	Subtotal          pgtype.Numeric
	DiscountAmount    pgtype.Numeric
	TotalAmount       pgtype.Numeric
	DailySequence     int32
	SequenceDate      pgtype.Date
}

const createOrder = `
INSERT INTO orders (
	branch_id, table_id, delivery_partner_id, created_by, order_type,
	status, subtotal, discount_amount, total_amount, daily_sequence, sequence_date
) VALUES ($1, $2, $3, $4, $5, 'PENDING', $6, $7, $8, $9, $10)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.BranchID, arg.TableID, arg.DeliveryPartnerID, arg.CreatedBy, arg.OrderType,
		arg.Subtotal, arg.DiscountAmount, arg.TotalAmount, arg.DailySequence, arg.SequenceDate,
	)
	return scanOrder(row)
}

type GetOrderParams struct {
	ID       int64
	BranchID int64
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND branch_id = $2`

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.BranchID))
}

const getOrderByID = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

// GetOrderByID looks up an order without branch scoping. Used by the
// public customer status page, where the order id acts as a capability.
func (q *Queries) GetOrderByID(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByID, id))
}

type ListOrdersParams struct {
	BranchID  int64
	Status    pgtype.Text
	OrderType pgtype.Text
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE branch_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::text IS NULL OR order_type = $3)
  AND ($4::timestamptz IS NULL OR created_at >= $4)
  AND ($5::timestamptz IS NULL OR created_at < $5)
ORDER BY created_at DESC
LIMIT $6 OFFSET $7
`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.BranchID, arg.Status, arg.OrderType, arg.StartDate, arg.EndDate,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const listKitchenOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE branch_id = $1 AND status IN ('PENDING', 'CONFIRMED', 'COOKING')
ORDER BY created_at ASC
`

// ListKitchenOrders returns the open orders the kitchen display cares
// about: everything not yet READY.
func (q *Queries) ListKitchenOrders(ctx context.Context, branchID int64) ([]Order, error) {
	rows, err := q.db.Query(ctx, listKitchenOrders, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type CountOrdersForDayParams struct {
	BranchID     int64
	SequenceDate pgtype.Date
}

const countOrdersForDay = `
SELECT COUNT(*) FROM orders WHERE branch_id = $1 AND sequence_date = $2
`

// CountOrdersForDay seeds the kitchen display's session counter.
func (q *Queries) CountOrdersForDay(ctx context.Context, arg CountOrdersForDayParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrdersForDay, arg.BranchID, arg.SequenceDate).Scan(&count)
	return count, err
}

type UpdateOrderStatusParams struct {
	ID               int64
	BranchID         int64
	Status           string
	PriorStatus      string
	CookingStartedAt pgtype.Timestamptz
	ReadyAt          pgtype.Timestamptz
	PaidAt           pgtype.Timestamptz
	PrepMinutes      pgtype.Int4
}

const updateOrderStatus = `
UPDATE orders SET
	status = $3,
	cooking_started_at = COALESCE(cooking_started_at, $5),
	ready_at = COALESCE(ready_at, $6),
	paid_at = COALESCE(paid_at, $7),
	prep_minutes = COALESCE(prep_minutes, $8),
	updated_at = now()
WHERE id = $1 AND branch_id = $2 AND status = $4
RETURNING ` + orderColumns

// UpdateOrderStatus applies a validated transition with a
// compare-and-swap on the prior status: if another writer advanced the
// order in between, no row matches and pgx.ErrNoRows is returned.
// Milestone timestamps are set at most once via COALESCE.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID, arg.BranchID, arg.Status, arg.PriorStatus,
		arg.CookingStartedAt, arg.ReadyAt, arg.PaidAt, arg.PrepMinutes,
	)
	return scanOrder(row)
}

type CancelOrderParams struct {
	ID       int64
	BranchID int64
}

const cancelOrder = `
UPDATE orders SET status = 'CANCELLED', updated_at = now()
WHERE id = $1 AND branch_id = $2 AND status NOT IN ('PAID', 'CANCELLED')
RETURNING ` + orderColumns

// CancelOrder marks an order cancelled. The WHERE clause enforces the
// terminal-status precondition atomically.
func (q *Queries) CancelOrder(ctx context.Context, arg CancelOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, arg.ID, arg.BranchID))
}
