package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, payment_method, amount, amount_received,
	change_amount, reference_number, status, processed_by, processed_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.PaymentMethod, &p.Amount, &p.AmountReceived,
		&p.ChangeAmount, &p.ReferenceNumber, &p.Status, &p.ProcessedBy, &p.ProcessedAt,
	)
	return p, err
}

type CreatePaymentParams struct {
	OrderID         int64
	PaymentMethod   string
	Amount          pgtype.Numeric
	AmountReceived  pgtype.Numeric
	ChangeAmount    pgtype.Numeric
	ReferenceNumber pgtype.Text
	ProcessedBy     int64
}

const createPayment = `
INSERT INTO payments (order_id, payment_method, amount, amount_received,
	change_amount, reference_number, status, processed_by)
VALUES ($1, $2, $3, $4, $5, $6, 'COMPLETED', $7)
RETURNING ` + paymentColumns

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrderID, arg.PaymentMethod, arg.Amount, arg.AmountReceived,
		arg.ChangeAmount, arg.ReferenceNumber, arg.ProcessedBy,
	)
	return scanPayment(row)
}

const listPaymentsByOrder = `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY processed_at`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

const sumPaymentsByOrder = `
SELECT COALESCE(SUM(amount), 0)
FROM payments
WHERE order_id = $1 AND status = 'COMPLETED'
`

func (q *Queries) SumPaymentsByOrder(ctx context.Context, orderID int64) (pgtype.Numeric, error) {
	var sum pgtype.Numeric
	err := q.db.QueryRow(ctx, sumPaymentsByOrder, orderID).Scan(&sum)
	return sum, err
}
