package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
)

var (
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidAmount        = errors.New("amount must be > 0")
	ErrInsufficientCash     = errors.New("amount_received is less than amount")
	ErrOrderNotPayable      = errors.New("order is not in a payable status")
)

// PaymentStore defines the DB methods payment recording needs.
type PaymentStore interface {
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	ListPaymentsByOrder(ctx context.Context, orderID int64) ([]database.Payment, error)
	SumPaymentsByOrder(ctx context.Context, orderID int64) (pgtype.Numeric, error)
}

// AddPaymentRequest is the validated input for recording a payment.
type AddPaymentRequest struct {
	BranchID        int64
	OrderID         int64
	ProcessedBy     int64
	PaymentMethod   string
	Amount          string
	AmountReceived  string // cash only; change is derived
	ReferenceNumber string // QRIS / transfer / card reference
}

// PaymentResult reports the recorded payment and, when the order's
// balance reached zero, the settled order.
type PaymentResult struct {
	Payment database.Payment
	Settled bool
	Order   *OrderDetail
}

// PaymentService records payments against in-service orders and
// settles the order once payments cover the total.
type PaymentService struct {
	store  PaymentStore
	orders *OrderService
}

func NewPaymentService(store PaymentStore, orders *OrderService) *PaymentService {
	return &PaymentService{store: store, orders: orders}
}

// Add validates and records a payment. Cash payments compute change
// from amount_received. When the completed payments total reaches the
// order total, the order transitions IN_SERVICE -> PAID, which also
// broadcasts the update.
func (s *PaymentService) Add(ctx context.Context, req AddPaymentRequest) (*PaymentResult, error) {
	if !isValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	detail, err := s.orders.GetDetail(ctx, req.BranchID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if detail.Order.Status != enum.OrderStatusInService {
		return nil, fmt.Errorf("%w: status is %s", ErrOrderNotPayable, detail.Order.Status)
	}

	received := amount
	change := decimal.Zero
	if req.PaymentMethod == enum.PaymentMethodCash && req.AmountReceived != "" {
		received, err = decimal.NewFromString(req.AmountReceived)
		if err != nil {
			return nil, ErrInvalidAmount
		}
		if received.LessThan(amount) {
			return nil, ErrInsufficientCash
		}
		change = received.Sub(amount)
	}

	reference := pgtype.Text{}
	if req.ReferenceNumber != "" {
		reference = pgtype.Text{String: req.ReferenceNumber, Valid: true}
	}

	payment, err := s.store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:         req.OrderID,
		PaymentMethod:   req.PaymentMethod,
		Amount:          decimalToNumeric(amount),
		AmountReceived:  decimalToNumeric(received),
		ChangeAmount:    decimalToNumeric(change),
		ReferenceNumber: reference,
		ProcessedBy:     req.ProcessedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	result := &PaymentResult{Payment: payment}

	paid, err := s.store.SumPaymentsByOrder(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	total := numericToDecimal(detail.Order.TotalAmount)
	if numericToDecimal(paid).GreaterThanOrEqual(total) {
		settled, err := s.orders.Transition(ctx, req.BranchID, req.OrderID, enum.OrderStatusPaid)
		if err != nil {
			// The payment row is already committed; surface the
			// settlement failure so the cashier can retry.
			return nil, fmt.Errorf("settle order: %w", err)
		}
		result.Settled = true
		result.Order = settled
	}

	return result, nil
}

// List returns all payments recorded against a branch-scoped order.
func (s *PaymentService) List(ctx context.Context, branchID, orderID int64) ([]database.Payment, error) {
	if _, err := s.orders.GetDetail(ctx, branchID, orderID); err != nil {
		return nil, err
	}
	return s.store.ListPaymentsByOrder(ctx, orderID)
}

func isValidPaymentMethod(m string) bool {
	switch m {
	case enum.PaymentMethodCash, enum.PaymentMethodQRIS,
		enum.PaymentMethodTransfer, enum.PaymentMethodCard:
		return true
	}
	return false
}
