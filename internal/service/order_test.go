package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { return m.commitErr }
func (m *mockTx) Rollback(ctx context.Context) error        { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getBranchFn            func(ctx context.Context, id int64) (database.Branch, error)
	getTableFn             func(ctx context.Context, arg database.GetTableParams) (database.Table, error)
	getDeliveryPartnerFn   func(ctx context.Context, arg database.GetDeliveryPartnerParams) (database.DeliveryPartner, error)
	getProductForOrderFn   func(ctx context.Context, arg database.GetProductForOrderParams) (database.GetProductForOrderRow, error)
	getModifierForOrderFn  func(ctx context.Context, id int64) (database.GetModifierForOrderRow, error)
	getNextDailySequenceFn func(ctx context.Context, arg database.GetNextDailySequenceParams) (int32, error)
	createOrderFn          func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn      func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	createOrderItemModFn   func(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error)
	getOrderFn             func(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	updateOrderStatusFn    func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	cancelOrderFn          func(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	listOrderItemsFn       func(ctx context.Context, orderID int64) ([]database.OrderItem, error)
	listOrderItemModsFn    func(ctx context.Context, orderItemID int64) ([]database.OrderItemModifier, error)
}

func (m *mockOrderStore) GetBranch(ctx context.Context, id int64) (database.Branch, error) {
	return m.getBranchFn(ctx, id)
}
func (m *mockOrderStore) GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error) {
	return m.getTableFn(ctx, arg)
}
func (m *mockOrderStore) GetDeliveryPartner(ctx context.Context, arg database.GetDeliveryPartnerParams) (database.DeliveryPartner, error) {
	return m.getDeliveryPartnerFn(ctx, arg)
}
func (m *mockOrderStore) GetProductForOrder(ctx context.Context, arg database.GetProductForOrderParams) (database.GetProductForOrderRow, error) {
	return m.getProductForOrderFn(ctx, arg)
}
func (m *mockOrderStore) GetModifierForOrder(ctx context.Context, id int64) (database.GetModifierForOrderRow, error) {
	return m.getModifierForOrderFn(ctx, id)
}
func (m *mockOrderStore) GetNextDailySequence(ctx context.Context, arg database.GetNextDailySequenceParams) (int32, error) {
	return m.getNextDailySequenceFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error) {
	return m.createOrderItemModFn(ctx, arg)
}
func (m *mockOrderStore) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return m.getOrderFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockOrderStore) CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
	return m.cancelOrderFn(ctx, arg)
}
func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error) {
	return m.listOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID int64) ([]database.OrderItemModifier, error) {
	return m.listOrderItemModsFn(ctx, orderItemID)
}

// mockPublisher records emitted events.
type mockPublisher struct {
	created []int64 // branch IDs
	updated []int64 // order IDs
}

func (m *mockPublisher) OrderCreated(branchID int64, payload any) {
	m.created = append(m.created, branchID)
}
func (m *mockPublisher) OrderUpdated(branchID, orderID int64, payload any) {
	m.updated = append(m.updated, orderID)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// newTestService creates an OrderService with mocked dependencies.
// store backs both the transactional and the plain query paths.
func newTestService(store *mockOrderStore) (*OrderService, *mockPublisher) {
	pool := &mockTxBeginner{tx: &mockTx{}}
	newStore := func(tx pgx.Tx) OrderStore { return store }
	pub := &mockPublisher{}
	return NewOrderService(pool, store, newStore, pub), pub
}

// defaultStore returns a mockOrderStore with sensible defaults for a
// basic two-item order at branch 1 with product 10. Individual tests
// override the functions they care about.
func defaultStore() *mockOrderStore {
	var nextItemID int64
	return &mockOrderStore{
		getBranchFn: func(ctx context.Context, id int64) (database.Branch, error) {
			return database.Branch{ID: id, Name: "Pusat", Timezone: "Asia/Jakarta"}, nil
		},
		getTableFn: func(ctx context.Context, arg database.GetTableParams) (database.Table, error) {
			if arg.ID == 5 && arg.BranchID == 1 {
				return database.Table{ID: 5, BranchID: 1, Code: "T5", Name: "Table 5"}, nil
			}
			return database.Table{}, pgx.ErrNoRows
		},
		getDeliveryPartnerFn: func(ctx context.Context, arg database.GetDeliveryPartnerParams) (database.DeliveryPartner, error) {
			if arg.ID == 3 && arg.BranchID == 1 {
				return database.DeliveryPartner{ID: 3, BranchID: 1, Name: "GoFood"}, nil
			}
			return database.DeliveryPartner{}, pgx.ErrNoRows
		},
		getProductForOrderFn: func(ctx context.Context, arg database.GetProductForOrderParams) (database.GetProductForOrderRow, error) {
			if arg.ID == 10 && arg.BranchID == 1 {
				return database.GetProductForOrderRow{
					ID:        10,
					Name:      "Nasi Goreng",
					Price:     makeNumeric("25000.00"),
					Available: true,
				}, nil
			}
			return database.GetProductForOrderRow{}, pgx.ErrNoRows
		},
		getModifierForOrderFn: func(ctx context.Context, id int64) (database.GetModifierForOrderRow, error) {
			if id == 100 {
				return database.GetModifierForOrderRow{
					ID: 100, ProductID: 10, Name: "Extra Telur", Price: makeNumeric("5000.00"),
				}, nil
			}
			if id == 200 {
				return database.GetModifierForOrderRow{
					ID: 200, ProductID: 99, Name: "Wrong Product", Price: makeNumeric("1000.00"),
				}, nil
			}
			return database.GetModifierForOrderRow{}, pgx.ErrNoRows
		},
		getNextDailySequenceFn: func(ctx context.Context, arg database.GetNextDailySequenceParams) (int32, error) {
			return 1, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:                42,
				BranchID:          arg.BranchID,
				TableID:           arg.TableID,
				DeliveryPartnerID: arg.DeliveryPartnerID,
				CreatedBy:         arg.CreatedBy,
				OrderType:         arg.OrderType,
				Status:            enum.OrderStatusPending,
				Subtotal:          arg.Subtotal,
				DiscountAmount:    arg.DiscountAmount,
				TotalAmount:       arg.TotalAmount,
				DailySequence:     arg.DailySequence,
				SequenceDate:      arg.SequenceDate,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			nextItemID++
			return database.OrderItem{
				ID:          nextItemID,
				OrderID:     arg.OrderID,
				ProductID:   arg.ProductID,
				ProductName: arg.ProductName,
				Quantity:    arg.Quantity,
				UnitPrice:   arg.UnitPrice,
				Subtotal:    arg.Subtotal,
				Remark:      arg.Remark,
			}, nil
		},
		createOrderItemModFn: func(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error) {
			return database.OrderItemModifier{
				ID:          1,
				OrderItemID: arg.OrderItemID,
				ModifierID:  arg.ModifierID,
				Name:        arg.Name,
				Price:       arg.Price,
			}, nil
		},
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
		cancelOrderFn: func(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
		listOrderItemsFn: func(ctx context.Context, orderID int64) ([]database.OrderItem, error) {
			return nil, nil
		},
		listOrderItemModsFn: func(ctx context.Context, orderItemID int64) ([]database.OrderItemModifier, error) {
			return nil, nil
		},
	}
}

func basicReq() CreateOrderRequest {
	return CreateOrderRequest{
		BranchID:  1,
		CreatedBy: 7,
		OrderType: enum.OrderTypeWalkIn,
		Items: []CreateOrderItemRequest{
			{ProductID: 10, Quantity: 2},
		},
	}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyItems(t *testing.T) {
	svc, _ := newTestService(defaultStore())

	req := basicReq()
	req.Items = nil
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got: %v", err)
	}
}

func TestCreateOrder_InvalidOrderType(t *testing.T) {
	svc, _ := newTestService(defaultStore())

	req := basicReq()
	req.OrderType = "INVALID"
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidOrderType) {
		t.Fatalf("expected ErrInvalidOrderType, got: %v", err)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	svc, _ := newTestService(defaultStore())

	req := basicReq()
	req.Items[0].Quantity = 0
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	svc, _ := newTestService(defaultStore())

	req := basicReq()
	req.Items[0].ProductID = 999
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got: %v", err)
	}
}

func TestCreateOrder_ProductUnavailable(t *testing.T) {
	store := defaultStore()
	store.getProductForOrderFn = func(ctx context.Context, arg database.GetProductForOrderParams) (database.GetProductForOrderRow, error) {
		return database.GetProductForOrderRow{ID: 10, Name: "Nasi Goreng", Price: makeNumeric("25000.00"), Available: false}, nil
	}
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), basicReq())
	if !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("expected ErrProductUnavailable, got: %v", err)
	}
}

func TestCreateOrder_ModifierMismatch(t *testing.T) {
	svc, _ := newTestService(defaultStore())

	req := basicReq()
	req.Items[0].ModifierIDs = []int64{200} // belongs to product 99
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrModifierMismatch) {
		t.Fatalf("expected ErrModifierMismatch, got: %v", err)
	}
}

func TestCreateOrder_TableNotFound(t *testing.T) {
	svc, _ := newTestService(defaultStore())

	req := basicReq()
	req.TableID = 999
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got: %v", err)
	}
}

func TestCreateOrder_DeliveryRequiresPartner(t *testing.T) {
	svc, _ := newTestService(defaultStore())

	req := basicReq()
	req.OrderType = enum.OrderTypeDelivery
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrDeliveryPartnerRequired) {
		t.Fatalf("expected ErrDeliveryPartnerRequired, got: %v", err)
	}
}

func TestCreateOrder_NegativeDiscount(t *testing.T) {
	svc, _ := newTestService(defaultStore())

	req := basicReq()
	req.DiscountAmount = "-5000"
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got: %v", err)
	}
}

// =====================
// Creation tests
// =====================

func TestCreateOrder_PriceSnapshot(t *testing.T) {
	var created database.CreateOrderParams
	store := defaultStore()
	base := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		created = arg
		return base(ctx, arg)
	}
	svc, pub := newTestService(store)

	// 2 x 25000 + one 5000 modifier = 55000
	req := basicReq()
	req.Items[0].ModifierIDs = []int64{100}
	detail, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if !numericEquals(created.Subtotal, "55000.00") {
		t.Errorf("subtotal = %s, want 55000.00", numericToDecimal(created.Subtotal))
	}
	if !numericEquals(created.TotalAmount, "55000.00") {
		t.Errorf("total = %s, want 55000.00", numericToDecimal(created.TotalAmount))
	}
	if detail.Order.Status != enum.OrderStatusPending {
		t.Errorf("status = %s, want PENDING", detail.Order.Status)
	}
	if len(detail.Items) != 1 || detail.Items[0].Item.ProductName != "Nasi Goreng" {
		t.Errorf("item snapshot missing: %+v", detail.Items)
	}
	if len(pub.created) != 1 || pub.created[0] != 1 {
		t.Errorf("expected one order.created on branch 1, got %v", pub.created)
	}
}

func TestCreateOrder_DiscountClampedAtZero(t *testing.T) {
	var created database.CreateOrderParams
	store := defaultStore()
	base := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		created = arg
		return base(ctx, arg)
	}
	svc, _ := newTestService(store)

	req := basicReq()
	req.DiscountAmount = "100000"
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !numericEquals(created.TotalAmount, "0") {
		t.Errorf("total = %s, want 0", numericToDecimal(created.TotalAmount))
	}
}

func TestCreateOrder_AssignsDailySequence(t *testing.T) {
	store := defaultStore()
	store.getNextDailySequenceFn = func(ctx context.Context, arg database.GetNextDailySequenceParams) (int32, error) {
		if arg.BranchID != 1 {
			t.Errorf("sequence requested for branch %d, want 1", arg.BranchID)
		}
		return 17, nil
	}
	svc, _ := newTestService(store)

	detail, err := svc.CreateOrder(context.Background(), basicReq())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if detail.Order.DailySequence != 17 {
		t.Errorf("daily_sequence = %d, want 17", detail.Order.DailySequence)
	}
}

func TestBranchDay(t *testing.T) {
	// 20:00 UTC on March 1 is already March 2 in Jakarta (UTC+7)
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	day := BranchDay(now, "Asia/Jakarta")
	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !day.Valid || !day.Time.Equal(want) {
		t.Errorf("Asia/Jakarta day = %+v, want %v", day, want)
	}

	day = BranchDay(now, "UTC")
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !day.Valid || !day.Time.Equal(want) {
		t.Errorf("UTC day = %+v, want %v", day, want)
	}

	// unknown zones fall back rather than refusing the order
	if day := BranchDay(now, "Mars/Olympus"); !day.Valid {
		t.Error("fallback day not valid")
	}
}

func TestCreateOrder_RetriesOnSequenceConflict(t *testing.T) {
	conflict := &pgconn.PgError{Code: "23505", ConstraintName: "orders_branch_day_sequence_key"}
	attempts := 0
	store := defaultStore()
	base := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		attempts++
		if attempts < 3 {
			return database.Order{}, conflict
		}
		return base(ctx, arg)
	}
	svc, _ := newTestService(store)

	if _, err := svc.CreateOrder(context.Background(), basicReq()); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestCreateOrder_GivesUpAfterMaxRetries(t *testing.T) {
	conflict := &pgconn.PgError{Code: "23505", ConstraintName: "orders_branch_day_sequence_key"}
	store := defaultStore()
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, conflict
	}
	svc, pub := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), basicReq())
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected the conflict error to surface, got: %v", err)
	}
	if len(pub.created) != 0 {
		t.Errorf("no event should be emitted on failure, got %v", pub.created)
	}
}

// =====================
// Transition tests
// =====================

func transitionStore(current string) *mockOrderStore {
	store := defaultStore()
	order := database.Order{
		ID:        42,
		BranchID:  1,
		OrderType: enum.OrderTypeWalkIn,
		Status:    current,
		CreatedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	store.getOrderFn = func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
		if arg.ID == 42 && arg.BranchID == 1 {
			return order, nil
		}
		return database.Order{}, pgx.ErrNoRows
	}
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		if arg.PriorStatus != current {
			return database.Order{}, pgx.ErrNoRows
		}
		updated := order
		updated.Status = arg.Status
		updated.CookingStartedAt = arg.CookingStartedAt
		updated.ReadyAt = arg.ReadyAt
		updated.PaidAt = arg.PaidAt
		updated.PrepMinutes = arg.PrepMinutes
		return updated, nil
	}
	return store
}

func TestTransition_ValidAndInvalidPairs(t *testing.T) {
	// Forward moves may skip intermediate statuses; backward moves and
	// anything out of a terminal status are rejected.
	valid := map[string][]string{
		enum.OrderStatusPending:   {enum.OrderStatusConfirmed, enum.OrderStatusCooking, enum.OrderStatusReady, enum.OrderStatusInService, enum.OrderStatusPaid, enum.OrderStatusCancelled},
		enum.OrderStatusConfirmed: {enum.OrderStatusCooking, enum.OrderStatusReady, enum.OrderStatusInService, enum.OrderStatusPaid, enum.OrderStatusCancelled},
		enum.OrderStatusCooking:   {enum.OrderStatusReady, enum.OrderStatusInService, enum.OrderStatusPaid, enum.OrderStatusCancelled},
		enum.OrderStatusReady:     {enum.OrderStatusInService, enum.OrderStatusPaid, enum.OrderStatusCancelled},
		enum.OrderStatusInService: {enum.OrderStatusPaid, enum.OrderStatusCancelled},
		enum.OrderStatusPaid:      {},
		enum.OrderStatusCancelled: {},
	}

	for _, from := range enum.OrderStatuses {
		allowed := map[string]bool{}
		for _, to := range valid[from] {
			allowed[to] = true
		}
		for _, to := range enum.OrderStatuses {
			store := transitionStore(from)
			svc, _ := newTestService(store)
			_, err := svc.Transition(context.Background(), 1, 42, to)
			if allowed[to] && err != nil {
				t.Errorf("%s -> %s: unexpected error: %v", from, to, err)
			}
			if !allowed[to] && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got: %v", from, to, err)
			}
		}
	}
}

func TestTransition_SameStatusRejected(t *testing.T) {
	store := transitionStore(enum.OrderStatusCooking)
	svc, _ := newTestService(store)

	_, err := svc.Transition(context.Background(), 1, 42, enum.OrderStatusCooking)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got: %v", err)
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	svc, _ := newTestService(transitionStore(enum.OrderStatusPending))

	_, err := svc.Transition(context.Background(), 1, 42, "BURNT")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got: %v", err)
	}
}

func TestTransition_OrderNotFound(t *testing.T) {
	svc, _ := newTestService(transitionStore(enum.OrderStatusPending))

	_, err := svc.Transition(context.Background(), 1, 9999, enum.OrderStatusConfirmed)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestTransition_ConcurrentChange(t *testing.T) {
	store := transitionStore(enum.OrderStatusPending)
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		// someone else advanced the order between read and write
		return database.Order{}, pgx.ErrNoRows
	}
	svc, _ := newTestService(store)

	_, err := svc.Transition(context.Background(), 1, 42, enum.OrderStatusConfirmed)
	if !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got: %v", err)
	}
}

func TestTransition_CookingRecordsStartTime(t *testing.T) {
	store := transitionStore(enum.OrderStatusConfirmed)
	svc, _ := newTestService(store)
	now := time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	detail, err := svc.Transition(context.Background(), 1, 42, enum.OrderStatusCooking)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !detail.Order.CookingStartedAt.Valid || !detail.Order.CookingStartedAt.Time.Equal(now) {
		t.Errorf("cooking_started_at = %+v, want %v", detail.Order.CookingStartedAt, now)
	}
}

func TestTransition_ReadyRecordsPrepMinutes(t *testing.T) {
	store := transitionStore(enum.OrderStatusCooking)
	started := time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC)
	base := store.getOrderFn
	store.getOrderFn = func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
		order, err := base(ctx, arg)
		if err == nil {
			order.CookingStartedAt = pgtype.Timestamptz{Time: started, Valid: true}
		}
		return order, err
	}
	svc, pub := newTestService(store)
	svc.now = func() time.Time { return started.Add(12 * time.Minute) }

	detail, err := svc.Transition(context.Background(), 1, 42, enum.OrderStatusReady)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !detail.Order.PrepMinutes.Valid || detail.Order.PrepMinutes.Int32 != 12 {
		t.Errorf("prep_minutes = %+v, want 12", detail.Order.PrepMinutes)
	}
	if !detail.Order.ReadyAt.Valid {
		t.Error("ready_at not set")
	}
	if len(pub.updated) != 1 || pub.updated[0] != 42 {
		t.Errorf("expected one order.updated for order 42, got %v", pub.updated)
	}
}

func TestTransition_SkipsIntermediateStatuses(t *testing.T) {
	// a rushed walk-in goes straight from PENDING to COOKING
	store := transitionStore(enum.OrderStatusPending)
	svc, pub := newTestService(store)
	now := time.Date(2026, 3, 14, 10, 2, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	detail, err := svc.Transition(context.Background(), 1, 42, enum.OrderStatusCooking)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if detail.Order.Status != enum.OrderStatusCooking {
		t.Errorf("status = %s, want COOKING", detail.Order.Status)
	}
	if !detail.Order.CookingStartedAt.Valid || !detail.Order.CookingStartedAt.Time.Equal(now) {
		t.Errorf("cooking_started_at = %+v, want %v", detail.Order.CookingStartedAt, now)
	}
	if len(pub.updated) != 1 || pub.updated[0] != 42 {
		t.Errorf("expected one order.updated for order 42, got %v", pub.updated)
	}
}

func TestTransition_PrepMinutesFallsBackToCreation(t *testing.T) {
	// order rushed straight to READY without an explicit COOKING step
	store := transitionStore(enum.OrderStatusConfirmed)
	svc, _ := newTestService(store)
	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return created.Add(20 * time.Second) }

	detail, err := svc.Transition(context.Background(), 1, 42, enum.OrderStatusReady)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	// sub-minute prep rounds up to the 1-minute floor
	if !detail.Order.PrepMinutes.Valid || detail.Order.PrepMinutes.Int32 != 1 {
		t.Errorf("prep_minutes = %+v, want 1", detail.Order.PrepMinutes)
	}
}

func TestTransition_PaidRecordsTimestamp(t *testing.T) {
	store := transitionStore(enum.OrderStatusInService)
	svc, _ := newTestService(store)
	now := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	detail, err := svc.Transition(context.Background(), 1, 42, enum.OrderStatusPaid)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !detail.Order.PaidAt.Valid || !detail.Order.PaidAt.Time.Equal(now) {
		t.Errorf("paid_at = %+v, want %v", detail.Order.PaidAt, now)
	}
}

// =====================
// Reopen tests
// =====================

func TestReopen_ReadyBackToCooking(t *testing.T) {
	store := transitionStore(enum.OrderStatusReady)
	svc, pub := newTestService(store)

	detail, err := svc.Reopen(context.Background(), 1, 42)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if detail.Order.Status != enum.OrderStatusCooking {
		t.Errorf("status = %s, want COOKING", detail.Order.Status)
	}
	if len(pub.updated) != 1 {
		t.Errorf("expected one order.updated, got %v", pub.updated)
	}
}

func TestReopen_OnlyFromReady(t *testing.T) {
	for _, from := range []string{
		enum.OrderStatusPending, enum.OrderStatusConfirmed, enum.OrderStatusCooking,
		enum.OrderStatusInService, enum.OrderStatusPaid, enum.OrderStatusCancelled,
	} {
		store := transitionStore(from)
		svc, _ := newTestService(store)
		if _, err := svc.Reopen(context.Background(), 1, 42); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("reopen from %s: expected ErrInvalidTransition, got: %v", from, err)
		}
	}
}

// =====================
// Cancel tests
// =====================

func TestCancel_Succeeds(t *testing.T) {
	store := transitionStore(enum.OrderStatusCooking)
	store.cancelOrderFn = func(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
		return database.Order{ID: 42, BranchID: 1, Status: enum.OrderStatusCancelled}, nil
	}
	svc, pub := newTestService(store)

	detail, err := svc.Cancel(context.Background(), 1, 42)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if detail.Order.Status != enum.OrderStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", detail.Order.Status)
	}
	if len(pub.updated) != 1 {
		t.Errorf("expected one order.updated, got %v", pub.updated)
	}
}

func TestCancel_PaidOrderRejected(t *testing.T) {
	store := transitionStore(enum.OrderStatusPaid)
	svc, _ := newTestService(store)

	_, err := svc.Cancel(context.Background(), 1, 42)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got: %v", err)
	}
}

func TestCancel_NotFound(t *testing.T) {
	store := defaultStore()
	svc, _ := newTestService(store)

	_, err := svc.Cancel(context.Background(), 1, 9999)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

// =====================
// Group transition tests
// =====================

func TestTransitionGroup_PartialFailure(t *testing.T) {
	// orders 1 and 2 are READY; order 3 is already CANCELLED
	statuses := map[int64]string{1: enum.OrderStatusReady, 2: enum.OrderStatusReady, 3: enum.OrderStatusCancelled}
	store := defaultStore()
	store.getOrderFn = func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
		status, ok := statuses[arg.ID]
		if !ok {
			return database.Order{}, pgx.ErrNoRows
		}
		return database.Order{ID: arg.ID, BranchID: arg.BranchID, Status: status}, nil
	}
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		return database.Order{ID: arg.ID, BranchID: arg.BranchID, Status: arg.Status}, nil
	}
	svc, pub := newTestService(store)

	results := svc.TransitionGroup(context.Background(), 1, []int64{1, 2, 3}, enum.OrderStatusInService)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Err != nil || results[1].Err != nil {
		t.Errorf("orders 1 and 2 should succeed: %v, %v", results[0].Err, results[1].Err)
	}
	if !errors.Is(results[2].Err, ErrInvalidTransition) {
		t.Errorf("order 3: expected ErrInvalidTransition, got: %v", results[2].Err)
	}
	if len(pub.updated) != 2 {
		t.Errorf("expected 2 order.updated events, got %v", pub.updated)
	}
}
