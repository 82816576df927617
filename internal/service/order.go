package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
)

const maxSequenceRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems              = errors.New("items are required")
	ErrInvalidOrderType        = errors.New("invalid order_type")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrInvalidQuantity         = errors.New("quantity must be > 0")
	ErrInvalidDiscount         = errors.New("invalid discount_amount")
	ErrProductNotFound         = errors.New("product not found in branch")
	ErrProductUnavailable      = errors.New("product is not available")
	ErrModifierNotFound        = errors.New("modifier not found")
	ErrModifierMismatch        = errors.New("modifier does not belong to product")
	ErrTableNotFound           = errors.New("table not found in branch")
	ErrDeliveryPartnerRequired = errors.New("delivery_partner_id is required for DELIVERY orders")
	ErrDeliveryPartnerNotFound = errors.New("delivery partner not found in branch")

	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrStatusChanged     = errors.New("order status changed, please retry")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetBranch(ctx context.Context, id int64) (database.Branch, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error)
	GetDeliveryPartner(ctx context.Context, arg database.GetDeliveryPartnerParams) (database.DeliveryPartner, error)
	GetProductForOrder(ctx context.Context, arg database.GetProductForOrderParams) (database.GetProductForOrderRow, error)
	GetModifierForOrder(ctx context.Context, id int64) (database.GetModifierForOrderRow, error)
	GetNextDailySequence(ctx context.Context, arg database.GetNextDailySequenceParams) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
	ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID int64) ([]database.OrderItemModifier, error)
}

// NewOrderStore creates a tx-scoped OrderStore, e.g. Queries.WithTx.
type NewOrderStore func(tx pgx.Tx) OrderStore

// EventPublisher fans lifecycle events out to subscribed views.
// Satisfied by *ws.Publisher. Best-effort: implementations never fail.
type EventPublisher interface {
	OrderCreated(branchID int64, payload any)
	OrderUpdated(branchID, orderID int64, payload any)
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	BranchID          int64
	CreatedBy         int64 // 0 for public QR-scan orders
	OrderType         string
	TableID           int64 // 0 when not table-bound
	DeliveryPartnerID int64 // required for DELIVERY orders
	DiscountAmount    string
	Items             []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single item in the order.
type CreateOrderItemRequest struct {
	ProductID   int64
	Quantity    int32
	Remark      string
	ModifierIDs []int64
}

// GroupResult is the outcome for one order of a grouped transition.
type GroupResult struct {
	OrderID int64
	Detail  *OrderDetail
	Err     error
}

// OrderService handles order lifecycle business logic.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
	pub      EventPublisher
	now      func() time.Time
}

// NewOrderService creates a new OrderService. store runs queries
// outside transactions; newStore builds tx-scoped stores for creation.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, pub EventPublisher) *OrderService {
	return &OrderService{
		pool:     pool,
		store:    store,
		newStore: newStore,
		pub:      pub,
		now:      time.Now,
	}
}

// --- Creation ---

// CreateOrder validates, snapshots prices, assigns the daily kitchen
// sequence, and inserts the order atomically. Retries on daily_sequence
// unique violations (concurrent transactions reading the same MAX),
// then emits order.created on the branch channel.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	if !isValidOrderType(req.OrderType) {
		return nil, ErrInvalidOrderType
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.OrderType == enum.OrderTypeDelivery && req.DeliveryPartnerID == 0 {
		return nil, ErrDeliveryPartnerRequired
	}

	discount := decimal.Zero
	if req.DiscountAmount != "" {
		d, err := decimal.NewFromString(req.DiscountAmount)
		if err != nil || d.IsNegative() {
			return nil, ErrInvalidDiscount
		}
		discount = d
	}

	var lastErr error
	for attempt := 0; attempt < maxSequenceRetries; attempt++ {
		detail, err := s.createOrderTx(ctx, req, discount)
		if err == nil {
			s.pub.OrderCreated(detail.Order.BranchID, ToOrderPayload(detail))
			return detail, nil
		}
		if isSequenceConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isSequenceConflict checks for a unique violation on the per-day
// kitchen sequence (pgconn error code 23505).
func isSequenceConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_branch_day_sequence_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, discount decimal.Decimal) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Resolve relations up front so broadcast payloads carry names.
	var tableName, partnerName string

	tableID := pgtype.Int8{}
	if req.TableID != 0 {
		table, err := store.GetTable(ctx, database.GetTableParams{ID: req.TableID, BranchID: req.BranchID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTableNotFound
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
		tableID = pgtype.Int8{Int64: table.ID, Valid: true}
		tableName = table.Name
	}

	partnerID := pgtype.Int8{}
	if req.DeliveryPartnerID != 0 {
		partner, err := store.GetDeliveryPartner(ctx, database.GetDeliveryPartnerParams{
			ID:       req.DeliveryPartnerID,
			BranchID: req.BranchID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrDeliveryPartnerNotFound
			}
			return nil, fmt.Errorf("get delivery partner: %w", err)
		}
		partnerID = pgtype.Int8{Int64: partner.ID, Valid: true}
		partnerName = partner.Name
	}

	// --- Process items: validate + snapshot prices ---
	subtotal := decimal.Zero
	var items []processedItem

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		product, err := store.GetProductForOrder(ctx, database.GetProductForOrderParams{
			ID:       item.ProductID,
			BranchID: req.BranchID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}
		if !product.Available {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrProductUnavailable)
		}

		unitPrice := numericToDecimal(product.Price)

		modifiersTotal := decimal.Zero
		var mods []modifierInfo
		for j, modID := range item.ModifierIDs {
			modifier, err := store.GetModifierForOrder(ctx, modID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("item[%d].modifiers[%d]: %w", i, j, ErrModifierNotFound)
				}
				return nil, fmt.Errorf("item[%d].modifiers[%d]: get modifier: %w", i, j, err)
			}
			if modifier.ProductID != item.ProductID {
				return nil, fmt.Errorf("item[%d].modifiers[%d]: %w", i, j, ErrModifierMismatch)
			}
			price := numericToDecimal(modifier.Price)
			modifiersTotal = modifiersTotal.Add(price)
			mods = append(mods, modifierInfo{
				modifierID: modifier.ID,
				name:       modifier.Name,
				price:      price,
			})
		}

		// line total = unit_price * quantity + modifiers (once per line)
		itemSubtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity)).Add(modifiersTotal)
		subtotal = subtotal.Add(itemSubtotal)

		remark := pgtype.Text{}
		if item.Remark != "" {
			remark = pgtype.Text{String: item.Remark, Valid: true}
		}

		items = append(items, processedItem{
			params: database.CreateOrderItemParams{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				UnitPrice:   decimalToNumeric(unitPrice),
				Subtotal:    decimalToNumeric(itemSubtotal),
				Remark:      remark,
			},
			modifiers: mods,
		})
	}

	// total = subtotal - discount, never negative
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	// --- Assign the daily kitchen sequence (branch-local day) ---
	seqDate := s.sequenceDate(ctx, store, req.BranchID)
	nextSeq, err := store.GetNextDailySequence(ctx, database.GetNextDailySequenceParams{
		BranchID:     req.BranchID,
		SequenceDate: seqDate,
	})
	if err != nil {
		return nil, fmt.Errorf("get next daily sequence: %w", err)
	}

	createdBy := pgtype.Int8{}
	if req.CreatedBy != 0 {
		createdBy = pgtype.Int8{Int64: req.CreatedBy, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		BranchID:          req.BranchID,
		TableID:           tableID,
		DeliveryPartnerID: partnerID,
		CreatedBy:         createdBy,
		OrderType:         req.OrderType,
		Subtotal:          decimalToNumeric(subtotal),
		DiscountAmount:    decimalToNumeric(discount),
		TotalAmount:       decimalToNumeric(total),
		DailySequence:     nextSeq,
		SequenceDate:      seqDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var itemDetails []OrderItemDetail
	for _, pi := range items {
		pi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		var modResults []database.OrderItemModifier
		for _, mod := range pi.modifiers {
			oim, err := store.CreateOrderItemModifier(ctx, database.CreateOrderItemModifierParams{
				OrderItemID: item.ID,
				ModifierID:  mod.modifierID,
				Name:        mod.name,
				Price:       decimalToNumeric(mod.price),
			})
			if err != nil {
				return nil, fmt.Errorf("create order item modifier: %w", err)
			}
			modResults = append(modResults, oim)
		}

		itemDetails = append(itemDetails, OrderItemDetail{Item: item, Modifiers: modResults})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderDetail{
		Order:               order,
		Items:               itemDetails,
		TableName:           tableName,
		DeliveryPartnerName: partnerName,
	}, nil
}

// sequenceDate computes "today" in the branch's timezone. Falls back to
// server-local time when the branch or its timezone cannot be resolved.
func (s *OrderService) sequenceDate(ctx context.Context, store OrderStore, branchID int64) pgtype.Date {
	var tz string
	if branch, err := store.GetBranch(ctx, branchID); err == nil {
		tz = branch.Timezone
	}
	return BranchDay(s.now(), tz)
}

// BranchDay returns the calendar day at instant now in the given IANA
// timezone, stored as a UTC-midnight date. Every reader of sequence_date
// must resolve the day this way or counts straddle midnight. Falls back
// to server-local time when the timezone cannot be resolved.
func BranchDay(now time.Time, timezone string) pgtype.Date {
	loc := time.Local
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}
	t := now.In(loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return pgtype.Date{Time: day, Valid: true}
}

// --- Transitions ---

// Transition validates and applies a status change, recording timing
// milestones, then emits order.updated on the branch and order channels.
// A concurrent writer that advanced the order first causes
// ErrStatusChanged instead of a silent overwrite.
func (s *OrderService) Transition(ctx context.Context, branchID, orderID int64, target string) (*OrderDetail, error) {
	if !IsValidStatus(target) {
		return nil, ErrInvalidStatus
	}

	current, err := s.store.GetOrder(ctx, database.GetOrderParams{ID: orderID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := ValidateTransition(current.Status, target); err != nil {
		return nil, err
	}

	return s.applyTransition(ctx, current, target)
}

// Reopen moves a READY order back to COOKING. Allowed only from the
// kitchen history view; cooking_started_at keeps its original value so
// the recorded prep time reflects the first pass.
func (s *OrderService) Reopen(ctx context.Context, branchID, orderID int64) (*OrderDetail, error) {
	current, err := s.store.GetOrder(ctx, database.GetOrderParams{ID: orderID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if current.Status != enum.OrderStatusReady {
		return nil, fmt.Errorf("%w: can only reopen a READY order, not %s", ErrInvalidTransition, current.Status)
	}

	return s.applyTransition(ctx, current, enum.OrderStatusCooking)
}

// TransitionGroup advances several orders (one table's ticket group)
// independently. Each order succeeds or fails on its own; a failure on
// one never rolls back the others, and every outcome is reported.
func (s *OrderService) TransitionGroup(ctx context.Context, branchID int64, orderIDs []int64, target string) []GroupResult {
	results := make([]GroupResult, len(orderIDs))
	for i, id := range orderIDs {
		detail, err := s.Transition(ctx, branchID, id, target)
		results[i] = GroupResult{OrderID: id, Detail: detail, Err: err}
	}
	return results
}

// Cancel marks an order cancelled. Cancellation is a terminal status,
// not a delete; PAID and already-CANCELLED orders are rejected.
func (s *OrderService) Cancel(ctx context.Context, branchID, orderID int64) (*OrderDetail, error) {
	order, err := s.store.CancelOrder(ctx, database.CancelOrderParams{ID: orderID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the order doesn't exist or it is already terminal.
			current, fetchErr := s.store.GetOrder(ctx, database.GetOrderParams{ID: orderID, BranchID: branchID})
			if fetchErr != nil {
				if errors.Is(fetchErr, pgx.ErrNoRows) {
					return nil, ErrOrderNotFound
				}
				return nil, fmt.Errorf("get order: %w", fetchErr)
			}
			return nil, fmt.Errorf("%w: cannot cancel a %s order", ErrInvalidTransition, current.Status)
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	detail, err := s.loadDetail(ctx, order)
	if err != nil {
		return nil, err
	}
	s.pub.OrderUpdated(order.BranchID, order.ID, ToUpdateEvent(detail))
	return detail, nil
}

// applyTransition persists a validated transition via compare-and-swap
// and publishes the update event.
func (s *OrderService) applyTransition(ctx context.Context, current database.Order, target string) (*OrderDetail, error) {
	now := s.now()
	params := database.UpdateOrderStatusParams{
		ID:          current.ID,
		BranchID:    current.BranchID,
		Status:      target,
		PriorStatus: current.Status,
	}

	switch target {
	case enum.OrderStatusCooking:
		params.CookingStartedAt = pgtype.Timestamptz{Time: now, Valid: true}
	case enum.OrderStatusReady:
		params.ReadyAt = pgtype.Timestamptz{Time: now, Valid: true}
		params.PrepMinutes = pgtype.Int4{Int32: prepMinutes(current, now), Valid: true}
	case enum.OrderStatusPaid:
		params.PaidAt = pgtype.Timestamptz{Time: now, Valid: true}
	}

	order, err := s.store.UpdateOrderStatus(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	detail, err := s.loadDetail(ctx, order)
	if err != nil {
		return nil, err
	}
	s.pub.OrderUpdated(order.BranchID, order.ID, ToUpdateEvent(detail))
	return detail, nil
}

// prepMinutes derives the kitchen's actual prep duration in whole
// minutes: ready time minus cooking start (or creation time when the
// order was never explicitly moved to COOKING), clamped to at least 1.
func prepMinutes(order database.Order, readyAt time.Time) int32 {
	start := order.CreatedAt
	if order.CookingStartedAt.Valid {
		start = order.CookingStartedAt.Time
	}
	mins := int32(readyAt.Sub(start).Round(time.Minute) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return mins
}

// --- Detail loading ---

// GetDetail loads an order with its items, modifier snapshots, and
// relation names, branch-scoped.
func (s *OrderService) GetDetail(ctx context.Context, branchID, orderID int64) (*OrderDetail, error) {
	order, err := s.store.GetOrder(ctx, database.GetOrderParams{ID: orderID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return s.loadDetail(ctx, order)
}

func (s *OrderService) loadDetail(ctx context.Context, order database.Order) (*OrderDetail, error) {
	items, err := s.store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	details := make([]OrderItemDetail, len(items))
	for i, item := range items {
		mods, err := s.store.ListOrderItemModifiersByOrderItem(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("list order item modifiers: %w", err)
		}
		details[i] = OrderItemDetail{Item: item, Modifiers: mods}
	}

	detail := &OrderDetail{Order: order, Items: details}

	if order.TableID.Valid {
		table, err := s.store.GetTable(ctx, database.GetTableParams{ID: order.TableID.Int64, BranchID: order.BranchID})
		if err == nil {
			detail.TableName = table.Name
		}
	}
	if order.DeliveryPartnerID.Valid {
		partner, err := s.store.GetDeliveryPartner(ctx, database.GetDeliveryPartnerParams{
			ID:       order.DeliveryPartnerID.Int64,
			BranchID: order.BranchID,
		})
		if err == nil {
			detail.DeliveryPartnerName = partner.Name
		}
	}

	return detail, nil
}

// --- Helpers ---

type modifierInfo struct {
	modifierID int64
	name       string
	price      decimal.Decimal
}

type processedItem struct {
	params    database.CreateOrderItemParams
	modifiers []modifierInfo
}

func isValidOrderType(s string) bool {
	switch s {
	case enum.OrderTypeWalkIn, enum.OrderTypeQRScan,
		enum.OrderTypeTakeaway, enum.OrderTypeDelivery:
		return true
	}
	return false
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
