package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/middleware"
	"github.com/dapur-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	Transition(ctx context.Context, branchID, orderID int64, target string) (*service.OrderDetail, error)
	Reopen(ctx context.Context, branchID, orderID int64) (*service.OrderDetail, error)
	TransitionGroup(ctx context.Context, branchID int64, orderIDs []int64, target string) []service.GroupResult
	Cancel(ctx context.Context, branchID, orderID int64) (*service.OrderDetail, error)
	GetDetail(ctx context.Context, branchID, orderID int64) (*service.OrderDetail, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetBranch(ctx context.Context, id int64) (database.Branch, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListKitchenOrders(ctx context.Context, branchID int64) ([]database.Order, error)
	CountOrdersForDay(ctx context.Context, arg database.CountOrdersForDayParams) (int64, error)
	ListPaymentsByOrder(ctx context.Context, orderID int64) ([]database.Payment, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/kitchen", h.Kitchen)
	r.Post("/group-status", h.GroupUpdateStatus)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/reopen", h.Reopen)
	r.Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType         string                   `json:"order_type"`
	TableID           int64                    `json:"table_id"`
	DeliveryPartnerID int64                    `json:"delivery_partner_id"`
	DiscountAmount    string                   `json:"discount_amount"`
	Items             []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID   int64   `json:"product_id"`
	Quantity    int32   `json:"quantity"`
	Remark      string  `json:"remark"`
	ModifierIDs []int64 `json:"modifier_ids"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type groupStatusRequest struct {
	OrderIDs []int64 `json:"order_ids"`
	Status   string  `json:"status"`
}

type groupStatusResult struct {
	OrderID int64                 `json:"order_id"`
	Order   *service.OrderPayload `json:"order,omitempty"`
	Error   string                `json:"error,omitempty"`
}

type groupStatusResponse struct {
	Results []groupStatusResult `json:"results"`
}

type paymentResponse struct {
	ID              int64     `json:"id"`
	OrderID         int64     `json:"order_id"`
	PaymentMethod   string    `json:"payment_method"`
	Amount          string    `json:"amount"`
	AmountReceived  string    `json:"amount_received"`
	ChangeAmount    string    `json:"change_amount"`
	ReferenceNumber *string   `json:"reference_number"`
	Status          string    `json:"status"`
	ProcessedBy     int64     `json:"processed_by"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// orderDetailResponse extends the order payload with payments for the
// GET detail endpoint.
type orderDetailResponse struct {
	service.OrderPayload
	Payments []paymentResponse `json:"payments"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []service.OrderPayload `json:"orders"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// kitchenResponse is the kitchen display's snapshot: the open tickets
// plus the total issued today, so the display can continue local
// numbering for events that arrive without a sequence.
type kitchenResponse struct {
	Orders     []service.OrderPayload `json:"orders"`
	TotalCount int64                  `json:"total_count"`
}

// --- Handlers ---

// Create handles POST /branches/{bid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.OrderType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_type is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	for i, item := range req.Items {
		if item.ProductID == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "product_id is required"),
			})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "quantity must be > 0"),
			})
			return
		}
	}

	detail, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		BranchID:          branchID,
		CreatedBy:         claims.UserID,
		OrderType:         req.OrderType,
		TableID:           req.TableID,
		DeliveryPartnerID: req.DeliveryPartnerID,
		DiscountAmount:    req.DiscountAmount,
		Items:             toServiceItems(req.Items),
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, service.ToOrderPayload(detail))
}

// List handles GET /branches/{bid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		BranchID: branchID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		if !service.IsValidStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("type"); s != "" {
		params.OrderType = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]service.OrderPayload, len(orders))
	for i, o := range orders {
		resp[i] = service.ToOrderPayload(&service.OrderDetail{Order: o})
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Kitchen handles GET /branches/{bid}/orders/kitchen.
func (h *OrderHandler) Kitchen(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}

	orders, err := h.store.ListKitchenOrders(r.Context(), branchID)
	if err != nil {
		log.Printf("ERROR: list kitchen orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Count against the branch's calendar day, the same day assignment
	// uses for sequence_date.
	var tz string
	if branch, err := h.store.GetBranch(r.Context(), branchID); err == nil {
		tz = branch.Timezone
	}
	count, err := h.store.CountOrdersForDay(r.Context(), database.CountOrdersForDayParams{
		BranchID:     branchID,
		SequenceDate: service.BranchDay(time.Now(), tz),
	})
	if err != nil {
		log.Printf("ERROR: count orders for day: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]service.OrderPayload, len(orders))
	for i, o := range orders {
		resp[i] = service.ToOrderPayload(&service.OrderDetail{Order: o})
	}

	writeJSON(w, http.StatusOK, kitchenResponse{Orders: resp, TotalCount: count})
}

// Get handles GET /branches/{bid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	detail, err := h.svc.GetDetail(r.Context(), branchID, orderID)
	if err != nil {
		respondOrderError(w, "get order", err)
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	paymentResps := make([]paymentResponse, len(payments))
	for i, p := range payments {
		paymentResps[i] = toPaymentResponse(p)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		OrderPayload: service.ToOrderPayload(detail),
		Payments:     paymentResps,
	})
}

// UpdateStatus handles PATCH /branches/{bid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	detail, err := h.svc.Transition(r.Context(), branchID, orderID, req.Status)
	if err != nil {
		respondOrderError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, service.ToOrderPayload(detail))
}

// Reopen handles POST /branches/{bid}/orders/{id}/reopen: sends a
// mistakenly-bumped READY ticket back to the kitchen.
func (h *OrderHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	detail, err := h.svc.Reopen(r.Context(), branchID, orderID)
	if err != nil {
		respondOrderError(w, "reopen order", err)
		return
	}

	writeJSON(w, http.StatusOK, service.ToOrderPayload(detail))
}

// GroupUpdateStatus handles POST /branches/{bid}/orders/group-status:
// advances every ticket of a table in one action. Orders succeed or
// fail individually; the response reports each outcome.
func (h *OrderHandler) GroupUpdateStatus(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}

	var req groupStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.OrderIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_ids are required"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	results := h.svc.TransitionGroup(r.Context(), branchID, req.OrderIDs, req.Status)

	resp := groupStatusResponse{Results: make([]groupStatusResult, len(results))}
	status := http.StatusOK
	for i, res := range results {
		out := groupStatusResult{OrderID: res.OrderID}
		if res.Err != nil {
			out.Error = res.Err.Error()
			status = http.StatusMultiStatus
		} else {
			p := service.ToOrderPayload(res.Detail)
			out.Order = &p
		}
		resp.Results[i] = out
	}

	writeJSON(w, status, resp)
}

// Cancel handles DELETE /branches/{bid}/orders/{id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	detail, err := h.svc.Cancel(r.Context(), branchID, orderID)
	if err != nil {
		respondOrderError(w, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, service.ToOrderPayload(detail))
}

// --- Helpers ---

func branchIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bid"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return 0, false
	}
	return id, true
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return 0, false
	}
	return id, true
}

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

func toServiceItems(items []createOrderItemRequest) []service.CreateOrderItemRequest {
	out := make([]service.CreateOrderItemRequest, len(items))
	for i, item := range items {
		out[i] = service.CreateOrderItemRequest{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			Remark:      item.Remark,
			ModifierIDs: item.ModifierIDs,
		}
	}
	return out
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidOrderType) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidDiscount) ||
		errors.Is(err, service.ErrProductNotFound) ||
		errors.Is(err, service.ErrProductUnavailable) ||
		errors.Is(err, service.ErrModifierNotFound) ||
		errors.Is(err, service.ErrModifierMismatch) ||
		errors.Is(err, service.ErrTableNotFound) ||
		errors.Is(err, service.ErrDeliveryPartnerRequired) ||
		errors.Is(err, service.ErrDeliveryPartnerNotFound)
}

// respondOrderError maps service errors from lifecycle operations onto
// HTTP statuses: unknown order -> 404, illegal move or lost race -> 409.
func respondOrderError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrStatusChanged):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toPaymentResponse(p database.Payment) paymentResponse {
	resp := paymentResponse{
		ID:             p.ID,
		OrderID:        p.OrderID,
		PaymentMethod:  p.PaymentMethod,
		Amount:         numericToString(p.Amount),
		AmountReceived: numericToString(p.AmountReceived),
		ChangeAmount:   numericToString(p.ChangeAmount),
		Status:         p.Status,
		ProcessedBy:    p.ProcessedBy,
		ProcessedAt:    p.ProcessedAt,
	}
	if p.ReferenceNumber.Valid {
		resp.ReferenceNumber = &p.ReferenceNumber.String
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
