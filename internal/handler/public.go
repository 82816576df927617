package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/service"
)

// PublicStore defines the database methods needed by the unauthenticated
// customer-facing handlers.
type PublicStore interface {
	GetTableByCode(ctx context.Context, code string) (database.Table, error)
	GetOrderByID(ctx context.Context, id int64) (database.Order, error)
}

// PublicHandler serves the customer self-ordering flow: resolve a
// scanned table code, place an order, and follow its status. No
// authentication; the order URL itself is the capability.
type PublicHandler struct {
	svc   OrderServicer
	store PublicStore
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(svc OrderServicer, store PublicStore) *PublicHandler {
	return &PublicHandler{svc: svc, store: store}
}

// RegisterRoutes registers public endpoints on the given Chi router.
func (h *PublicHandler) RegisterRoutes(r chi.Router) {
	r.Get("/public/tables/{code}", h.ResolveTable)
	r.Post("/public/tables/{code}/orders", h.CreateOrder)
	r.Get("/public/orders/{id}", h.GetOrder)
}

// --- Request / Response types ---

type publicTableResponse struct {
	BranchID  int64  `json:"branch_id"`
	TableID   int64  `json:"table_id"`
	TableName string `json:"table_name"`
}

type publicOrderRequest struct {
	Items []createOrderItemRequest `json:"items"`
}

// --- Handlers ---

// ResolveTable handles GET /public/tables/{code}: maps a scanned QR
// code onto the branch and table the customer is sitting at.
func (h *PublicHandler) ResolveTable(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing table code"})
		return
	}

	table, err := h.store.GetTableByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table by code: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, publicTableResponse{
		BranchID:  table.BranchID,
		TableID:   table.ID,
		TableName: table.Name,
	})
}

// CreateOrder handles POST /public/tables/{code}/orders: a customer
// places a QR-scan order from their own phone. The branch and table are
// derived from the code, never from the request body.
func (h *PublicHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	table, err := h.store.GetTableByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table by code: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var req publicOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
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
		BranchID:  table.BranchID,
		OrderType: enum.OrderTypeQRScan,
		TableID:   table.ID,
		Items:     toServiceItems(req.Items),
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create public order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, service.ToOrderPayload(detail))
}

// GetOrder handles GET /public/orders/{id}: the customer status page
// polls or hydrates here before subscribing to live updates.
func (h *PublicHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrderByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get public order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	detail, err := h.svc.GetDetail(r.Context(), order.BranchID, order.ID)
	if err != nil {
		respondOrderError(w, "get public order detail", err)
		return
	}

	writeJSON(w, http.StatusOK, service.ToOrderPayload(detail))
}
