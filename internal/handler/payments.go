package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/middleware"
	"github.com/dapur-pos/api/internal/service"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.PaymentService; narrow interface for testability.
type PaymentServicer interface {
	Add(ctx context.Context, req service.AddPaymentRequest) (*service.PaymentResult, error)
	List(ctx context.Context, branchID, orderID int64) ([]database.Payment, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc PaymentServicer
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter:
// /branches/{bid}/orders/{id}/payments
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Add)
	r.Get("/", h.List)
}

// --- Request / Response types ---

type addPaymentRequest struct {
	PaymentMethod   string `json:"payment_method"`
	Amount          string `json:"amount"`
	AmountReceived  string `json:"amount_received"`
	ReferenceNumber string `json:"reference_number"`
}

type addPaymentResponse struct {
	Payment paymentResponse       `json:"payment"`
	Settled bool                  `json:"settled"`
	Order   *service.OrderPayload `json:"order,omitempty"`
}

type paymentListResponse struct {
	Payments []paymentResponse `json:"payments"`
}

// --- Handlers ---

// Add handles POST /branches/{bid}/orders/{id}/payments. Recording a
// payment that covers the remaining balance settles the order to PAID.
func (h *PaymentHandler) Add(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req addPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.PaymentMethod == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_method is required"})
		return
	}
	if req.Amount == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount is required"})
		return
	}

	result, err := h.svc.Add(r.Context(), service.AddPaymentRequest{
		BranchID:        branchID,
		OrderID:         orderID,
		ProcessedBy:     claims.UserID,
		PaymentMethod:   req.PaymentMethod,
		Amount:          req.Amount,
		AmountReceived:  req.AmountReceived,
		ReferenceNumber: req.ReferenceNumber,
	})
	if err != nil {
		respondPaymentError(w, err)
		return
	}

	resp := addPaymentResponse{
		Payment: toPaymentResponse(result.Payment),
		Settled: result.Settled,
	}
	if result.Order != nil {
		p := service.ToOrderPayload(result.Order)
		resp.Order = &p
	}

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /branches/{bid}/orders/{id}/payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	payments, err := h.svc.List(r.Context(), branchID, orderID)
	if err != nil {
		respondPaymentError(w, err)
		return
	}

	resp := paymentListResponse{Payments: make([]paymentResponse, len(payments))}
	for i, p := range payments {
		resp.Payments[i] = toPaymentResponse(p)
	}

	writeJSON(w, http.StatusOK, resp)
}

func respondPaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInsufficientCash):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotPayable),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrStatusChanged):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: record payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
