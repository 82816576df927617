package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/dapur-pos/api/internal/database"
)

// TableStore defines the database methods needed by table handlers.
type TableStore interface {
	ListTables(ctx context.Context, branchID int64) ([]database.Table, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error)
}

// TableHandler handles table endpoints, including the printable QR
// code that customers scan to reach the self-ordering page.
type TableHandler struct {
	store       TableStore
	orderingURL string
}

// NewTableHandler creates a new TableHandler. orderingURL is the public
// base URL of the customer ordering frontend.
func NewTableHandler(store TableStore, orderingURL string) *TableHandler {
	return &TableHandler{store: store, orderingURL: orderingURL}
}

// RegisterRoutes registers table endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/tables
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{tid}/qr", h.QR)
}

type tableResponse struct {
	ID       int64  `json:"id"`
	BranchID int64  `json:"branch_id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
}

type tableListResponse struct {
	Tables []tableResponse `json:"tables"`
}

// List handles GET /branches/{bid}/tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}

	tables, err := h.store.ListTables(r.Context(), branchID)
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := tableListResponse{Tables: make([]tableResponse, len(tables))}
	for i, t := range tables {
		resp.Tables[i] = tableResponse{ID: t.ID, BranchID: t.BranchID, Code: t.Code, Name: t.Name}
	}

	writeJSON(w, http.StatusOK, resp)
}

// QR handles GET /branches/{bid}/tables/{tid}/qr. Returns a PNG linking
// to the ordering page for this table, sized for printing on a stand.
func (h *TableHandler) QR(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchIDParam(w, r)
	if !ok {
		return
	}

	tableID, err := strconv.ParseInt(chi.URLParam(r, "tid"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.GetTable(r.Context(), database.GetTableParams{ID: tableID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	url := fmt.Sprintf("%s/t/%s", h.orderingURL, table.Code)
	png, err := qrcode.Encode(url, qrcode.Medium, 512)
	if err != nil {
		log.Printf("ERROR: encode qr code: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", table.Code+".png"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		log.Printf("ERROR: write qr response: %v", err)
	}
}
