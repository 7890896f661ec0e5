package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"order-desk/internal/app"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService the routes delegate to.
type Handler struct {
	svc app.ApplicationService
	log *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	r.Get("/api/health", h.health)

	// ── Orders ────────────────────────────────────────────────────────────────
	r.Post("/api/orders/totals", h.apiPreviewTotals)
	r.Get("/api/orders", h.apiListOrders)
	r.Post("/api/orders", h.apiCreateOrder)
	r.Get("/api/orders/{id}", h.apiGetOrder)
	r.Put("/api/orders/{id}", h.apiUpdateOrder)
	r.Post("/api/orders/{id}/cancel", h.apiCancelOrder)
	r.Get("/api/orders/{id}/settlement", h.apiOrderSettlement)
	r.Get("/api/orders/{id}/document", h.apiOrderDocument)

	// ── Payments ──────────────────────────────────────────────────────────────
	r.Get("/api/payments", h.apiListPayments)
	r.Post("/api/payments", h.apiRecordPayment)
	r.Post("/api/payments/{id}/cancel", h.apiCancelPayment)

	// ── Catalog ───────────────────────────────────────────────────────────────
	r.Get("/api/customers", h.apiListCustomers)
	r.Post("/api/customers", h.apiCreateCustomer)
	r.Get("/api/customers/{id}", h.apiGetCustomer)
	r.Delete("/api/customers/{id}", h.apiDeactivateCustomer)
	r.Get("/api/customers/{id}/statement", h.apiCustomerStatement)
	r.Get("/api/products", h.apiListProducts)
	r.Post("/api/products", h.apiCreateProduct)
	r.Get("/api/products/{id}", h.apiGetProduct)
	r.Delete("/api/products/{id}", h.apiDeactivateProduct)
	r.Put("/api/products/{id}/price", h.apiUpdateProductPrice)
	r.Post("/api/products/{id}/stock", h.apiAdjustStock)

	// ── Expenses ──────────────────────────────────────────────────────────────
	r.Get("/api/expense-types", h.apiListExpenseTypes)
	r.Post("/api/expense-types", h.apiCreateExpenseType)
	r.Get("/api/expenses", h.apiListExpenses)
	r.Post("/api/expenses", h.apiRecordExpense)
	r.Post("/api/expenses/{id}/cancel", h.apiCancelExpense)

	// ── Lookup ────────────────────────────────────────────────────────────────
	r.Get("/api/lookup", h.apiListLookup)
	r.Get("/api/lookup/{category}", h.apiListLookup)
	r.Get("/api/lookup/{category}/{key}", h.apiGetLookup)
	r.Put("/api/lookup/{category}/{key}", h.apiSetLookup)

	// ── Reports ───────────────────────────────────────────────────────────────
	r.Get("/api/reports/debts", h.apiDebtReport)
	r.Get("/api/reports/financial/{year}", h.apiFinancialReport)
	r.Get("/api/reports/expenses/{year}/{month}", h.apiExpenseBreakdown)
	r.Post("/api/maintenance/reconcile", h.apiReconcile)

	return r
}

// health reports whether the database is reachable.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := h.svc.Health(r.Context()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		writeError(w, r, "database unreachable", "UNAVAILABLE", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, response{Status: "ok", Database: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// intParam parses a positive integer URL parameter, writing a 400 on failure.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		writeError(w, r, "invalid "+name+": must be a positive integer", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, "invalid "+name+": must be an integer", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
