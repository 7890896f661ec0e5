package web

import (
	"net/http"

	"order-desk/internal/core"
)

// ── Expenses ──────────────────────────────────────────────────────────────────

// apiListExpenseTypes handles GET /api/expense-types.
func (h *Handler) apiListExpenseTypes(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListExpenseTypes(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.ExpenseTypes)
}

// apiCreateExpenseType handles POST /api/expense-types.
// Body: { name }
func (h *Handler) apiCreateExpenseType(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	t, err := h.svc.CreateExpenseType(r.Context(), body.Name)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, "expense type created", t)
}

// apiListExpenses handles GET /api/expenses?year=&month=. month 0 or absent
// means the whole year.
func (h *Handler) apiListExpenses(w http.ResponseWriter, r *http.Request) {
	year, ok := queryInt(w, r, "year")
	if !ok {
		return
	}
	month, ok := queryInt(w, r, "month")
	if !ok {
		return
	}
	result, err := h.svc.ListExpenses(r.Context(), year, month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRecordExpense handles POST /api/expenses.
func (h *Handler) apiRecordExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	e, err := h.svc.RecordExpense(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, "expense recorded", e)
}

// apiCancelExpense handles POST /api/expenses/{id}/cancel.
func (h *Handler) apiCancelExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.CancelExpense(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeStatus(w, http.StatusOK, "expense cancelled", nil)
}

// ── Reports ───────────────────────────────────────────────────────────────────

// apiDebtReport handles GET /api/reports/debts.
func (h *Handler) apiDebtReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CustomerDebtReport(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiFinancialReport handles GET /api/reports/financial/{year}.
func (h *Handler) apiFinancialReport(w http.ResponseWriter, r *http.Request) {
	year, ok := intParam(w, r, "year")
	if !ok {
		return
	}
	report, err := h.svc.FinancialReport(r.Context(), year)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// apiExpenseBreakdown handles GET /api/reports/expenses/{year}/{month}.
func (h *Handler) apiExpenseBreakdown(w http.ResponseWriter, r *http.Request) {
	year, ok := intParam(w, r, "year")
	if !ok {
		return
	}
	month, ok := intParam(w, r, "month")
	if !ok {
		return
	}
	result, err := h.svc.ExpenseBreakdown(r.Context(), year, month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiReconcile handles POST /api/maintenance/reconcile.
func (h *Handler) apiReconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ReconcileOrderStatuses(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeStatus(w, http.StatusOK, "order statuses reconciled", result)
}
