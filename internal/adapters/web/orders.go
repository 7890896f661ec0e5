package web

import (
	"net/http"

	"order-desk/internal/core"
)

// ── Orders ────────────────────────────────────────────────────────────────────

// apiPreviewTotals handles POST /api/orders/totals.
func (h *Handler) apiPreviewTotals(w http.ResponseWriter, r *http.Request) {
	var draft core.OrderDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	totals, err := h.svc.PreviewOrderTotals(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, totals)
}

// apiListOrders handles GET /api/orders?customer_id=&status=&include_inactive=.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := queryInt(w, r, "customer_id")
	if !ok {
		return
	}
	result, err := h.svc.ListOrders(r.Context(), core.OrderFilter{
		CustomerID:      customerID,
		Status:          core.OrderStatus(r.URL.Query().Get("status")),
		IncludeInactive: queryBool(r, "include_inactive"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

// apiCreateOrder handles POST /api/orders.
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var draft core.OrderDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	result, err := h.svc.CreateOrder(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, "order created", result)
}

// apiGetOrder handles GET /api/orders/{id}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiUpdateOrder handles PUT /api/orders/{id}.
func (h *Handler) apiUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var draft core.OrderDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	result, err := h.svc.UpdateOrder(r.Context(), id, draft)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeStatus(w, http.StatusOK, "order updated", result)
}

// apiCancelOrder handles POST /api/orders/{id}/cancel.
func (h *Handler) apiCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.CancelOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeStatus(w, http.StatusOK, "order cancelled", result)
}

// apiOrderSettlement handles GET /api/orders/{id}/settlement.
func (h *Handler) apiOrderSettlement(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	st, err := h.svc.GetOrderSettlement(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, st)
}

// apiOrderDocument handles GET /api/orders/{id}/document.
func (h *Handler) apiOrderDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	doc, err := h.svc.GetOrderDocument(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, doc)
}

// ── Payments ──────────────────────────────────────────────────────────────────

// apiListPayments handles GET /api/payments?order_id=&customer_id=&from=&to=.
func (h *Handler) apiListPayments(w http.ResponseWriter, r *http.Request) {
	orderID, ok := queryInt(w, r, "order_id")
	if !ok {
		return
	}
	customerID, ok := queryInt(w, r, "customer_id")
	if !ok {
		return
	}
	q := r.URL.Query()
	result, err := h.svc.ListPayments(r.Context(), core.PaymentFilter{
		OrderID:         orderID,
		CustomerID:      customerID,
		From:            q.Get("from"),
		To:              q.Get("to"),
		IncludeInactive: queryBool(r, "include_inactive"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRecordPayment handles POST /api/payments.
func (h *Handler) apiRecordPayment(w http.ResponseWriter, r *http.Request) {
	var in core.RecordPaymentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	result, err := h.svc.RecordPayment(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, "payment recorded", result)
}

// apiCancelPayment handles POST /api/payments/{id}/cancel.
func (h *Handler) apiCancelPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.CancelPayment(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeStatus(w, http.StatusOK, "payment cancelled", result)
}
