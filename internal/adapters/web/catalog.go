package web

import (
	"net/http"

	"order-desk/internal/app"
	"order-desk/internal/core"

	"github.com/go-chi/chi/v5"
)

// ── Customers ─────────────────────────────────────────────────────────────────

// apiListCustomers handles GET /api/customers.
func (h *Handler) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCustomers(r.Context(), queryBool(r, "include_inactive"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Customers)
}

// apiCreateCustomer handles POST /api/customers.
func (h *Handler) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var in core.CustomerInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.svc.CreateCustomer(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, "customer created", c)
}

// apiGetCustomer handles GET /api/customers/{id}.
func (h *Handler) apiGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.GetCustomer(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, c)
}

// apiDeactivateCustomer handles DELETE /api/customers/{id}. Orders and
// payments of the customer are kept.
func (h *Handler) apiDeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeactivateCustomer(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeStatus(w, http.StatusOK, "customer deactivated", nil)
}

// apiCustomerStatement handles GET /api/customers/{id}/statement.
func (h *Handler) apiCustomerStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.CustomerStatement(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// ── Products ──────────────────────────────────────────────────────────────────

// apiListProducts handles GET /api/products.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context(), queryBool(r, "include_inactive"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Products)
}

// apiCreateProduct handles POST /api/products.
func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in core.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, "product created", p)
}

// apiGetProduct handles GET /api/products/{id}.
func (h *Handler) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiDeactivateProduct handles DELETE /api/products/{id}.
func (h *Handler) apiDeactivateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeactivateProduct(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeStatus(w, http.StatusOK, "product deactivated", nil)
}

// apiUpdateProductPrice handles PUT /api/products/{id}/price.
// Body: { price }
func (h *Handler) apiUpdateProductPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req app.UpdatePriceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ProductID = id
	p, err := h.svc.UpdateProductPrice(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// apiAdjustStock handles POST /api/products/{id}/stock.
// Body: { delta, note? }
func (h *Handler) apiAdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req app.AdjustStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ProductID = id
	p, err := h.svc.AdjustStock(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeStatus(w, http.StatusOK, "stock adjusted", p)
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// apiListLookup handles GET /api/lookup and GET /api/lookup/{category}.
func (h *Handler) apiListLookup(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListLookup(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Entries)
}

// apiGetLookup handles GET /api/lookup/{category}/{key}.
func (h *Handler) apiGetLookup(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetLookup(r.Context(), chi.URLParam(r, "category"), chi.URLParam(r, "key"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, e)
}

// apiSetLookup handles PUT /api/lookup/{category}/{key}.
// Body: { value, data_type?, description? }
func (h *Handler) apiSetLookup(w http.ResponseWriter, r *http.Request) {
	var req app.SetLookupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Category = chi.URLParam(r, "category")
	req.Key = chi.URLParam(r, "key")
	e, err := h.svc.SetLookup(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeStatus(w, http.StatusOK, "lookup entry saved", e)
}
