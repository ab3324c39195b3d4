package api

import (
	"net/http"
	"strings"

	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/pkg/httputil"
	"github.com/ignite/leadbook/internal/service/customer"
)

// ListCustomers handles GET /api/customers?q=&sort=
func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	sort, err := customer.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		respondError(w, domain.Invalid("sort", err.Error()))
		return
	}
	customers, err := h.customers.List(r.Context(), customer.ListFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
		Sort:   sort,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"customers": customers, "total": len(customers)})
}

// CreateCustomer handles POST /api/customers
func (h *Handlers) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var in customer.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	c, err := h.customers.Create(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.Created(w, c)
}

// GetCustomer handles GET /api/customers/{id}
func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.customers.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, c)
}

// UpdateCustomer handles PATCH /api/customers/{id}
func (h *Handlers) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var u customer.UpdateFields
	if !httputil.Decode(w, r, &u) {
		return
	}
	c, err := h.customers.Update(r.Context(), id, u)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, c)
}

// DeleteCustomer handles DELETE /api/customers/{id}
func (h *Handlers) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.customers.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	httputil.NoContent(w)
}
