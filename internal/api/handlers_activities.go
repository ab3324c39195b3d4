package api

import (
	"net/http"
	"time"

	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/pkg/httputil"
	"github.com/ignite/leadbook/internal/service/activity"
)

// activityRequest is the body of POST .../activities. The subject comes
// from the URL.
type activityRequest struct {
	Kind       domain.ActivityKind `json:"kind"`
	Subject    string              `json:"subject"`
	Details    string              `json:"details"`
	OccurredAt *time.Time          `json:"occurred_at"`
}

func (h *Handlers) logActivity(w http.ResponseWriter, r *http.Request, forLead bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req activityRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	in := activity.LogInput{
		Kind:       req.Kind,
		Subject:    req.Subject,
		Details:    req.Details,
		OccurredAt: req.OccurredAt,
	}
	if forLead {
		in.LeadID = &id
	} else {
		in.CustomerID = &id
	}
	a, err := h.activities.Log(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.Created(w, a)
}

func (h *Handlers) listActivities(w http.ResponseWriter, r *http.Request, forLead bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var (
		list []domain.Activity
		err  error
	)
	if forLead {
		list, err = h.activities.ListForLead(r.Context(), id)
	} else {
		list, err = h.activities.ListForCustomer(r.Context(), id)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"activities": list, "total": len(list)})
}

// LogLeadActivity handles POST /api/leads/{id}/activities
func (h *Handlers) LogLeadActivity(w http.ResponseWriter, r *http.Request) {
	h.logActivity(w, r, true)
}

// ListLeadActivities handles GET /api/leads/{id}/activities
func (h *Handlers) ListLeadActivities(w http.ResponseWriter, r *http.Request) {
	h.listActivities(w, r, true)
}

// LogCustomerActivity handles POST /api/customers/{id}/activities
func (h *Handlers) LogCustomerActivity(w http.ResponseWriter, r *http.Request) {
	h.logActivity(w, r, false)
}

// ListCustomerActivities handles GET /api/customers/{id}/activities
func (h *Handlers) ListCustomerActivities(w http.ResponseWriter, r *http.Request) {
	h.listActivities(w, r, false)
}

// DeleteActivity handles DELETE /api/activities/{id}
func (h *Handlers) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.activities.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	httputil.NoContent(w)
}
