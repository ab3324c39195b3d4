package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/leadbook/internal/archive"
	"github.com/ignite/leadbook/internal/config"
	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/pkg/httputil"
	"github.com/ignite/leadbook/internal/service/activity"
	"github.com/ignite/leadbook/internal/service/customer"
	"github.com/ignite/leadbook/internal/service/lead"
)

// Deps are the services the handlers call. Archiver may be nil when
// archiving is disabled.
type Deps struct {
	Leads       *lead.Service
	Customers   *customer.Service
	Activities  *activity.Service
	Archiver    *archive.Archiver
	Health      *HealthChecker
	Import      config.ImportConfig
	MaxUploadMB int
}

// Handlers contains all HTTP handlers
type Handlers struct {
	leads      *lead.Service
	customers  *customer.Service
	activities *activity.Service
	archiver   *archive.Archiver
	health     *HealthChecker
	imports    config.ImportConfig
	maxUpload  int64
}

// NewHandlers creates a new Handlers instance
func NewHandlers(d Deps) *Handlers {
	health := d.Health
	if health == nil {
		health = NewHealthChecker(nil, nil)
	}
	maxMB := d.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 32
	}
	return &Handlers{
		leads:      d.Leads,
		customers:  d.Customers,
		activities: d.Activities,
		archiver:   d.Archiver,
		health:     health,
		imports:    d.Import,
		maxUpload:  int64(maxMB) << 20,
	}
}

// MetaResponse lists the closed value sets a client renders as choices.
type MetaResponse struct {
	Statuses          []domain.LeadStatus   `json:"statuses"`
	Sources           []domain.LeadSource   `json:"sources"`
	LeadSorts         []string              `json:"lead_sorts"`
	CustomerSorts     []string              `json:"customer_sorts"`
	ActivityKinds     []domain.ActivityKind `json:"activity_kinds"`
	ExportFormats     []string              `json:"export_formats"`
	ArchiveConfigured bool                  `json:"archive_configured"`
}

// Meta handles GET /api/meta
func (h *Handlers) Meta(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, MetaResponse{
		Statuses:          domain.Statuses,
		Sources:           domain.Sources,
		LeadSorts:         lead.SortOrders(),
		CustomerSorts:     customer.SortOrders(),
		ActivityKinds:     domain.ActivityKinds,
		ExportFormats:     []string{"csv", "xlsx"},
		ArchiveConfigured: h.archiver != nil,
	})
}

// pathID parses the {id} URL parameter. It writes a 400 and returns false
// when the value is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.BadRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}
