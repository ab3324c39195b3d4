package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/pkg/httputil"
	"github.com/ignite/leadbook/internal/pkg/logger"
	"github.com/ignite/leadbook/internal/service/lead"
	"github.com/ignite/leadbook/internal/transfer"
)

// leadFilter builds a ListFilter from ?q=&status=&owner=&source=&sort=.
// "All" (any case) or an empty value disables a filter.
func leadFilter(r *http.Request) (lead.ListFilter, error) {
	q := r.URL.Query()
	sort, err := lead.ParseSortOrder(q.Get("sort"))
	if err != nil {
		return lead.ListFilter{}, domain.Invalid("sort", err.Error())
	}
	f := lead.ListFilter{
		Search: strings.TrimSpace(q.Get("q")),
		Owner:  strings.TrimSpace(q.Get("owner")),
		Sort:   sort,
	}
	if v := strings.TrimSpace(q.Get("status")); v != "" && !strings.EqualFold(v, "all") {
		if s, ok := domain.ParseStatus(v); ok {
			f.Status = s
		} else {
			f.Status = domain.LeadStatus(v)
		}
	}
	if v := strings.TrimSpace(q.Get("source")); v != "" && !strings.EqualFold(v, "all") {
		if s, ok := domain.ParseSource(v); ok {
			f.Source = s
		} else {
			f.Source = domain.LeadSource(v)
		}
	}
	if strings.EqualFold(f.Owner, "all") {
		f.Owner = ""
	}
	return f, nil
}

// ListLeads handles GET /api/leads
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	f, err := leadFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}
	leads, err := h.leads.List(r.Context(), f)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"leads": leads,
		"total": len(leads),
	})
}

// CreateLead handles POST /api/leads
func (h *Handlers) CreateLead(w http.ResponseWriter, r *http.Request) {
	var in lead.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	l, err := h.leads.Create(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.Created(w, l)
}

// GetLead handles GET /api/leads/{id}
func (h *Handlers) GetLead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	l, err := h.leads.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, l)
}

// GetLeadByRef handles GET /api/leads/ref/{ref}
func (h *Handlers) GetLeadByRef(w http.ResponseWriter, r *http.Request) {
	l, err := h.leads.GetByRef(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, l)
}

// UpdateLead handles PATCH /api/leads/{id}. Only the fields present in the
// body are changed.
func (h *Handlers) UpdateLead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var u lead.UpdateFields
	if !httputil.Decode(w, r, &u) {
		return
	}
	l, err := h.leads.Update(r.Context(), id, u)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, l)
}

// DeleteLead handles DELETE /api/leads/{id}
func (h *Handlers) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.leads.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	httputil.NoContent(w)
}

// LeadSchedule handles GET /api/leads/schedule
func (h *Handlers) LeadSchedule(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leads.Schedule(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"leads": leads, "total": len(leads)})
}

// LeadSummary handles GET /api/leads/summary
func (h *Handlers) LeadSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.leads.Summary(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, s)
}

// ExportLeads handles GET /api/leads/export?format=csv|xlsx. The listing
// filters apply, so a client can export exactly what it shows.
func (h *Handlers) ExportLeads(w http.ResponseWriter, r *http.Request) {
	format, err := exportFormat(r)
	if err != nil {
		respondError(w, err)
		return
	}
	f, err := leadFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}
	leads, err := h.leads.List(r.Context(), f)
	if err != nil {
		respondError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := transfer.Write(&buf, format, leads); err != nil {
		respondError(w, err)
		return
	}
	name := fmt.Sprintf("leads-%s.%s", time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Warn("export write failed", "error", err.Error())
	}
}

func exportFormat(r *http.Request) (transfer.Format, error) {
	v := r.URL.Query().Get("format")
	if v == "" {
		return transfer.FormatCSV, nil
	}
	return transfer.ParseFormat(v)
}

// ImportLeads handles POST /api/leads/import. The multipart form carries the
// file under "file"; "dedupe" (default from config) skips rows whose
// reference already exists, and "encoding" overrides the CSV encoding.
func (h *Handlers) ImportLeads(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		httputil.BadRequest(w, "expected a multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	format, err := transfer.ParseFormat(header.Filename)
	if err != nil {
		respondError(w, err)
		return
	}

	dedupe := h.imports.DedupeRef
	if v := r.FormValue("dedupe"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httputil.BadRequest(w, "dedupe must be true or false")
			return
		}
		dedupe = b
	}
	encoding := h.imports.Encoding
	if v := r.FormValue("encoding"); v != "" {
		encoding = v
	}

	rows, err := transfer.Read(file, format, transfer.ReadOptions{Encoding: encoding, MaxRows: h.imports.MaxRows})
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.leads.Import(r.Context(), rows, lead.ImportOptions{DedupeRef: dedupe})
	if err != nil {
		respondError(w, err)
		return
	}
	logger.Info("lead import finished", "file", header.Filename, "total", res.Total, "imported", res.Imported, "skipped", res.Skipped, "errors", len(res.Errors))
	httputil.OK(w, res)
}

// ArchiveLeads handles POST /api/leads/archive?format=
func (h *Handlers) ArchiveLeads(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "archive is not configured")
		return
	}
	format, err := exportFormat(r)
	if err != nil {
		respondError(w, err)
		return
	}
	leads, err := h.leads.All(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	snap, err := h.archiver.Archive(r.Context(), format, leads)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.Created(w, snap)
}

// ListArchives handles GET /api/leads/archive
func (h *Handlers) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "archive is not configured")
		return
	}
	objs, err := h.archiver.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"snapshots": objs, "total": len(objs)})
}
