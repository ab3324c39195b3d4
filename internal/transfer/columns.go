package transfer

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/domain"
)

// Format is a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name or a file name with extension.
func ParseFormat(v string) (Format, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if ext := filepath.Ext(v); ext != "" {
		v = ext[1:]
	}
	switch v {
	case "csv", "txt":
		return FormatCSV, nil
	case "xlsx", "xlsm":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// headerAliases maps each lead field to the header spellings accepted for it,
// after normalization.
var headerAliases = map[string][]string{
	"ref_number":     {"ref_number", "ref", "reference", "ref_no", "reference_number", "ref_num"},
	"name":           {"name", "full_name", "lead_name", "contact", "contact_name"},
	"email":          {"email", "email_address", "e_mail", "mail"},
	"phone":          {"phone", "phone_number", "mobile", "cell", "telephone", "tel"},
	"place":          {"place", "company", "company_name", "organization", "organisation", "business"},
	"source":         {"source", "lead_source", "origin", "channel"},
	"owner":          {"owner", "assigned_to", "rep", "sales_rep", "account_owner"},
	"status":         {"status", "stage", "lead_status"},
	"value":          {"value", "amount", "deal_value", "deal_size", "estimated_value"},
	"tags":           {"tags", "labels", "categories"},
	"notes":          {"notes", "note", "comments", "comment", "description"},
	"preferred_date": {"preferred_date", "follow_up_date", "followup_date", "date"},
	"preferred_time": {"preferred_time", "follow_up_time", "time"},
	"street_address": {"street_address", "street", "address", "address_line1", "address_1"},
	"city":           {"city", "town", "locality"},
	"state":          {"state", "province", "region", "state_province"},
	"postal_code":    {"postal_code", "zip", "zipcode", "zip_code", "postcode"},
	"country":        {"country", "nation", "country_code"},
	"full_address":   {"full_address"},
	"created_at":     {"created_at", "created", "date_created"},
	"updated_at":     {"updated_at", "updated", "last_updated"},
}

var aliasIndex = func() map[string]string {
	idx := make(map[string]string)
	for field, aliases := range headerAliases {
		for _, a := range aliases {
			idx[a] = field
		}
	}
	return idx
}()

var headerCleaner = strings.NewReplacer(" ", "_", "-", "_", ".", "_")

// normalizeHeader lower-cases and underscores a header cell.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return headerCleaner.Replace(h)
}

// mapHeader returns, per column, the lead field it feeds or "". The first
// column claiming a field wins. An `id` column maps to nothing.
func mapHeader(header []string) ([]string, error) {
	out := make([]string, len(header))
	claimed := make(map[string]bool)
	for i, h := range header {
		field := aliasIndex[normalizeHeader(h)]
		if field == "" || claimed[field] {
			continue
		}
		claimed[field] = true
		out[i] = field
	}
	if !claimed["name"] {
		return nil, ErrMissingColumn
	}
	return out, nil
}

// buildLead fills a lead from one record. Values that do not parse are left
// at their zero value for the service to default.
func buildLead(fields, record []string) (domain.Lead, bool) {
	var l domain.Lead
	blank := true
	for i, field := range fields {
		if field == "" || i >= len(record) {
			continue
		}
		v := strings.TrimSpace(record[i])
		if v == "" {
			continue
		}
		blank = false
		switch field {
		case "ref_number":
			l.RefNumber = v
		case "name":
			l.Name = v
		case "email":
			l.Email = v
		case "phone":
			l.Phone = v
		case "place":
			l.Place = v
		case "source":
			l.Source = domain.LeadSource(v)
		case "owner":
			l.Owner = v
		case "status":
			l.Status = domain.LeadStatus(v)
		case "value":
			l.Value = parseValue(v)
		case "tags":
			l.Tags = v
		case "notes":
			l.Notes = v
		case "preferred_date":
			l.PreferredDate = v
		case "preferred_time":
			l.PreferredTime = v
		case "street_address":
			l.Street = v
		case "city":
			l.City = v
		case "state":
			l.State = v
		case "postal_code":
			l.PostalCode = v
		case "country":
			l.Country = v
		case "full_address":
			l.FullAddress = v
		case "created_at":
			if t, err := database.ParseTime(v); err == nil {
				l.CreatedAt = t
			}
		case "updated_at":
			if t, err := database.ParseTime(v); err == nil {
				l.UpdatedAt = t
			}
		}
	}
	return l, !blank
}

var valueCleaner = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "")

// parseValue reads a money amount. Anything unparseable is 0.
func parseValue(v string) float64 {
	f, err := strconv.ParseFloat(valueCleaner.Replace(v), 64)
	if err != nil {
		return 0
	}
	return f
}

// Column is one exported column.
type Column struct {
	Header string
	Value  func(l *domain.Lead) any
}

func text(get func(l *domain.Lead) string) func(l *domain.Lead) any {
	return func(l *domain.Lead) any { return get(l) }
}

// Columns is the fixed export column order.
var Columns = []Column{
	{"id", func(l *domain.Lead) any { return l.ID }},
	{"ref_number", text(func(l *domain.Lead) string { return l.RefNumber })},
	{"name", text(func(l *domain.Lead) string { return l.Name })},
	{"email", text(func(l *domain.Lead) string { return l.Email })},
	{"phone", text(func(l *domain.Lead) string { return l.Phone })},
	{"place", text(func(l *domain.Lead) string { return l.Place })},
	{"source", text(func(l *domain.Lead) string { return string(l.Source) })},
	{"owner", text(func(l *domain.Lead) string { return l.Owner })},
	{"status", text(func(l *domain.Lead) string { return string(l.Status) })},
	{"value", func(l *domain.Lead) any { return l.Value }},
	{"tags", text(func(l *domain.Lead) string { return l.Tags })},
	{"notes", text(func(l *domain.Lead) string { return l.Notes })},
	{"preferred_date", text(func(l *domain.Lead) string { return l.PreferredDate })},
	{"preferred_time", text(func(l *domain.Lead) string { return l.PreferredTime })},
	{"street_address", text(func(l *domain.Lead) string { return l.Street })},
	{"city", text(func(l *domain.Lead) string { return l.City })},
	{"state", text(func(l *domain.Lead) string { return l.State })},
	{"postal_code", text(func(l *domain.Lead) string { return l.PostalCode })},
	{"country", text(func(l *domain.Lead) string { return l.Country })},
	{"full_address", text(func(l *domain.Lead) string { return l.FullAddress })},
	{"created_at", text(func(l *domain.Lead) string { return database.FormatTime(l.CreatedAt) })},
	{"updated_at", text(func(l *domain.Lead) string { return database.FormatTime(l.UpdatedAt) })},
}
