package domain

import (
	"strings"
	"time"
)

// LeadStatus enumerates the pipeline stages of a lead.
type LeadStatus string

const (
	StatusNew        LeadStatus = "New"
	StatusContacted  LeadStatus = "Contacted"
	StatusQualified  LeadStatus = "Qualified"
	StatusInProgress LeadStatus = "In Progress"
	StatusWon        LeadStatus = "Won"
	StatusLost       LeadStatus = "Lost"
	StatusClosed     LeadStatus = "Closed"
)

// Statuses lists every lead status in pipeline order.
var Statuses = []LeadStatus{
	StatusNew, StatusContacted, StatusQualified, StatusInProgress,
	StatusWon, StatusLost, StatusClosed,
}

// Valid reports whether s is one of the known statuses.
func (s LeadStatus) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// LeadSource enumerates how a lead was acquired.
type LeadSource string

const (
	SourceWebsite  LeadSource = "Website"
	SourceReferral LeadSource = "Referral"
	SourceEmail    LeadSource = "Email"
	SourcePhone    LeadSource = "Phone"
	SourceSocial   LeadSource = "Social"
	SourceEvent    LeadSource = "Event"
	SourceOther    LeadSource = "Other"
)

// Sources lists every lead source.
var Sources = []LeadSource{
	SourceWebsite, SourceReferral, SourceEmail, SourcePhone,
	SourceSocial, SourceEvent, SourceOther,
}

// Valid reports whether s is one of the known sources.
func (s LeadSource) Valid() bool {
	for _, v := range Sources {
		if v == s {
			return true
		}
	}
	return false
}

// ParseStatus matches a status case-insensitively. The second result is false
// when nothing matched.
func ParseStatus(v string) (LeadStatus, bool) {
	v = strings.TrimSpace(v)
	for _, s := range Statuses {
		if strings.EqualFold(string(s), v) {
			return s, true
		}
	}
	return "", false
}

// ParseSource matches a source case-insensitively.
func ParseSource(v string) (LeadSource, bool) {
	v = strings.TrimSpace(v)
	for _, s := range Sources {
		if strings.EqualFold(string(s), v) {
			return s, true
		}
	}
	return "", false
}

// Address holds the postal parts shared by leads and customers.
type Address struct {
	Street     string `json:"street_address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Full joins the non-empty parts with ", ".
func (a Address) Full() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Lead is a prospective contact tracked through the sales pipeline.
type Lead struct {
	ID            int64      `json:"id"`
	RefNumber     string     `json:"ref_number"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Place         string     `json:"place"`
	Source        LeadSource `json:"source"`
	Owner         string     `json:"owner"`
	Status        LeadStatus `json:"status"`
	Value         float64    `json:"value"`
	Tags          string     `json:"tags"`
	Notes         string     `json:"notes"`
	PreferredDate string     `json:"preferred_date"`
	PreferredTime string     `json:"preferred_time"`
	Address
	FullAddress string    `json:"full_address"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsScheduled reports whether the lead has a preferred contact date or time.
func (l *Lead) IsScheduled() bool {
	return l.PreferredDate != "" || l.PreferredTime != ""
}

// TagList splits the comma separated tags, dropping blanks.
func (l *Lead) TagList() []string {
	var out []string
	for _, t := range strings.Split(l.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
