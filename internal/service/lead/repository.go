package lead

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/leadbook/internal/domain"
)

// Repository defines the data access contract for leads.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single lead. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id int64) (*domain.Lead, error)

	// GetByRef looks a lead up by reference number.
	GetByRef(ctx context.Context, ref string) (*domain.Lead, error)

	// List returns every lead matching the filter. There is no pagination.
	List(ctx context.Context, f ListFilter) ([]domain.Lead, error)

	// Create inserts a lead and returns its ID. Returns ErrDuplicateRef
	// when the reference number is taken.
	Create(ctx context.Context, l *domain.Lead) (int64, error)

	// Update writes the supplied fields plus updated_at. Returns ErrNotFound
	// if no row matched.
	Update(ctx context.Context, id int64, u UpdateFields, updatedAt time.Time) error

	// Delete removes a lead and its activities. Deleting a missing id is
	// not an error.
	Delete(ctx context.Context, id int64) error

	// Scheduled returns leads with a preferred date or time, soonest first.
	Scheduled(ctx context.Context) ([]domain.Lead, error)

	// StatusTotals returns count and value per stored status.
	StatusTotals(ctx context.Context) ([]StatusTotal, error)

	// CountBy returns row counts grouped by the given column.
	CountBy(ctx context.Context, g Grouping) ([]GroupCount, error)

	// RefsLike returns the reference numbers matching a LIKE pattern.
	RefsLike(ctx context.Context, pattern string) ([]string, error)

	// ExistingRefs returns the subset of refs already stored.
	ExistingRefs(ctx context.Context, refs []string) (map[string]bool, error)

	// InsertBatch inserts every lead in one transaction. Nothing is kept
	// when any insert fails.
	InsertBatch(ctx context.Context, leads []domain.Lead) error
}

// ListFilter narrows a lead listing. Zero values mean "no filter".
type ListFilter struct {
	Search string
	Status domain.LeadStatus
	Owner  string
	Source domain.LeadSource
	Sort   SortOrder
}

// SortOrder is the closed set of orderings a listing may use.
type SortOrder int

const (
	SortNewest SortOrder = iota
	SortOldest
	SortValueDesc
	SortValueAsc
	SortNameAsc
	SortNameDesc
)

var sortNames = [...]string{"newest", "oldest", "value_desc", "value_asc", "name_asc", "name_desc"}

func (s SortOrder) String() string {
	if s < 0 || int(s) >= len(sortNames) {
		return sortNames[SortNewest]
	}
	return sortNames[s]
}

// ParseSortOrder maps a name to its SortOrder. Empty means SortNewest.
func ParseSortOrder(v string) (SortOrder, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return SortNewest, nil
	}
	for i, n := range sortNames {
		if n == v {
			return SortOrder(i), nil
		}
	}
	return SortNewest, fmt.Errorf("unknown sort order %q", v)
}

// SortOrders lists every sort name in declaration order.
func SortOrders() []string {
	return append([]string(nil), sortNames[:]...)
}

// UpdateFields holds the mutable fields for a lead update.
// Nil fields are not applied.
type UpdateFields struct {
	Name          *string            `json:"name"`
	Email         *string            `json:"email"`
	Phone         *string            `json:"phone"`
	Place         *string            `json:"place"`
	Source        *domain.LeadSource `json:"source"`
	Owner         *string            `json:"owner"`
	Status        *domain.LeadStatus `json:"status"`
	Value         *float64           `json:"value"`
	Tags          *string            `json:"tags"`
	Notes         *string            `json:"notes"`
	PreferredDate *string            `json:"preferred_date"`
	PreferredTime *string            `json:"preferred_time"`
	Street        *string            `json:"street_address"`
	City          *string            `json:"city"`
	State         *string            `json:"state"`
	PostalCode    *string            `json:"postal_code"`
	Country       *string            `json:"country"`

	// FullAddress is derived by the service whenever an address part changes.
	FullAddress *string `json:"-"`
}

// IsEmpty reports whether no field is set.
func (u UpdateFields) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && u.Place == nil &&
		u.Source == nil && u.Owner == nil && u.Status == nil && u.Value == nil &&
		u.Tags == nil && u.Notes == nil && u.PreferredDate == nil && u.PreferredTime == nil &&
		!u.touchesAddress() && u.FullAddress == nil
}

func (u UpdateFields) touchesAddress() bool {
	return u.Street != nil || u.City != nil || u.State != nil || u.PostalCode != nil || u.Country != nil
}

// Grouping selects the column CountBy groups on.
type Grouping int

const (
	GroupBySource Grouping = iota
	GroupByOwner
)

// StatusTotal is the raw per-status aggregate.
type StatusTotal struct {
	Status domain.LeadStatus `json:"status"`
	Count  int               `json:"count"`
	Value  float64           `json:"value"`
}

// GroupCount is one bucket of a CountBy result.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}
