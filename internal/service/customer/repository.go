package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/leadbook/internal/domain"
)

// Repository defines the data access contract for customers.
type Repository interface {
	Get(ctx context.Context, id int64) (*domain.Customer, error)
	List(ctx context.Context, f ListFilter) ([]domain.Customer, error)
	Create(ctx context.Context, c *domain.Customer) (int64, error)
	// Update writes the supplied fields plus updated_at.
	Update(ctx context.Context, id int64, u UpdateFields, updatedAt time.Time) error
	// Delete removes the customer and its activities; a missing id is a no-op.
	Delete(ctx context.Context, id int64) error
}

// ListFilter narrows a customer listing.
type ListFilter struct {
	Search string
	Sort   SortOrder
}

// SortOrder is the closed set of customer orderings.
type SortOrder int

const (
	SortNewest SortOrder = iota
	SortOldest
	SortNameAsc
	SortNameDesc
)

var sortNames = [...]string{"newest", "oldest", "name_asc", "name_desc"}

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

// UpdateFields holds the mutable customer fields. Nil fields are not applied.
type UpdateFields struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Place      *string `json:"place"`
	Notes      *string `json:"notes"`
	Street     *string `json:"street_address"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`

	FullAddress *string `json:"-"`
}

func (u UpdateFields) touchesAddress() bool {
	return u.Street != nil || u.City != nil || u.State != nil || u.PostalCode != nil || u.Country != nil
}

// IsEmpty reports whether no field is set.
func (u UpdateFields) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && u.Place == nil &&
		u.Notes == nil && !u.touchesAddress() && u.FullAddress == nil
}
