package customer

import (
	"context"
	"strings"
	"time"

	"github.com/ignite/leadbook/internal/domain"
)

// Service implements customer business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a customer service. now may be nil.
func NewService(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

// CreateInput holds the fields for a new customer.
type CreateInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Place string `json:"place"`
	Notes string `json:"notes"`
	domain.Address
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Get returns a single customer.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns customers matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Customer, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f)
}

// Create validates and persists a customer.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Customer, error) {
	c := &domain.Customer{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
		Phone: strings.TrimSpace(in.Phone),
		Place: strings.TrimSpace(in.Place),
		Notes: in.Notes,
		Address: domain.Address{
			Street:     strings.TrimSpace(in.Street),
			City:       strings.TrimSpace(in.City),
			State:      strings.TrimSpace(in.State),
			PostalCode: strings.TrimSpace(in.PostalCode),
			Country:    strings.TrimSpace(in.Country),
		},
	}
	if c.Name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	if !domain.ValidEmail(c.Email) {
		return nil, domain.Invalid("email", "is not a valid address")
	}
	c.FullAddress = c.Address.Full()
	now := s.timestamp()
	c.CreatedAt, c.UpdatedAt = now, now

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

// Update applies the supplied fields. updated_at strictly increases.
func (s *Service) Update(ctx context.Context, id int64, u UpdateFields) (*domain.Customer, error) {
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.FullAddress = nil
	if u.IsEmpty() {
		return cur, nil
	}

	next := *cur
	for _, f := range []struct {
		dst *string
		src *string
	}{
		{&next.Name, u.Name}, {&next.Email, u.Email}, {&next.Phone, u.Phone}, {&next.Place, u.Place},
		{&next.Street, u.Street}, {&next.City, u.City}, {&next.State, u.State},
		{&next.PostalCode, u.PostalCode}, {&next.Country, u.Country},
	} {
		if f.src != nil {
			*f.src = strings.TrimSpace(*f.src)
			*f.dst = *f.src
		}
	}
	if u.Name != nil && next.Name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	if u.Email != nil && !domain.ValidEmail(next.Email) {
		return nil, domain.Invalid("email", "is not a valid address")
	}
	if u.touchesAddress() {
		full := next.Address.Full()
		u.FullAddress = &full
	}

	updatedAt := s.timestamp()
	if !updatedAt.After(cur.UpdatedAt) {
		updatedAt = cur.UpdatedAt.Add(time.Microsecond)
	}
	if err := s.repo.Update(ctx, id, u, updatedAt); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a customer and its activities.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
