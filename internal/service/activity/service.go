package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/leadbook/internal/domain"
)

// Service implements the activity log.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an activity service. now may be nil.
func NewService(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

// LogInput holds the fields for a new activity. Kind defaults to Note and
// OccurredAt to now.
type LogInput struct {
	LeadID     *int64              `json:"lead_id"`
	CustomerID *int64              `json:"customer_id"`
	Kind       domain.ActivityKind `json:"kind"`
	Subject    string              `json:"subject"`
	Details    string              `json:"details"`
	OccurredAt *time.Time          `json:"occurred_at"`
}

// Log validates and stores an activity.
func (s *Service) Log(ctx context.Context, in LogInput) (*domain.Activity, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	a := &domain.Activity{
		LeadID:     in.LeadID,
		CustomerID: in.CustomerID,
		Kind:       in.Kind,
		Subject:    strings.TrimSpace(in.Subject),
		Details:    in.Details,
		OccurredAt: now,
		CreatedAt:  now,
	}
	if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
		a.OccurredAt = in.OccurredAt.UTC().Truncate(time.Microsecond)
	}
	if a.Kind == "" {
		a.Kind = domain.ActivityNote
	}

	if !a.HasSingleSubject() {
		return nil, ErrInvalidSubject
	}
	if !a.Kind.Valid() {
		return nil, domain.Invalid("kind", fmt.Sprintf("unknown activity kind %q", a.Kind))
	}
	if a.Subject == "" {
		return nil, domain.Invalid("subject", "is required")
	}
	if err := s.checkSubject(ctx, a.LeadID, a.CustomerID); err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	a.ID = id
	return a, nil
}

// ListForLead returns the lead's activities, newest first.
func (s *Service) ListForLead(ctx context.Context, leadID int64) ([]domain.Activity, error) {
	if err := s.checkSubject(ctx, &leadID, nil); err != nil {
		return nil, err
	}
	return s.repo.ListForLead(ctx, leadID)
}

// ListForCustomer returns the customer's activities, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID int64) ([]domain.Activity, error) {
	if err := s.checkSubject(ctx, nil, &customerID); err != nil {
		return nil, err
	}
	return s.repo.ListForCustomer(ctx, customerID)
}

// Delete removes one activity.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) checkSubject(ctx context.Context, leadID, customerID *int64) error {
	var (
		ok  bool
		err error
	)
	if leadID != nil {
		ok, err = s.repo.LeadExists(ctx, *leadID)
	} else {
		ok, err = s.repo.CustomerExists(ctx, *customerID)
	}
	if err != nil {
		return fmt.Errorf("check activity subject: %w", err)
	}
	if !ok {
		return ErrSubjectNotFound
	}
	return nil
}
