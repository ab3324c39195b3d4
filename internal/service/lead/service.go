package lead

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/refcode"
)

// maxRefAttempts bounds regeneration when a generated reference collides.
const maxRefAttempts = 5

// Service implements lead business logic on top of a Repository.
// All public methods are safe for concurrent use if the underlying
// repository is concurrency-safe.
type Service struct {
	repo Repository
	refs refcode.Generator
	now  func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a lead service backed by the given repository.
func NewService(repo Repository, refs refcode.Generator, opts ...Option) *Service {
	s := &Service{repo: repo, refs: refs, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateInput holds the fields for creating a new lead.
type CreateInput struct {
	RefNumber     string            `json:"ref_number"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	Place         string            `json:"place"`
	Source        domain.LeadSource `json:"source"`
	Owner         string            `json:"owner"`
	Status        domain.LeadStatus `json:"status"`
	Value         float64           `json:"value"`
	Tags          string            `json:"tags"`
	Notes         string            `json:"notes"`
	PreferredDate string            `json:"preferred_date"`
	PreferredTime string            `json:"preferred_time"`
	domain.Address
}

// timestamp returns the current instant at storage precision.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Get returns a single lead.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Lead, error) {
	return s.repo.Get(ctx, id)
}

// GetByRef returns the lead holding a reference number.
func (s *Service) GetByRef(ctx context.Context, ref string) (*domain.Lead, error) {
	return s.repo.GetByRef(ctx, strings.TrimSpace(ref))
}

// List returns leads matching the filter. An empty filter returns the whole
// table newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Lead, error) {
	f.Search = strings.TrimSpace(f.Search)
	f.Owner = strings.TrimSpace(f.Owner)
	return s.repo.List(ctx, f)
}

// All returns every lead in default order. Used by export.
func (s *Service) All(ctx context.Context) ([]domain.Lead, error) {
	return s.repo.List(ctx, ListFilter{})
}

// Schedule returns leads that carry a preferred contact date or time.
func (s *Service) Schedule(ctx context.Context) ([]domain.Lead, error) {
	return s.repo.Scheduled(ctx)
}

// Create validates and persists a new lead. Without a caller supplied
// reference number one is generated, retrying on collision.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Lead, error) {
	l := &domain.Lead{
		RefNumber:     strings.TrimSpace(in.RefNumber),
		Name:          strings.TrimSpace(in.Name),
		Email:         strings.TrimSpace(in.Email),
		Phone:         strings.TrimSpace(in.Phone),
		Place:         strings.TrimSpace(in.Place),
		Source:        in.Source,
		Owner:         strings.TrimSpace(in.Owner),
		Status:        in.Status,
		Value:         in.Value,
		Tags:          strings.TrimSpace(in.Tags),
		Notes:         in.Notes,
		PreferredDate: strings.TrimSpace(in.PreferredDate),
		PreferredTime: strings.TrimSpace(in.PreferredTime),
		Address:       trimAddress(in.Address),
	}
	if l.Status == "" {
		l.Status = domain.StatusNew
	}
	if err := validate(l); err != nil {
		return nil, err
	}
	l.FullAddress = l.Address.Full()
	now := s.timestamp()
	l.CreatedAt, l.UpdatedAt = now, now

	if l.RefNumber != "" {
		id, err := s.repo.Create(ctx, l)
		if err != nil {
			return nil, err
		}
		l.ID = id
		return l, nil
	}

	for attempt := 0; attempt < maxRefAttempts; attempt++ {
		code, err := s.nextRef(ctx, now, attempt)
		if err != nil {
			return nil, err
		}
		l.RefNumber = code
		id, err := s.repo.Create(ctx, l)
		if errors.Is(err, ErrDuplicateRef) {
			continue
		}
		if err != nil {
			return nil, err
		}
		l.ID = id
		return l, nil
	}
	return nil, fmt.Errorf("generate reference after %d attempts: %w", maxRefAttempts, ErrDuplicateRef)
}

// nextRef issues a code for at. offset skips past sequence numbers already
// tried within the same call.
func (s *Service) nextRef(ctx context.Context, at time.Time, offset int) (string, error) {
	last, err := s.lastSequence(ctx, at)
	if err != nil {
		return "", err
	}
	return s.refs.Format(at, last+1+offset), nil
}

// lastSequence returns the highest day sequence held by a stored code, so
// gaps left by deletes are never reissued.
func (s *Service) lastSequence(ctx context.Context, at time.Time) (int, error) {
	p := s.refs.DayPattern(at)
	if p == "" {
		return 0, nil
	}
	refs, err := s.repo.RefsLike(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("list reference codes: %w", err)
	}
	last := 0
	for _, ref := range refs {
		last = max(last, s.refs.Sequence(ref))
	}
	return last, nil
}

// Update applies the supplied fields and refreshes updated_at. The new
// updated_at is always strictly later than the previous one. An empty
// update changes nothing.
func (s *Service) Update(ctx context.Context, id int64, u UpdateFields) (*domain.Lead, error) {
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.FullAddress = nil
	if u.IsEmpty() {
		return cur, nil
	}

	next := *cur
	applyUpdate(&next, &u)
	if err := validateUpdate(&next, &u); err != nil {
		return nil, err
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

// Delete removes a lead and its activities. A missing id is a no-op.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Summary holds the pipeline analytics.
type Summary struct {
	Total        int           `json:"total"`
	TotalValue   float64       `json:"total_value"`
	AverageValue float64       `json:"average_value"`
	WinRate      float64       `json:"win_rate"`
	ByStatus     []StatusTotal `json:"by_status"`
	BySource     []GroupCount  `json:"by_source"`
	ByOwner      []GroupCount  `json:"by_owner"`
}

// UnspecifiedSource labels leads stored without a source.
const UnspecifiedSource = "Unspecified"

// Summary aggregates counts and values. Every known status is present in
// ByStatus, zero filled, in pipeline order; unknown legacy statuses follow.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	totals, err := s.repo.StatusTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("status totals: %w", err)
	}
	sources, err := s.repo.CountBy(ctx, GroupBySource)
	if err != nil {
		return nil, fmt.Errorf("source counts: %w", err)
	}
	owners, err := s.repo.CountBy(ctx, GroupByOwner)
	if err != nil {
		return nil, fmt.Errorf("owner counts: %w", err)
	}

	sum := &Summary{}
	byStatus := make(map[domain.LeadStatus]*StatusTotal, len(domain.Statuses))
	for _, st := range domain.Statuses {
		sum.ByStatus = append(sum.ByStatus, StatusTotal{Status: st})
	}
	for i := range sum.ByStatus {
		byStatus[sum.ByStatus[i].Status] = &sum.ByStatus[i]
	}
	var extra []StatusTotal
	for _, t := range totals {
		sum.Total += t.Count
		sum.TotalValue += t.Value
		key := t.Status
		if parsed, ok := domain.ParseStatus(string(t.Status)); ok {
			key = parsed
		}
		if b, ok := byStatus[key]; ok {
			b.Count += t.Count
			b.Value += t.Value
			continue
		}
		extra = append(extra, t)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Status < extra[j].Status })
	sum.ByStatus = append(sum.ByStatus, extra...)

	if sum.Total > 0 {
		sum.AverageValue = round2(sum.TotalValue / float64(sum.Total))
		sum.WinRate = round2(float64(byStatus[domain.StatusWon].Count) / float64(sum.Total))
	}

	sum.BySource = make([]GroupCount, 0, len(sources))
	for _, g := range sources {
		if g.Key == "" {
			g.Key = UnspecifiedSource
		}
		sum.BySource = append(sum.BySource, g)
	}
	sum.ByOwner = make([]GroupCount, 0, len(owners))
	for _, g := range owners {
		if g.Key != "" {
			sum.ByOwner = append(sum.ByOwner, g)
		}
	}
	return sum, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func validate(l *domain.Lead) error {
	if l.Name == "" {
		return domain.Invalid("name", "is required")
	}
	if !domain.ValidEmail(l.Email) {
		return domain.Invalid("email", "is not a valid address")
	}
	if !l.Status.Valid() {
		return domain.Invalid("status", fmt.Sprintf("unknown status %q", l.Status))
	}
	if l.Source != "" && !l.Source.Valid() {
		return domain.Invalid("source", fmt.Sprintf("unknown source %q", l.Source))
	}
	if !validValue(l.Value) {
		return domain.Invalid("value", "must be a non-negative number")
	}
	if !domain.ValidDate(l.PreferredDate) {
		return domain.Invalid("preferred_date", "must be YYYY-MM-DD")
	}
	if !domain.ValidClock(l.PreferredTime) {
		return domain.Invalid("preferred_time", "must be HH:MM")
	}
	return nil
}

// validateUpdate checks only the supplied fields so legacy rows with
// out-of-enum values can still be edited.
func validateUpdate(l *domain.Lead, u *UpdateFields) error {
	switch {
	case u.Name != nil && l.Name == "":
		return domain.Invalid("name", "is required")
	case u.Email != nil && !domain.ValidEmail(l.Email):
		return domain.Invalid("email", "is not a valid address")
	case u.Status != nil && !l.Status.Valid():
		return domain.Invalid("status", fmt.Sprintf("unknown status %q", l.Status))
	case u.Source != nil && l.Source != "" && !l.Source.Valid():
		return domain.Invalid("source", fmt.Sprintf("unknown source %q", l.Source))
	case u.Value != nil && !validValue(l.Value):
		return domain.Invalid("value", "must be a non-negative number")
	case u.PreferredDate != nil && !domain.ValidDate(l.PreferredDate):
		return domain.Invalid("preferred_date", "must be YYYY-MM-DD")
	case u.PreferredTime != nil && !domain.ValidClock(l.PreferredTime):
		return domain.Invalid("preferred_time", "must be HH:MM")
	}
	return nil
}

func validValue(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func trimAddress(a domain.Address) domain.Address {
	return domain.Address{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

// applyUpdate copies set fields onto l, trimming text in place on u so the
// repository writes the same values that were validated.
func applyUpdate(l *domain.Lead, u *UpdateFields) {
	str := func(dst *string, p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
			*dst = *p
		}
	}
	str(&l.Name, u.Name)
	str(&l.Email, u.Email)
	str(&l.Phone, u.Phone)
	str(&l.Place, u.Place)
	str(&l.Owner, u.Owner)
	str(&l.Tags, u.Tags)
	str(&l.PreferredDate, u.PreferredDate)
	str(&l.PreferredTime, u.PreferredTime)
	str(&l.Street, u.Street)
	str(&l.City, u.City)
	str(&l.State, u.State)
	str(&l.PostalCode, u.PostalCode)
	str(&l.Country, u.Country)
	if u.Notes != nil {
		l.Notes = *u.Notes
	}
	if u.Source != nil {
		l.Source = *u.Source
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	if u.Value != nil {
		l.Value = *u.Value
	}
}
