package lead_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/refcode"
	"github.com/ignite/leadbook/internal/service/lead"
)

// memRepo is an in-memory lead repository for unit testing.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	leads  map[int64]*domain.Lead
	failOn map[string]bool // ref codes Create should reject as duplicates
}

func newMemRepo() *memRepo {
	return &memRepo{leads: make(map[int64]*domain.Lead), failOn: make(map[string]bool)}
}

func (m *memRepo) Get(_ context.Context, id int64) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, lead.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memRepo) GetByRef(_ context.Context, ref string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leads {
		if l.RefNumber == ref {
			cp := *l
			return &cp, nil
		}
	}
	return nil, lead.ErrNotFound
}

func (m *memRepo) List(_ context.Context, f lead.ListFilter) ([]domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Lead
	for _, l := range m.leads {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(l.Name+" "+l.Email), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memRepo) Create(_ context.Context, l *domain.Lead) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[l.RefNumber] {
		return 0, lead.ErrDuplicateRef
	}
	for _, x := range m.leads {
		if x.RefNumber == l.RefNumber {
			return 0, lead.ErrDuplicateRef
		}
	}
	m.nextID++
	cp := *l
	cp.ID = m.nextID
	m.leads[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memRepo) Update(_ context.Context, id int64, u lead.UpdateFields, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return lead.ErrNotFound
	}
	if u.Name != nil {
		l.Name = *u.Name
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	if u.Value != nil {
		l.Value = *u.Value
	}
	if u.City != nil {
		l.City = *u.City
	}
	if u.FullAddress != nil {
		l.FullAddress = *u.FullAddress
	}
	l.UpdatedAt = updatedAt
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.leads, id)
	return nil
}

func (m *memRepo) Scheduled(ctx context.Context) ([]domain.Lead, error) {
	all, _ := m.List(ctx, lead.ListFilter{})
	var out []domain.Lead
	for _, l := range all {
		if l.IsScheduled() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memRepo) StatusTotals(_ context.Context) ([]lead.StatusTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg := map[domain.LeadStatus]*lead.StatusTotal{}
	for _, l := range m.leads {
		t, ok := agg[l.Status]
		if !ok {
			t = &lead.StatusTotal{Status: l.Status}
			agg[l.Status] = t
		}
		t.Count++
		t.Value += l.Value
	}
	var out []lead.StatusTotal
	for _, t := range agg {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memRepo) CountBy(_ context.Context, g lead.Grouping) ([]lead.GroupCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg := map[string]int{}
	for _, l := range m.leads {
		key := string(l.Source)
		if g == lead.GroupByOwner {
			key = l.Owner
		}
		agg[key]++
	}
	var out []lead.GroupCount
	for k, n := range agg {
		out = append(out, lead.GroupCount{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memRepo) RefsLike(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix, suffix, _ := strings.Cut(pattern, "%")
	var refs []string
	for _, l := range m.leads {
		if strings.HasPrefix(l.RefNumber, prefix) && strings.HasSuffix(l.RefNumber, suffix) {
			refs = append(refs, l.RefNumber)
		}
	}
	return refs, nil
}

func (m *memRepo) ExistingRefs(_ context.Context, refs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, r := range refs {
		for _, l := range m.leads {
			if l.RefNumber == r {
				out[r] = true
			}
		}
	}
	return out, nil
}

func (m *memRepo) InsertBatch(ctx context.Context, leads []domain.Lead) error {
	for i := range leads {
		if _, err := m.Create(ctx, &leads[i]); err != nil {
			return err
		}
	}
	return nil
}

// stepClock is a clock the test sets by hand.
type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

var day = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T, repo *memRepo, format string) (*lead.Service, *stepClock) {
	t.Helper()
	refs, err := refcode.New(format, "REF")
	if err != nil {
		t.Fatal(err)
	}
	clk := &stepClock{t: day}
	return lead.NewService(repo, refs, lead.WithClock(clk.now)), clk
}

func TestCreate(t *testing.T) {
	svc, _ := newService(t, newMemRepo(), refcode.FormatHex)
	l, err := svc.Create(context.Background(), lead.CreateInput{
		Name:    "  Ada Lovelace ",
		Email:   "ada@example.com",
		Value:   1200,
		Address: domain.Address{City: "London", Country: "UK"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.ID == 0 {
		t.Error("expected an id")
	}
	if l.Name != "Ada Lovelace" {
		t.Errorf("name not trimmed: %q", l.Name)
	}
	if l.Status != domain.StatusNew {
		t.Errorf("expected default status New, got %s", l.Status)
	}
	if !strings.HasPrefix(l.RefNumber, "REF-") || len(l.RefNumber) != 12 {
		t.Errorf("unexpected ref %q", l.RefNumber)
	}
	if l.FullAddress != "London, UK" {
		t.Errorf("full address = %q", l.FullAddress)
	}
	if !l.CreatedAt.Equal(day) || !l.UpdatedAt.Equal(day) {
		t.Errorf("timestamps = %v / %v", l.CreatedAt, l.UpdatedAt)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t, newMemRepo(), refcode.FormatHex)
	cases := []lead.CreateInput{
		{Name: "   "},
		{Name: "x", Email: "nope"},
		{Name: "x", Status: "Pending"},
		{Name: "x", Source: "Billboard"},
		{Name: "x", Value: -1},
		{Name: "x", PreferredDate: "19/10/2026"},
		{Name: "x", PreferredTime: "noon"},
	}
	for _, in := range cases {
		_, err := svc.Create(context.Background(), in)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%+v: expected validation error, got %v", in, err)
		}
	}
}

func TestCreateRefsAreUnique(t *testing.T) {
	svc, _ := newService(t, newMemRepo(), refcode.FormatHex)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		l, err := svc.Create(context.Background(), lead.CreateInput{Name: "Lead"})
		if err != nil {
			t.Fatal(err)
		}
		if seen[l.RefNumber] {
			t.Fatalf("duplicate ref %s", l.RefNumber)
		}
		seen[l.RefNumber] = true
	}
}

func TestCreateDatedSequence(t *testing.T) {
	svc, _ := newService(t, newMemRepo(), refcode.FormatDated)
	a, _ := svc.Create(context.Background(), lead.CreateInput{Name: "A"})
	b, _ := svc.Create(context.Background(), lead.CreateInput{Name: "B"})
	if a.RefNumber != "REF-01-19102026" || b.RefNumber != "REF-02-19102026" {
		t.Errorf("refs = %s, %s", a.RefNumber, b.RefNumber)
	}
}

func TestCreateRetriesGeneratedCollision(t *testing.T) {
	repo := newMemRepo()
	repo.failOn["REF-01-19102026"] = true
	repo.failOn["REF-02-19102026"] = true
	svc, _ := newService(t, repo, refcode.FormatDated)

	l, err := svc.Create(context.Background(), lead.CreateInput{Name: "A"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.RefNumber != "REF-03-19102026" {
		t.Errorf("ref = %s", l.RefNumber)
	}
}

func TestCreateRetriesAreBounded(t *testing.T) {
	repo := newMemRepo()
	for i := 1; i <= 10; i++ {
		repo.failOn[refcode.DatedGenerator{Prefix: "REF"}.Format(day, i)] = true
	}
	svc, _ := newService(t, repo, refcode.FormatDated)
	if _, err := svc.Create(context.Background(), lead.CreateInput{Name: "A"}); !errors.Is(err, lead.ErrDuplicateRef) {
		t.Errorf("expected ErrDuplicateRef, got %v", err)
	}
}

func TestCreateSuppliedRefCollision(t *testing.T) {
	svc, _ := newService(t, newMemRepo(), refcode.FormatHex)
	ctx := context.Background()
	if _, err := svc.Create(ctx, lead.CreateInput{Name: "A", RefNumber: "REF-FIXED"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(ctx, lead.CreateInput{Name: "B", RefNumber: "REF-FIXED"})
	if !errors.Is(err, lead.ErrDuplicateRef) {
		t.Errorf("expected ErrDuplicateRef, got %v", err)
	}
}

func TestUpdateStatusOnly(t *testing.T) {
	repo := newMemRepo()
	svc, clk := newService(t, repo, refcode.FormatHex)
	ctx := context.Background()
	orig, _ := svc.Create(ctx, lead.CreateInput{Name: "A", Email: "a@x.io", Value: 5})

	won := domain.StatusWon
	got, err := svc.Update(ctx, orig.ID, lead.UpdateFields{Status: &won})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusWon {
		t.Errorf("status = %s", got.Status)
	}
	// frozen clock: updated_at must still move forward
	if !got.UpdatedAt.After(orig.UpdatedAt) {
		t.Errorf("updated_at did not increase: %v -> %v", orig.UpdatedAt, got.UpdatedAt)
	}
	if got.Name != orig.Name || got.Email != orig.Email || got.Value != orig.Value ||
		got.RefNumber != orig.RefNumber || !got.CreatedAt.Equal(orig.CreatedAt) {
		t.Errorf("unrelated fields changed: %+v vs %+v", got, orig)
	}

	clk.t = day.Add(time.Hour)
	again, _ := svc.Update(ctx, orig.ID, lead.UpdateFields{Status: &won})
	if !again.UpdatedAt.Equal(day.Add(time.Hour)) {
		t.Errorf("updated_at = %v", again.UpdatedAt)
	}
}

func TestUpdateEmptyIsNoop(t *testing.T) {
	svc, _ := newService(t, newMemRepo(), refcode.FormatHex)
	ctx := context.Background()
	orig, _ := svc.Create(ctx, lead.CreateInput{Name: "A"})
	got, err := svc.Update(ctx, orig.ID, lead.UpdateFields{})
	if err != nil {
		t.Fatal(err)
	}
	if !got.UpdatedAt.Equal(orig.UpdatedAt) {
		t.Error("empty update must not touch updated_at")
	}
}

func TestUpdateRecomputesAddress(t *testing.T) {
	svc, _ := newService(t, newMemRepo(), refcode.FormatHex)
	ctx := context.Background()
	orig, _ := svc.Create(ctx, lead.CreateInput{Name: "A", Address: domain.Address{City: "Paris", Country: "FR"}})
	city := " Lyon "
	got, err := svc.Update(ctx, orig.ID, lead.UpdateFields{City: &city})
	if err != nil {
		t.Fatal(err)
	}
	if got.City != "Lyon" || got.FullAddress != "Lyon, FR" {
		t.Errorf("city=%q full=%q", got.City, got.FullAddress)
	}
}

func TestUpdateErrors(t *testing.T) {
	svc, _ := newService(t, newMemRepo(), refcode.FormatHex)
	ctx := context.Background()
	name := "x"
	if _, err := svc.Update(ctx, 99, lead.UpdateFields{Name: &name}); !errors.Is(err, lead.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	l, _ := svc.Create(ctx, lead.CreateInput{Name: "A"})
	blank := "  "
	if _, err := svc.Update(ctx, l.ID, lead.UpdateFields{Name: &blank}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	svc, _ := newService(t, newMemRepo(), refcode.FormatHex)
	if err := svc.Delete(context.Background(), 404); err != nil {
		t.Errorf("delete missing: %v", err)
	}
}

func TestSummary(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newService(t, repo, refcode.FormatHex)
	ctx := context.Background()
	for _, in := range []lead.CreateInput{
		{Name: "A", Status: domain.StatusWon, Value: 100, Source: domain.SourceWebsite, Owner: "sam"},
		{Name: "B", Status: domain.StatusWon, Value: 50, Source: domain.SourceWebsite},
		{Name: "C", Status: domain.StatusLost, Value: 0, Source: domain.SourceEvent, Owner: "sam"},
		{Name: "D", Value: 50},
	} {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := svc.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 4 || sum.TotalValue != 200 || sum.AverageValue != 50 || sum.WinRate != 0.5 {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.ByStatus) != len(domain.Statuses) {
		t.Fatalf("by status has %d buckets", len(sum.ByStatus))
	}
	if sum.ByStatus[0].Status != domain.StatusNew || sum.ByStatus[0].Count != 1 {
		t.Errorf("first bucket = %+v", sum.ByStatus[0])
	}
	if sum.ByStatus[2].Count != 0 {
		t.Errorf("qualified should be zero filled: %+v", sum.ByStatus[2])
	}
	if len(sum.ByOwner) != 1 || sum.ByOwner[0].Key != "sam" || sum.ByOwner[0].Count != 2 {
		t.Errorf("by owner = %+v", sum.ByOwner)
	}
	var unspecified bool
	for _, g := range sum.BySource {
		if g.Key == lead.UnspecifiedSource {
			unspecified = true
		}
	}
	if !unspecified {
		t.Errorf("by source = %+v", sum.BySource)
	}
}

func TestSummaryEmpty(t *testing.T) {
	svc, _ := newService(t, newMemRepo(), refcode.FormatHex)
	sum, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 0 || sum.WinRate != 0 || sum.AverageValue != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestImport(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newService(t, repo, refcode.FormatHex)
	ctx := context.Background()
	if _, err := svc.Create(ctx, lead.CreateInput{Name: "Existing", RefNumber: "REF-OLD"}); err != nil {
		t.Fatal(err)
	}

	rows := []lead.ImportRow{
		{Line: 2, Lead: domain.Lead{Name: "A", Status: "won", Source: "billboard", Value: -3}},
		{Line: 3, Lead: domain.Lead{Name: "  "}},
		{Line: 4, Lead: domain.Lead{Name: "B", RefNumber: "REF-OLD"}},
		{Line: 5, Lead: domain.Lead{Name: "C", RefNumber: "REF-NEW"}},
		{Line: 6, Lead: domain.Lead{Name: "D", RefNumber: "REF-NEW"}},
	}
	res, err := svc.Import(ctx, rows, lead.ImportOptions{DedupeRef: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 5 || res.Imported != 2 || res.Skipped != 2 || len(res.Errors) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.Errors[0].Line != 3 {
		t.Errorf("row error line = %d", res.Errors[0].Line)
	}

	all, _ := svc.All(ctx)
	if len(all) != 3 {
		t.Fatalf("expected 3 leads, got %d", len(all))
	}
	var a *domain.Lead
	for i := range all {
		if all[i].Name == "A" {
			a = &all[i]
		}
	}
	if a == nil {
		t.Fatal("lead A missing")
	}
	if a.Status != domain.StatusWon || a.Source != domain.SourceOther || a.Value != 0 {
		t.Errorf("coercion failed: %+v", a)
	}
	if a.RefNumber == "" || a.CreatedAt.IsZero() || !a.UpdatedAt.Equal(a.CreatedAt) {
		t.Errorf("defaults not filled: %+v", a)
	}
}

func TestImportWithoutDedupeReportsDuplicates(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newService(t, repo, refcode.FormatHex)
	ctx := context.Background()
	svc.Create(ctx, lead.CreateInput{Name: "Existing", RefNumber: "REF-OLD"})

	res, err := svc.Import(ctx, []lead.ImportRow{
		{Line: 2, Lead: domain.Lead{Name: "B", RefNumber: "REF-OLD"}},
		{Line: 3, Lead: domain.Lead{Name: "C"}},
	}, lead.ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 || res.Skipped != 0 || len(res.Errors) != 1 || res.Errors[0].Line != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestCreateDatedSkipsPastDeletedCodes(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newService(t, repo, refcode.FormatDated)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 12; i++ {
		l, err := svc.Create(ctx, lead.CreateInput{Name: fmt.Sprintf("lead %d", i)})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, l.ID)
	}
	for _, id := range ids[:5] {
		if err := svc.Delete(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	l, err := svc.Create(ctx, lead.CreateInput{Name: "next"})
	if err != nil {
		t.Fatalf("create after deletes: %v", err)
	}
	if l.RefNumber != "REF-13-19102026" {
		t.Errorf("ref = %s, want REF-13-19102026", l.RefNumber)
	}

	res, err := svc.Import(ctx, []lead.ImportRow{{Line: 2, Lead: domain.Lead{Name: "imported"}}}, lead.ImportOptions{DedupeRef: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 {
		t.Fatalf("result = %+v", res)
	}
	got, err := svc.GetByRef(ctx, "REF-14-19102026")
	if err != nil || got.Name != "imported" {
		t.Errorf("imported lead = %+v, %v", got, err)
	}
}
