package sqldb

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/leadbook/internal/config"
	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/refcode"
	"github.com/ignite/leadbook/internal/schema"
	"github.com/ignite/leadbook/internal/service/activity"
	"github.com/ignite/leadbook/internal/service/customer"
	"github.com/ignite/leadbook/internal/service/lead"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMigrated(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Driver:        "sqlite",
		Path:          filepath.Join(t.TempDir(), "crm_data.db"),
		BusyTimeoutMS: 2000,
		MaxOpenConns:  1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	refs, err := refcode.New(refcode.FormatHex, "REF")
	require.NoError(t, err)
	_, err = schema.NewEvolver(db, refs).Migrate(ctx)
	require.NoError(t, err)
	return db
}

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// seed inserts leads whose created_at increases with their index.
func seed(t *testing.T, repo *LeadRepo, leads ...domain.Lead) []domain.Lead {
	t.Helper()
	for i := range leads {
		l := &leads[i]
		if l.RefNumber == "" {
			l.RefNumber = fmt.Sprintf("REF-%08d", i+1)
		}
		if l.Status == "" {
			l.Status = domain.StatusNew
		}
		l.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		l.UpdatedAt = l.CreatedAt
		id, err := repo.Create(context.Background(), l)
		require.NoError(t, err)
		l.ID = id
	}
	return leads
}

func names(leads []domain.Lead) []string {
	out := make([]string, len(leads))
	for i, l := range leads {
		out[i] = l.Name
	}
	return out
}

func TestListEmptyFilterReturnsAllNewestFirst(t *testing.T) {
	repo := NewLeadRepo(openMigrated(t))
	seed(t, repo, domain.Lead{Name: "A"}, domain.Lead{Name: "B"}, domain.Lead{Name: "C"})

	got, err := repo.List(context.Background(), lead.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, names(got))
}

func TestListSearch(t *testing.T) {
	repo := NewLeadRepo(openMigrated(t))
	seed(t, repo,
		domain.Lead{Name: "Ada Lovelace", Email: "ada@engine.io"},
		domain.Lead{Name: "Grace Hopper", Place: "Navy"},
		domain.Lead{Name: "Alan Turing", Notes: "100% sure"},
	)
	ctx := context.Background()

	got, err := repo.List(ctx, lead.ListFilter{Search: "HOPP"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Grace Hopper"}, names(got))

	got, err = repo.List(ctx, lead.ListFilter{Search: "engine"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada Lovelace"}, names(got))

	// wildcards in the term are literal
	got, err = repo.List(ctx, lead.ListFilter{Search: "%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alan Turing"}, names(got))

	got, err = repo.List(ctx, lead.ListFilter{Search: "'; DROP TABLE leads; --"})
	require.NoError(t, err)
	assert.Empty(t, got)
	all, err := repo.List(ctx, lead.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListFiltersAndSort(t *testing.T) {
	repo := NewLeadRepo(openMigrated(t))
	seed(t, repo,
		domain.Lead{Name: "b", Status: domain.StatusWon, Owner: "Sam Lee", Source: domain.SourceWebsite, Value: 10},
		domain.Lead{Name: "a", Status: domain.StatusWon, Owner: "Kim", Source: domain.SourceEvent, Value: 30},
		domain.Lead{Name: "c", Status: domain.StatusLost, Owner: "sam", Source: domain.SourceWebsite, Value: 20},
	)
	ctx := context.Background()

	got, err := repo.List(ctx, lead.ListFilter{Status: domain.StatusWon})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(got))

	got, err = repo.List(ctx, lead.ListFilter{Owner: "SAM"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, names(got))

	got, err = repo.List(ctx, lead.ListFilter{Source: domain.SourceWebsite, Status: domain.StatusWon})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names(got))

	cases := map[lead.SortOrder][]string{
		lead.SortOldest:    {"b", "a", "c"},
		lead.SortValueDesc: {"a", "c", "b"},
		lead.SortValueAsc:  {"b", "c", "a"},
		lead.SortNameAsc:   {"a", "b", "c"},
		lead.SortNameDesc:  {"c", "b", "a"},
		lead.SortOrder(42): {"c", "a", "b"},
	}
	for order, want := range cases {
		got, err := repo.List(ctx, lead.ListFilter{Sort: order})
		require.NoError(t, err)
		assert.Equal(t, want, names(got), order.String())
	}
}

func TestBuildLeadQueryUsesPlaceholders(t *testing.T) {
	q, args := BuildLeadQuery(lead.ListFilter{Search: "x_y", Status: domain.StatusNew, Owner: "o", Source: domain.SourceEmail, Sort: lead.SortValueAsc})
	assert.Len(t, args, len(leadSearchColumns)+3)
	assert.Equal(t, `%x\_y%`, args[0])
	assert.NotContains(t, q, "x_y")
	assert.Contains(t, q, "ORDER BY value ASC, id ASC")

	pg := database.Postgres.Rebind(q)
	assert.Contains(t, pg, fmt.Sprintf("$%d", len(args)))
	assert.NotContains(t, pg, " ? ")
}

func TestCreateDuplicateRef(t *testing.T) {
	repo := NewLeadRepo(openMigrated(t))
	seed(t, repo, domain.Lead{Name: "A", RefNumber: "REF-SAME"})
	_, err := repo.Create(context.Background(), &domain.Lead{Name: "B", RefNumber: "REF-SAME", Status: domain.StatusNew})
	assert.ErrorIs(t, err, lead.ErrDuplicateRef)
}

func TestGetRoundTripsFields(t *testing.T) {
	repo := NewLeadRepo(openMigrated(t))
	in := seed(t, repo, domain.Lead{
		Name: "Ada", Email: "ada@x.io", Phone: "+44 20", Place: "London", Source: domain.SourceReferral,
		Owner: "sam", Status: domain.StatusQualified, Value: 12.5, Tags: "vip,math", Notes: "n",
		PreferredDate: "2026-11-01", PreferredTime: "09:30",
		Address:     domain.Address{Street: "1 St", City: "London", Country: "UK"},
		FullAddress: "1 St, London, UK",
	})[0]

	got, err := repo.Get(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, in, *got)

	byRef, err := repo.GetByRef(context.Background(), in.RefNumber)
	require.NoError(t, err)
	assert.Equal(t, in.ID, byRef.ID)

	_, err = repo.Get(context.Background(), 999)
	assert.ErrorIs(t, err, lead.ErrNotFound)
}

func TestStatusOnlyUpdate(t *testing.T) {
	db := openMigrated(t)
	refs, _ := refcode.New(refcode.FormatHex, "REF")
	frozen := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	svc := lead.NewService(NewLeadRepo(db), refs, lead.WithClock(func() time.Time { return frozen }))
	ctx := context.Background()

	orig, err := svc.Create(ctx, lead.CreateInput{Name: "Ada", Email: "ada@x.io", Value: 3, Owner: "sam"})
	require.NoError(t, err)
	before, err := svc.Get(ctx, orig.ID)
	require.NoError(t, err)

	won := domain.StatusWon
	after, err := svc.Update(ctx, orig.ID, lead.UpdateFields{Status: &won})
	require.NoError(t, err)

	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, domain.StatusWon, after.Status)
	after.Status, after.UpdatedAt = before.Status, before.UpdatedAt
	assert.Equal(t, *before, *after)
}

func TestDeleteCascadesAndIgnoresMissing(t *testing.T) {
	db := openMigrated(t)
	repo := NewLeadRepo(db)
	acts := NewActivityRepo(db)
	ctx := context.Background()
	leads := seed(t, repo, domain.Lead{Name: "A"}, domain.Lead{Name: "B"})

	_, err := acts.Create(ctx, &domain.Activity{LeadID: &leads[0].ID, Kind: domain.ActivityCall, Subject: "hi",
		OccurredAt: base, CreatedAt: base})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, leads[0].ID))
	all, err := repo.List(ctx, lead.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names(all))

	left, err := acts.ListForLead(ctx, leads[0].ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	require.NoError(t, repo.Delete(ctx, 12345))
	all, err = repo.List(ctx, lead.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestImportAppendsRows(t *testing.T) {
	db := openMigrated(t)
	refs, _ := refcode.New(refcode.FormatDated, "REF")
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	repo := NewLeadRepo(db)
	svc := lead.NewService(repo, refs, lead.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	seed(t, repo, domain.Lead{Name: "existing"})

	var rows []lead.ImportRow
	for i := 0; i < 4; i++ {
		rows = append(rows, lead.ImportRow{Line: i + 2, Lead: domain.Lead{Name: fmt.Sprintf("row %d", i)}})
	}
	res, err := svc.Import(ctx, rows, lead.ImportOptions{DedupeRef: true})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Imported)

	all, err := repo.List(ctx, lead.ListFilter{Sort: lead.SortOldest})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, l := range all[1:] {
		assert.Equal(t, now, l.CreatedAt)
		assert.Equal(t, now, l.UpdatedAt)
		assert.Equal(t, fmt.Sprintf("REF-%02d-19102026", i+1), l.RefNumber)
	}
}

func TestInsertBatchRollsBack(t *testing.T) {
	repo := NewLeadRepo(openMigrated(t))
	seed(t, repo, domain.Lead{Name: "A", RefNumber: "REF-TAKEN"})

	err := repo.InsertBatch(context.Background(), []domain.Lead{
		{Name: "new", RefNumber: "REF-FREE", Status: domain.StatusNew, CreatedAt: base, UpdatedAt: base},
		{Name: "clash", RefNumber: "REF-TAKEN", Status: domain.StatusNew, CreatedAt: base, UpdatedAt: base},
	})
	assert.ErrorIs(t, err, lead.ErrDuplicateRef)

	all, err := repo.List(context.Background(), lead.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestScheduledAndAggregates(t *testing.T) {
	repo := NewLeadRepo(openMigrated(t))
	seed(t, repo,
		domain.Lead{Name: "late", PreferredDate: "2026-12-01", Status: domain.StatusWon, Value: 10, Owner: "sam"},
		domain.Lead{Name: "none", Value: 5, Source: domain.SourceEvent},
		domain.Lead{Name: "time-only", PreferredTime: "08:00", Owner: "sam"},
		domain.Lead{Name: "soon", PreferredDate: "2026-11-01", PreferredTime: "14:00", Status: domain.StatusWon, Value: 20},
	)
	ctx := context.Background()

	got, err := repo.Scheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"soon", "late", "time-only"}, names(got))

	totals, err := repo.StatusTotals(ctx)
	require.NoError(t, err)
	byStatus := map[domain.LeadStatus]lead.StatusTotal{}
	for _, s := range totals {
		byStatus[s.Status] = s
	}
	assert.Equal(t, 2, byStatus[domain.StatusWon].Count)
	assert.Equal(t, 30.0, byStatus[domain.StatusWon].Value)

	owners, err := repo.CountBy(ctx, lead.GroupByOwner)
	require.NoError(t, err)
	assert.Contains(t, owners, lead.GroupCount{Key: "sam", Count: 2})

	refs, err := repo.RefsLike(ctx, "REF-0000000%")
	require.NoError(t, err)
	assert.Len(t, refs, 4)

	existing, err := repo.ExistingRefs(ctx, []string{"REF-00000001", "REF-NOPE"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"REF-00000001": true}, existing)
}

func TestCustomerRepo(t *testing.T) {
	db := openMigrated(t)
	repo := NewCustomerRepo(db)
	svc := customer.NewService(repo, nil)
	ctx := context.Background()

	acme, err := svc.Create(ctx, customer.CreateInput{Name: "Acme", Email: "ops@acme.test", Address: domain.Address{City: "Austin"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, customer.CreateInput{Name: "Binary Ltd"})
	require.NoError(t, err)

	got, err := svc.List(ctx, customer.ListFilter{Search: "austin"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Name)

	got, err = svc.List(ctx, customer.ListFilter{Sort: customer.SortNameDesc})
	require.NoError(t, err)
	assert.Equal(t, "Binary Ltd", got[0].Name)

	country := "US"
	updated, err := svc.Update(ctx, acme.ID, customer.UpdateFields{Country: &country})
	require.NoError(t, err)
	assert.Equal(t, "Austin, US", updated.FullAddress)

	acts := activity.NewService(NewActivityRepo(db), nil)
	_, err = acts.Log(ctx, activity.LogInput{CustomerID: &acme.ID, Subject: "kickoff"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, acme.ID))
	_, err = svc.Get(ctx, acme.ID)
	assert.ErrorIs(t, err, customer.ErrNotFound)
	_, err = acts.ListForCustomer(ctx, acme.ID)
	assert.ErrorIs(t, err, activity.ErrSubjectNotFound)
}

func TestActivityRepo(t *testing.T) {
	db := openMigrated(t)
	leads := seed(t, NewLeadRepo(db), domain.Lead{Name: "A"})
	repo := NewActivityRepo(db)
	ctx := context.Background()

	for i, subj := range []string{"first", "second"} {
		at := base.Add(time.Duration(i) * time.Minute)
		_, err := repo.Create(ctx, &domain.Activity{LeadID: &leads[0].ID, Kind: domain.ActivityEmail,
			Subject: subj, OccurredAt: at, CreatedAt: at})
		require.NoError(t, err)
	}
	got, err := repo.ListForLead(ctx, leads[0].ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Subject)
	assert.Nil(t, got[0].CustomerID)
	assert.Equal(t, leads[0].ID, *got[0].LeadID)

	ok, err := repo.LeadExists(ctx, leads[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.CustomerExists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Delete(ctx, got[0].ID))
	require.NoError(t, repo.Delete(ctx, got[0].ID))
	got, err = repo.ListForLead(ctx, leads[0].ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLeadRepoPostgresRebind(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	repo := NewLeadRepo(database.New(mockDB, database.Postgres))

	mock.ExpectQuery(`SELECT ref_number FROM leads WHERE ref_number LIKE \$1`).
		WithArgs("REF-%-19102026").
		WillReturnRows(sqlmock.NewRows([]string{"ref_number"}).AddRow("REF-07-19102026"))

	refs, err := repo.RefsLike(context.Background(), "REF-%-19102026")
	require.NoError(t, err)
	assert.Equal(t, []string{"REF-07-19102026"}, refs)

	mock.ExpectExec(`UPDATE leads SET status = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("Won", "2026-10-19T00:00:00.000000Z", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won := domain.StatusWon
	err = repo.Update(context.Background(), 9, lead.UpdateFields{Status: &won},
		time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, lead.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatedRefAfterDeletes(t *testing.T) {
	db := openMigrated(t)
	refs, err := refcode.New(refcode.FormatDated, "REF")
	require.NoError(t, err)
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	repo := NewLeadRepo(db)
	svc := lead.NewService(repo, refs, lead.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	var created []*domain.Lead
	for i := 0; i < 12; i++ {
		l, err := svc.Create(ctx, lead.CreateInput{Name: fmt.Sprintf("lead %d", i)})
		require.NoError(t, err)
		created = append(created, l)
	}
	for _, l := range created[:5] {
		require.NoError(t, svc.Delete(ctx, l.ID))
	}

	next, err := svc.Create(ctx, lead.CreateInput{Name: "next"})
	require.NoError(t, err)
	assert.Equal(t, "REF-13-19102026", next.RefNumber)
}
