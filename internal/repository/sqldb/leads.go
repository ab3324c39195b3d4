package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/service/lead"
)

// LeadRepo implements lead.Repository.
type LeadRepo struct{ db *database.DB }

// NewLeadRepo creates a lead repository on db.
func NewLeadRepo(db *database.DB) *LeadRepo { return &LeadRepo{db: db} }

func (r *LeadRepo) rebind(q string) string { return r.db.Dialect.Rebind(q) }

func (r *LeadRepo) Get(ctx context.Context, id int64) (*domain.Lead, error) {
	l, err := scanLead(r.db.QueryRowContext(ctx, r.rebind(selectLeads+" WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lead.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (r *LeadRepo) GetByRef(ctx context.Context, ref string) (*domain.Lead, error) {
	l, err := scanLead(r.db.QueryRowContext(ctx, r.rebind(selectLeads+" WHERE ref_number = ?"), ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lead.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead by ref: %w", err)
	}
	return l, nil
}

func (r *LeadRepo) List(ctx context.Context, f lead.ListFilter) ([]domain.Lead, error) {
	q, args := BuildLeadQuery(f)
	rows, err := r.db.QueryContext(ctx, r.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	out, err := collectLeads(rows)
	if err != nil {
		return nil, fmt.Errorf("scan leads: %w", err)
	}
	return out, nil
}

const insertLeadSQL = `INSERT INTO leads
	(ref_number, name, email, phone, place, source, owner, status, value, tags, notes,
	 preferred_date, preferred_time, street_address, city, state, postal_code, country, full_address,
	 created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func insertLead(ctx context.Context, q database.Querier, d database.Dialect, l *domain.Lead) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, d.Rebind(insertLeadSQL),
		l.RefNumber, l.Name, database.NullString(l.Email), database.NullString(l.Phone),
		database.NullString(l.Place), database.NullString(string(l.Source)), database.NullString(l.Owner),
		string(l.Status), l.Value, database.NullString(l.Tags), database.NullString(l.Notes),
		database.NullString(l.PreferredDate), database.NullString(l.PreferredTime),
		database.NullString(l.Street), database.NullString(l.City), database.NullString(l.State),
		database.NullString(l.PostalCode), database.NullString(l.Country), database.NullString(l.FullAddress),
		database.FormatTime(l.CreatedAt), database.FormatTime(l.UpdatedAt),
	).Scan(&id)
	if database.IsUniqueViolation(err) {
		return 0, lead.ErrDuplicateRef
	}
	return id, err
}

func (r *LeadRepo) Create(ctx context.Context, l *domain.Lead) (int64, error) {
	id, err := insertLead(ctx, r.db, r.db.Dialect, l)
	if errors.Is(err, lead.ErrDuplicateRef) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("create lead: %w", err)
	}
	return id, nil
}

func (r *LeadRepo) Update(ctx context.Context, id int64, u lead.UpdateFields, updatedAt time.Time) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, val any) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	text := func(col string, p *string) {
		if p != nil {
			add(col, database.NullString(*p))
		}
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	text("email", u.Email)
	text("phone", u.Phone)
	text("place", u.Place)
	if u.Source != nil {
		add("source", database.NullString(string(*u.Source)))
	}
	text("owner", u.Owner)
	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.Value != nil {
		add("value", *u.Value)
	}
	text("tags", u.Tags)
	text("notes", u.Notes)
	text("preferred_date", u.PreferredDate)
	text("preferred_time", u.PreferredTime)
	text("street_address", u.Street)
	text("city", u.City)
	text("state", u.State)
	text("postal_code", u.PostalCode)
	text("country", u.Country)
	text("full_address", u.FullAddress)
	add("updated_at", database.FormatTime(updatedAt))

	args = append(args, id)
	q := "UPDATE leads SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := r.db.ExecContext(ctx, r.rebind(q), args...)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if n == 0 {
		return lead.ErrNotFound
	}
	return nil
}

func (r *LeadRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM activities WHERE lead_id = ?`), id); err != nil {
			return fmt.Errorf("delete lead activities: %w", err)
		}
		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM leads WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete lead: %w", err)
		}
		return nil
	})
}

func (r *LeadRepo) Scheduled(ctx context.Context) ([]domain.Lead, error) {
	q := selectLeads + `
WHERE COALESCE(preferred_date, '') <> '' OR COALESCE(preferred_time, '') <> ''
ORDER BY CASE WHEN COALESCE(preferred_date, '') = '' THEN 1 ELSE 0 END,
	preferred_date, COALESCE(preferred_time, ''), id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list scheduled leads: %w", err)
	}
	out, err := collectLeads(rows)
	if err != nil {
		return nil, fmt.Errorf("scan scheduled leads: %w", err)
	}
	return out, nil
}

func (r *LeadRepo) StatusTotals(ctx context.Context) ([]lead.StatusTotal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT COALESCE(status, ''), COUNT(*), COALESCE(SUM(value), 0)
		FROM leads GROUP BY COALESCE(status, '')`)
	if err != nil {
		return nil, fmt.Errorf("status totals: %w", err)
	}
	defer rows.Close()

	var out []lead.StatusTotal
	for rows.Next() {
		var (
			t      lead.StatusTotal
			status string
		)
		if err := rows.Scan(&status, &t.Count, &t.Value); err != nil {
			return nil, fmt.Errorf("scan status total: %w", err)
		}
		t.Status = domain.LeadStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

// groupColumns is indexed by lead.Grouping.
var groupColumns = [...]string{
	lead.GroupBySource: "source",
	lead.GroupByOwner:  "owner",
}

func (r *LeadRepo) CountBy(ctx context.Context, g lead.Grouping) ([]lead.GroupCount, error) {
	if g < 0 || int(g) >= len(groupColumns) {
		return nil, fmt.Errorf("unknown grouping %d", g)
	}
	col := groupColumns[g]
	q := fmt.Sprintf(`SELECT COALESCE(%[1]s, ''), COUNT(*) FROM leads
		GROUP BY COALESCE(%[1]s, '') ORDER BY COUNT(*) DESC, COALESCE(%[1]s, '')`, col)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", col, err)
	}
	defer rows.Close()

	var out []lead.GroupCount
	for rows.Next() {
		var c lead.GroupCount
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", col, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *LeadRepo) RefsLike(ctx context.Context, pattern string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT ref_number FROM leads WHERE ref_number LIKE ?`), pattern)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scan ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// refChunk keeps IN lists under SQLite's default variable limit.
const refChunk = 500

func (r *LeadRepo) ExistingRefs(ctx context.Context, refs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for start := 0; start < len(refs); start += refChunk {
		end := min(start+refChunk, len(refs))
		chunk := refs[start:end]

		args := make([]any, len(chunk))
		for i, ref := range chunk {
			args[i] = ref
		}
		q := "SELECT ref_number FROM leads WHERE ref_number IN (?" + strings.Repeat(", ?", len(chunk)-1) + ")"
		rows, err := r.db.QueryContext(ctx, r.rebind(q), args...)
		if err != nil {
			return nil, fmt.Errorf("existing refs: %w", err)
		}
		for rows.Next() {
			var ref string
			if err := rows.Scan(&ref); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan ref: %w", err)
			}
			out[ref] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *LeadRepo) InsertBatch(ctx context.Context, leads []domain.Lead) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i := range leads {
			id, err := insertLead(ctx, tx, r.db.Dialect, &leads[i])
			if err != nil {
				return fmt.Errorf("insert lead %q: %w", leads[i].Name, err)
			}
			leads[i].ID = id
		}
		return nil
	})
}
