package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/domain"
)

// Migrations returns the ordered migration list for the current entities.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_leads", Up: createLeads},
		{Version: 2, Name: "lead_timestamps", Up: leadTimestamps},
		{Version: 3, Name: "lead_place_and_schedule", Up: leadPlaceAndSchedule},
		{Version: 4, Name: "lead_ref_number", Up: leadRefNumber},
		{Version: 5, Name: "lead_address", Up: leadAddress},
		{Version: 6, Name: "create_customers", Up: createCustomers},
		{Version: 7, Name: "create_activities", Up: createActivities},
		{Version: 8, Name: "lead_filter_indexes", Up: leadFilterIndexes},
	}
}

// LeadColumns is the full column set of the current leads table.
var LeadColumns = []string{
	"id", "ref_number", "name", "email", "phone", "place", "source", "owner",
	"status", "value", "tags", "notes", "preferred_date", "preferred_time",
	"street_address", "city", "state", "postal_code", "country", "full_address",
	"created_at", "updated_at",
}

// The first tracker release shipped this table. Later columns are added by
// the migrations that follow so old files and fresh ones converge.
func createLeads(ctx context.Context, t *Tx) error {
	d := t.Dialect()
	return t.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS leads (
		id %s,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		company TEXT,
		source TEXT,
		owner TEXT,
		status TEXT DEFAULT 'New',
		value %s DEFAULT 0,
		tags TEXT,
		notes TEXT
	)`, d.IDColumn(), d.RealType()))
}

func leadTimestamps(ctx context.Context, t *Tx) error {
	if err := t.EnsureColumns(ctx, "leads", "created_at", "updated_at"); err != nil {
		return err
	}
	now := database.FormatTime(t.Now())
	if err := t.Exec(ctx, `UPDATE leads SET created_at = ? WHERE created_at IS NULL OR created_at = ''`, now); err != nil {
		return fmt.Errorf("backfill created_at: %w", err)
	}
	if err := t.Exec(ctx, `UPDATE leads SET updated_at = created_at WHERE updated_at IS NULL OR updated_at = ''`); err != nil {
		return fmt.Errorf("backfill updated_at: %w", err)
	}
	return nil
}

func leadPlaceAndSchedule(ctx context.Context, t *Tx) error {
	if err := t.EnsureColumns(ctx, "leads", "place", "preferred_date", "preferred_time"); err != nil {
		return err
	}
	hasCompany, err := t.HasColumn(ctx, "leads", "company")
	if err != nil {
		return err
	}
	if !hasCompany {
		return nil
	}
	err = t.Exec(ctx, `UPDATE leads SET place = company
		WHERE (place IS NULL OR place = '') AND company IS NOT NULL AND company <> ''`)
	if err != nil {
		return fmt.Errorf("backfill place: %w", err)
	}
	return nil
}

func leadRefNumber(ctx context.Context, t *Tx) error {
	if _, err := t.EnsureColumn(ctx, "leads", "ref_number", "TEXT"); err != nil {
		return err
	}

	// Rows without a code, plus every duplicate but the oldest one.
	ids, err := collectIDs(ctx, t, `SELECT id FROM leads WHERE ref_number IS NULL OR ref_number = '' ORDER BY id`)
	if err != nil {
		return err
	}
	dupes, err := collectIDs(ctx, t, `SELECT l.id FROM leads l
		WHERE l.ref_number IS NOT NULL AND l.ref_number <> ''
		  AND EXISTS (SELECT 1 FROM leads o WHERE o.ref_number = l.ref_number AND o.id < l.id)
		ORDER BY l.id`)
	if err != nil {
		return err
	}
	ids = append(ids, dupes...)

	if len(ids) > 0 {
		seq, err := lastDaySequence(ctx, t)
		if err != nil {
			return err
		}
		for _, id := range ids {
			code, next, err := freeCode(ctx, t, seq)
			if err != nil {
				return err
			}
			seq = next
			if err := t.Exec(ctx, `UPDATE leads SET ref_number = ? WHERE id = ?`, code, id); err != nil {
				return fmt.Errorf("backfill ref_number for lead %d: %w", id, err)
			}
		}
	}

	if err := t.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_ref_number ON leads (ref_number)`); err != nil {
		return fmt.Errorf("create ref_number index: %w", err)
	}
	return nil
}

// lastDaySequence returns the highest sequence among today's stored codes.
func lastDaySequence(ctx context.Context, t *Tx) (int, error) {
	p := t.refs.DayPattern(t.Now())
	if p == "" {
		return 0, nil
	}
	rows, err := t.Query(ctx, `SELECT ref_number FROM leads WHERE ref_number LIKE ?`, p)
	if err != nil {
		return 0, fmt.Errorf("list day codes: %w", err)
	}
	defer rows.Close()
	last := 0
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return 0, fmt.Errorf("scan day code: %w", err)
		}
		last = max(last, t.refs.Sequence(ref))
	}
	return last, rows.Err()
}

// freeCode issues the first code after seq that no row holds yet.
func freeCode(ctx context.Context, t *Tx, seq int) (string, int, error) {
	for i := 0; i < 1000; i++ {
		seq++
		code := t.refs.Format(t.Now(), seq)
		var n int
		if err := t.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE ref_number = ?`, code).Scan(&n); err != nil {
			return "", seq, fmt.Errorf("check ref code: %w", err)
		}
		if n == 0 {
			return code, seq, nil
		}
	}
	return "", seq, fmt.Errorf("no free reference code after %d attempts", 1000)
}

func leadAddress(ctx context.Context, t *Tx) error {
	if err := t.EnsureColumns(ctx, "leads",
		"street_address", "city", "state", "postal_code", "country", "full_address"); err != nil {
		return err
	}
	return backfillFullAddress(ctx, t, "leads")
}

func backfillFullAddress(ctx context.Context, t *Tx, table string) error {
	rows, err := t.Query(ctx, fmt.Sprintf(`SELECT id, street_address, city, state, postal_code, country
		FROM %s WHERE full_address IS NULL OR full_address = ''`, table))
	if err != nil {
		return fmt.Errorf("select %s addresses: %w", table, err)
	}
	type pending struct {
		id   int64
		full string
	}
	var updates []pending
	for rows.Next() {
		var id int64
		var street, city, state, zip, country sql.NullString
		if err := rows.Scan(&id, &street, &city, &state, &zip, &country); err != nil {
			rows.Close()
			return fmt.Errorf("scan address: %w", err)
		}
		a := domain.Address{Street: street.String, City: city.String, State: state.String,
			PostalCode: zip.String, Country: country.String}
		if full := a.Full(); full != "" {
			updates = append(updates, pending{id: id, full: full})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, u := range updates {
		if err := t.Exec(ctx, fmt.Sprintf(`UPDATE %s SET full_address = ? WHERE id = ?`, table), u.full, u.id); err != nil {
			return fmt.Errorf("backfill full_address: %w", err)
		}
	}
	return nil
}

func createCustomers(ctx context.Context, t *Tx) error {
	return t.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS customers (
		id %s,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		place TEXT,
		street_address TEXT,
		city TEXT,
		state TEXT,
		postal_code TEXT,
		country TEXT,
		full_address TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`, t.Dialect().IDColumn()))
}

func createActivities(ctx context.Context, t *Tx) error {
	d := t.Dialect()
	err := t.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS activities (
		id %s,
		lead_id %s REFERENCES leads (id) ON DELETE CASCADE,
		customer_id %s REFERENCES customers (id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		subject TEXT NOT NULL,
		details TEXT,
		occurred_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		CHECK ((lead_id IS NULL AND customer_id IS NOT NULL) OR (lead_id IS NOT NULL AND customer_id IS NULL))
	)`, d.IDColumn(), d.IntType(), d.IntType()))
	if err != nil {
		return err
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_activities_lead ON activities (lead_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_customer ON activities (customer_id)`,
	} {
		if err := t.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func leadFilterIndexes(ctx context.Context, t *Tx) error {
	for _, col := range []string{"status", "source", "created_at"} {
		stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_leads_%s ON leads (%s)`, col, col)
		if err := t.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("index leads.%s: %w", col, err)
		}
	}
	return nil
}

func collectIDs(ctx context.Context, t *Tx, query string, args ...any) ([]int64, error) {
	rows, err := t.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
