package sqldb

import (
	"context"
	"fmt"

	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/domain"
)

const selectActivities = `SELECT id, lead_id, customer_id, kind, subject, COALESCE(details, ''), occurred_at, created_at
FROM activities`

// ActivityRepo implements activity.Repository.
type ActivityRepo struct{ db *database.DB }

// NewActivityRepo creates an activity repository on db.
func NewActivityRepo(db *database.DB) *ActivityRepo { return &ActivityRepo{db: db} }

func (r *ActivityRepo) Create(ctx context.Context, a *domain.Activity) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(`INSERT INTO activities
		(lead_id, customer_id, kind, subject, details, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		database.NullInt64(a.LeadID), database.NullInt64(a.CustomerID), string(a.Kind), a.Subject,
		database.NullString(a.Details), database.FormatTime(a.OccurredAt), database.FormatTime(a.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create activity: %w", err)
	}
	return id, nil
}

func (r *ActivityRepo) list(ctx context.Context, column string, id int64) ([]domain.Activity, error) {
	q := selectActivities + " WHERE " + column + " = ? ORDER BY occurred_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(q), id)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	out := []domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *ActivityRepo) ListForLead(ctx context.Context, leadID int64) ([]domain.Activity, error) {
	return r.list(ctx, "lead_id", leadID)
}

func (r *ActivityRepo) ListForCustomer(ctx context.Context, customerID int64) ([]domain.Activity, error) {
	return r.list(ctx, "customer_id", customerID)
}

func (r *ActivityRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(`DELETE FROM activities WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}

func (r *ActivityRepo) exists(ctx context.Context, table string, id int64) (bool, error) {
	var n int
	q := "SELECT COUNT(*) FROM " + table + " WHERE id = ?"
	if err := r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(q), id).Scan(&n); err != nil {
		return false, fmt.Errorf("check %s %d: %w", table, id, err)
	}
	return n > 0, nil
}

func (r *ActivityRepo) LeadExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "leads", id)
}

func (r *ActivityRepo) CustomerExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "customers", id)
}
