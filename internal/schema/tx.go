package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/refcode"
)

// Tx is the handle a migration runs against. Queries use `?` placeholders.
type Tx struct {
	tx      *sql.Tx
	dialect database.Dialect
	refs    refcode.Generator
	now     time.Time
}

// Dialect returns the dialect of the underlying database.
func (t *Tx) Dialect() database.Dialect { return t.dialect }

// Now is the instant used for every backfill in this migration.
func (t *Tx) Now() time.Time { return t.now }

// Exec runs a statement after rebinding placeholders.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...); err != nil {
		return err
	}
	return nil
}

// Query runs a query after rebinding placeholders.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

// QueryRow runs a single-row query after rebinding placeholders.
func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

// HasColumn reports whether table currently has column.
func (t *Tx) HasColumn(ctx context.Context, table, column string) (bool, error) {
	cols, err := t.dialect.Columns(ctx, t.tx, table)
	if err != nil {
		return false, err
	}
	return cols[column], nil
}

// EnsureColumn adds column with ddlType when it is missing and reports
// whether it did. ddlType must accept NULL so existing rows stay valid.
func (t *Tx) EnsureColumn(ctx context.Context, table, column, ddlType string) (bool, error) {
	ok, err := t.HasColumn(ctx, table, column)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if err := t.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, ddlType)); err != nil {
		return false, fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return true, nil
}

// EnsureColumns adds every missing column as TEXT.
func (t *Tx) EnsureColumns(ctx context.Context, table string, columns ...string) error {
	for _, c := range columns {
		if _, err := t.EnsureColumn(ctx, table, c, "TEXT"); err != nil {
			return err
		}
	}
	return nil
}
