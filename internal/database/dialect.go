package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect describes SQL differences between supported engines. Queries in
// this module are written with `?` placeholders and passed through Rebind.
type Dialect struct {
	Name string
}

var (
	SQLite   = Dialect{Name: "sqlite"}
	Postgres = Dialect{Name: "postgres"}
)

// Rebind rewrites `?` placeholders to `$1, $2, ...` for PostgreSQL. Question
// marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(q string) string {
	if d.Name != Postgres.Name {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IDColumn is the DDL for an auto-incrementing integer primary key.
func (d Dialect) IDColumn() string {
	if d.Name == Postgres.Name {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// RealType is the DDL type for floating point money values.
func (d Dialect) RealType() string {
	if d.Name == Postgres.Name {
		return "DOUBLE PRECISION"
	}
	return "REAL"
}

// IntType is the DDL type for foreign key references to IDColumn.
func (d Dialect) IntType() string {
	if d.Name == Postgres.Name {
		return "BIGINT"
	}
	return "INTEGER"
}

// TableExists reports whether the named table is present.
func (d Dialect) TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	var query string
	if d.Name == Postgres.Name {
		query = `SELECT COUNT(*) FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1`
	} else {
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}
	var n int
	if err := q.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

// Columns returns the set of column names currently on table.
func (d Dialect) Columns(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	cols := make(map[string]bool)
	if d.Name == Postgres.Name {
		rows, err := q.QueryContext(ctx, `SELECT column_name FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1`, table)
		if err != nil {
			return nil, fmt.Errorf("table info %s: %w", table, err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, fmt.Errorf("scan column: %w", err)
			}
			cols[strings.ToLower(name)] = true
		}
		return cols, rows.Err()
	}

	// PRAGMA cannot take bind parameters; table names come from migration
	// definitions, never from user input.
	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

// IsUniqueViolation reports whether err was raised by a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		code := sqErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
