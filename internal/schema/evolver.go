package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/pkg/distlock"
	"github.com/ignite/leadbook/internal/pkg/logger"
	"github.com/ignite/leadbook/internal/refcode"
)

// Migration is one versioned, named schema change.
type Migration struct {
	Version int
	Name    string
	Up      func(ctx context.Context, t *Tx) error
}

// ID renders the migration as 001_create_leads.
func (m Migration) ID() string {
	return fmt.Sprintf("%03d_%s", m.Version, m.Name)
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int       `json:"version"`
	Name      string    `json:"name"`
	AppliedAt time.Time `json:"applied_at"`
}

// Evolver applies pending migrations.
type Evolver struct {
	db         *database.DB
	refs       refcode.Generator
	migrations []Migration
	lock       distlock.DistLock
	lockWait   time.Duration
	now        func() time.Time
}

// Option customizes an Evolver.
type Option func(*Evolver)

// WithLock serializes Migrate across processes sharing the database.
func WithLock(l distlock.DistLock, wait time.Duration) Option {
	return func(e *Evolver) {
		e.lock = l
		e.lockWait = wait
	}
}

// WithClock overrides the time source used for backfills.
func WithClock(now func() time.Time) Option {
	return func(e *Evolver) { e.now = now }
}

// WithMigrations replaces the migration list. Used by tests.
func WithMigrations(ms []Migration) Option {
	return func(e *Evolver) { e.migrations = ms }
}

// NewEvolver creates an evolver for db. refs issues codes for rows that
// predate reference numbers.
func NewEvolver(db *database.DB, refs refcode.Generator, opts ...Option) *Evolver {
	e := &Evolver{
		db:         db,
		refs:       refs,
		migrations: Migrations(),
		lockWait:   time.Minute,
		now:        time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Migrate applies every pending migration in version order and returns the
// ones it applied. It stops at the first failure; that migration's changes
// are rolled back and earlier ones stay recorded.
func (e *Evolver) Migrate(ctx context.Context) ([]Migration, error) {
	if e.lock != nil {
		lockCtx, cancel := context.WithTimeout(ctx, e.lockWait)
		defer cancel()
		if err := distlock.WaitAcquire(lockCtx, e.lock, 200*time.Millisecond); err != nil {
			return nil, fmt.Errorf("acquire migration lock: %w", err)
		}
		defer func() {
			if err := e.lock.Release(context.Background()); err != nil {
				logger.Warn("migration lock release failed", "error", err.Error())
			}
		}()
	}

	pending, err := e.Pending(ctx)
	if err != nil {
		return nil, err
	}

	var applied []Migration
	for _, m := range pending {
		now := e.now().UTC()
		err := e.db.WithTx(ctx, func(tx *sql.Tx) error {
			t := &Tx{tx: tx, dialect: e.db.Dialect, refs: e.refs, now: now}
			if err := m.Up(ctx, t); err != nil {
				return err
			}
			return t.Exec(ctx, `INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				m.Version, m.Name, database.FormatTime(now))
		})
		if err != nil {
			return applied, fmt.Errorf("migration %s: %w", m.ID(), err)
		}
		logger.Info("schema migration applied", "migration", m.ID())
		applied = append(applied, m)
	}
	return applied, nil
}

// Applied lists recorded migrations in version order.
func (e *Evolver) Applied(ctx context.Context) ([]AppliedMigration, error) {
	if err := e.ensureVersionTable(ctx); err != nil {
		return nil, err
	}
	rows, err := e.db.QueryContext(ctx, `SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var (
			a  AppliedMigration
			at sql.NullString
		)
		if err := rows.Scan(&a.Version, &a.Name, &at); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		a.AppliedAt = database.ParseNullTime(at)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Pending lists migrations that have not been recorded yet.
func (e *Evolver) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := e.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}
	var out []Migration
	for _, m := range e.migrations {
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (e *Evolver) ensureVersionTable(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}
