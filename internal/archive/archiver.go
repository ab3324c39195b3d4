package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/pkg/logger"
	"github.com/ignite/leadbook/internal/transfer"
)

// Snapshot is the result of one archive run.
type Snapshot struct {
	Key       string          `json:"key"`
	Location  string          `json:"location"`
	Format    transfer.Format `json:"format"`
	Leads     int             `json:"leads"`
	Bytes     int             `json:"bytes"`
	CreatedAt time.Time       `json:"created_at"`
}

// Archiver renders leads with package transfer and hands the bytes to a
// Store.
type Archiver struct {
	store  Store
	prefix string
	now    func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithClock overrides the time source used for keys.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// New returns an Archiver writing below prefix.
func New(store Store, prefix string, opts ...Option) *Archiver {
	a := &Archiver{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key returns the object key for a snapshot taken at t.
func (a *Archiver) Key(format transfer.Format, t time.Time) string {
	t = t.UTC()
	name := fmt.Sprintf("leads-%s.%s", t.Format("20060102T150405Z"), format)
	return path.Join(a.prefix, "leads", t.Format("2006/01/02"), name)
}

// Archive writes a snapshot of leads.
func (a *Archiver) Archive(ctx context.Context, format transfer.Format, leads []domain.Lead) (*Snapshot, error) {
	var buf bytes.Buffer
	if err := transfer.Write(&buf, format, leads); err != nil {
		return nil, fmt.Errorf("render snapshot: %w", err)
	}

	at := a.now().UTC()
	key := a.Key(format, at)
	loc, err := a.store.Put(ctx, key, buf.Bytes(), format.ContentType())
	if err != nil {
		return nil, err
	}

	logger.Info("lead snapshot archived", "key", key, "leads", len(leads), "bytes", buf.Len())
	return &Snapshot{
		Key:       key,
		Location:  loc,
		Format:    format,
		Leads:     len(leads),
		Bytes:     buf.Len(),
		CreatedAt: at,
	}, nil
}

// List returns stored lead snapshots, newest first.
func (a *Archiver) List(ctx context.Context) ([]Object, error) {
	return a.store.List(ctx, path.Join(a.prefix, "leads")+"/")
}
