// Command leadio moves leads between the database and CSV/XLSX files.
//
//	leadio [-config path] import [-dedupe=true] [-encoding utf-8] <file>
//	leadio [-config path] export [-q term] [-status s] [-owner o] [-source s] [-sort order] <file>
//	leadio [-config path] archive [-format csv|xlsx]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/leadbook/internal/archive"
	"github.com/ignite/leadbook/internal/config"
	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/pkg/distlock"
	"github.com/ignite/leadbook/internal/pkg/logger"
	"github.com/ignite/leadbook/internal/refcode"
	"github.com/ignite/leadbook/internal/repository/sqldb"
	"github.com/ignite/leadbook/internal/schema"
	"github.com/ignite/leadbook/internal/service/lead"
	"github.com/ignite/leadbook/internal/transfer"
)

var errUsage = errors.New("usage: leadio [-config path] import|export|archive [flags] [file]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "leadio: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg   *config.Config
	db    *database.DB
	leads *lead.Service
	out   io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("leadio", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "config/config.yaml", "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Redact())

	a, err := open(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer a.db.Close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "import":
		return a.importFile(ctx, rest)
	case "export":
		return a.exportFile(ctx, rest)
	case "archive":
		return a.archive(ctx, rest)
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

// open connects and brings the schema up to date so the tool works on a
// fresh database file.
func open(ctx context.Context, cfg *config.Config, out io.Writer) (*app, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	refs, err := refcode.New(cfg.References.Format, cfg.References.Prefix)
	if err != nil {
		db.Close()
		return nil, err
	}
	lock := distlock.NewLock(nil, db, "schema-migrate", 5*time.Minute)
	if _, err := schema.NewEvolver(db, refs, schema.WithLock(lock, time.Minute)).Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &app{
		cfg:   cfg,
		db:    db,
		leads: lead.NewService(sqldb.NewLeadRepo(db), refs),
		out:   out,
	}, nil
}

func (a *app) importFile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dedupe := fs.Bool("dedupe", a.cfg.Import.DedupeRef, "skip rows whose reference already exists")
	encoding := fs.String("encoding", a.cfg.Import.Encoding, "CSV encoding: utf-8 or latin1")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	path := fs.Arg(0)

	format, err := transfer.ParseFormat(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := transfer.Read(f, format, transfer.ReadOptions{Encoding: *encoding, MaxRows: a.cfg.Import.MaxRows})
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	res, err := a.leads.Import(ctx, rows, lead.ImportOptions{DedupeRef: *dedupe})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Imported %d of %d rows (%d skipped, %d errors)\n", res.Imported, res.Total, res.Skipped, len(res.Errors))
	for _, e := range res.Errors {
		fmt.Fprintf(a.out, "  line %d: %s\n", e.Line, e.Message)
	}
	return nil
}

func (a *app) exportFile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	search := fs.String("q", "", "free-text search")
	status := fs.String("status", "", "only this status")
	owner := fs.String("owner", "", "only this owner")
	source := fs.String("source", "", "only this source")
	sortName := fs.String("sort", "newest", "sort order")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	path := fs.Arg(0)

	format, err := transfer.ParseFormat(path)
	if err != nil {
		return err
	}
	sort, err := lead.ParseSortOrder(*sortName)
	if err != nil {
		return err
	}
	leads, err := a.leads.List(ctx, lead.ListFilter{
		Search: *search,
		Status: domain.LeadStatus(*status),
		Owner:  *owner,
		Source: domain.LeadSource(*source),
		Sort:   sort,
	})
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := transfer.Write(f, format, leads); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d leads to %s\n", len(leads), path)
	return nil
}

func (a *app) archive(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("archive", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	formatName := fs.String("format", "csv", "snapshot format: csv or xlsx")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := transfer.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	store, err := archive.NewStore(ctx, a.cfg.Archive)
	if err != nil {
		return err
	}
	leads, err := a.leads.All(ctx)
	if err != nil {
		return err
	}
	snap, err := archive.New(store, a.cfg.Archive.Prefix).Archive(ctx, format, leads)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Archived %d leads to %s\n", snap.Leads, snap.Location)
	return nil
}
