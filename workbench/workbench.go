// Package workbench is the operation layer the CLI and the studio share. Every
// operation reads the catalog fresh, synthesizes statements, runs them and
// returns classified errors. Nothing is cached between operations.
package workbench

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ridoystarlord/tablesmith/dberrors"
	"github.com/ridoystarlord/tablesmith/dependency"
	"github.com/ridoystarlord/tablesmith/introspect"
	"github.com/ridoystarlord/tablesmith/logging"
	"github.com/ridoystarlord/tablesmith/lookup"
	"github.com/ridoystarlord/tablesmith/runner"
	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/validator"
)

// ErrAuditDisabled is returned by Activity when no journal is configured.
var ErrAuditDisabled = errors.New("activity journal is disabled (set audit: true)")

type Options struct {
	// Database is the connection's default database. Statements are
	// unqualified, so catalog reads must target the same database.
	Database string
	Audit    bool
	Logger   *slog.Logger
}

type Workbench struct {
	db       *sql.DB
	database string
	catalog  *introspect.Catalog
	deps     *dependency.Checker
	exec     *runner.Executor
	lookup   *lookup.Materializer
	journal  *runner.Journal
	logger   *slog.Logger
}

func New(db *sql.DB, opts Options) *Workbench {
	logger := logging.OrDiscard(opts.Logger)
	exec := runner.NewExecutor(db, logger)
	w := &Workbench{
		db:       db,
		database: opts.Database,
		catalog:  introspect.New(db, logger),
		deps:     dependency.New(db, logger),
		exec:     exec,
		lookup:   lookup.New(exec, logger),
		logger:   logger,
	}
	if opts.Audit {
		w.journal = runner.NewJournal(db, logger)
		exec.WithJournal(w.journal)
	}
	return w
}

func (w *Workbench) Database() string { return w.database }

// Health pings the server.
func (w *Workbench) Health(ctx context.Context) error {
	return dberrors.Connectivity("ping", w.db.PingContext(ctx))
}

func (w *Workbench) Databases(ctx context.Context) ([]string, error) {
	return w.catalog.ListDatabases(ctx)
}

func (w *Workbench) Tables(ctx context.Context) ([]string, error) {
	return w.catalog.ListTables(ctx, w.database)
}

func (w *Workbench) Describe(ctx context.Context, table string) (*schema.TableSnapshot, error) {
	if err := validator.ValidateIdentifier("table", table); err != nil {
		return nil, err
	}
	return w.catalog.DescribeTable(ctx, w.database, table)
}

// Activity returns the newest journal entries.
func (w *Workbench) Activity(ctx context.Context, limit int) ([]runner.Activity, error) {
	if w.journal == nil {
		return nil, ErrAuditDisabled
	}
	return w.journal.Recent(ctx, limit)
}

func newOperationID() string { return uuid.NewString() }
