// Package dependency finds rows and tables that still reference a delete
// target, and refuses the delete when they exist or cannot be counted.
package dependency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ridoystarlord/tablesmith/database"
	"github.com/ridoystarlord/tablesmith/dberrors"
	"github.com/ridoystarlord/tablesmith/generator"
	"github.com/ridoystarlord/tablesmith/introspect"
	"github.com/ridoystarlord/tablesmith/logging"
	"github.com/ridoystarlord/tablesmith/schema"
)

type Checker struct {
	db      database.Queryer
	catalog *introspect.Catalog
	logger  *slog.Logger
}

func New(db database.Queryer, logger *slog.Logger) *Checker {
	logger = logging.OrDiscard(logger)
	return &Checker{db: db, catalog: introspect.New(db, logger), logger: logger}
}

// referencing is one foreign key elsewhere in the database that points at the target.
type referencing struct {
	table string
	fk    schema.ForeignKey
}

// references lists foreign keys in every other table of db that point at
// table (and at column, when column is set). Self references are skipped.
func (c *Checker) references(ctx context.Context, db, table, column string) ([]referencing, error) {
	tables, err := c.catalog.ListTables(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	var refs []referencing
	for _, t := range tables {
		if strings.EqualFold(t, table) {
			continue
		}
		fks, err := c.catalog.ListForeignKeys(ctx, db, t)
		if err != nil {
			return nil, fmt.Errorf("reading foreign keys of %s: %w", t, err)
		}
		for _, fk := range fks {
			if !strings.EqualFold(fk.RefTable, table) {
				continue
			}
			if column != "" && !strings.EqualFold(fk.RefColumn, column) {
				continue
			}
			refs = append(refs, referencing{table: t, fk: fk})
		}
	}
	return refs, nil
}

func (c *Checker) count(ctx context.Context, stmt generator.Statement) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&n); err != nil {
		return 0, dberrors.Classify(err, stmt.SQL)
	}
	return n, nil
}

// FindDependents returns, per referencing foreign key, how many rows hold
// value. Only non-zero counts are returned.
func (c *Checker) FindDependents(ctx context.Context, db, table, column string, value any) ([]schema.Dependency, error) {
	refs, err := c.references(ctx, db, table, column)
	if err != nil {
		return nil, err
	}

	var deps []schema.Dependency
	for _, r := range refs {
		stmt, err := generator.BuildCountWhere(r.table, r.fk.Column, value)
		if err != nil {
			return nil, err
		}
		n, err := c.count(ctx, stmt)
		if err != nil {
			return nil, fmt.Errorf("counting %s.%s: %w", r.table, r.fk.Column, err)
		}
		if n > 0 {
			deps = append(deps, schema.Dependency{Table: r.table, Column: r.fk.Column, Rows: n})
		}
	}
	return deps, nil
}

// CheckRowDelete returns nil only when no row anywhere references
// table.column = value. Any failure to find out blocks the delete.
func (c *Checker) CheckRowDelete(ctx context.Context, db, table, column string, value any) error {
	deps, err := c.FindDependents(ctx, db, table, column, value)
	if err != nil {
		c.logger.Warn("dependency check failed, delete refused", "table", table, "column", column, "error", err)
		return &dberrors.DependencyBlocked{Table: table, Column: column, Value: value, Unverified: true, Err: err}
	}
	if len(deps) > 0 {
		c.logger.Info("delete blocked by dependents", "table", table, "column", column, "dependents", len(deps))
		return &dberrors.DependencyBlocked{Table: table, Column: column, Value: value, Dependencies: deps}
	}
	return nil
}

// FindTableDependents lists every foreign key elsewhere that references
// table, with the number of rows that have the referencing column set. Zero
// counts are kept: MySQL refuses to drop a referenced table either way.
func (c *Checker) FindTableDependents(ctx context.Context, db, table string) ([]schema.Dependency, error) {
	refs, err := c.references(ctx, db, table, "")
	if err != nil {
		return nil, err
	}

	deps := make([]schema.Dependency, 0, len(refs))
	for _, r := range refs {
		stmt, err := generator.BuildCountNotNull(r.table, r.fk.Column)
		if err != nil {
			return nil, err
		}
		n, err := c.count(ctx, stmt)
		if err != nil {
			return nil, fmt.Errorf("counting %s.%s: %w", r.table, r.fk.Column, err)
		}
		deps = append(deps, schema.Dependency{Table: r.table, Column: r.fk.Column, Rows: n})
	}
	return deps, nil
}

// ReferencingColumns lists the columns elsewhere whose foreign keys point at
// table.column. Rows are not counted.
func (c *Checker) ReferencingColumns(ctx context.Context, db, table, column string) ([]schema.Dependency, error) {
	refs, err := c.references(ctx, db, table, column)
	if err != nil {
		return nil, err
	}
	deps := make([]schema.Dependency, 0, len(refs))
	for _, r := range refs {
		deps = append(deps, schema.Dependency{Table: r.table, Column: r.fk.Column})
	}
	return deps, nil
}

// CheckTableDrop is the table-level counterpart of CheckRowDelete.
func (c *Checker) CheckTableDrop(ctx context.Context, db, table string) error {
	deps, err := c.FindTableDependents(ctx, db, table)
	if err != nil {
		return &dberrors.DependencyBlocked{Table: table, Unverified: true, Err: err}
	}
	if len(deps) > 0 {
		return &dberrors.DependencyBlocked{Table: table, Dependencies: deps}
	}
	return nil
}
