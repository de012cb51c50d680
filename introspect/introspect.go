// Package introspect reads live table metadata from information_schema.
package introspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ridoystarlord/tablesmith/database"
	"github.com/ridoystarlord/tablesmith/dberrors"
	"github.com/ridoystarlord/tablesmith/logging"
	"github.com/ridoystarlord/tablesmith/schema"
)

// An empty database argument means the connection's default database.
const schemaFilter = "COALESCE(NULLIF(?, ''), DATABASE())"

const (
	databasesQuery = `SELECT SCHEMA_NAME FROM information_schema.SCHEMATA
WHERE SCHEMA_NAME NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
ORDER BY SCHEMA_NAME`

	tablesQuery = `SELECT TABLE_NAME FROM information_schema.TABLES
WHERE TABLE_SCHEMA = ` + schemaFilter + ` AND TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_NAME`

	tableExistsQuery = `SELECT COUNT(*) FROM information_schema.TABLES
WHERE TABLE_SCHEMA = ` + schemaFilter + ` AND TABLE_NAME = ? AND TABLE_TYPE = 'BASE TABLE'`

	columnsQuery = `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_KEY, COLUMN_DEFAULT, EXTRA, COLUMN_COMMENT
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ` + schemaFilter + ` AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

	foreignKeysQuery = `SELECT k.CONSTRAINT_NAME, k.COLUMN_NAME, k.REFERENCED_TABLE_NAME, k.REFERENCED_COLUMN_NAME, r.DELETE_RULE, r.UPDATE_RULE
FROM information_schema.KEY_COLUMN_USAGE k
JOIN information_schema.REFERENTIAL_CONSTRAINTS r
  ON r.CONSTRAINT_SCHEMA = k.CONSTRAINT_SCHEMA AND r.CONSTRAINT_NAME = k.CONSTRAINT_NAME AND r.TABLE_NAME = k.TABLE_NAME
WHERE k.TABLE_SCHEMA = ` + schemaFilter + ` AND k.TABLE_NAME = ? AND k.REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY k.CONSTRAINT_NAME, k.ORDINAL_POSITION`

	primaryKeyQuery = `SELECT COLUMN_NAME FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ` + schemaFilter + ` AND TABLE_NAME = ? AND COLUMN_KEY = 'PRI'
ORDER BY ORDINAL_POSITION LIMIT 1`
)

// Catalog answers metadata questions. It holds no cache: every call is a
// fresh read.
type Catalog struct {
	db     database.Queryer
	logger *slog.Logger
}

func New(db database.Queryer, logger *slog.Logger) *Catalog {
	return &Catalog{db: db, logger: logging.OrDiscard(logger)}
}

// ListDatabases returns user databases, system schemas excluded.
func (c *Catalog) ListDatabases(ctx context.Context) ([]string, error) {
	return c.names(ctx, databasesQuery)
}

// ListTables returns the base tables of db in name order.
func (c *Catalog) ListTables(ctx context.Context, db string) ([]string, error) {
	return c.names(ctx, tablesQuery, db)
}

func (c *Catalog) TableExists(ctx context.Context, db, table string) (bool, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, tableExistsQuery, db, table).Scan(&n); err != nil {
		return false, dberrors.Classify(err, tableExistsQuery)
	}
	return n > 0, nil
}

// DescribeTable returns a complete snapshot of table or an error, never a
// partial snapshot.
func (c *Catalog) DescribeTable(ctx context.Context, db, table string) (*schema.TableSnapshot, error) {
	rows, err := c.db.QueryContext(ctx, columnsQuery, db, table)
	if err != nil {
		return nil, dberrors.Classify(err, columnsQuery)
	}
	defer rows.Close()

	snap := &schema.TableSnapshot{Database: db, Name: table}
	for rows.Next() {
		var (
			col                   schema.Column
			nullable, key, extra  string
			defaultValue, comment sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &key, &defaultValue, &extra, &comment); err != nil {
			return nil, fmt.Errorf("scanning column of %s: %w", table, err)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		col.PrimaryKey = key == "PRI"
		col.Unique = key == "UNI"
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		if defaultValue.Valid {
			d := defaultValue.String
			col.Default = &d
		}
		col.Comment = comment.String
		if col.PrimaryKey && snap.PrimaryKey == "" {
			snap.PrimaryKey = col.Name
		}
		snap.Columns = append(snap.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, dberrors.Classify(err, columnsQuery)
	}
	if len(snap.Columns) == 0 {
		return nil, fmt.Errorf("%s: %w", table, schema.ErrTableNotFound)
	}

	fks, err := c.ListForeignKeys(ctx, db, table)
	if err != nil {
		return nil, err
	}
	snap.ForeignKeys = fks

	c.logger.Debug("described table", "table", table, "columns", len(snap.Columns), "foreign_keys", len(fks))
	return snap, nil
}

// ListForeignKeys returns the foreign keys declared on table with their
// ON DELETE and ON UPDATE rules.
func (c *Catalog) ListForeignKeys(ctx context.Context, db, table string) ([]schema.ForeignKey, error) {
	rows, err := c.db.QueryContext(ctx, foreignKeysQuery, db, table)
	if err != nil {
		return nil, dberrors.Classify(err, foreignKeysQuery)
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		var fk schema.ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.RefTable, &fk.RefColumn, &fk.OnDelete, &fk.OnUpdate); err != nil {
			return nil, fmt.Errorf("scanning foreign key of %s: %w", table, err)
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, dberrors.Classify(err, foreignKeysQuery)
	}
	return fks, nil
}

// GetPrimaryKeyColumn returns the first primary key column of table, if any.
func (c *Catalog) GetPrimaryKeyColumn(ctx context.Context, db, table string) (string, bool, error) {
	var name string
	err := c.db.QueryRowContext(ctx, primaryKeyQuery, db, table).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, dberrors.Classify(err, primaryKeyQuery)
	}
	return name, true, nil
}

// DescribeAll snapshots every base table of db.
func (c *Catalog) DescribeAll(ctx context.Context, db string) ([]*schema.TableSnapshot, error) {
	tables, err := c.ListTables(ctx, db)
	if err != nil {
		return nil, err
	}
	snaps := make([]*schema.TableSnapshot, 0, len(tables))
	for _, t := range tables {
		snap, err := c.DescribeTable(ctx, db, t)
		if err != nil {
			return nil, fmt.Errorf("describing %s: %w", t, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (c *Catalog) names(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberrors.Classify(err, query)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning name: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dberrors.Classify(err, query)
	}
	return out, nil
}
