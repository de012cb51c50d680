// Package lookup turns a free-form column into a combobox: a ref_<table>_<column>
// lookup table seeded with options, with the column converted to INT and bound
// to it by a foreign key.
package lookup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ridoystarlord/tablesmith/database"
	"github.com/ridoystarlord/tablesmith/dberrors"
	"github.com/ridoystarlord/tablesmith/generator"
	"github.com/ridoystarlord/tablesmith/introspect"
	"github.com/ridoystarlord/tablesmith/logging"
	"github.com/ridoystarlord/tablesmith/runner"
	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/typecompat"
	"github.com/ridoystarlord/tablesmith/validator"
)

// Materialization steps, in execution order.
const (
	StepCreate  = "create"
	StepSeed    = "seed"
	StepConvert = "convert"
	StepAttach  = "attach"
)

// Report describes a completed materialization.
type Report struct {
	ReferenceTable string                `json:"reference_table"`
	HostTable      string                `json:"host_table"`
	HostColumn     string                `json:"host_column"`
	Steps          []string              `json:"steps"`
	Inserted       []string              `json:"inserted"`
	Skipped        []string              `json:"skipped,omitempty"`
	Converted      bool                  `json:"converted"`
	Statements     []generator.Statement `json:"statements"`
}

// SeedResult lists which seeds were inserted and which already existed or
// were blank or repeated.
type SeedResult struct {
	Inserted   []string              `json:"inserted"`
	Skipped    []string              `json:"skipped,omitempty"`
	Statements []generator.Statement `json:"statements,omitempty"`
}

type Materializer struct {
	exec    *runner.Executor
	catalog *introspect.Catalog
	logger  *slog.Logger
}

func New(exec *runner.Executor, logger *slog.Logger) *Materializer {
	logger = logging.OrDiscard(logger)
	return &Materializer{exec: exec, catalog: introspect.New(exec.DB(), logger), logger: logger}
}

// referenceSnapshot is the shape of a lookup table as created by the create step.
func referenceSnapshot(db, name string) *schema.TableSnapshot {
	return &schema.TableSnapshot{Database: db, Name: name, Columns: schema.ReferenceColumns(), PrimaryKey: schema.RefIDColumn}
}

// Materialize runs create, seed, convert and attach on one transaction. MySQL
// commits DDL implicitly, so on failure the steps already applied stay in
// place and are listed in the returned *dberrors.PartialMaterialization. The
// lookup table is never dropped automatically.
func (m *Materializer) Materialize(ctx context.Context, db, hostTable, hostColumn string, seeds []string) (*Report, error) {
	refName := schema.ReferenceTableName(hostTable, hostColumn)
	if err := validator.ValidateIdentifier("table", hostTable); err != nil {
		return nil, err
	}
	if err := validator.ValidateIdentifier("column", hostColumn); err != nil {
		return nil, err
	}
	if err := validator.ValidateIdentifier("reference table", refName); err != nil {
		return nil, err
	}

	host, err := m.catalog.DescribeTable(ctx, db, hostTable)
	if err != nil {
		return nil, err
	}
	col, ok := host.Column(hostColumn)
	if !ok {
		return nil, validator.Errorf(validator.KindMissingField, hostTable, hostColumn, "column does not exist")
	}
	if fk, ok := host.ForeignKeyOn(col.Name); ok {
		return nil, validator.Errorf(validator.KindDuplicateForeignKey, hostTable, col.Name,
			"column already references %s.%s", fk.RefTable, fk.RefColumn)
	}

	report := &Report{ReferenceTable: refName, HostTable: host.Name, HostColumn: col.Name}
	ref := referenceSnapshot(db, refName)

	var failedStep string
	var failedStmt generator.Statement
	run := func(q database.Queryer, step string, stmt generator.Statement) error {
		m.logger.Debug("materialize step", "step", step, "sql", stmt.SQL)
		report.Statements = append(report.Statements, stmt)
		if _, err := q.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
			failedStep, failedStmt = step, stmt
			return dberrors.Classify(err, stmt.SQL)
		}
		return nil
	}

	err = m.exec.Tx(ctx, func(q database.Queryer) error {
		failedStep = StepCreate
		create, err := generator.BuildCreateTableIfNotExists(refName, ref.Columns)
		if err != nil {
			return err
		}
		if err := run(q, StepCreate, create); err != nil {
			return err
		}
		report.Steps = append(report.Steps, StepCreate)

		failedStep = StepSeed
		seeded, err := seed(ctx, q, ref, seeds)
		if err != nil {
			if stmt := dberrors.StatementOf(err); stmt != "" {
				failedStmt = generator.Statement{SQL: stmt}
			}
			return err
		}
		report.Inserted, report.Skipped = seeded.Inserted, seeded.Skipped
		report.Statements = append(report.Statements, seeded.Statements...)
		report.Steps = append(report.Steps, StepSeed)

		failedStep = StepConvert
		source := *host
		if !typecompat.IsInteger(col.Type) {
			convert, err := generator.BuildModifyColumn(host.Name, schema.Column{Name: col.Name, Type: "INT", Nullable: col.Nullable, Comment: col.Comment})
			if err != nil {
				return err
			}
			if err := run(q, StepConvert, convert); err != nil {
				return err
			}
			report.Converted = true
			source.Columns = withType(host.Columns, col.Name, "INT")
		}
		report.Steps = append(report.Steps, StepConvert)

		failedStep = StepAttach
		fk := schema.ForeignKey{
			Column: col.Name, RefTable: refName, RefColumn: schema.RefIDColumn,
			OnDelete: "RESTRICT", OnUpdate: "CASCADE",
		}
		plan, err := generator.PlanForeignKey(&source, fk, ref)
		if err != nil {
			return err
		}
		stmts, err := plan.Statements(false)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			if err := run(q, StepAttach, stmt); err != nil {
				return err
			}
		}
		report.Steps = append(report.Steps, StepAttach)
		return nil
	})
	if err != nil {
		m.logger.Warn("lookup table partially materialized", "reference_table", refName, "failed_step", failedStep, "completed", report.Steps)
		return nil, &dberrors.PartialMaterialization{
			ReferenceTable: refName,
			Completed:      report.Steps,
			Failed:         failedStep,
			Statement:      failedStmt.SQL,
			Err:            err,
		}
	}

	m.logger.Info("lookup table materialized", "reference_table", refName, "inserted", len(report.Inserted), "converted", report.Converted)
	return report, nil
}

func withType(cols []schema.Column, name, sqlType string) []schema.Column {
	out := make([]schema.Column, len(cols))
	copy(out, cols)
	for i := range out {
		if strings.EqualFold(out[i].Name, name) {
			out[i].Type = sqlType
		}
	}
	return out
}

// Seed adds options to an existing lookup table in its own transaction.
func (m *Materializer) Seed(ctx context.Context, db, refTable string, seeds []string) (*SeedResult, error) {
	if err := validator.ValidateIdentifier("reference table", refTable); err != nil {
		return nil, err
	}
	var res *SeedResult
	err := m.exec.Tx(ctx, func(q database.Queryer) error {
		var err error
		res, err = seed(ctx, q, referenceSnapshot(db, refTable), seeds)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// seed inserts every seed not already present. Matching is case-insensitive
// like the default utf8mb4 collation; blanks and repeats are skipped. New
// options are ordered after the highest order already in the table.
func seed(ctx context.Context, q database.Queryer, ref *schema.TableSnapshot, seeds []string) (*SeedResult, error) {
	existing, maxOrder, err := existingValues(ctx, q, ref.Name)
	if err != nil {
		return nil, err
	}

	res := &SeedResult{Inserted: []string{}}
	next := maxOrder + 1
	for _, raw := range seeds {
		v := strings.TrimSpace(raw)
		key := strings.ToLower(v)
		if v == "" || existing[key] {
			if v != "" {
				res.Skipped = append(res.Skipped, v)
			}
			continue
		}
		stmt, err := generator.BuildInsert(ref, map[string]any{
			schema.RefValueColumn: v,
			schema.RefOrderColumn: next,
		})
		if err != nil {
			return nil, err
		}
		if _, err := q.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
			return nil, dberrors.Classify(err, stmt.SQL)
		}
		existing[key] = true
		next++
		res.Inserted = append(res.Inserted, v)
		res.Statements = append(res.Statements, stmt)
	}
	return res, nil
}

// existingValues returns the lowercased values of refTable and its highest
// order, zero when empty.
func existingValues(ctx context.Context, q database.Queryer, refTable string) (map[string]bool, int, error) {
	stmt, err := generator.BuildSelect(refTable, generator.SelectOptions{
		Columns: []string{schema.RefValueColumn, schema.RefOrderColumn},
	})
	if err != nil {
		return nil, 0, err
	}
	rows, err := q.QueryContext(ctx, stmt.SQL)
	if err != nil {
		return nil, 0, dberrors.Classify(err, stmt.SQL)
	}
	defer rows.Close()

	seen := map[string]bool{}
	maxOrder := 0
	for rows.Next() {
		var (
			v     string
			order sql.NullInt64
		)
		if err := rows.Scan(&v, &order); err != nil {
			return nil, 0, fmt.Errorf("scanning %s.value: %w", refTable, err)
		}
		seen[strings.ToLower(v)] = true
		if order.Valid && int(order.Int64) > maxOrder {
			maxOrder = int(order.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberrors.Classify(err, stmt.SQL)
	}
	return seen, maxOrder, nil
}

// ListOptions returns the active options of refTable in display order.
func (m *Materializer) ListOptions(ctx context.Context, refTable string) ([]schema.ReferenceOption, error) {
	qt, err := generator.QuoteIdent("reference table", refTable)
	if err != nil {
		return nil, err
	}
	query := "SELECT `id`, `value`, `description`, `order`, `active` FROM " + qt +
		" WHERE `active` = ? ORDER BY `order`, `id`"

	rows, err := m.exec.DB().QueryContext(ctx, query, true)
	if err != nil {
		return nil, dberrors.Classify(err, query)
	}
	defer rows.Close()

	var opts []schema.ReferenceOption
	for rows.Next() {
		var (
			o      schema.ReferenceOption
			desc   sql.NullString
			order  sql.NullInt64
			active sql.NullBool
		)
		if err := rows.Scan(&o.ID, &o.Value, &desc, &order, &active); err != nil {
			return nil, fmt.Errorf("scanning option of %s: %w", refTable, err)
		}
		o.Description = desc.String
		o.Order = order.Int64
		o.Active = active.Bool
		opts = append(opts, o)
	}
	if err := rows.Err(); err != nil {
		return nil, dberrors.Classify(err, query)
	}
	return opts, nil
}
