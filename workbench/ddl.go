package workbench

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridoystarlord/tablesmith/diff"
	"github.com/ridoystarlord/tablesmith/generator"
	"github.com/ridoystarlord/tablesmith/runner"
	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/typecompat"
	"github.com/ridoystarlord/tablesmith/validator"
)

func (w *Workbench) CreateDatabase(ctx context.Context, name string) (*runner.Result, error) {
	stmt, err := generator.BuildCreateDatabase(name)
	if err != nil {
		return nil, err
	}
	return w.exec.Exec(ctx, "create database "+name, stmt)
}

// CreateTable validates the definition, checks every inline foreign key
// against a fresh snapshot of its target, and creates the table.
func (w *Workbench) CreateTable(ctx context.Context, def schema.TableDefinition) (*runner.Result, error) {
	if err := validator.ValidateTable(def.Name, def.Columns, def.ForeignKeys).Err(); err != nil {
		return nil, err
	}
	exists, err := w.catalog.TableExists(ctx, w.database, def.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, validator.Errorf(validator.KindConstraint, def.Name, "", "table already exists")
	}

	source := &schema.TableSnapshot{Database: w.database, Name: def.Name, Columns: def.Columns}
	for _, fk := range def.ForeignKeys {
		target, err := w.targetSnapshot(ctx, source, fk)
		if err != nil {
			return nil, err
		}
		plan, err := generator.PlanForeignKey(source, fk, target)
		if err != nil {
			return nil, err
		}
		if _, err := plan.Statements(false); err != nil {
			return nil, err
		}
	}

	stmt, err := generator.BuildCreateTable(def.Name, def.Columns, def.ForeignKeys...)
	if err != nil {
		return nil, err
	}
	return w.exec.Exec(ctx, "create table "+def.Name, stmt)
}

// targetSnapshot reads fk's referenced table, or reuses source for a self reference.
func (w *Workbench) targetSnapshot(ctx context.Context, source *schema.TableSnapshot, fk schema.ForeignKey) (*schema.TableSnapshot, error) {
	if strings.EqualFold(fk.RefTable, source.Name) {
		return source, nil
	}
	if err := validator.ValidateIdentifier("referenced table", fk.RefTable); err != nil {
		return nil, err
	}
	return w.catalog.DescribeTable(ctx, w.database, fk.RefTable)
}

// DropTable refuses while any other table references table.
func (w *Workbench) DropTable(ctx context.Context, table string) (*runner.Result, error) {
	if _, err := w.Describe(ctx, table); err != nil {
		return nil, err
	}
	if err := w.deps.CheckTableDrop(ctx, w.database, table); err != nil {
		return nil, err
	}
	stmt, err := generator.BuildDropTable(table)
	if err != nil {
		return nil, err
	}
	return w.exec.Exec(ctx, "drop table "+table, stmt)
}

func (w *Workbench) AddColumn(ctx context.Context, table string, col schema.Column) (*runner.Result, error) {
	snap, err := w.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Column(col.Name); ok {
		return nil, validator.Errorf(validator.KindConstraint, table, col.Name, "column already exists")
	}
	if err := checkAfter(snap, col); err != nil {
		return nil, err
	}
	if col.PrimaryKey && snap.PrimaryKey != "" {
		return nil, validator.Errorf(validator.KindConstraint, table, col.Name, "table already has primary key %s", snap.PrimaryKey)
	}
	stmt, err := generator.BuildAddColumn(table, col)
	if err != nil {
		return nil, err
	}
	return w.exec.Exec(ctx, "add column "+table+"."+col.Name, stmt)
}

// ModifyColumn changes an existing column's definition. A column that
// carries or is targeted by a foreign key may only stay within its type family.
func (w *Workbench) ModifyColumn(ctx context.Context, table string, col schema.Column) (*runner.Result, error) {
	snap, err := w.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	have, ok := snap.Column(col.Name)
	if !ok {
		return nil, validator.Errorf(validator.KindMissingField, table, col.Name, "column does not exist")
	}
	if err := checkAfter(snap, col); err != nil {
		return nil, err
	}
	if fk, ok := snap.ForeignKeyOn(col.Name); ok && !typecompat.AreCompatible(have.Type, col.Type) {
		return nil, validator.Errorf(validator.KindIncompatibleType, table, col.Name,
			"column references %s.%s; %s is not compatible with %s", fk.RefTable, fk.RefColumn, col.Type, have.Type)
	}
	stmt, err := generator.BuildModifyColumn(table, col)
	if err != nil {
		return nil, err
	}
	return w.exec.Exec(ctx, "modify column "+table+"."+col.Name, stmt)
}

// DropColumn refuses to drop a column that carries a foreign key, or one
// that other tables reference.
func (w *Workbench) DropColumn(ctx context.Context, table, column string) (*runner.Result, error) {
	snap, err := w.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	col, ok := snap.Column(column)
	if !ok {
		return nil, validator.Errorf(validator.KindMissingField, table, column, "column does not exist")
	}
	if fk, ok := snap.ForeignKeyOn(col.Name); ok {
		return nil, validator.Errorf(validator.KindConstraint, table, col.Name,
			"column carries foreign key %s; drop the constraint first", fk.Name)
	}
	if len(snap.Columns) == 1 {
		return nil, validator.Errorf(validator.KindConstraint, table, col.Name, "cannot drop the only column of a table")
	}
	refs, err := w.deps.ReferencingColumns(ctx, w.database, table, col.Name)
	if err != nil {
		return nil, err
	}
	if len(refs) > 0 {
		return nil, validator.Errorf(validator.KindConstraint, table, col.Name, "column is referenced by %s.%s", refs[0].Table, refs[0].Column)
	}
	stmt, err := generator.BuildDropColumn(table, col.Name)
	if err != nil {
		return nil, err
	}
	return w.exec.Exec(ctx, "drop column "+table+"."+col.Name, stmt)
}

func (w *Workbench) RenameColumn(ctx context.Context, table, from, to string) (*runner.Result, error) {
	snap, err := w.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Column(from); !ok {
		return nil, validator.Errorf(validator.KindMissingField, table, from, "column does not exist")
	}
	if _, ok := snap.Column(to); ok && !strings.EqualFold(from, to) {
		return nil, validator.Errorf(validator.KindConstraint, table, to, "column already exists")
	}
	stmt, err := generator.BuildRenameColumn(table, from, to)
	if err != nil {
		return nil, err
	}
	return w.exec.Exec(ctx, fmt.Sprintf("rename column %s.%s to %s", table, from, to), stmt)
}

// ForeignKeyResult carries the plan alongside the executed statements so
// callers can show what was widened.
type ForeignKeyResult struct {
	Plan   *generator.ForeignKeyPlan `json:"plan"`
	Result *runner.Result            `json:"result,omitempty"`
}

// PlanForeignKey checks fk against fresh snapshots without executing anything.
func (w *Workbench) PlanForeignKey(ctx context.Context, table string, fk schema.ForeignKey) (*generator.ForeignKeyPlan, error) {
	source, err := w.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	target, err := w.targetSnapshot(ctx, source, fk)
	if err != nil {
		return nil, err
	}
	return generator.PlanForeignKey(source, fk, target)
}

// AddForeignKey adds fk. When the column types are incompatible the column is
// widened to the target type if widen is set; otherwise nothing is executed.
func (w *Workbench) AddForeignKey(ctx context.Context, table string, fk schema.ForeignKey, widen bool) (*ForeignKeyResult, error) {
	plan, err := w.PlanForeignKey(ctx, table, fk)
	if err != nil {
		return nil, err
	}
	stmts, err := plan.Statements(widen)
	if err != nil {
		return &ForeignKeyResult{Plan: plan}, err
	}
	res, err := w.exec.Exec(ctx, "add foreign key "+plan.ForeignKey.Name, stmts...)
	if err != nil {
		return &ForeignKeyResult{Plan: plan}, err
	}
	return &ForeignKeyResult{Plan: plan, Result: res}, nil
}

func (w *Workbench) AddUnique(ctx context.Context, table string, columns []string, name string) (*runner.Result, error) {
	snap, err := w.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, c := range columns {
		if _, ok := snap.Column(c); !ok {
			return nil, validator.Errorf(validator.KindMissingField, table, c, "column does not exist")
		}
	}
	stmt, err := generator.BuildAddUnique(table, columns, name)
	if err != nil {
		return nil, err
	}
	return w.exec.Exec(ctx, "add unique "+table+"("+strings.Join(columns, ", ")+")", stmt)
}

// PlanTables diffs definitions against the live catalog.
func (w *Workbench) PlanTables(ctx context.Context, defs []schema.TableDefinition) (*diff.Plan, error) {
	existing, err := w.catalog.DescribeAll(ctx, w.database)
	if err != nil {
		return nil, err
	}
	return diff.DiffTables(defs, existing)
}

// ApplyTables runs the additive plan for defs. An empty plan executes nothing.
func (w *Workbench) ApplyTables(ctx context.Context, defs []schema.TableDefinition) (*diff.Plan, *runner.Result, error) {
	plan, err := w.PlanTables(ctx, defs)
	if err != nil {
		return nil, nil, err
	}
	if plan.Empty() {
		return plan, nil, nil
	}
	res, err := w.exec.Exec(ctx, "apply table file", plan.Statements()...)
	return plan, res, err
}

func checkAfter(snap *schema.TableSnapshot, col schema.Column) error {
	if col.Position.After == "" {
		return nil
	}
	if _, ok := snap.Column(col.Position.After); !ok {
		return validator.Errorf(validator.KindMissingField, snap.Name, col.Position.After, "AFTER column does not exist")
	}
	return nil
}
