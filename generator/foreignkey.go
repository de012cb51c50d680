package generator

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/typecompat"
	"github.com/ridoystarlord/tablesmith/validator"
)

// foreignKeyClause renders CONSTRAINT `name` FOREIGN KEY (...) REFERENCES ... for table.
func foreignKeyClause(table string, fk schema.ForeignKey) (string, error) {
	fk, err := validator.ValidateForeignKey(table, fk)
	if err != nil {
		return "", err
	}
	clause := "CONSTRAINT " + quote(fk.Name) +
		" FOREIGN KEY (" + quote(fk.Column) + ")" +
		" REFERENCES " + quote(fk.RefTable) + " (" + quote(fk.RefColumn) + ")"
	if fk.OnDelete != "" {
		clause += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		clause += " ON UPDATE " + fk.OnUpdate
	}
	return clause, nil
}

// ForeignKeyPlan is the outcome of checking a requested foreign key against
// fresh snapshots of both tables.
type ForeignKeyPlan struct {
	Table      string            `json:"table"`
	ForeignKey schema.ForeignKey `json:"foreign_key"`
	SourceType string            `json:"source_type"`
	TargetType string            `json:"target_type"`
	Compatible bool              `json:"compatible"`
	// Notes lists what widening the source column cannot keep.
	Notes []string `json:"notes,omitempty"`

	source schema.Column
	add    Statement
}

// AddConstraint is the ALTER TABLE ... ADD CONSTRAINT statement.
func (p *ForeignKeyPlan) AddConstraint() Statement { return p.add }

// Widen returns the MODIFY COLUMN statement that changes the source column to
// the target's exact type, keeping its nullability and comment. The default is
// kept when it is still valid for the new type.
func (p *ForeignKeyPlan) Widen() (Statement, error) {
	col := p.widened()
	if col.Default != nil {
		if stmt, err := BuildModifyColumn(p.Table, col); err == nil {
			return stmt, nil
		}
		col.Default = nil
	}
	return BuildModifyColumn(p.Table, col)
}

func (p *ForeignKeyPlan) widened() schema.Column {
	return schema.Column{
		Name:     p.source.Name,
		Type:     p.TargetType,
		Nullable: p.source.Nullable,
		Default:  p.source.Default,
		Comment:  p.source.Comment,
	}
}

// widenNotes reports a default that the widened column would lose.
func (p *ForeignKeyPlan) widenNotes() []string {
	col := p.widened()
	if col.Default == nil {
		return nil
	}
	if _, err := BuildModifyColumn(p.Table, col); err != nil {
		return []string{fmt.Sprintf("widening %s to %s drops its default %q", col.Name, p.TargetType, *col.Default)}
	}
	return nil
}

// Statements resolves the plan. Compatible plans yield the constraint alone.
// Incompatible plans yield widen+constraint when widen is true and an
// incompatible_type error otherwise; there is no third option.
func (p *ForeignKeyPlan) Statements(widen bool) ([]Statement, error) {
	if p.Compatible {
		return []Statement{p.add}, nil
	}
	if !widen {
		return nil, p.incompatible()
	}
	modify, err := p.Widen()
	if err != nil {
		return nil, err
	}
	return []Statement{modify, p.add}, nil
}

func (p *ForeignKeyPlan) incompatible() error {
	return validator.Errorf(validator.KindIncompatibleType, p.Table, p.ForeignKey.Column,
		"type %s is not compatible with %s.%s (%s); widen the column to %s or cancel",
		p.SourceType, p.ForeignKey.RefTable, p.ForeignKey.RefColumn, p.TargetType, p.TargetType)
}

// PlanForeignKey validates fk for source against target. The caller must pass
// snapshots read immediately before the call.
func PlanForeignKey(source *schema.TableSnapshot, fk schema.ForeignKey, target *schema.TableSnapshot) (*ForeignKeyPlan, error) {
	if source == nil || target == nil {
		return nil, validator.Errorf(validator.KindMissingField, "", fk.Column, "source and target table snapshots are required")
	}
	fk, err := validator.ValidateForeignKey(source.Name, fk)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(target.Name, fk.RefTable) {
		return nil, validator.Errorf(validator.KindConstraint, source.Name, fk.Column,
			"target snapshot is for %s, not %s", target.Name, fk.RefTable)
	}

	srcCol, ok := source.Column(fk.Column)
	if !ok {
		return nil, validator.Errorf(validator.KindMissingField, source.Name, fk.Column, "column does not exist")
	}
	if existing, ok := source.ForeignKeyOn(fk.Column); ok {
		return nil, validator.Errorf(validator.KindDuplicateForeignKey, source.Name, fk.Column,
			"column already has foreign key %s -> %s.%s", existing.Name, existing.RefTable, existing.RefColumn)
	}
	tgtCol, ok := target.Column(fk.RefColumn)
	if !ok {
		return nil, validator.Errorf(validator.KindMissingField, target.Name, fk.RefColumn, "referenced column does not exist")
	}

	clause, err := foreignKeyClause(source.Name, fk)
	if err != nil {
		return nil, err
	}

	plan := &ForeignKeyPlan{
		Table:      source.Name,
		ForeignKey: fk,
		SourceType: srcCol.Type,
		TargetType: tgtCol.Type,
		Compatible: typecompat.AreCompatible(srcCol.Type, tgtCol.Type),
		source:     srcCol,
		add:        Statement{SQL: "ALTER TABLE " + quote(source.Name) + " ADD " + clause},
	}
	if !plan.Compatible {
		plan.Notes = plan.widenNotes()
	}
	return plan, nil
}

// BuildAddForeignKey returns the ADD CONSTRAINT statement, refusing when the
// column already has a foreign key or the types are incompatible.
func BuildAddForeignKey(source *schema.TableSnapshot, fk schema.ForeignKey, target *schema.TableSnapshot) (Statement, error) {
	plan, err := PlanForeignKey(source, fk, target)
	if err != nil {
		return Statement{}, err
	}
	stmts, err := plan.Statements(false)
	if err != nil {
		return Statement{}, err
	}
	return stmts[0], nil
}
