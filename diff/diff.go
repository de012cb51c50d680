// Package diff compares desired table definitions with the live catalog and
// plans the additive statements that close the gap. It never drops anything:
// columns, keys or types that differ are reported as drift.
package diff

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/tablesmith/generator"
	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/typecompat"
	"github.com/ridoystarlord/tablesmith/validator"
)

type OperationType string

const (
	CreateTable   OperationType = "CREATE_TABLE"
	AddColumn     OperationType = "ADD_COLUMN"
	AddForeignKey OperationType = "ADD_FOREIGN_KEY"
)

type DriftType string

const (
	ExtraColumn        DriftType = "EXTRA_COLUMN"
	TypeMismatch       DriftType = "TYPE_MISMATCH"
	ForeignKeyMismatch DriftType = "FOREIGN_KEY_MISMATCH"
)

type Operation struct {
	Type      OperationType       `json:"type"`
	Table     string              `json:"table"`
	Column    string              `json:"column,omitempty"`
	Statement generator.Statement `json:"statement"`
}

// Drift is a difference the plan leaves alone.
type Drift struct {
	Type   DriftType `json:"type"`
	Table  string    `json:"table"`
	Column string    `json:"column,omitempty"`
	Detail string    `json:"detail"`
}

type Plan struct {
	Operations []Operation `json:"operations"`
	Drift      []Drift     `json:"drift,omitempty"`
}

func (p *Plan) Empty() bool { return len(p.Operations) == 0 }

func (p *Plan) Statements() []generator.Statement {
	stmts := make([]generator.Statement, 0, len(p.Operations))
	for _, op := range p.Operations {
		stmts = append(stmts, op.Statement)
	}
	return stmts
}

// DiffTables plans CREATE TABLE for missing tables, ADD COLUMN for missing
// columns and ADD CONSTRAINT for missing foreign keys. Tables are created
// without constraints first so definitions may reference each other in any
// order.
func DiffTables(desired []schema.TableDefinition, existing []*schema.TableSnapshot) (*Plan, error) {
	working := map[string]*schema.TableSnapshot{}
	for _, snap := range existing {
		cp := *snap
		cp.Columns = append([]schema.Column(nil), snap.Columns...)
		cp.ForeignKeys = append([]schema.ForeignKey(nil), snap.ForeignKeys...)
		working[strings.ToLower(snap.Name)] = &cp
	}

	plan := &Plan{Operations: []Operation{}}
	for _, def := range desired {
		if err := validator.ValidateTable(def.Name, def.Columns, def.ForeignKeys).Err(); err != nil {
			return nil, err
		}

		current, ok := working[strings.ToLower(def.Name)]
		if !ok {
			stmt, err := generator.BuildCreateTable(def.Name, def.Columns)
			if err != nil {
				return nil, err
			}
			plan.Operations = append(plan.Operations, Operation{Type: CreateTable, Table: def.Name, Statement: stmt})
			working[strings.ToLower(def.Name)] = &schema.TableSnapshot{Name: def.Name, Columns: def.Columns}
			continue
		}

		wanted := map[string]bool{}
		for _, col := range def.Columns {
			wanted[strings.ToLower(col.Name)] = true
			have, ok := current.Column(col.Name)
			if !ok {
				stmt, err := generator.BuildAddColumn(current.Name, col)
				if err != nil {
					return nil, err
				}
				plan.Operations = append(plan.Operations, Operation{Type: AddColumn, Table: current.Name, Column: col.Name, Statement: stmt})
				current.Columns = append(current.Columns, col)
				continue
			}
			if typecompat.BaseType(have.Type) != typecompat.BaseType(col.Type) {
				plan.Drift = append(plan.Drift, Drift{
					Type: TypeMismatch, Table: current.Name, Column: col.Name,
					Detail: fmt.Sprintf("database has %s, definition wants %s", have.Type, col.Type),
				})
			}
		}
		for _, have := range current.Columns {
			if !wanted[strings.ToLower(have.Name)] {
				plan.Drift = append(plan.Drift, Drift{
					Type: ExtraColumn, Table: current.Name, Column: have.Name,
					Detail: "column exists in the database but not in the definition",
				})
			}
		}
	}

	for _, def := range desired {
		source := working[strings.ToLower(def.Name)]
		for _, fk := range def.ForeignKeys {
			if have, ok := source.ForeignKeyOn(fk.Column); ok {
				if !strings.EqualFold(have.RefTable, fk.RefTable) || !strings.EqualFold(have.RefColumn, fk.RefColumn) {
					plan.Drift = append(plan.Drift, Drift{
						Type: ForeignKeyMismatch, Table: source.Name, Column: fk.Column,
						Detail: fmt.Sprintf("database references %s.%s, definition wants %s.%s", have.RefTable, have.RefColumn, fk.RefTable, fk.RefColumn),
					})
				}
				continue
			}
			target, ok := working[strings.ToLower(fk.RefTable)]
			if !ok {
				return nil, validator.Errorf(validator.KindMissingField, def.Name, fk.Column, "referenced table %s does not exist", fk.RefTable)
			}
			fkPlan, err := generator.PlanForeignKey(source, fk, target)
			if err != nil {
				return nil, err
			}
			stmts, err := fkPlan.Statements(false)
			if err != nil {
				return nil, err
			}
			plan.Operations = append(plan.Operations, Operation{Type: AddForeignKey, Table: source.Name, Column: fk.Column, Statement: stmts[0]})
			source.ForeignKeys = append(source.ForeignKeys, fkPlan.ForeignKey)
		}
	}
	return plan, nil
}
