package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTableNotFound is returned when the catalog has no columns for a table.
var ErrTableNotFound = errors.New("table not found")

// Column describes one column to create or alter, or one read from the catalog.
type Column struct {
	Name          string   `json:"name" yaml:"name"`
	Type          string   `json:"type" yaml:"type"`
	Nullable      bool     `json:"nullable" yaml:"nullable"`
	Default       *string  `json:"default,omitempty" yaml:"default"`
	AutoIncrement bool     `json:"auto_increment,omitempty" yaml:"auto_increment"`
	Unique        bool     `json:"unique,omitempty" yaml:"unique"`
	PrimaryKey    bool     `json:"primary_key,omitempty" yaml:"primary_key"`
	Position      Position `json:"position,omitempty" yaml:"position"`
	Comment       string   `json:"comment,omitempty" yaml:"comment"`
}

// ForeignKey links Column of the owning table to RefTable.RefColumn.
type ForeignKey struct {
	Name      string `json:"name,omitempty" yaml:"name"`
	Column    string `json:"column" yaml:"column"`
	RefTable  string `json:"ref_table" yaml:"ref_table"`
	RefColumn string `json:"ref_column" yaml:"ref_column"`
	OnDelete  string `json:"on_delete,omitempty" yaml:"on_delete"` // RESTRICT, CASCADE, SET NULL, NO ACTION
	OnUpdate  string `json:"on_update,omitempty" yaml:"on_update"` // RESTRICT, CASCADE, NO ACTION
}

// ConstraintName returns the explicit name or fk_<table>_<column>.
func (fk ForeignKey) ConstraintName(table string) string {
	if fk.Name != "" {
		return fk.Name
	}
	return fmt.Sprintf("fk_%s_%s", table, fk.Column)
}

// TableSnapshot is a point-in-time view of one table as the catalog reports it.
type TableSnapshot struct {
	Database    string       `json:"database"`
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  string       `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// Column looks a column up by name, case-insensitively as MySQL does.
func (t *TableSnapshot) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// ForeignKeyOn returns the foreign key attached to column, if any.
func (t *TableSnapshot) ForeignKeyOn(column string) (ForeignKey, bool) {
	for _, fk := range t.ForeignKeys {
		if strings.EqualFold(fk.Column, column) {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

// ColumnNames returns the column names in ordinal order.
func (t *TableSnapshot) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Dependency is a computed reference from rows of Table.Column to a target row or table.
type Dependency struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Rows   int64  `json:"rows"`
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s.%s (%d row(s))", d.Table, d.Column, d.Rows)
}

// TableDefinition is a desired table, as read from a table file.
type TableDefinition struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}
