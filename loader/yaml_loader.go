// Package loader reads table definitions from YAML table files.
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/tablesmith/schema"
)

type yamlFile struct {
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name        string           `yaml:"name"`
	Columns     []yamlColumn     `yaml:"columns"`
	ForeignKeys []yamlForeignKey `yaml:"foreign_keys"`
}

type yamlColumn struct {
	Name          string  `yaml:"name"`
	Type          string  `yaml:"type"`
	Primary       bool    `yaml:"primary"`
	Unique        bool    `yaml:"unique"`
	AutoIncrement bool    `yaml:"auto_increment"`
	Nullable      *bool   `yaml:"nullable"`
	Default       *string `yaml:"default"`
	Position      string  `yaml:"position"`
	Comment       string  `yaml:"comment"`
	References    string  `yaml:"references"` // shorthand: table.column
	OnDelete      string  `yaml:"on_delete"`
	OnUpdate      string  `yaml:"on_update"`
}

type yamlForeignKey struct {
	Name      string `yaml:"name"`
	Column    string `yaml:"column"`
	RefTable  string `yaml:"ref_table"`
	RefColumn string `yaml:"ref_column"`
	OnDelete  string `yaml:"on_delete"`
	OnUpdate  string `yaml:"on_update"`
}

// LoadTablesFromYAML reads a table file.
func LoadTablesFromYAML(filename string) ([]schema.TableDefinition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading table file: %w", err)
	}
	return ParseTables(data)
}

// ParseTables decodes table definitions. Columns are nullable unless marked
// primary or nullable: false.
func ParseTables(data []byte) ([]schema.TableDefinition, error) {
	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}
	if len(yf.Tables) == 0 {
		return nil, fmt.Errorf("table file defines no tables")
	}

	tables := make([]schema.TableDefinition, 0, len(yf.Tables))
	for _, t := range yf.Tables {
		def := schema.TableDefinition{Name: t.Name}
		for _, c := range t.Columns {
			pos, err := schema.ParsePosition(c.Position)
			if err != nil {
				return nil, fmt.Errorf("table %s, column %s: %w", t.Name, c.Name, err)
			}
			nullable := !c.Primary
			if c.Nullable != nil {
				nullable = *c.Nullable
			}
			def.Columns = append(def.Columns, schema.Column{
				Name:          c.Name,
				Type:          c.Type,
				Nullable:      nullable,
				Default:       c.Default,
				AutoIncrement: c.AutoIncrement,
				Unique:        c.Unique,
				PrimaryKey:    c.Primary,
				Position:      pos,
				Comment:       c.Comment,
			})
			if c.References != "" {
				fk, err := referenceShorthand(c)
				if err != nil {
					return nil, fmt.Errorf("table %s: %w", t.Name, err)
				}
				def.ForeignKeys = append(def.ForeignKeys, fk)
			}
		}
		for _, fk := range t.ForeignKeys {
			def.ForeignKeys = append(def.ForeignKeys, schema.ForeignKey{
				Name:      fk.Name,
				Column:    fk.Column,
				RefTable:  fk.RefTable,
				RefColumn: fk.RefColumn,
				OnDelete:  fk.OnDelete,
				OnUpdate:  fk.OnUpdate,
			})
		}
		tables = append(tables, def)
	}
	return tables, nil
}

func referenceShorthand(c yamlColumn) (schema.ForeignKey, error) {
	var table, column string
	for i := len(c.References) - 1; i >= 0; i-- {
		if c.References[i] == '.' {
			table, column = c.References[:i], c.References[i+1:]
			break
		}
	}
	if table == "" || column == "" {
		return schema.ForeignKey{}, fmt.Errorf("column %s: references must be table.column, got %q", c.Name, c.References)
	}
	return schema.ForeignKey{
		Column:    c.Name,
		RefTable:  table,
		RefColumn: column,
		OnDelete:  c.OnDelete,
		OnUpdate:  c.OnUpdate,
	}, nil
}
