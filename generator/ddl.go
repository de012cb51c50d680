package generator

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/validator"
)

const tableOptions = " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"

// BuildCreateTable builds CREATE TABLE for columns plus optional inline foreign
// keys. Primary-key columns are gathered into one PRIMARY KEY clause in the
// order they were declared.
func BuildCreateTable(table string, columns []schema.Column, fks ...schema.ForeignKey) (Statement, error) {
	return buildCreateTable(table, columns, fks, false)
}

// BuildCreateTableIfNotExists is BuildCreateTable with IF NOT EXISTS.
func BuildCreateTableIfNotExists(table string, columns []schema.Column, fks ...schema.ForeignKey) (Statement, error) {
	return buildCreateTable(table, columns, fks, true)
}

func buildCreateTable(table string, columns []schema.Column, fks []schema.ForeignKey, ifNotExists bool) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	if len(columns) == 0 {
		return Statement{}, validator.Errorf(validator.KindMissingField, table, "", "CREATE TABLE requires at least one column")
	}

	var defs []string
	var pk []string
	seen := map[string]bool{}
	for _, col := range columns {
		key := strings.ToLower(col.Name)
		if seen[key] {
			return Statement{}, validator.Errorf(validator.KindConstraint, table, col.Name, "duplicate column name")
		}
		seen[key] = true

		def, err := columnDefinition(table, col, true)
		if err != nil {
			return Statement{}, err
		}
		defs = append(defs, def)
		if col.PrimaryKey {
			pk = append(pk, quote(col.Name))
		}
	}
	if len(pk) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")
	}

	for _, fk := range fks {
		if !seen[strings.ToLower(fk.Column)] {
			return Statement{}, validator.Errorf(validator.KindMissingField, table, fk.Column, "foreign key column is not defined in the table")
		}
		clause, err := foreignKeyClause(table, fk)
		if err != nil {
			return Statement{}, err
		}
		defs = append(defs, clause)
	}

	head := "CREATE TABLE "
	if ifNotExists {
		head += "IF NOT EXISTS "
	}
	return Statement{SQL: head + qt + " (" + strings.Join(defs, ", ") + ")" + tableOptions}, nil
}

// BuildAddColumn builds ALTER TABLE ... ADD COLUMN. Clauses always come in the
// order NOT NULL, DEFAULT, AUTO_INCREMENT, UNIQUE, PRIMARY KEY, FIRST/AFTER.
func BuildAddColumn(table string, col schema.Column) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	def, err := columnDefinition(table, col, true)
	if err != nil {
		return Statement{}, err
	}
	if col.PrimaryKey {
		def += " PRIMARY KEY"
	}
	return Statement{SQL: "ALTER TABLE " + qt + " ADD COLUMN " + def + positionClause(col.Position)}, nil
}

// BuildModifyColumn builds ALTER TABLE ... MODIFY COLUMN. Key flags on col are
// validated but not emitted; keys are changed with BuildAddUnique or by
// recreating the table.
func BuildModifyColumn(table string, col schema.Column) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	def, err := columnDefinition(table, col, false)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "ALTER TABLE " + qt + " MODIFY COLUMN " + def + positionClause(col.Position)}, nil
}

func BuildDropColumn(table, column string) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	qc, err := QuoteIdent("column", column)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "ALTER TABLE " + qt + " DROP COLUMN " + qc}, nil
}

func BuildRenameColumn(table, from, to string) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	names, err := quoteAll("column", []string{from, to})
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "ALTER TABLE " + qt + " RENAME COLUMN " + names[0] + " TO " + names[1]}, nil
}

// BuildAddUnique adds a UNIQUE constraint over columns. An empty name becomes
// uq_<table>_<col1>_<col2>...
func BuildAddUnique(table string, columns []string, name string) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	if len(columns) == 0 {
		return Statement{}, validator.Errorf(validator.KindMissingField, table, "", "UNIQUE constraint requires at least one column")
	}
	cols, err := quoteAll("column", columns)
	if err != nil {
		return Statement{}, err
	}
	if name == "" {
		name = "uq_" + table + "_" + strings.Join(columns, "_")
	}
	qn, err := QuoteIdent("constraint", name)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)", qt, qn, strings.Join(cols, ", "))}, nil
}

func BuildDropForeignKey(table, constraint string) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	qn, err := QuoteIdent("constraint", constraint)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "ALTER TABLE " + qt + " DROP FOREIGN KEY " + qn}, nil
}

func BuildDropTable(table string) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "DROP TABLE " + qt}, nil
}

func BuildCreateDatabase(name string) (Statement, error) {
	qn, err := QuoteIdent("database", name)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "CREATE DATABASE " + qn + " CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci"}, nil
}
