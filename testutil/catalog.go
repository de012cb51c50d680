package testutil

import (
	"database/sql/driver"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ridoystarlord/tablesmith/schema"
)

// Patterns matching the catalog queries under sqlmock's default regexp matcher.
const (
	TablesPattern      = `SELECT TABLE_NAME FROM information_schema\.TABLES`
	ColumnsPattern     = `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE`
	ForeignKeysPattern = `FROM information_schema\.KEY_COLUMN_USAGE`
)

// ExpectTables queues a table listing for db.
func ExpectTables(mock sqlmock.Sqlmock, db string, tables ...string) {
	rows := sqlmock.NewRows([]string{"TABLE_NAME"})
	for _, t := range tables {
		rows.AddRow(t)
	}
	mock.ExpectQuery(TablesPattern).WithArgs(db).WillReturnRows(rows)
}

// ExpectDescribe queues the column and foreign key reads that describe snap.
func ExpectDescribe(mock sqlmock.Sqlmock, snap *schema.TableSnapshot) {
	cols := sqlmock.NewRows([]string{"COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_KEY", "COLUMN_DEFAULT", "EXTRA", "COLUMN_COMMENT"})
	for _, c := range snap.Columns {
		cols.AddRow(columnRow(c)...)
	}
	mock.ExpectQuery(ColumnsPattern).WithArgs(snap.Database, snap.Name).WillReturnRows(cols)
	ExpectForeignKeys(mock, snap.Database, snap.Name, snap.ForeignKeys...)
}

// ExpectForeignKeys queues the foreign key read for table.
func ExpectForeignKeys(mock sqlmock.Sqlmock, db, table string, fks ...schema.ForeignKey) {
	rows := sqlmock.NewRows([]string{"CONSTRAINT_NAME", "COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "DELETE_RULE", "UPDATE_RULE"})
	for _, fk := range fks {
		onDelete, onUpdate := fk.OnDelete, fk.OnUpdate
		if onDelete == "" {
			onDelete = "RESTRICT"
		}
		if onUpdate == "" {
			onUpdate = "RESTRICT"
		}
		rows.AddRow(fk.ConstraintName(table), fk.Column, fk.RefTable, fk.RefColumn, onDelete, onUpdate)
	}
	mock.ExpectQuery(ForeignKeysPattern).WithArgs(db, table).WillReturnRows(rows)
}

func columnRow(c schema.Column) []driver.Value {
	nullable := "NO"
	if c.Nullable {
		nullable = "YES"
	}
	key := ""
	switch {
	case c.PrimaryKey:
		key = "PRI"
	case c.Unique:
		key = "UNI"
	}
	var def driver.Value
	if c.Default != nil {
		def = *c.Default
	}
	extra := ""
	if c.AutoIncrement {
		extra = "auto_increment"
	}
	return []driver.Value{c.Name, c.Type, nullable, key, def, extra, c.Comment}
}
