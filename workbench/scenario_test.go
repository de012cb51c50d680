package workbench

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/tablesmith/dberrors"
	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/testutil"
)

const refTable = "ref_products_category_id"

var categoryFK = schema.ForeignKey{
	Column: "category_id", RefTable: refTable, RefColumn: "id", OnDelete: "RESTRICT", OnUpdate: "CASCADE",
}

func productColumns() []schema.Column {
	return []schema.Column{
		{Name: "id", Type: "INT", PrimaryKey: true, AutoIncrement: true},
		{Name: "name", Type: "VARCHAR(100)"},
		{Name: "category_id", Type: "INT", Nullable: true},
	}
}

func productsSnapshot(withFK bool) *schema.TableSnapshot {
	snap := &schema.TableSnapshot{Database: "shop", Name: "products", PrimaryKey: "id", Columns: productColumns()}
	if withFK {
		snap.ForeignKeys = []schema.ForeignKey{categoryFK}
	}
	return snap
}

func refSnapshot() *schema.TableSnapshot {
	return &schema.TableSnapshot{Database: "shop", Name: refTable, PrimaryKey: "id", Columns: schema.ReferenceColumns()}
}

func count(n int64) *sqlmock.Rows { return sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(n) }

// expectReferencedBy queues the dependency reads for deleting a reference row
// that products.category_id points at.
func expectReferencedBy(mock sqlmock.Sqlmock, id, rows int64) {
	testutil.ExpectDescribe(mock, refSnapshot())
	testutil.ExpectTables(mock, "shop", "products", refTable)
	testutil.ExpectForeignKeys(mock, "shop", "products", categoryFK)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `products` WHERE `category_id` = ?")).
		WithArgs(id).WillReturnRows(count(rows))
}

func TestProductCatalogScenario(t *testing.T) {
	w, mock := newWorkbench(t)
	ctx := context.Background()

	// create products
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema\.TABLES`).WithArgs("shop", "products").WillReturnRows(count(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE `products` (")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	_, err := w.CreateTable(ctx, schema.TableDefinition{Name: "products", Columns: productColumns()})
	require.NoError(t, err)

	// category_id becomes a combobox
	testutil.ExpectDescribe(mock, productsSnapshot(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `" + refTable + "` (")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `value`, `order` FROM `" + refTable + "`")).WillReturnRows(sqlmock.NewRows([]string{"value", "order"}))
	insertRef := regexp.QuoteMeta("INSERT INTO `" + refTable + "` (`value`, `order`) VALUES (?, ?)")
	mock.ExpectExec(insertRef).WithArgs("Electronics", 1).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertRef).WithArgs("Furniture", 2).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `products` ADD CONSTRAINT `fk_products_category_id` FOREIGN KEY (`category_id`) REFERENCES `" + refTable + "` (`id`)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	report, err := w.CreateCombobox(ctx, "products", "category_id", []string{"Electronics", "Furniture"})
	require.NoError(t, err)
	assert.Equal(t, refTable, report.ReferenceTable)
	assert.False(t, report.Converted)

	// insert a chair in Furniture
	testutil.ExpectDescribe(mock, productsSnapshot(true))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `products` (`name`, `category_id`) VALUES (?, ?)")).
		WithArgs("Chair", 2).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	_, err = w.Insert(ctx, "products", map[string]any{"name": "Chair", "category_id": 2})
	require.NoError(t, err)

	// Furniture is still in use
	expectReferencedBy(mock, 2, 1)
	_, err = w.DeleteRow(ctx, refTable, 2)
	var blocked *dberrors.DependencyBlocked
	require.True(t, errors.As(err, &blocked), "got %v", err)
	assert.Equal(t, []schema.Dependency{{Table: "products", Column: "category_id", Rows: 1}}, blocked.Dependencies)

	// remove the chair
	testutil.ExpectDescribe(mock, productsSnapshot(true))
	testutil.ExpectTables(mock, "shop", "products", refTable)
	testutil.ExpectForeignKeys(mock, "shop", refTable)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `products` WHERE `id` = ?")).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	_, err = w.DeleteRow(ctx, "products", 1)
	require.NoError(t, err)

	// now Furniture can go
	expectReferencedBy(mock, 2, 0)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `" + refTable + "` WHERE `id` = ?")).WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	_, err = w.DeleteRow(ctx, refTable, 2)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
