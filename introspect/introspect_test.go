package introspect

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/tablesmith/dberrors"
	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/testutil"
)

func newCatalog(t *testing.T) (*Catalog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, testutil.NewTestLogger(t)), mock
}

func TestListTables(t *testing.T) {
	c, mock := newCatalog(t)
	mock.ExpectQuery(regexp.QuoteMeta(tablesQuery)).WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("customers").AddRow("orders"))

	tables, err := c.ListTables(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDatabases(t *testing.T) {
	c, mock := newCatalog(t)
	mock.ExpectQuery(regexp.QuoteMeta(databasesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"SCHEMA_NAME"}).AddRow("inventory").AddRow("shop"))

	dbs, err := c.ListDatabases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"inventory", "shop"}, dbs)
}

func TestDescribeTable(t *testing.T) {
	c, mock := newCatalog(t)
	cols := sqlmock.NewRows([]string{"COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_KEY", "COLUMN_DEFAULT", "EXTRA", "COLUMN_COMMENT"}).
		AddRow("id", "int", "NO", "PRI", nil, "auto_increment", "").
		AddRow("sku", "varchar(32)", "NO", "UNI", nil, "", "stock keeping unit").
		AddRow("price", "decimal(10,2)", "YES", "", "0.00", "", "").
		AddRow("customer_id", "int", "YES", "MUL", nil, "", "")
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).WithArgs("shop", "products").WillReturnRows(cols)
	mock.ExpectQuery(regexp.QuoteMeta(foreignKeysQuery)).WithArgs("shop", "products").
		WillReturnRows(sqlmock.NewRows([]string{"CONSTRAINT_NAME", "COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "DELETE_RULE", "UPDATE_RULE"}).
			AddRow("fk_products_customer_id", "customer_id", "customers", "id", "RESTRICT", "CASCADE"))

	snap, err := c.DescribeTable(context.Background(), "shop", "products")
	require.NoError(t, err)

	assert.Equal(t, "id", snap.PrimaryKey)
	assert.Equal(t, []string{"id", "sku", "price", "customer_id"}, snap.ColumnNames())

	id, _ := snap.Column("id")
	assert.True(t, id.AutoIncrement)
	assert.False(t, id.Nullable)

	sku, _ := snap.Column("SKU")
	assert.True(t, sku.Unique)
	assert.Equal(t, "stock keeping unit", sku.Comment)

	price, _ := snap.Column("price")
	require.NotNil(t, price.Default)
	assert.Equal(t, "0.00", *price.Default)
	assert.True(t, price.Nullable)

	fk, ok := snap.ForeignKeyOn("customer_id")
	require.True(t, ok)
	assert.Equal(t, schema.ForeignKey{
		Name: "fk_products_customer_id", Column: "customer_id", RefTable: "customers",
		RefColumn: "id", OnDelete: "RESTRICT", OnUpdate: "CASCADE",
	}, fk)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribeTableNotFound(t *testing.T) {
	c, mock := newCatalog(t)
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).WithArgs("shop", "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_KEY", "COLUMN_DEFAULT", "EXTRA", "COLUMN_COMMENT"}))

	snap, err := c.DescribeTable(context.Background(), "shop", "ghost")
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, schema.ErrTableNotFound)
}

func TestDescribeTableNeverReturnsPartialSnapshot(t *testing.T) {
	c, mock := newCatalog(t)
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).WithArgs("shop", "products").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_KEY", "COLUMN_DEFAULT", "EXTRA", "COLUMN_COMMENT"}).
			AddRow("id", "int", "NO", "PRI", nil, "", ""))
	mock.ExpectQuery(regexp.QuoteMeta(foreignKeysQuery)).WithArgs("shop", "products").
		WillReturnError(mysql.ErrInvalidConn)

	snap, err := c.DescribeTable(context.Background(), "shop", "products")
	assert.Nil(t, snap)
	var ce *dberrors.ConnectivityError
	assert.True(t, errors.As(err, &ce), "got %T", err)
}

func TestListTablesConnectivityFailure(t *testing.T) {
	c, mock := newCatalog(t)
	mock.ExpectQuery(regexp.QuoteMeta(tablesQuery)).WithArgs("").
		WillReturnError(&mysql.MySQLError{Number: 1045, Message: "Access denied for user 'app'@'%'"})

	tables, err := c.ListTables(context.Background(), "")
	assert.Nil(t, tables)
	var ce *dberrors.ConnectivityError
	assert.True(t, errors.As(err, &ce))
}

func TestGetPrimaryKeyColumn(t *testing.T) {
	c, mock := newCatalog(t)
	mock.ExpectQuery(regexp.QuoteMeta(primaryKeyQuery)).WithArgs("shop", "products").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id"))
	mock.ExpectQuery(regexp.QuoteMeta(primaryKeyQuery)).WithArgs("shop", "logs").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}))

	pk, ok, err := c.GetPrimaryKeyColumn(context.Background(), "shop", "products")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "id", pk)

	pk, ok, err = c.GetPrimaryKeyColumn(context.Background(), "shop", "logs")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, pk)
}

func TestTableExists(t *testing.T) {
	c, mock := newCatalog(t)
	mock.ExpectQuery(regexp.QuoteMeta(tableExistsQuery)).WithArgs("shop", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	ok, err := c.TableExists(context.Background(), "shop", "orders")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDescribeAllUsesSharedExpectations(t *testing.T) {
	c, mock := newCatalog(t)
	customers := &schema.TableSnapshot{Database: "shop", Name: "customers", PrimaryKey: "id", Columns: []schema.Column{
		{Name: "id", Type: "int", PrimaryKey: true, AutoIncrement: true},
		{Name: "name", Type: "varchar(100)"},
	}}
	testutil.ExpectTables(mock, "shop", "customers")
	testutil.ExpectDescribe(mock, customers)

	snaps, err := c.DescribeAll(context.Background(), "shop")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, customers, snaps[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}
