package dependency

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

func newChecker(t *testing.T) (*Checker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, testutil.NewTestLogger(t)), mock
}

var customerRef = schema.ForeignKey{Column: "customer_id", RefTable: "customers", RefColumn: "id"}

// expectShop queues the metadata reads for customers <- invoices, orders.
// Every foreign key is read before any row is counted.
func expectShop(mock sqlmock.Sqlmock) {
	testutil.ExpectTables(mock, "shop", "customers", "invoices", "orders", "products")
	testutil.ExpectForeignKeys(mock, "shop", "invoices", customerRef)
	testutil.ExpectForeignKeys(mock, "shop", "orders", customerRef)
	testutil.ExpectForeignKeys(mock, "shop", "products")
}

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(n)
}

func TestFindDependents(t *testing.T) {
	c, mock := newChecker(t)
	expectShop(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `invoices` WHERE `customer_id` = ?")).WithArgs(7).WillReturnRows(countRows(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `orders` WHERE `customer_id` = ?")).WithArgs(7).WillReturnRows(countRows(3))

	deps, err := c.FindDependents(context.Background(), "shop", "customers", "id", 7)
	require.NoError(t, err)
	assert.Equal(t, []schema.Dependency{{Table: "orders", Column: "customer_id", Rows: 3}}, deps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckRowDeleteBlocksReferencedRow(t *testing.T) {
	c, mock := newChecker(t)
	expectShop(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `invoices` WHERE `customer_id` = ?")).WithArgs(7).WillReturnRows(countRows(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `orders` WHERE `customer_id` = ?")).WithArgs(7).WillReturnRows(countRows(3))

	err := c.CheckRowDelete(context.Background(), "shop", "customers", "id", 7)

	var blocked *dberrors.DependencyBlocked
	require.True(t, errors.As(err, &blocked))
	assert.False(t, blocked.Unverified)
	assert.Equal(t, []schema.Dependency{
		{Table: "invoices", Column: "customer_id", Rows: 2},
		{Table: "orders", Column: "customer_id", Rows: 3},
	}, blocked.Dependencies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckRowDeleteAllowsUnreferencedRow(t *testing.T) {
	c, mock := newChecker(t)
	testutil.ExpectTables(mock, "shop", "customers", "orders")
	testutil.ExpectForeignKeys(mock, "shop", "orders", customerRef)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `orders` WHERE `customer_id` = ?")).WithArgs(9).WillReturnRows(countRows(0))

	assert.NoError(t, c.CheckRowDelete(context.Background(), "shop", "customers", "id", 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckRowDeleteFailsClosed(t *testing.T) {
	tests := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
	}{
		{
			name: "table listing fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(testutil.TablesPattern).WillReturnError(mysql.ErrInvalidConn)
			},
		},
		{
			name: "foreign key read fails",
			setup: func(mock sqlmock.Sqlmock) {
				testutil.ExpectTables(mock, "shop", "customers", "orders")
				mock.ExpectQuery(testutil.ForeignKeysPattern).WillReturnError(errors.New("lock wait timeout"))
			},
		},
		{
			name: "count fails",
			setup: func(mock sqlmock.Sqlmock) {
				testutil.ExpectTables(mock, "shop", "customers", "orders")
				testutil.ExpectForeignKeys(mock, "shop", "orders", customerRef)
				mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `orders`")).WillReturnError(errors.New("table is marked as crashed"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := newChecker(t)
			tt.setup(mock)

			err := c.CheckRowDelete(context.Background(), "shop", "customers", "id", 7)

			var blocked *dberrors.DependencyBlocked
			require.True(t, errors.As(err, &blocked), "got %v", err)
			assert.True(t, blocked.Unverified)
			assert.Error(t, blocked.Err)
			assert.Contains(t, err.Error(), "refusing to delete")
		})
	}
}

func TestSelfReferenceIsSkipped(t *testing.T) {
	c, mock := newChecker(t)
	testutil.ExpectTables(mock, "hr", "employees")

	deps, err := c.FindDependents(context.Background(), "hr", "employees", "id", 1)
	require.NoError(t, err)
	assert.Empty(t, deps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindTableDependentsKeepsZeroCounts(t *testing.T) {
	c, mock := newChecker(t)
	testutil.ExpectTables(mock, "shop", "customers", "orders")
	testutil.ExpectForeignKeys(mock, "shop", "orders", customerRef)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `orders` WHERE `customer_id` IS NOT NULL")).WillReturnRows(countRows(0))

	deps, err := c.FindTableDependents(context.Background(), "shop", "customers")
	require.NoError(t, err)
	assert.Equal(t, []schema.Dependency{{Table: "orders", Column: "customer_id", Rows: 0}}, deps)
}

func TestCheckTableDrop(t *testing.T) {
	c, mock := newChecker(t)
	testutil.ExpectTables(mock, "shop", "customers", "orders")
	testutil.ExpectForeignKeys(mock, "shop", "orders")

	assert.NoError(t, c.CheckTableDrop(context.Background(), "shop", "customers"))

	testutil.ExpectTables(mock, "shop", "customers", "orders")
	testutil.ExpectForeignKeys(mock, "shop", "orders", customerRef)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `orders` WHERE `customer_id` IS NOT NULL")).WillReturnRows(countRows(4))

	err := c.CheckTableDrop(context.Background(), "shop", "customers")
	var blocked *dberrors.DependencyBlocked
	require.True(t, errors.As(err, &blocked))
	assert.Len(t, blocked.Dependencies, 1)
}
