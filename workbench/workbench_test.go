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
	"github.com/ridoystarlord/tablesmith/validator"
)

func newWorkbench(t *testing.T) (*Workbench, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, Options{Database: "shop", Logger: testutil.NewTestLogger(t)}), mock
}

func strPtr(s string) *string { return &s }

func orders() *schema.TableSnapshot {
	return &schema.TableSnapshot{Database: "shop", Name: "orders", PrimaryKey: "id", Columns: []schema.Column{
		{Name: "id", Type: "int", PrimaryKey: true, AutoIncrement: true},
		{Name: "customer_id", Type: "int"},
		{Name: "placed_on", Type: "date"},
		{Name: "note", Type: "text", Nullable: true},
	}, ForeignKeys: []schema.ForeignKey{{Column: "customer_id", RefTable: "customers", RefColumn: "id"}}}
}

func customers() *schema.TableSnapshot {
	return &schema.TableSnapshot{Database: "shop", Name: "customers", PrimaryKey: "id", Columns: []schema.Column{
		{Name: "id", Type: "int", PrimaryKey: true, AutoIncrement: true},
		{Name: "name", Type: "varchar(100)"},
		{Name: "status", Type: "varchar(20)", Default: strPtr("active")},
	}}
}

func TestInsertNormalizesValues(t *testing.T) {
	w, mock := newWorkbench(t)
	testutil.ExpectDescribe(mock, orders())
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `orders` (`customer_id`, `placed_on`, `note`) VALUES (?, ?, ?)")).
		WithArgs(3, "2024-01-15", nil).WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	res, err := w.Insert(context.Background(), "orders", map[string]any{
		"customer_id": 3, "placed_on": "15/01/2024", "note": "",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), res.LastInsertID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRejectsBadDate(t *testing.T) {
	w, mock := newWorkbench(t)
	testutil.ExpectDescribe(mock, orders())

	_, err := w.Insert(context.Background(), "orders", map[string]any{"customer_id": 3, "placed_on": "soon"})
	var ve *validator.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "orders", ve.Table)
	assert.Equal(t, "placed_on", ve.Column)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByPrimaryKey(t *testing.T) {
	w, mock := newWorkbench(t)
	testutil.ExpectDescribe(mock, customers())
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `customers` SET `name` = ? WHERE `id` = ?")).
		WithArgs("Ada", 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := w.Update(context.Background(), "customers", 7, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateWithoutPrimaryKey(t *testing.T) {
	w, mock := newWorkbench(t)
	snap := &schema.TableSnapshot{Database: "shop", Name: "log", Columns: []schema.Column{{Name: "line", Type: "text"}}}
	testutil.ExpectDescribe(mock, snap)

	_, err := w.Update(context.Background(), "log", 1, map[string]any{"line": "x"})
	assert.True(t, validator.IsKind(err, validator.KindMissingField))
}

// A referenced row is never deleted: the DELETE is not even sent.
func TestDeleteRowBlockedByDependents(t *testing.T) {
	w, mock := newWorkbench(t)
	testutil.ExpectDescribe(mock, customers())
	testutil.ExpectTables(mock, "shop", "customers", "orders")
	testutil.ExpectForeignKeys(mock, "shop", "orders", orders().ForeignKeys...)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `orders` WHERE `customer_id` = ?")).
		WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(2))

	_, err := w.DeleteRow(context.Background(), "customers", 7)

	var blocked *dberrors.DependencyBlocked
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, []schema.Dependency{{Table: "orders", Column: "customer_id", Rows: 2}}, blocked.Dependencies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRowWithoutDependents(t *testing.T) {
	w, mock := newWorkbench(t)
	testutil.ExpectDescribe(mock, customers())
	testutil.ExpectTables(mock, "shop", "customers", "orders")
	testutil.ExpectForeignKeys(mock, "shop", "orders", orders().ForeignKeys...)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `orders` WHERE `customer_id` = ?")).
		WithArgs(8).WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `customers` WHERE `id` = ?")).
		WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := w.DeleteRow(context.Background(), "customers", 8)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRowUnverifiedFailsClosed(t *testing.T) {
	w, mock := newWorkbench(t)
	testutil.ExpectDescribe(mock, customers())
	mock.ExpectQuery(testutil.TablesPattern).WithArgs("shop").WillReturnError(errors.New("lost connection"))

	_, err := w.DeleteRow(context.Background(), "customers", 7)

	var blocked *dberrors.DependencyBlocked
	require.True(t, errors.As(err, &blocked))
	assert.True(t, blocked.Unverified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBrowseOrdersByPrimaryKey(t *testing.T) {
	w, mock := newWorkbench(t)
	testutil.ExpectDescribe(mock, customers())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `name`, `status` FROM `customers` ORDER BY `id` LIMIT ? OFFSET ?")).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}).AddRow(21, "Ada", "active"))

	rs, err := w.Browse(context.Background(), "customers", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "status"}, rs.Columns)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, []any{int64(21), "Ada", "active"}, rs.Rows[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryIsReadOnly(t *testing.T) {
	w, mock := newWorkbench(t)

	for _, q := range []string{
		"DELETE FROM customers",
		"drop table orders",
		"SELECT 1; DROP TABLE orders",
		"SELECT * FROM customers INTO OUTFILE '/tmp/c.csv'",
		"select * from customers where id = 1 for update",
		"SELECT * FROM customers LOCK IN SHARE MODE",
		"  ",
	} {
		_, err := w.Query(context.Background(), q)
		var ve *validator.ValidationError
		assert.True(t, errors.As(err, &ve), q)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM customers")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Ada"))
	mock.ExpectCommit()
	rs, err := w.Query(context.Background(), "select name from customers;")
	require.NoError(t, err)
	assert.Len(t, rs.Rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryAllowsKeywordsInsideLiterals(t *testing.T) {
	w, mock := newWorkbench(t)

	q := "SELECT name FROM customers WHERE note = 'a; b for update' AND `into outfile` = \"x\""
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(q)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Ada"))
	mock.ExpectCommit()

	rs, err := w.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, rs.Rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTableRefusesExisting(t *testing.T) {
	w, mock := newWorkbench(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema\.TABLES`).WithArgs("shop", "customers").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	_, err := w.CreateTable(context.Background(), schema.TableDefinition{Name: "customers", Columns: customers().Columns})
	assert.True(t, validator.IsKind(err, validator.KindConstraint))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTableWithForeignKey(t *testing.T) {
	w, mock := newWorkbench(t)
	def := schema.TableDefinition{Name: "orders", Columns: orders().Columns, ForeignKeys: orders().ForeignKeys}
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema\.TABLES`).WithArgs("shop", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(0))
	testutil.ExpectDescribe(mock, customers())
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE `orders`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := w.CreateTable(context.Background(), def)
	require.NoError(t, err)
	require.Len(t, res.Statements, 1)
	assert.Contains(t, res.Statements[0].SQL, "FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropTableRefusedWhileReferenced(t *testing.T) {
	w, mock := newWorkbench(t)
	testutil.ExpectDescribe(mock, customers())
	testutil.ExpectTables(mock, "shop", "customers", "orders")
	testutil.ExpectForeignKeys(mock, "shop", "orders", orders().ForeignKeys...)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `orders` WHERE `customer_id` IS NOT NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(0))

	_, err := w.DropTable(context.Background(), "customers")

	var blocked *dberrors.DependencyBlocked
	require.True(t, errors.As(err, &blocked))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRequiresAudit(t *testing.T) {
	w, _ := newWorkbench(t)
	_, err := w.Activity(context.Background(), 10)
	assert.ErrorIs(t, err, ErrAuditDisabled)
}

func TestComboboxOptions(t *testing.T) {
	w, mock := newWorkbench(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM `ref_products_category` WHERE `active` = ?")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "value", "description", "order", "active"}).
			AddRow(1, "Electronics", nil, 1, true))

	opts, err := w.ComboboxOptions(context.Background(), "products", "category")
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "Electronics", opts[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuggestUsesCatalog(t *testing.T) {
	w, mock := newWorkbench(t)
	testutil.ExpectTables(mock, "shop", "customers")
	testutil.ExpectDescribe(mock, customers())

	s, err := w.Suggest(context.Background(), "show all customers")
	require.NoError(t, err)
	assert.Equal(t, "customers", s.Table)
	assert.Contains(t, s.Statement.SQL, "FROM `customers`")
	assert.NoError(t, mock.ExpectationsWereMet())
}
