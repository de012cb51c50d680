package nlsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/tablesmith/schema"
)

func catalog() []*schema.TableSnapshot {
	return []*schema.TableSnapshot{
		{Name: "customers", PrimaryKey: "id", Columns: []schema.Column{
			{Name: "id", Type: "int", PrimaryKey: true, AutoIncrement: true},
			{Name: "name", Type: "varchar(100)"},
			{Name: "city", Type: "varchar(60)", Nullable: true},
			{Name: "credit_limit", Type: "decimal(10,2)", Nullable: true},
			{Name: "created_at", Type: "datetime"},
		}},
		{Name: "orders", PrimaryKey: "id", Columns: []schema.Column{
			{Name: "id", Type: "int", PrimaryKey: true, AutoIncrement: true},
			{Name: "customer_id", Type: "int"},
			{Name: "total", Type: "decimal(10,2)"},
			{Name: "order_date", Type: "date"},
		}},
		{Name: "products", PrimaryKey: "id", Columns: []schema.Column{
			{Name: "id", Type: "int", PrimaryKey: true, AutoIncrement: true},
			{Name: "name", Type: "varchar(100)"},
			{Name: "price", Type: "decimal(10,2)"},
			{Name: "in_stock", Type: "tinyint(1)"},
		}},
	}
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		table string
		sql   string
		args  []any
	}{
		{
			name:  "count with place",
			text:  "How many customers from sao paulo?",
			table: "customers",
			sql:   "SELECT COUNT(*) AS total FROM `customers` WHERE `city` = ?",
			args:  []any{"Sao Paulo"},
		},
		{
			name:  "numeric comparison on mentioned column",
			text:  "list products with price greater than 100",
			table: "products",
			sql:   "SELECT `price` FROM `products` WHERE `price` > ? LIMIT ?",
			args:  []any{int64(100), DefaultLimit},
		},
		{
			name:  "between",
			text:  "products between 10 and 20.5",
			table: "products",
			sql:   "SELECT * FROM `products` WHERE `price` BETWEEN ? AND ? LIMIT ?",
			args:  []any{int64(10), 20.5, DefaultLimit},
		},
		{
			name:  "date period and top n",
			text:  "top 5 orders this month",
			table: "orders",
			sql:   "SELECT * FROM `orders` WHERE YEAR(`order_date`) = YEAR(CURDATE()) AND MONTH(`order_date`) = MONTH(CURDATE()) LIMIT ?",
			args:  []any{5},
		},
		{
			name:  "average",
			text:  "average price of products",
			table: "products",
			sql:   "SELECT AVG(`price`) AS average FROM `products`",
		},
		{
			name:  "sum by topic",
			text:  "total of all sales",
			table: "orders",
			sql:   "SELECT SUM(`total`) AS total FROM `orders`",
		},
		{
			name:  "all rows",
			text:  "show all customers",
			table: "customers",
			sql:   "SELECT * FROM `customers` LIMIT ?",
			args:  []any{AllLimit},
		},
		{
			name:  "order by does not pick the orders table",
			text:  "products order by name desc",
			table: "products",
			sql:   "SELECT `name` FROM `products` ORDER BY `name` DESC LIMIT ?",
			args:  []any{DefaultLimit},
		},
		{
			name:  "highest orders by numeric column",
			text:  "orders with the largest value",
			table: "orders",
			sql:   "SELECT * FROM `orders` ORDER BY `total` DESC LIMIT ?",
			args:  []any{DefaultLimit},
		},
		{
			name:  "explicit equality keeps case",
			text:  "customers where name = 'Ana Souza'",
			table: "customers",
			sql:   "SELECT `name` FROM `customers` WHERE `name` = ? LIMIT ?",
			args:  []any{"Ana Souza", DefaultLimit},
		},
		{
			name:  "unrecognized falls back to first table",
			text:  "what is going on",
			table: "customers",
			sql:   "SELECT * FROM `customers` LIMIT ?",
			args:  []any{DefaultLimit},
		},
	}

	s := New(catalog())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Suggest(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.table, got.Table)
			assert.Equal(t, tt.sql, got.Statement.SQL)
			assert.Equal(t, tt.args, got.Statement.Args)
			assert.Contains(t, got.Notes, "draft only: review before running")
		})
	}
}

func TestSuggestValuesAreNeverInlined(t *testing.T) {
	got, err := New(catalog()).Suggest("customers where name = 'x'' OR 1=1 --'")
	require.NoError(t, err)
	assert.NotContains(t, got.Statement.SQL, "OR 1=1")
}

func TestSuggestWithoutTables(t *testing.T) {
	_, err := New(nil).Suggest("anything")
	assert.Error(t, err)
}

func TestMentionedColumnsCap(t *testing.T) {
	snap := &schema.TableSnapshot{Name: "wide", Columns: []schema.Column{
		{Name: "a1", Type: "int"}, {Name: "a2", Type: "int"}, {Name: "a3", Type: "int"},
		{Name: "a4", Type: "int"}, {Name: "a5", Type: "int"}, {Name: "a6", Type: "int"},
	}}
	cols := mentionedColumns(snap, "a1 a2 a3 a4 a5 a6", map[string]bool{"a1": true, "a2": true, "a3": true, "a4": true, "a5": true, "a6": true})
	assert.Len(t, cols, maxColumns)
}
