package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/validator"
)

func definitions() []schema.TableDefinition {
	return []schema.TableDefinition{
		{
			Name: "orders",
			Columns: []schema.Column{
				{Name: "id", Type: "INT", PrimaryKey: true, AutoIncrement: true},
				{Name: "customer_id", Type: "INT"},
			},
			ForeignKeys: []schema.ForeignKey{{Column: "customer_id", RefTable: "customers", RefColumn: "id"}},
		},
		{
			Name: "customers",
			Columns: []schema.Column{
				{Name: "id", Type: "INT", PrimaryKey: true, AutoIncrement: true},
				{Name: "email", Type: "VARCHAR(255)", Unique: true},
				{Name: "phone", Type: "VARCHAR(20)", Nullable: true},
			},
		},
	}
}

func TestDiffTablesCreatesBeforeConstraining(t *testing.T) {
	plan, err := DiffTables(definitions(), nil)
	require.NoError(t, err)
	require.Len(t, plan.Operations, 3)

	assert.Equal(t, CreateTable, plan.Operations[0].Type)
	assert.Equal(t, CreateTable, plan.Operations[1].Type)
	assert.Equal(t, AddForeignKey, plan.Operations[2].Type)
	assert.Equal(t,
		"ALTER TABLE `orders` ADD CONSTRAINT `fk_orders_customer_id` FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`)",
		plan.Operations[2].Statement.SQL)
	assert.NotContains(t, plan.Operations[0].Statement.SQL, "FOREIGN KEY")
}

func TestDiffTablesIsAdditive(t *testing.T) {
	existing := []*schema.TableSnapshot{
		{Name: "customers", PrimaryKey: "id", Columns: []schema.Column{
			{Name: "id", Type: "int", PrimaryKey: true, AutoIncrement: true},
			{Name: "email", Type: "text"},
			{Name: "legacy_code", Type: "char(4)", Nullable: true},
		}},
		{Name: "orders", PrimaryKey: "id", Columns: []schema.Column{
			{Name: "id", Type: "int", PrimaryKey: true, AutoIncrement: true},
			{Name: "customer_id", Type: "int"},
		}, ForeignKeys: []schema.ForeignKey{{Name: "fk_orders_customer_id", Column: "customer_id", RefTable: "customers", RefColumn: "id"}}},
	}

	plan, err := DiffTables(definitions(), existing)
	require.NoError(t, err)

	require.Len(t, plan.Operations, 1)
	assert.Equal(t, AddColumn, plan.Operations[0].Type)
	assert.Equal(t, "ALTER TABLE `customers` ADD COLUMN `phone` VARCHAR(20)", plan.Operations[0].Statement.SQL)

	assert.ElementsMatch(t, []DriftType{TypeMismatch, ExtraColumn}, []DriftType{plan.Drift[0].Type, plan.Drift[1].Type})
	assert.Equal(t, 1, len(plan.Statements()))
}

func TestDiffTablesUpToDate(t *testing.T) {
	defs := definitions()[1:]
	existing := []*schema.TableSnapshot{{Name: "customers", Columns: defs[0].Columns}}

	plan, err := DiffTables(defs, existing)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Empty(t, plan.Drift)
}

func TestDiffTablesErrors(t *testing.T) {
	_, err := DiffTables(definitions()[:1], nil)
	assert.True(t, validator.IsKind(err, validator.KindMissingField), "got %v", err)

	bad := definitions()
	bad[1].Columns[0].Type = "VARCHAR(10)"
	bad[1].Columns[0].AutoIncrement = false
	_, err = DiffTables(bad, nil)
	assert.True(t, validator.IsKind(err, validator.KindIncompatibleType), "got %v", err)

	invalid := []schema.TableDefinition{{Name: "bad name", Columns: []schema.Column{{Name: "a", Type: "INT"}}}}
	_, err = DiffTables(invalid, nil)
	assert.True(t, validator.IsKind(err, validator.KindInvalidIdentifier), "got %v", err)
}
