package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/tablesmith/schema"
)

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"users", "User_2", "_tmp", "a", strings.Repeat("x", MaxIdentifierLength)}
	for _, name := range valid {
		assert.NoError(t, ValidateIdentifier("table", name), name)
	}

	invalid := map[string]Kind{
		"":                                     KindMissingField,
		"has space":                            KindInvalidIdentifier,
		"semi;colon":                           KindInvalidIdentifier,
		"back`tick":                            KindInvalidIdentifier,
		"dash-ed":                              KindInvalidIdentifier,
		"naïve":                                KindInvalidIdentifier,
		strings.Repeat("x", MaxIdentifierLength+1): KindInvalidIdentifier,
	}
	for name, kind := range invalid {
		err := ValidateIdentifier("table", name)
		require.Error(t, err, name)
		assert.True(t, IsKind(err, kind), "%q: %v", name, err)
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"int", "INT", false},
		{"varchar(255)", "VARCHAR(255)", false},
		{"decimal( 10 , 2 )", "DECIMAL(10,2)", false},
		{"int unsigned", "INT UNSIGNED", false},
		{"bigint(20) unsigned zerofill", "BIGINT(20) UNSIGNED ZEROFILL", false},
		{"datetime(3)", "DATETIME(3)", false},
		{"boolean", "BOOLEAN", false},
		{"json", "JSON", false},
		{"varchar", "", true},
		{"varchar(0)", "", true},
		{"date(3)", "", true},
		{"text unsigned", "", true},
		{"enum('a','b')", "", true},
		{"INT; DROP TABLE x", "", true},
		{"geometry", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeActions(t *testing.T) {
	got, err := NormalizeOnDelete(" set   null ")
	require.NoError(t, err)
	assert.Equal(t, "SET NULL", got)

	got, err = NormalizeOnDelete("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NormalizeOnUpdate("SET NULL")
	assert.True(t, IsKind(err, KindInvalidKeyword))

	_, err = NormalizeOnDelete("CASCADE; DROP TABLE x")
	assert.True(t, IsKind(err, KindInvalidKeyword))
}

func TestValidateColumnInvariants(t *testing.T) {
	tests := []struct {
		name string
		col  schema.Column
		kind Kind
	}{
		{"nullable primary key", schema.Column{Name: "id", Type: "INT", PrimaryKey: true, Nullable: true}, KindConstraint},
		{"auto increment text", schema.Column{Name: "id", Type: "CHAR(3)", PrimaryKey: true, AutoIncrement: true}, KindConstraint},
		{"auto increment without key", schema.Column{Name: "id", Type: "INT", AutoIncrement: true}, KindConstraint},
		{"missing type", schema.Column{Name: "id"}, KindMissingField},
		{"missing name", schema.Column{Type: "INT"}, KindMissingField},
		{"bad after", schema.Column{Name: "a", Type: "INT", Position: schema.After("x y")}, KindInvalidIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateColumn("t", tt.col)
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
		})
	}

	typ, err := ValidateColumn("t", schema.Column{Name: "id", Type: "int", PrimaryKey: true, AutoIncrement: true})
	require.NoError(t, err)
	assert.Equal(t, "INT", typ)
}

func TestValidationErrorMessage(t *testing.T) {
	_, err := ValidateColumn("products", schema.Column{Name: "id", Type: "INT", PrimaryKey: true, Nullable: true})
	require.Error(t, err)
	assert.Equal(t, "validation failed (constraint): products.id: primary key column cannot be nullable", err.Error())
}

func TestNormalizeDate(t *testing.T) {
	tests := map[string]string{
		"2024-01-15": "2024-01-15",
		"15/01/2024": "2024-01-15",
		"15-01-2024": "2024-01-15",
		"2024/01/15": "2024-01-15",
		"15.01.2024": "2024-01-15",
		" 2024-12-31 ": "2024-12-31",
	}
	for in, want := range tests {
		got, err := NormalizeDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"not-a-date", "2024-13-01", "32/01/2024", "01/15/2024", ""} {
		_, err := NormalizeDate(bad)
		assert.True(t, IsKind(err, KindUnparseableDefault), bad)
	}
}

func TestNormalizeTemporal(t *testing.T) {
	got, err := NormalizeTemporal("DATETIME", "2024-01-15T08:09:10")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15 08:09:10", got)

	got, err = NormalizeTemporal("timestamp", "15/01/2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", got)

	got, err = NormalizeTemporal("TIME", "08:30")
	require.NoError(t, err)
	assert.Equal(t, "08:30:00", got)

	got, err = NormalizeTemporal("YEAR", "2024")
	require.NoError(t, err)
	assert.Equal(t, "2024", got)

	_, err = NormalizeTemporal("YEAR", "24")
	assert.True(t, IsKind(err, KindUnparseableDefault))

	_, err = NormalizeTemporal("INT", "2024-01-01")
	assert.True(t, IsKind(err, KindIncompatibleType))
}

func TestValidateTable(t *testing.T) {
	result := ValidateTable("orders", []schema.Column{
		{Name: "id", Type: "INT", PrimaryKey: true, AutoIncrement: true},
		{Name: "order", Type: "INT"},
		{Name: "customer_id", Type: "INT"},
	}, []schema.ForeignKey{
		{Column: "customer_id", RefTable: "customers", RefColumn: "id"},
		{Column: "missing", RefTable: "customers", RefColumn: "id"},
	})

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "missing", result.Errors[0].Column)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "order", result.Warnings[0].Column)

	result = ValidateTable("tags", []schema.Column{{Name: "label", Type: "VARCHAR(20)"}}, nil)
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, KindMissingField, result.Warnings[0].Kind)
}
