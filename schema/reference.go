package schema

import "fmt"

// Reference table layout shared by every combobox lookup table.
const (
	RefIDColumn          = "id"
	RefValueColumn       = "value"
	RefDescriptionColumn = "description"
	RefOrderColumn       = "order"
	RefActiveColumn      = "active"
)

// ReferenceTableName is the deterministic name of the lookup table backing host.column.
func ReferenceTableName(hostTable, hostColumn string) string {
	return fmt.Sprintf("ref_%s_%s", hostTable, hostColumn)
}

// ReferenceColumns is the fixed shape of a lookup table.
func ReferenceColumns() []Column {
	zero := "0"
	yes := "TRUE"
	return []Column{
		{Name: RefIDColumn, Type: "INT", AutoIncrement: true, PrimaryKey: true},
		{Name: RefValueColumn, Type: "VARCHAR(100)", Unique: true},
		{Name: RefDescriptionColumn, Type: "VARCHAR(255)", Nullable: true},
		{Name: RefOrderColumn, Type: "INT", Nullable: true, Default: &zero},
		{Name: RefActiveColumn, Type: "BOOLEAN", Nullable: true, Default: &yes},
	}
}

// ReferenceOption is one selectable row of a lookup table.
type ReferenceOption struct {
	ID          int64  `json:"id"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	Order       int64  `json:"order"`
	Active      bool   `json:"active"`
}
