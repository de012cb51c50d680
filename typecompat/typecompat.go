// Package typecompat decides whether two MySQL column types may be linked by a
// foreign key, and classifies types into the families the synthesizer cares about.
package typecompat

import (
	"strings"
)

// Family groups base types that MySQL lets reference each other.
type Family string

const (
	FamilyNone     Family = ""
	FamilyInteger  Family = "integer"
	FamilyText     Family = "text"
	FamilyDecimal  Family = "decimal"
	FamilyTemporal Family = "temporal"
)

var families = map[string]Family{
	"INT":       FamilyInteger,
	"BIGINT":    FamilyInteger,
	"SMALLINT":  FamilyInteger,
	"MEDIUMINT": FamilyInteger,
	"TINYINT":   FamilyInteger,

	"VARCHAR": FamilyText,
	"CHAR":    FamilyText,
	"TEXT":    FamilyText,

	"DECIMAL": FamilyDecimal,
	"FLOAT":   FamilyDecimal,
	"DOUBLE":  FamilyDecimal,

	"DATE":      FamilyTemporal,
	"DATETIME":  FamilyTemporal,
	"TIMESTAMP": FamilyTemporal,
}

var aliases = map[string]string{
	"INTEGER": "INT",
	"NUMERIC": "DECIMAL",
	"DEC":     "DECIMAL",
	"FIXED":   "DECIMAL",
	"REAL":    "DOUBLE",
}

// BaseType strips length, precision and trailing modifiers and upper-cases
// what is left: "varchar(255)" -> "VARCHAR", "int(11) unsigned" -> "INT".
func BaseType(sqlType string) string {
	t := strings.TrimSpace(sqlType)
	if i := strings.IndexAny(t, "( \t"); i >= 0 {
		t = t[:i]
	}
	t = strings.ToUpper(t)
	if a, ok := aliases[t]; ok {
		return a
	}
	return t
}

// FamilyOf returns the compatibility family of sqlType, or FamilyNone.
func FamilyOf(sqlType string) Family {
	return families[BaseType(sqlType)]
}

// AreCompatible reports whether a foreign key between columns of type a and b
// is valid: identical base types, or base types of the same family.
func AreCompatible(a, b string) bool {
	ba, bb := BaseType(a), BaseType(b)
	if ba == "" || bb == "" {
		return false
	}
	if ba == bb {
		return true
	}
	fa, fb := families[ba], families[bb]
	return fa != FamilyNone && fa == fb
}

// IsInteger reports integer-family types, including BOOL/BOOLEAN and BIT which
// MySQL stores as integers.
func IsInteger(sqlType string) bool {
	switch BaseType(sqlType) {
	case "BOOL", "BOOLEAN", "BIT", "SERIAL":
		return true
	}
	return FamilyOf(sqlType) == FamilyInteger
}

// IsNumeric reports integer and fixed/floating point types.
func IsNumeric(sqlType string) bool {
	return IsInteger(sqlType) || FamilyOf(sqlType) == FamilyDecimal
}

// IsTemporal reports date and time types.
func IsTemporal(sqlType string) bool {
	switch BaseType(sqlType) {
	case "TIME", "YEAR":
		return true
	}
	return FamilyOf(sqlType) == FamilyTemporal
}

// IsText reports character types.
func IsText(sqlType string) bool {
	switch BaseType(sqlType) {
	case "TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "ENUM", "SET":
		return true
	}
	return FamilyOf(sqlType) == FamilyText
}
