package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/typecompat"
)

// Kind classifies why a descriptor was rejected.
type Kind string

const (
	KindMissingField        Kind = "missing_field"
	KindIncompatibleType    Kind = "incompatible_type"
	KindUnparseableDefault  Kind = "unparseable_default"
	KindInvalidIdentifier   Kind = "invalid_identifier"
	KindInvalidKeyword      Kind = "invalid_keyword"
	KindConstraint          Kind = "constraint"
	KindDuplicateForeignKey Kind = "duplicate_foreign_key"
)

// MaxIdentifierLength is MySQL's limit for table, column and constraint names.
const MaxIdentifierLength = 64

// ValidationError represents a validation error with details
type ValidationError struct {
	Kind     Kind   `json:"kind"`
	Table    string `json:"table,omitempty"`
	Column   string `json:"column,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error", "warning"
}

func (e *ValidationError) Error() string {
	var where string
	switch {
	case e.Table != "" && e.Column != "":
		where = e.Table + "." + e.Column + ": "
	case e.Table != "":
		where = e.Table + ": "
	case e.Column != "":
		where = e.Column + ": "
	}
	return fmt.Sprintf("validation failed (%s): %s%s", e.Kind, where, e.Message)
}

func newError(kind Kind, table, column, format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:     kind,
		Table:    table,
		Column:   column,
		Message:  fmt.Sprintf(format, args...),
		Severity: "error",
	}
}

// Errorf builds a ValidationError of the given kind.
func Errorf(kind Kind, table, column, format string, args ...any) error {
	return newError(kind, table, column, format, args...)
}

// IsKind reports whether err is a ValidationError of kind.
func IsKind(err error, kind Kind) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == kind
}

// ValidationResult contains all validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
}

func (r *ValidationResult) add(err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		r.Errors = append(r.Errors, *ve)
		return
	}
	r.Errors = append(r.Errors, ValidationError{Kind: KindConstraint, Message: err.Error(), Severity: "error"})
}

// Err returns the first error, or nil when the result is valid.
func (r *ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	e := r.Errors[0]
	return &e
}

// ValidateIdentifier checks a table, column or constraint name against the
// [A-Za-z0-9_]+ allow-list and MySQL's length limit.
func ValidateIdentifier(what, name string) error {
	if name == "" {
		return newError(KindMissingField, "", "", "%s name cannot be empty", what)
	}
	if len(name) > MaxIdentifierLength {
		return newError(KindInvalidIdentifier, "", "", "%s name '%s' is too long (max %d characters)", what, name, MaxIdentifierLength)
	}
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_') {
			return newError(KindInvalidIdentifier, "", "", "%s name '%s' contains invalid character '%c'", what, name, char)
		}
	}
	return nil
}

var deleteActions = []string{"RESTRICT", "CASCADE", "SET NULL", "NO ACTION"}
var updateActions = []string{"RESTRICT", "CASCADE", "NO ACTION"}

// NormalizeOnDelete upper-cases and checks an ON DELETE action. Empty stays empty.
func NormalizeOnDelete(action string) (string, error) {
	return normalizeAction("ON DELETE", action, deleteActions)
}

// NormalizeOnUpdate upper-cases and checks an ON UPDATE action. Empty stays empty.
func NormalizeOnUpdate(action string) (string, error) {
	return normalizeAction("ON UPDATE", action, updateActions)
}

func normalizeAction(clause, action string, allowed []string) (string, error) {
	a := strings.Join(strings.Fields(strings.ToUpper(action)), " ")
	if a == "" {
		return "", nil
	}
	for _, ok := range allowed {
		if a == ok {
			return a, nil
		}
	}
	return "", newError(KindInvalidKeyword, "", "", "invalid %s action '%s' (allowed: %s)", clause, action, strings.Join(allowed, ", "))
}

// ValidateColumn checks one column descriptor and returns its type in canonical form.
func ValidateColumn(table string, col schema.Column) (string, error) {
	if err := ValidateIdentifier("column", col.Name); err != nil {
		return "", WithLocation(err, table, col.Name)
	}
	if strings.TrimSpace(col.Type) == "" {
		return "", newError(KindMissingField, table, col.Name, "column type is required")
	}
	sqlType, err := NormalizeType(col.Type)
	if err != nil {
		return "", WithLocation(err, table, col.Name)
	}
	if col.PrimaryKey && col.Nullable {
		return "", newError(KindConstraint, table, col.Name, "primary key column cannot be nullable")
	}
	if col.AutoIncrement {
		if !typecompat.IsInteger(sqlType) {
			return "", newError(KindConstraint, table, col.Name, "AUTO_INCREMENT requires an integer type, got %s", sqlType)
		}
		if !col.PrimaryKey && !col.Unique {
			return "", newError(KindConstraint, table, col.Name, "AUTO_INCREMENT column must be a primary key or unique")
		}
	}
	if col.Position.After != "" {
		if err := ValidateIdentifier("column", col.Position.After); err != nil {
			return "", WithLocation(err, table, col.Name)
		}
	}
	return sqlType, nil
}

// ValidateForeignKey checks identifiers and actions of fk and returns it with
// actions normalized and the constraint name filled in.
func ValidateForeignKey(table string, fk schema.ForeignKey) (schema.ForeignKey, error) {
	if err := ValidateIdentifier("table", table); err != nil {
		return fk, err
	}
	if err := ValidateIdentifier("column", fk.Column); err != nil {
		return fk, WithLocation(err, table, "")
	}
	if err := ValidateIdentifier("referenced table", fk.RefTable); err != nil {
		return fk, WithLocation(err, table, fk.Column)
	}
	if err := ValidateIdentifier("referenced column", fk.RefColumn); err != nil {
		return fk, WithLocation(err, table, fk.Column)
	}
	var err error
	if fk.OnDelete, err = NormalizeOnDelete(fk.OnDelete); err != nil {
		return fk, WithLocation(err, table, fk.Column)
	}
	if fk.OnUpdate, err = NormalizeOnUpdate(fk.OnUpdate); err != nil {
		return fk, WithLocation(err, table, fk.Column)
	}
	fk.Name = fk.ConstraintName(table)
	if err := ValidateIdentifier("constraint", fk.Name); err != nil {
		return fk, WithLocation(err, table, fk.Column)
	}
	return fk, nil
}

// ValidateTable validates a complete table definition without touching the database
func ValidateTable(name string, columns []schema.Column, fks []schema.ForeignKey) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	if err := ValidateIdentifier("table", name); err != nil {
		result.add(WithLocation(err, name, ""))
	}
	if len(columns) == 0 {
		result.add(newError(KindMissingField, name, "", "table must have at least one column"))
	}

	seen := map[string]bool{}
	pkCount := 0
	for _, col := range columns {
		if _, err := ValidateColumn(name, col); err != nil {
			result.add(err)
		}
		key := strings.ToLower(col.Name)
		if seen[key] {
			result.add(newError(KindConstraint, name, col.Name, "duplicate column name"))
		}
		seen[key] = true
		if col.PrimaryKey {
			pkCount++
		}
		if isReservedKeyword(col.Name) {
			result.Warnings = append(result.Warnings, ValidationError{
				Kind:     KindInvalidIdentifier,
				Table:    name,
				Column:   col.Name,
				Message:  fmt.Sprintf("'%s' is a reserved word; it will always need backtick quoting", col.Name),
				Severity: "warning",
			})
		}
	}
	if pkCount == 0 && len(columns) > 0 {
		result.Warnings = append(result.Warnings, ValidationError{
			Kind:     KindMissingField,
			Table:    name,
			Message:  "table has no primary key; row update and delete need one",
			Severity: "warning",
		})
	}

	for _, fk := range fks {
		if _, err := ValidateForeignKey(name, fk); err != nil {
			result.add(err)
			continue
		}
		if !seen[strings.ToLower(fk.Column)] {
			result.add(newError(KindMissingField, name, fk.Column, "foreign key column is not defined in the table"))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// WithLocation fills in table and column on a ValidationError that lacks them.
func WithLocation(err error, table, column string) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		if ve.Table == "" {
			ve.Table = table
		}
		if ve.Column == "" {
			ve.Column = column
		}
		return ve
	}
	return err
}

func isReservedKeyword(name string) bool {
	switch strings.ToUpper(name) {
	case "ORDER", "GROUP", "TABLE", "INDEX", "KEY", "SELECT", "WHERE", "FROM", "USER", "DESC", "RANGE", "CHECK", "DEFAULT":
		return true
	}
	return false
}
