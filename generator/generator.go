package generator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/typecompat"
	"github.com/ridoystarlord/tablesmith/validator"
)

// Statement is one SQL statement with its bound parameters. Identifiers and
// validated keywords live in SQL; every data value lives in Args.
type Statement struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args,omitempty"`
}

func (s Statement) String() string {
	if len(s.Args) == 0 {
		return s.SQL
	}
	return fmt.Sprintf("%s -- args: %v", s.SQL, s.Args)
}

// QuoteIdent validates name and wraps it in backticks.
func QuoteIdent(what, name string) (string, error) {
	if err := validator.ValidateIdentifier(what, name); err != nil {
		return "", err
	}
	return quote(name), nil
}

// quote assumes name already passed ValidateIdentifier, so it cannot contain a backtick.
func quote(name string) string {
	return "`" + name + "`"
}

func quoteAll(what string, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		q, err := QuoteIdent(what, n)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// QuoteString renders s as a single-quoted MySQL string literal.
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return "'" + s + "'"
}

var numericLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Temporal functions usable as column defaults. Only the timestamp family may
// appear bare on DATETIME/TIMESTAMP; everything else is an expression default.
var temporalFunctions = map[string]string{
	"CURRENT_TIMESTAMP":   "CURRENT_TIMESTAMP",
	"CURRENT_TIMESTAMP()": "CURRENT_TIMESTAMP",
	"NOW()":               "NOW()",
	"LOCALTIME":           "LOCALTIME",
	"LOCALTIME()":         "LOCALTIME",
	"LOCALTIMESTAMP":      "LOCALTIMESTAMP",
	"LOCALTIMESTAMP()":    "LOCALTIMESTAMP",
	"CURRENT_DATE":        "CURRENT_DATE",
	"CURRENT_DATE()":      "CURRENT_DATE",
	"CURDATE()":           "CURDATE()",
	"CURRENT_TIME":        "CURRENT_TIME",
	"CURRENT_TIME()":      "CURRENT_TIME",
	"CURTIME()":           "CURTIME()",
}

var bareTimestampFunctions = map[string]bool{
	"CURRENT_TIMESTAMP": true,
	"NOW()":             true,
	"LOCALTIME":         true,
	"LOCALTIMESTAMP":    true,
}

// DefaultLiteral classifies raw for a column of sqlType and returns the text to
// place after DEFAULT. Numeric types emit unquoted numbers, temporal types an
// allow-listed function or a normalized quoted date, everything else a quoted
// string.
func DefaultLiteral(sqlType, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	upper := strings.ToUpper(v)
	if upper == "NULL" {
		return "NULL", nil
	}

	switch {
	case typecompat.IsNumeric(sqlType):
		if typecompat.IsInteger(sqlType) && (upper == "TRUE" || upper == "FALSE") {
			return upper, nil
		}
		if !numericLiteral.MatchString(v) {
			return "", validator.Errorf(validator.KindUnparseableDefault, "", "", "'%s' is not a number (column type %s)", raw, sqlType)
		}
		return v, nil

	case typecompat.IsTemporal(sqlType):
		if fn, ok := temporalFunctions[strings.ReplaceAll(upper, " ", "")]; ok {
			base := typecompat.BaseType(sqlType)
			if (base == "DATETIME" || base == "TIMESTAMP") && bareTimestampFunctions[fn] {
				return fn, nil
			}
			return "(" + fn + ")", nil
		}
		normalized, err := validator.NormalizeTemporal(sqlType, v)
		if err != nil {
			return "", err
		}
		return QuoteString(normalized), nil
	}

	return QuoteString(raw), nil
}

// columnDefinition renders `name` TYPE [NOT NULL] [DEFAULT x] [AUTO_INCREMENT] [UNIQUE].
func columnDefinition(table string, col schema.Column, withUnique bool) (string, error) {
	sqlType, err := validator.ValidateColumn(table, col)
	if err != nil {
		return "", err
	}

	parts := []string{quote(col.Name), sqlType}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		if col.AutoIncrement {
			return "", validator.Errorf(validator.KindConstraint, table, col.Name, "AUTO_INCREMENT column cannot have a DEFAULT")
		}
		lit, err := DefaultLiteral(sqlType, *col.Default)
		if err != nil {
			return "", withColumn(err, table, col.Name)
		}
		if lit == "NULL" && !col.Nullable {
			return "", validator.Errorf(validator.KindConstraint, table, col.Name, "NOT NULL column cannot default to NULL")
		}
		parts = append(parts, "DEFAULT "+lit)
	}
	if col.AutoIncrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if withUnique && col.Unique {
		parts = append(parts, "UNIQUE")
	}
	if col.Comment != "" {
		parts = append(parts, "COMMENT "+QuoteString(col.Comment))
	}
	return strings.Join(parts, " "), nil
}

func positionClause(p schema.Position) string {
	switch {
	case p.First:
		return " FIRST"
	case p.After != "":
		return " AFTER " + quote(p.After)
	}
	return ""
}

func withColumn(err error, table, column string) error {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		if ve.Table == "" {
			ve.Table = table
		}
		if ve.Column == "" {
			ve.Column = column
		}
	}
	return err
}
