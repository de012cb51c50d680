package validator

import (
	"regexp"
	"strconv"
	"strings"
)

type typeRule struct {
	maxArgs     int  // how many numeric arguments the type may take
	needsLength bool // VARCHAR(n), VARBINARY(n)
	signed      bool // accepts UNSIGNED / ZEROFILL
}

var typeRules = map[string]typeRule{
	"TINYINT":   {maxArgs: 1, signed: true},
	"SMALLINT":  {maxArgs: 1, signed: true},
	"MEDIUMINT": {maxArgs: 1, signed: true},
	"INT":       {maxArgs: 1, signed: true},
	"INTEGER":   {maxArgs: 1, signed: true},
	"BIGINT":    {maxArgs: 1, signed: true},
	"BIT":       {maxArgs: 1},
	"BOOL":      {},
	"BOOLEAN":   {},

	"DECIMAL": {maxArgs: 2, signed: true},
	"NUMERIC": {maxArgs: 2, signed: true},
	"FLOAT":   {maxArgs: 2, signed: true},
	"DOUBLE":  {maxArgs: 2, signed: true},
	"REAL":    {maxArgs: 2, signed: true},

	"DATE":      {},
	"DATETIME":  {maxArgs: 1},
	"TIMESTAMP": {maxArgs: 1},
	"TIME":      {maxArgs: 1},
	"YEAR":      {maxArgs: 1},

	"CHAR":       {maxArgs: 1},
	"VARCHAR":    {maxArgs: 1, needsLength: true},
	"BINARY":     {maxArgs: 1},
	"VARBINARY":  {maxArgs: 1, needsLength: true},
	"TINYTEXT":   {},
	"TEXT":       {maxArgs: 1},
	"MEDIUMTEXT": {},
	"LONGTEXT":   {},
	"TINYBLOB":   {},
	"BLOB":       {maxArgs: 1},
	"MEDIUMBLOB": {},
	"LONGBLOB":   {},
	"JSON":       {},
}

var typePattern = regexp.MustCompile(`^(?i)([a-z]+)(?:\s*\(\s*(\d+)(?:\s*,\s*(\d+))?\s*\))?((?:\s+(?:unsigned|zerofill))*)$`)

// NormalizeType checks sqlType against the allow-list and returns it in canonical
// upper-case form, e.g. "decimal( 10 ,2) unsigned" -> "DECIMAL(10,2) UNSIGNED".
func NormalizeType(sqlType string) (string, error) {
	raw := strings.TrimSpace(sqlType)
	m := typePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", newError(KindInvalidKeyword, "", "", "unsupported column type '%s'", sqlType)
	}
	base := strings.ToUpper(m[1])
	rule, ok := typeRules[base]
	if !ok {
		return "", newError(KindInvalidKeyword, "", "", "unsupported column type '%s'", sqlType)
	}

	args := 0
	if m[2] != "" {
		args++
	}
	if m[3] != "" {
		args++
	}
	if args > rule.maxArgs {
		return "", newError(KindInvalidKeyword, "", "", "type %s does not take %d argument(s)", base, args)
	}
	if rule.needsLength && args == 0 {
		return "", newError(KindMissingField, "", "", "type %s requires a length, e.g. %s(255)", base, base)
	}

	var b strings.Builder
	b.WriteString(base)
	if args > 0 {
		n, _ := strconv.Atoi(m[2])
		if rule.needsLength && n == 0 {
			return "", newError(KindInvalidKeyword, "", "", "type %s requires a positive length", base)
		}
		b.WriteString("(" + strconv.Itoa(n))
		if m[3] != "" {
			s, _ := strconv.Atoi(m[3])
			b.WriteString("," + strconv.Itoa(s))
		}
		b.WriteString(")")
	}
	for _, mod := range strings.Fields(m[4]) {
		if !rule.signed {
			return "", newError(KindInvalidKeyword, "", "", "type %s does not accept %s", base, strings.ToUpper(mod))
		}
		b.WriteString(" " + strings.ToUpper(mod))
	}
	return b.String(), nil
}
