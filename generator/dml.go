package generator

import (
	"sort"
	"strings"

	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/validator"
)

// lookupValues indexes values by lower-cased column name and rejects names the
// snapshot does not know.
func lookupValues(t *schema.TableSnapshot, values map[string]any) (map[string]any, error) {
	byName := make(map[string]any, len(values))
	var unknown []string
	for k, v := range values {
		if _, ok := t.Column(k); !ok {
			unknown = append(unknown, k)
			continue
		}
		byName[strings.ToLower(k)] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, validator.Errorf(validator.KindInvalidIdentifier, t.Name, unknown[0],
			"unknown column(s): %s", strings.Join(unknown, ", "))
	}
	return byName, nil
}

// BuildInsert builds INSERT for the supplied values in column order.
// Auto-increment columns are always left out, even when a value was supplied.
// A NOT NULL column with no default and no value is a missing_field error.
func BuildInsert(t *schema.TableSnapshot, values map[string]any) (Statement, error) {
	qt, err := QuoteIdent("table", t.Name)
	if err != nil {
		return Statement{}, err
	}
	byName, err := lookupValues(t, values)
	if err != nil {
		return Statement{}, err
	}

	var cols, marks []string
	var args []any
	for _, c := range t.Columns {
		if c.AutoIncrement {
			continue
		}
		v, ok := byName[strings.ToLower(c.Name)]
		if !ok {
			if !c.Nullable && c.Default == nil {
				return Statement{}, validator.Errorf(validator.KindMissingField, t.Name, c.Name, "a value is required")
			}
			continue
		}
		if v == nil && !c.Nullable {
			return Statement{}, validator.Errorf(validator.KindMissingField, t.Name, c.Name, "column cannot be NULL")
		}
		cols = append(cols, quote(c.Name))
		marks = append(marks, "?")
		args = append(args, v)
	}

	return Statement{
		SQL:  "INSERT INTO " + qt + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")",
		Args: args,
	}, nil
}

func resolvePrimaryKey(t *schema.TableSnapshot, pkColumn string) (schema.Column, error) {
	if pkColumn == "" {
		pkColumn = t.PrimaryKey
	}
	if pkColumn == "" {
		return schema.Column{}, validator.Errorf(validator.KindMissingField, t.Name, "", "table has no primary key; name the key column explicitly")
	}
	col, ok := t.Column(pkColumn)
	if !ok {
		return schema.Column{}, validator.Errorf(validator.KindMissingField, t.Name, pkColumn, "key column does not exist")
	}
	return col, nil
}

// BuildUpdate builds UPDATE ... WHERE pk = ?. The key column never appears in
// SET, even if it is present in values.
func BuildUpdate(t *schema.TableSnapshot, pkColumn string, pkValue any, values map[string]any) (Statement, error) {
	qt, err := QuoteIdent("table", t.Name)
	if err != nil {
		return Statement{}, err
	}
	pk, err := resolvePrimaryKey(t, pkColumn)
	if err != nil {
		return Statement{}, err
	}
	byName, err := lookupValues(t, values)
	if err != nil {
		return Statement{}, err
	}

	var sets []string
	var args []any
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, pk.Name) {
			continue
		}
		v, ok := byName[strings.ToLower(c.Name)]
		if !ok {
			continue
		}
		if v == nil && !c.Nullable {
			return Statement{}, validator.Errorf(validator.KindMissingField, t.Name, c.Name, "column cannot be NULL")
		}
		sets = append(sets, quote(c.Name)+" = ?")
		args = append(args, v)
	}
	if len(sets) == 0 {
		return Statement{}, validator.Errorf(validator.KindMissingField, t.Name, "", "no columns to update")
	}

	return Statement{
		SQL:  "UPDATE " + qt + " SET " + strings.Join(sets, ", ") + " WHERE " + quote(pk.Name) + " = ?",
		Args: append(args, pkValue),
	}, nil
}

// BuildDelete builds DELETE ... WHERE pkColumn = ?.
func BuildDelete(table, pkColumn string, pkValue any) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	qc, err := QuoteIdent("column", pkColumn)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "DELETE FROM " + qt + " WHERE " + qc + " = ?", Args: []any{pkValue}}, nil
}

// SelectOptions shapes BuildSelect.
type SelectOptions struct {
	Columns []string
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// BuildSelect builds a plain SELECT for browsing and export.
func BuildSelect(table string, opts SelectOptions) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	cols := "*"
	if len(opts.Columns) > 0 {
		quoted, err := quoteAll("column", opts.Columns)
		if err != nil {
			return Statement{}, err
		}
		cols = strings.Join(quoted, ", ")
	}

	sql := "SELECT " + cols + " FROM " + qt
	if opts.OrderBy != "" {
		qo, err := QuoteIdent("column", opts.OrderBy)
		if err != nil {
			return Statement{}, err
		}
		sql += " ORDER BY " + qo
		if opts.Desc {
			sql += " DESC"
		}
	}
	var args []any
	if opts.Limit > 0 {
		sql += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			sql += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}
	return Statement{SQL: sql, Args: args}, nil
}

// BuildCountWhere builds SELECT COUNT(*) ... WHERE column = ?.
func BuildCountWhere(table, column string, value any) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	qc, err := QuoteIdent("column", column)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "SELECT COUNT(*) FROM " + qt + " WHERE " + qc + " = ?", Args: []any{value}}, nil
}

// BuildCountNotNull counts rows whose column is set.
func BuildCountNotNull(table, column string) (Statement, error) {
	qt, err := QuoteIdent("table", table)
	if err != nil {
		return Statement{}, err
	}
	qc, err := QuoteIdent("column", column)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "SELECT COUNT(*) FROM " + qt + " WHERE " + qc + " IS NOT NULL"}, nil
}
