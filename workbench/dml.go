package workbench

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/ridoystarlord/tablesmith/database"
	"github.com/ridoystarlord/tablesmith/generator"
	"github.com/ridoystarlord/tablesmith/runner"
	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/typecompat"
	"github.com/ridoystarlord/tablesmith/validator"
)

// coerceValues prepares user-entered values for binding. Empty strings on
// nullable columns become NULL and temporal strings are normalized to ISO form.
func coerceValues(snap *schema.TableSnapshot, values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for name, v := range values {
		col, ok := snap.Column(name)
		if !ok {
			out[name] = v
			continue
		}
		s, isString := v.(string)
		switch {
		case !isString:
			out[name] = v
		case s == "" && col.Nullable:
			out[name] = nil
		case typecompat.IsTemporal(col.Type) && s != "":
			normalized, err := validator.NormalizeTemporal(col.Type, s)
			if err != nil {
				return nil, validator.WithLocation(err, snap.Name, col.Name)
			}
			out[name] = normalized
		default:
			out[name] = v
		}
	}
	return out, nil
}

func (w *Workbench) Insert(ctx context.Context, table string, values map[string]any) (*runner.Result, error) {
	snap, err := w.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	values, err = coerceValues(snap, values)
	if err != nil {
		return nil, err
	}
	stmt, err := generator.BuildInsert(snap, values)
	if err != nil {
		return nil, err
	}
	return w.exec.Exec(ctx, "insert into "+table, stmt)
}

func primaryKey(snap *schema.TableSnapshot) (string, error) {
	if snap.PrimaryKey == "" {
		return "", validator.Errorf(validator.KindMissingField, snap.Name, "", "table has no primary key; rows cannot be addressed")
	}
	return snap.PrimaryKey, nil
}

// Update changes the row whose primary key equals pkValue. The key itself is
// never part of SET.
func (w *Workbench) Update(ctx context.Context, table string, pkValue any, values map[string]any) (*runner.Result, error) {
	snap, err := w.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	pk, err := primaryKey(snap)
	if err != nil {
		return nil, err
	}
	values, err = coerceValues(snap, values)
	if err != nil {
		return nil, err
	}
	stmt, err := generator.BuildUpdate(snap, pk, pkValue, values)
	if err != nil {
		return nil, err
	}
	return w.exec.Exec(ctx, fmt.Sprintf("update %s %s=%v", table, pk, pkValue), stmt)
}

// DeleteRow deletes by primary key after the dependency check passes. A
// blocked or unverifiable check means no DELETE is sent.
func (w *Workbench) DeleteRow(ctx context.Context, table string, pkValue any) (*runner.Result, error) {
	snap, err := w.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	pk, err := primaryKey(snap)
	if err != nil {
		return nil, err
	}
	if err := w.deps.CheckRowDelete(ctx, w.database, snap.Name, pk, pkValue); err != nil {
		return nil, err
	}
	stmt, err := generator.BuildDelete(snap.Name, pk, pkValue)
	if err != nil {
		return nil, err
	}
	return w.exec.Exec(ctx, fmt.Sprintf("delete from %s %s=%v", table, pk, pkValue), stmt)
}

// Browse pages through table in primary key order. limit <= 0 reads every row.
func (w *Workbench) Browse(ctx context.Context, table string, limit, offset int) (*runner.ResultSet, error) {
	snap, err := w.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	stmt, err := generator.BuildSelect(snap.Name, generator.SelectOptions{
		Columns: snap.ColumnNames(),
		OrderBy: snap.PrimaryKey,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, err
	}
	return w.exec.Query(ctx, stmt)
}

var readOnlyKeywords = map[string]bool{"SELECT": true, "SHOW": true, "DESCRIBE": true, "DESC": true, "EXPLAIN": true}

var (
	quotedText  = regexp.MustCompile("'(?:[^'\\\\]|\\\\.|'')*'|\"(?:[^\"\\\\]|\\\\.|\"\")*\"|`(?:[^`]|``)*`")
	sideEffects = regexp.MustCompile(`(?i)\bINTO\s+(OUTFILE|DUMPFILE)\b|\bFOR\s+(UPDATE|SHARE)\b|\bLOCK\s+IN\s+SHARE\s+MODE\b`)
)

// Query runs a free-form read statement in a READ ONLY transaction. Only
// SELECT, SHOW, DESCRIBE and EXPLAIN are accepted, one statement at a time,
// without locking reads or file output.
func (w *Workbench) Query(ctx context.Context, sqlText string, args ...any) (*runner.ResultSet, error) {
	text := strings.TrimSpace(sqlText)
	text = strings.TrimSpace(strings.TrimSuffix(text, ";"))
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, validator.Errorf(validator.KindMissingField, "", "", "query is empty")
	}
	if !readOnlyKeywords[strings.ToUpper(fields[0])] {
		return nil, validator.Errorf(validator.KindInvalidKeyword, "", "", "only SELECT, SHOW, DESCRIBE and EXPLAIN are allowed here, got %s", fields[0])
	}
	bare := quotedText.ReplaceAllString(text, "''")
	if strings.Contains(bare, ";") {
		return nil, validator.Errorf(validator.KindInvalidKeyword, "", "", "only one statement may be run at a time")
	}
	if m := sideEffects.FindString(bare); m != "" {
		return nil, validator.Errorf(validator.KindInvalidKeyword, "", "", "%s is not allowed in a read-only query", strings.ToUpper(strings.Join(strings.Fields(m), " ")))
	}

	var rs *runner.ResultSet
	err := w.exec.TxWith(ctx, &sql.TxOptions{ReadOnly: true}, func(q database.Queryer) error {
		var err error
		rs, err = runner.QueryWith(ctx, q, generator.Statement{SQL: text, Args: args})
		return err
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}
