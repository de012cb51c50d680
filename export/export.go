// Package export renders query results as a table, markdown, CSV, JSON or
// SQL INSERT statements.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ridoystarlord/tablesmith/generator"
	"github.com/ridoystarlord/tablesmith/runner"
)

const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatSQL      = "sql"
)

// Formats lists every supported format name.
var Formats = []string{FormatTable, FormatMarkdown, FormatCSV, FormatJSON, FormatSQL}

const timestampLayout = "2006-01-02 15:04:05"

type Options struct {
	Format string
	// Table names the INSERT target for the sql format.
	Table string
}

// ContentType returns the MIME type served for format.
func ContentType(format string) string {
	switch normalize(format) {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatSQL:
		return "application/sql"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension used when format is saved to disk.
func Extension(format string) string {
	switch f := normalize(format); f {
	case FormatMarkdown:
		return "md"
	case FormatTable:
		return "txt"
	default:
		return f
	}
}

func normalize(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "text":
		return FormatTable
	case "md":
		return FormatMarkdown
	default:
		return f
	}
}

// Render writes rs to w in the requested format.
func Render(w io.Writer, rs *runner.ResultSet, opts Options) error {
	if rs == nil {
		rs = &runner.ResultSet{}
	}
	switch normalize(opts.Format) {
	case FormatTable:
		return renderTable(w, rs)
	case FormatMarkdown:
		return renderMarkdown(w, rs)
	case FormatCSV:
		return renderCSV(w, rs)
	case FormatJSON:
		return renderJSON(w, rs)
	case FormatSQL:
		return renderSQL(w, rs, opts.Table)
	default:
		return fmt.Errorf("unknown format %q (expected one of %s)", opts.Format, strings.Join(Formats, ", "))
	}
}

func newWriter(rs *runner.ResultSet) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(rs.Columns))
	for i, col := range rs.Columns {
		header[i] = col
	}
	t.AppendHeader(header)
	for _, r := range rs.Rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}
	return t
}

func renderTable(w io.Writer, rs *runner.ResultSet) error {
	if len(rs.Rows) == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}
	if _, err := fmt.Fprintln(w, newWriter(rs).Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d rows)\n", len(rs.Rows))
	return err
}

func renderMarkdown(w io.Writer, rs *runner.ResultSet) error {
	_, err := fmt.Fprintln(w, newWriter(rs).RenderMarkdown())
	return err
}

// renderCSV follows RFC 4180. NULL becomes an empty field.
func renderCSV(w io.Writer, rs *runner.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.Columns); err != nil {
		return err
	}
	record := make([]string, len(rs.Columns))
	for _, r := range rs.Rows {
		for i, v := range r {
			if v == nil {
				record[i] = ""
			} else {
				record[i] = formatValue(v)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// orderedRow marshals its values as an object with keys in column order. A
// repeated column name is written once per occurrence.
type orderedRow struct {
	columns []string
	values  []any
}

func (o orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range o.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func renderJSON(w io.Writer, rs *runner.ResultSet) error {
	rows := make([]orderedRow, 0, len(rs.Rows))
	for _, r := range rs.Rows {
		rows = append(rows, orderedRow{columns: rs.Columns, values: r})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderSQL(w io.Writer, rs *runner.ResultSet, tableName string) error {
	qt, err := generator.QuoteIdent("table", tableName)
	if err != nil {
		return err
	}
	cols := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		if cols[i], err = generator.QuoteIdent("column", c); err != nil {
			return err
		}
	}
	prefix := "INSERT INTO " + qt + " (" + strings.Join(cols, ", ") + ") VALUES ("
	values := make([]string, len(rs.Columns))
	for _, r := range rs.Rows {
		for i, v := range r {
			values[i] = Literal(v)
		}
		if _, err := fmt.Fprintln(w, prefix+strings.Join(values, ", ")+");"); err != nil {
			return err
		}
	}
	return nil
}

// Literal renders v as a MySQL literal.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return generator.QuoteString(x.Format(timestampLayout))
	case []byte:
		return generator.QuoteString(string(x))
	default:
		return generator.QuoteString(fmt.Sprint(x))
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(timestampLayout)
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
