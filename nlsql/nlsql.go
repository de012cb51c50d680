// Package nlsql drafts SELECT statements from plain-English questions using
// keyword heuristics over the current catalog. Drafts are for display only:
// nothing in this package executes SQL.
package nlsql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ridoystarlord/tablesmith/generator"
	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/typecompat"
)

const (
	DefaultLimit = 10
	AllLimit     = 1000
	maxColumns   = 5
)

// Suggestion is a draft statement plus the reasoning behind it.
type Suggestion struct {
	Statement generator.Statement `json:"statement"`
	Table     string              `json:"table"`
	Columns   []string            `json:"columns"`
	Notes     []string            `json:"notes,omitempty"`
}

type Suggester struct {
	tables []*schema.TableSnapshot
	title  cases.Caser
}

func New(tables []*schema.TableSnapshot) *Suggester {
	return &Suggester{tables: tables, title: cases.Title(language.English)}
}

// topic words mapped to a fragment of the table name they usually mean.
var topics = []struct {
	fragment string
	synonyms []string
}{
	{"customer", []string{"customer", "customers", "client", "clients", "buyer", "buyers"}},
	{"product", []string{"product", "products", "item", "items", "goods", "stock"}},
	{"order", []string{"order", "orders", "purchase", "purchases", "sale", "sales"}},
	{"employee", []string{"employee", "employees", "staff", "worker", "workers"}},
}

// sortPhrases are removed before table matching so "order by" never selects an orders table.
var sortPhrases = strings.NewReplacer("ordered by", " ", "order by", " ")

var (
	wordRe      = regexp.MustCompile(`[a-z0-9_]+`)
	numberRe    = `(-?\d+(?:\.\d+)?)`
	greaterRe   = regexp.MustCompile(`(?:greater|more|higher|larger|bigger)\s+than\s+` + numberRe + `|(?:over|above)\s+` + numberRe)
	lessRe      = regexp.MustCompile(`(?:less|lower|smaller|fewer)\s+than\s+` + numberRe + `|(?:under|below)\s+` + numberRe)
	equalRe     = regexp.MustCompile(`(?:equal\s+to|equals)\s+` + numberRe)
	betweenRe   = regexp.MustCompile(`between\s+` + numberRe + `\s+and\s+` + numberRe)
	explicitRe  = regexp.MustCompile(`(?i)([a-z_][a-z0-9_]*)\s*=\s*(?:'([^']*)'|"([^"]*)"|(\S+))`)
	fromPlaceRe = regexp.MustCompile(`\bfrom\s+([a-z][a-z ]*?)\s*(?:\b(?:with|where|and|order|ordered|sorted|sort|limit|top|who|that|in|this|last|today|yesterday)\b|[,.?!]|$)`)
	topRe       = regexp.MustCompile(`\b(?:top|first|last)\s+(\d+)\b|\b(\d+)\s+(?:rows|results|records|entries)\b`)
)

var placeColumns = []string{"city", "town", "location", "state", "country", "region"}

// Suggest drafts a statement for text. It never fails on unrecognized
// wording; it falls back to browsing the first table.
func (s *Suggester) Suggest(text string) (*Suggestion, error) {
	if len(s.tables) == 0 {
		return nil, fmt.Errorf("no tables available to draft a query against")
	}
	q := strings.ToLower(strings.TrimSpace(text))
	words := wordRe.FindAllString(q, -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}

	tableWords := map[string]bool{}
	for _, w := range wordRe.FindAllString(sortPhrases.Replace(q), -1) {
		tableWords[w] = true
	}

	d := &draft{}
	table := s.pickTable(tableWords, d)
	d.table = table

	cols := mentionedColumns(table, q, set)
	d.columns = cols
	selectList := "*"
	if len(cols) > 0 {
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = quoteIdent(c)
		}
		selectList = strings.Join(quoted, ", ")
	}

	aggregate := false
	switch {
	case containsAny(q, "how many", "number of") || set["count"]:
		selectList, aggregate = "COUNT(*) AS total", true
		d.note("counting rows")
	case set["sum"] || set["total"]:
		if c, ok := firstNumeric(table); ok {
			selectList, aggregate = "SUM("+quoteIdent(c)+") AS total", true
			d.note("summing " + c)
		} else {
			d.note("no numeric column to sum; listing rows instead")
		}
	case set["average"] || set["avg"] || set["mean"]:
		if c, ok := firstNumeric(table); ok {
			selectList, aggregate = "AVG("+quoteIdent(c)+") AS average", true
			d.note("averaging " + c)
		} else {
			d.note("no numeric column to average; listing rows instead")
		}
	}

	s.placeCondition(table, q, d)
	explicitConditions(table, text, d)
	numericConditions(table, q, d)
	dateConditions(table, q, d)

	sql := "SELECT " + selectList + " FROM " + quoteIdent(table.Name)
	if len(d.where) > 0 {
		sql += " WHERE " + strings.Join(d.where, " AND ")
	}
	if !aggregate {
		sql += ordering(table, cols, q, set, d)
		limit := limitFor(q, set)
		sql += " LIMIT ?"
		d.args = append(d.args, limit)
	}
	d.note("draft only: review before running")

	return &Suggestion{
		Statement: generator.Statement{SQL: sql, Args: d.args},
		Table:     table.Name,
		Columns:   cols,
		Notes:     d.notes,
	}, nil
}

type draft struct {
	table   *schema.TableSnapshot
	columns []string
	where   []string
	args    []any
	notes   []string
}

func (d *draft) note(s string) { d.notes = append(d.notes, s) }

func (d *draft) cond(clause string, args ...any) {
	d.where = append(d.where, clause)
	d.args = append(d.args, args...)
}

func (s *Suggester) pickTable(words map[string]bool, d *draft) *schema.TableSnapshot {
	for _, t := range s.tables {
		name := strings.ToLower(t.Name)
		if words[name] || words[strings.TrimSuffix(name, "s")] || words[name+"s"] {
			return t
		}
	}
	for _, topic := range topics {
		fragment := topic.fragment
		hit := false
		for _, w := range topic.synonyms {
			if words[w] {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		for _, t := range s.tables {
			if strings.Contains(strings.ToLower(t.Name), fragment) {
				d.note(fmt.Sprintf("%q matched by topic %q", t.Name, fragment))
				return t
			}
		}
	}
	d.note(fmt.Sprintf("no table mentioned; using %q", s.tables[0].Name))
	return s.tables[0]
}

func mentionedColumns(t *schema.TableSnapshot, q string, words map[string]bool) []string {
	var cols []string
	for _, c := range t.Columns {
		name := strings.ToLower(c.Name)
		spaced := strings.ReplaceAll(name, "_", " ")
		if words[name] || (spaced != name && strings.Contains(q, spaced)) {
			cols = append(cols, c.Name)
			if len(cols) == maxColumns {
				break
			}
		}
	}
	return cols
}

func firstNumeric(t *schema.TableSnapshot) (string, bool) {
	for _, c := range t.Columns {
		if c.PrimaryKey || c.AutoIncrement || strings.HasSuffix(strings.ToLower(c.Name), "_id") {
			continue
		}
		if typecompat.IsNumeric(c.Type) && !isBoolean(c.Type) {
			return c.Name, true
		}
	}
	return "", false
}

func isBoolean(sqlType string) bool {
	base := typecompat.BaseType(sqlType)
	return base == "BOOL" || base == "BOOLEAN" || strings.EqualFold(strings.TrimSpace(sqlType), "tinyint(1)")
}

func firstTemporal(t *schema.TableSnapshot) (string, bool) {
	for _, c := range t.Columns {
		base := typecompat.BaseType(c.Type)
		if base == "DATE" || base == "DATETIME" || base == "TIMESTAMP" {
			return c.Name, true
		}
	}
	return "", false
}

func (s *Suggester) placeCondition(t *schema.TableSnapshot, q string, d *draft) {
	m := fromPlaceRe.FindStringSubmatch(q)
	if m == nil {
		return
	}
	place := strings.TrimSpace(m[1])
	if place == "" || s.isTableName(place) || isPeriodWord(strings.Fields(place)[0]) {
		return
	}
	for _, want := range placeColumns {
		for _, c := range t.Columns {
			if strings.Contains(strings.ToLower(c.Name), want) {
				d.cond(quoteIdent(c.Name)+" = ?", s.title.String(place))
				d.note(fmt.Sprintf("filtering %s by %q", c.Name, s.title.String(place)))
				return
			}
		}
	}
	d.note(fmt.Sprintf("no place-like column for %q", place))
}

func isPeriodWord(w string) bool {
	switch w {
	case "this", "last", "today", "yesterday":
		return true
	}
	return false
}

func (s *Suggester) isTableName(word string) bool {
	for _, t := range s.tables {
		name := strings.ToLower(t.Name)
		if word == name || word == strings.TrimSuffix(name, "s") {
			return true
		}
	}
	return false
}

func explicitConditions(t *schema.TableSnapshot, text string, d *draft) {
	for _, m := range explicitRe.FindAllStringSubmatch(text, -1) {
		col, ok := t.Column(m[1])
		if !ok {
			continue
		}
		value := m[2] + m[3] + m[4]
		d.cond(quoteIdent(col.Name)+" = ?", value)
	}
}

func numericConditions(t *schema.TableSnapshot, q string, d *draft) {
	col, ok := firstNumeric(t)
	if !ok {
		return
	}
	qc := quoteIdent(col)
	if m := betweenRe.FindStringSubmatch(q); m != nil {
		d.cond(qc+" BETWEEN ? AND ?", number(m[1]), number(m[2]))
		return
	}
	if m := greaterRe.FindStringSubmatch(q); m != nil {
		d.cond(qc+" > ?", number(m[1]+m[2]))
	}
	if m := lessRe.FindStringSubmatch(q); m != nil {
		d.cond(qc+" < ?", number(m[1]+m[2]))
	}
	if m := equalRe.FindStringSubmatch(q); m != nil {
		d.cond(qc+" = ?", number(m[1]))
	}
}

func number(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

var periods = []struct {
	phrase string
	clause string
}{
	{"last month", "YEAR(%[1]s) = YEAR(CURDATE() - INTERVAL 1 MONTH) AND MONTH(%[1]s) = MONTH(CURDATE() - INTERVAL 1 MONTH)"},
	{"this month", "YEAR(%[1]s) = YEAR(CURDATE()) AND MONTH(%[1]s) = MONTH(CURDATE())"},
	{"this week", "YEARWEEK(%[1]s, 1) = YEARWEEK(CURDATE(), 1)"},
	{"this year", "YEAR(%[1]s) = YEAR(CURDATE())"},
	{"yesterday", "DATE(%[1]s) = CURDATE() - INTERVAL 1 DAY"},
	{"today", "DATE(%[1]s) = CURDATE()"},
}

func dateConditions(t *schema.TableSnapshot, q string, d *draft) {
	col, ok := firstTemporal(t)
	if !ok {
		return
	}
	for _, p := range periods {
		if strings.Contains(q, p.phrase) {
			d.cond(fmt.Sprintf(p.clause, quoteIdent(col)))
			d.note(fmt.Sprintf("%s on %s", p.phrase, col))
			return
		}
	}
}

func ordering(t *schema.TableSnapshot, cols []string, q string, words map[string]bool, d *draft) string {
	extreme := words["highest"] || words["largest"] || words["lowest"] || words["smallest"]
	if !extreme && !containsAny(q, "order by", "ordered by", "sort") {
		return ""
	}
	col := t.Columns[0].Name
	if len(cols) > 0 {
		col = cols[0]
	}
	if extreme {
		if c, ok := firstNumeric(t); ok {
			col = c
		}
	}
	dir := ""
	if words["desc"] || words["descending"] || words["highest"] || words["largest"] || words["latest"] || words["newest"] {
		dir = " DESC"
	}
	d.note("ordering by " + col + dir)
	return " ORDER BY " + quoteIdent(col) + dir
}

func limitFor(q string, words map[string]bool) int {
	if m := topRe.FindStringSubmatch(q); m != nil {
		if n, err := strconv.Atoi(m[1] + m[2]); err == nil && n > 0 {
			return n
		}
	}
	if words["all"] || words["every"] {
		return AllLimit
	}
	return DefaultLimit
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// quoteIdent quotes a name read from the catalog. Catalog names never
// contain backticks in practice; any that do are doubled.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
