package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Position places a new or modified column. The zero value means LAST.
type Position struct {
	First bool   `json:"first,omitempty" yaml:"first"`
	After string `json:"after,omitempty" yaml:"after"`
}

// Last is the default position (end of table).
var Last = Position{}

func First() Position { return Position{First: true} }

func After(column string) Position { return Position{After: column} }

func (p Position) IsLast() bool { return !p.First && p.After == "" }

func (p Position) String() string {
	switch {
	case p.First:
		return "FIRST"
	case p.After != "":
		return "AFTER " + p.After
	default:
		return "LAST"
	}
}

// ParsePosition accepts LAST, FIRST or "AFTER <column>".
func ParsePosition(s string) (Position, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "LAST":
		return Last, nil
	case "FIRST":
		return First(), nil
	}
	fields := strings.Fields(s)
	if len(fields) == 2 && strings.EqualFold(fields[0], "AFTER") {
		return After(fields[1]), nil
	}
	return Position{}, fmt.Errorf("invalid position %q (expected LAST, FIRST or AFTER <column>)", s)
}

// UnmarshalJSON accepts either the object form or a string such as "AFTER name".
func (p *Position) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParsePosition(s)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}
	type plain Position
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Position(v)
	return nil
}
