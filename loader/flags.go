package loader

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/tablesmith/schema"
)

// ParseColumnSpec reads the command-line column form "name:TYPE[:flags]".
// Flags are comma separated: pk, ai, notnull, unique, default=<v>, first,
// after=<column>, comment=<text>. Types may contain commas, e.g.
// "price:DECIMAL(10,2):notnull", so only the third field is split.
func ParseColumnSpec(spec string) (schema.Column, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return schema.Column{}, fmt.Errorf("invalid column %q (expected name:TYPE[:flags])", spec)
	}
	col := schema.Column{
		Name:     strings.TrimSpace(parts[0]),
		Type:     strings.TrimSpace(parts[1]),
		Nullable: true,
	}
	if len(parts) < 3 {
		return col, nil
	}

	for _, flag := range strings.Split(parts[2], ",") {
		flag = strings.TrimSpace(flag)
		key, value, hasValue := strings.Cut(flag, "=")
		switch strings.ToLower(key) {
		case "":
		case "pk", "primary":
			col.PrimaryKey = true
			col.Nullable = false
		case "ai", "auto_increment":
			col.AutoIncrement = true
		case "notnull", "required":
			col.Nullable = false
		case "null", "nullable":
			col.Nullable = true
		case "unique":
			col.Unique = true
		case "first":
			col.Position = schema.First()
		case "after":
			if !hasValue || value == "" {
				return schema.Column{}, fmt.Errorf("column %s: after needs a column name (after=<column>)", col.Name)
			}
			col.Position = schema.After(value)
		case "default":
			if !hasValue {
				return schema.Column{}, fmt.Errorf("column %s: default needs a value (default=<value>)", col.Name)
			}
			v := value
			col.Default = &v
		case "comment":
			col.Comment = value
		default:
			return schema.Column{}, fmt.Errorf("column %s: unknown flag %q", col.Name, flag)
		}
	}
	return col, nil
}

// ParseAssignments reads col=value arguments. A bare NULL becomes nil.
func ParseAssignments(args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q (expected column=value)", arg)
		}
		if _, dup := values[name]; dup {
			return nil, fmt.Errorf("column %s assigned twice", name)
		}
		if value == "NULL" {
			values[name] = nil
			continue
		}
		values[name] = value
	}
	return values, nil
}
