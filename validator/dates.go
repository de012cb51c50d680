package validator

import (
	"strconv"
	"strings"
	"time"

	"github.com/ridoystarlord/tablesmith/typecompat"
)

const (
	isoDate     = "2006-01-02"
	isoDateTime = "2006-01-02 15:04:05"
	isoTime     = "15:04:05"
)

// Accepted input layouts, canonical first. Day-first forms follow the
// DD/MM/YYYY convention.
var dateLayouts = []string{
	isoDate,
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
}

var dateTimeLayouts = []string{
	isoDateTime,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

var timeLayouts = []string{isoTime, "15:04"}

// NormalizeDate parses value against the accepted date layouts and returns it
// as YYYY-MM-DD.
func NormalizeDate(value string) (string, error) {
	v := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(isoDate), nil
		}
	}
	return "", newError(KindUnparseableDefault, "", "", "'%s' is not a valid date (expected YYYY-MM-DD or DD/MM/YYYY)", value)
}

// NormalizeTemporal normalizes a literal for any temporal column type.
// DATETIME and TIMESTAMP accept a date with or without a time part.
func NormalizeTemporal(sqlType, value string) (string, error) {
	v := strings.TrimSpace(value)
	switch typecompat.BaseType(sqlType) {
	case "DATE":
		return NormalizeDate(v)
	case "DATETIME", "TIMESTAMP":
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.Format(isoDateTime), nil
			}
		}
		if d, err := NormalizeDate(v); err == nil {
			return d, nil
		}
		return "", newError(KindUnparseableDefault, "", "", "'%s' is not a valid date/time (expected YYYY-MM-DD [HH:MM:SS])", value)
	case "TIME":
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.Format(isoTime), nil
			}
		}
		return "", newError(KindUnparseableDefault, "", "", "'%s' is not a valid time (expected HH:MM[:SS])", value)
	case "YEAR":
		y, err := strconv.Atoi(v)
		if err != nil || len(v) != 4 || y < 1901 || y > 2155 {
			return "", newError(KindUnparseableDefault, "", "", "'%s' is not a valid year (1901-2155)", value)
		}
		return v, nil
	}
	return "", newError(KindIncompatibleType, "", "", "%s is not a temporal type", sqlType)
}
