package records

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// dateLayouts are tried in order before falling back to cast's broader list.
var dateLayouts = []string{
	DateLayout,
	DateTimeLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006-01",
	"2006",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"02.01.2006",
}

// ToNumber reports v as a float64 when it is a finite number or a string
// holding one. Booleans, dates, NaN and infinities are not numbers.
func ToNumber(v any) (float64, bool) {
	if IsMissing(v) {
		return 0, false
	}
	switch t := v.(type) {
	case bool, time.Time:
		return 0, false
	case string:
		v = strings.TrimSpace(t)
	case json.Number:
		v = t.String()
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseDate reads v as a point in time. Strings are matched against a list of
// common layouts; numbers are never read as timestamps.
func ParseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, true
			}
		}
		if d, err := cast.StringToDate(s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// Truncate drops the time-of-day part of d, keeping its calendar date in UTC.
func Truncate(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
