package records

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestToNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" 3.5 ", 3.5, true},
		{json.Number("7"), 7, true},
		{12, 12, true},
		{2.5, 2.5, true},
		{"abc", 0, false},
		{"", 0, false},
		{nil, 0, false},
		{math.NaN(), 0, false},
		{"inf", 0, false},
		{"-Infinity", 0, false},
		{math.Inf(1), 0, false},
		{true, 0, false},
		{time.Now(), 0, false},
	}
	for _, c := range cases {
		got, ok := ToNumber(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("ToNumber(%#v) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Time{
		"2019-06-14":          time.Date(2019, 6, 14, 0, 0, 0, 0, time.UTC),
		"2019-06":             time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
		"1999":                time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
		"13.08.2018":          time.Date(2018, 8, 13, 0, 0, 0, 0, time.UTC),
		"2020-01-02 03:04:05": time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	for in, want := range cases {
		got, ok := ParseDate(in)
		if !ok || !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}

	for _, in := range []any{"not a date", "", nil, 2019.0} {
		if _, ok := ParseDate(in); ok {
			t.Errorf("ParseDate(%#v) should fail", in)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	in := time.Date(2020, 1, 2, 3, 4, 5, 6, time.UTC)
	if got := Truncate(in); Format(got) != "2020-01-02" {
		t.Fatalf("Truncate = %s", Format(got))
	}
}
