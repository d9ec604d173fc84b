package records

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestIsMissing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"nil", nil, true},
		{"nan", math.NaN(), true},
		{"blank", "  ", true},
		{"zero", 0.0, false},
		{"false", false, false},
		{"text", "x", false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsMissing(tc.in); got != tc.want {
				t.Fatalf("IsMissing(%#v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	d := time.Date(2019, 6, 14, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{210000.0, "210000"},
		{0.512, "0.512"},
		{json.Number("42"), "42"},
		{true, "True"},
		{false, "False"},
		{d, "2019-06-14"},
		{d.Add(90 * time.Minute), "2019-06-14 01:30:00"},
		{"abc", "abc"},
	}
	for _, tc := range tests {
		if got := Format(tc.in); got != tc.want {
			t.Errorf("Format(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSeen_TypeAware(t *testing.T) {
	t.Parallel()

	cols := []string{"a"}
	s := NewSeen(cols)
	if s.Add(Record{"a": "1"}) {
		t.Fatal("first row reported as seen")
	}
	if s.Add(Record{"a": 1.0}) {
		t.Fatal(`number 1 must not match string "1"`)
	}
	if !s.Add(Record{"a": "1"}) {
		t.Fatal("duplicate string row not detected")
	}
	if !s.Add(Record{"a": 1.0}) {
		t.Fatal("duplicate numeric row not detected")
	}
}

func TestSeen_MissingEquivalence(t *testing.T) {
	t.Parallel()

	cols := []string{"a", "b"}
	s := NewSeen(cols)
	s.Add(Record{"a": "x", "b": nil})
	if !s.Add(Record{"a": "x"}) {
		t.Fatal("absent cell should equal nil cell")
	}
	if !s.Add(Record{"a": "x", "b": math.NaN()}) {
		t.Fatal("NaN cell should equal nil cell")
	}
}

func TestTable_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	src := NewTable("a")
	src.Append(Record{"a": "x"})
	cp := src.Clone()
	cp.Rows[0]["a"] = "y"
	cp.AddColumn("b")

	if src.Rows[0]["a"] != "x" {
		t.Fatalf("source row mutated: %v", src.Rows[0])
	}
	if src.Has("b") {
		t.Fatal("source header mutated")
	}
	if got := cp.Present("b", "zz", "a"); len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("Present = %v", got)
	}
}
