package records

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// DateLayout is the text form of a calendar date without a time component.
const DateLayout = "2006-01-02"

// DateTimeLayout is used for timestamps that carry a time of day.
const DateTimeLayout = "2006-01-02 15:04:05"

// IsMissing reports whether v is the missing marker: nil, a NaN float or a
// blank string.
func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// Format renders v the way it is written to CSV output. Missing values render
// as the empty string.
func Format(v any) string {
	if IsMissing(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "True"
		}
		return "False"
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(DateLayout)
		}
		return t.Format(DateTimeLayout)
	}
	return fmt.Sprint(v)
}

// kindTag distinguishes value types inside a row hash so that the string "1"
// and the number 1 do not collide.
func kindTag(v any) byte {
	switch v.(type) {
	case nil:
		return 0
	case string:
		return 's'
	case bool:
		return 'b'
	case time.Time:
		return 't'
	default:
		return 'n'
	}
}

// Hash returns a 64-bit fingerprint of rec over cols. Missing values hash
// alike regardless of their concrete representation.
func Hash(rec Record, cols []string) uint64 {
	h := xxh3.New()
	for _, c := range cols {
		v := rec[c]
		if IsMissing(v) {
			v = nil
		}
		_, _ = h.Write([]byte{kindTag(v)})
		_, _ = h.WriteString(Format(v))
		_, _ = h.Write([]byte{0x1f})
	}
	return h.Sum64()
}

// Equal reports whether a and b hold the same values over cols, using the
// same equivalence as Hash.
func Equal(a, b Record, cols []string) bool {
	for _, c := range cols {
		va, vb := a[c], b[c]
		ma, mb := IsMissing(va), IsMissing(vb)
		if ma || mb {
			if ma != mb {
				return false
			}
			continue
		}
		if kindTag(va) != kindTag(vb) || Format(va) != Format(vb) {
			return false
		}
	}
	return true
}

// Seen tracks full-row fingerprints and confirms hash hits with Equal so a
// collision never drops a distinct row.
type Seen struct {
	cols    []string
	buckets map[uint64][]Record
}

// NewSeen returns a tracker over cols.
func NewSeen(cols []string) *Seen {
	return &Seen{cols: cols, buckets: make(map[uint64][]Record)}
}

// Add records rec and reports whether an equal row was added before.
func (s *Seen) Add(rec Record) bool {
	h := Hash(rec, s.cols)
	for _, prev := range s.buckets[h] {
		if Equal(prev, rec, s.cols) {
			return true
		}
	}
	s.buckets[h] = append(s.buckets[h], rec)
	return false
}
