package profile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the on-disk representation of date scalars.
const DateLayout = "2006-01-02"

// Kind discriminates the value held by a Scalar.
type Kind int

// Scalar kinds. The zero value is Null, meaning "absent or unparseable".
const (
	Null Kind = iota
	String
	Int
	Float
	Date
)

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Scalar is a typed profile field value. Profiles serialize to JSON, and a
// Scalar round-trips losslessly: dates are ISO strings, ints are numbers
// without a fraction, floats always carry one.
type Scalar struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	date time.Time
}

// NullScalar returns the null value.
func NullScalar() Scalar { return Scalar{} }

// StringScalar wraps a string value.
func StringScalar(s string) Scalar { return Scalar{kind: String, str: s} }

// IntScalar wraps an integer value.
func IntScalar(i int64) Scalar { return Scalar{kind: Int, num: i} }

// FloatScalar wraps a float value.
func FloatScalar(f float64) Scalar { return Scalar{kind: Float, flt: f} }

// DateScalar wraps a date value, truncated to UTC midnight.
func DateScalar(t time.Time) Scalar {
	y, m, d := t.Date()
	return Scalar{kind: Date, date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Kind reports the kind of the held value.
func (s Scalar) Kind() Kind { return s.kind }

// IsNull reports whether the value is absent.
func (s Scalar) IsNull() bool { return s.kind == Null }

// Str returns the string value; empty unless Kind() == String.
func (s Scalar) Str() string { return s.str }

// Int returns the integer value; zero unless Kind() == Int.
func (s Scalar) Int() int64 { return s.num }

// Float returns the numeric value for Int and Float kinds.
func (s Scalar) Float() float64 {
	if s.kind == Int {
		return float64(s.num)
	}
	return s.flt
}

// Date returns the date value; the zero time unless Kind() == Date.
func (s Scalar) Date() time.Time { return s.date }

// Cell renders the scalar for a delimited tabular sink. Null is the empty
// cell.
func (s Scalar) Cell() string {
	switch s.kind {
	case String:
		return s.str
	case Int:
		return strconv.FormatInt(s.num, 10)
	case Float:
		return formatFloat(s.flt)
	case Date:
		return s.date.Format(DateLayout)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(s.str)
	case Int:
		return []byte(strconv.FormatInt(s.num, 10)), nil
	case Float:
		return []byte(formatFloat(s.flt)), nil
	case Date:
		return json.Marshal(s.date.Format(DateLayout))
	default:
		return nil, fmt.Errorf("unknown scalar kind %d", s.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler, restoring the original kind.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = Scalar{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if isoDateRe.MatchString(str) {
			if t, err := time.Parse(DateLayout, str); err == nil {
				*s = DateScalar(t)
				return nil
			}
		}
		*s = StringScalar(str)
		return nil
	}
	if strings.ContainsAny(trimmed, ".eE") {
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return fmt.Errorf("parse float scalar %q: %w", trimmed, err)
		}
		*s = FloatScalar(f)
		return nil
	}
	i, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fmt.Errorf("parse int scalar %q: %w", trimmed, err)
	}
	*s = IntScalar(i)
	return nil
}

// formatFloat renders f so it re-reads as a float, never an int.
func formatFloat(f float64) string {
	out := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(out, ".eE") {
		out += ".0"
	}
	return out
}
