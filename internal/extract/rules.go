// Package extract implements the pattern-rule engine the source extractors
// are built on: each field is an independently testable pure function from a
// bounded text fragment to an optional typed value. A rule never raises past
// its own field boundary; a miss is a miss, not an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Window bounds a text fragment between two patterns, typically the nearest
// named section headers of a prose block. End may be nil, in which case the
// window runs to the end of the document.
type Window struct {
	Start *regexp.Regexp
	End   *regexp.Regexp
}

// Bound returns the fragment between Start's first match and the first End
// match after it. ok is false when Start never matches.
func (w Window) Bound(doc string) (string, bool) {
	loc := w.Start.FindStringIndex(doc)
	if loc == nil {
		return "", false
	}
	rest := doc[loc[1]:]
	if w.End == nil {
		return rest, true
	}
	end := w.End.FindStringIndex(rest)
	if end == nil {
		return rest, true
	}
	return rest[:end[0]], true
}

// Rule extracts one capture group from a fragment. Group defaults to the
// first capture group when zero.
type Rule struct {
	Pattern *regexp.Regexp
	Group   int
}

func (r Rule) group() int {
	if r.Group > 0 {
		return r.Group
	}
	return 1
}

// Text returns the captured group, or ok=false on miss.
func (r Rule) Text(fragment string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(fragment)
	if m == nil || r.group() >= len(m) {
		return "", false
	}
	return m[r.group()], true
}

// Int captures an integer, stripping thousands separators first.
func (r Rule) Int(fragment string) (int64, bool) {
	raw, ok := r.Text(fragment)
	if !ok {
		return 0, false
	}
	return ParseInt(raw)
}

// Float captures a floating point number.
func (r Rule) Float(fragment string) (float64, bool) {
	raw, ok := r.Text(fragment)
	if !ok {
		return 0, false
	}
	return ParseFloat(raw)
}

// Date captures a date against one fixed textual layout. A mismatch yields
// ok=false, never an error.
func (r Rule) Date(fragment, layout string) (time.Time, bool) {
	raw, ok := r.Text(fragment)
	if !ok {
		return time.Time{}, false
	}
	return ParseDate(layout, raw)
}

// FirstText applies an ordered rule list, first match wins.
func FirstText(fragment string, rules ...Rule) (string, bool) {
	for _, r := range rules {
		if v, ok := r.Text(fragment); ok {
			return v, true
		}
	}
	return "", false
}

// ParseInt converts a currency-style figure ("12,345,678") to an integer,
// stripping thousands separators first.
func ParseInt(raw string) (int64, bool) {
	clean := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseFloat converts a numeric string, tolerating thousands separators.
func ParseFloat(raw string) (float64, bool) {
	clean := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseDate parses against one fixed layout, defaulting to a miss on
// mismatch.
func ParseDate(layout, raw string) (time.Time, bool) {
	t, err := time.Parse(layout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
