package extract

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const boxOfficeProse = `
<h3>Box Office</h3>
<h4>Budget:</h4> $63,000,000 (estimated)
<h4>Gross:</h4> $171,479,930 (USA) (10 September 1999)
<h3>Company Credits</h3>
<h4>Budget:</h4> decoy after the section
`

// TestWindowBound extracts the fragment between two section headers.
func TestWindowBound(t *testing.T) {
	t.Parallel()

	w := Window{
		Start: regexp.MustCompile(`<h3>Box Office</h3>`),
		End:   regexp.MustCompile(`<h3`),
	}
	frag, ok := w.Bound(boxOfficeProse)
	require.True(t, ok)
	require.Contains(t, frag, "Budget:")
	require.Contains(t, frag, "Gross:")
	require.NotContains(t, frag, "decoy")
}

// TestWindowBoundOpenEnded runs to the end of the document when End is nil
// or never matches.
func TestWindowBoundOpenEnded(t *testing.T) {
	t.Parallel()

	w := Window{Start: regexp.MustCompile(`<h3>Company Credits</h3>`), End: nil}
	frag, ok := w.Bound(boxOfficeProse)
	require.True(t, ok)
	require.Contains(t, frag, "decoy")

	w.End = regexp.MustCompile(`<h9>`)
	frag, ok = w.Bound(boxOfficeProse)
	require.True(t, ok)
	require.Contains(t, frag, "decoy")
}

// TestWindowBoundMiss reports a miss when Start never matches.
func TestWindowBoundMiss(t *testing.T) {
	t.Parallel()

	w := Window{Start: regexp.MustCompile(`<h3>Awards</h3>`)}
	_, ok := w.Bound(boxOfficeProse)
	require.False(t, ok)
}

// TestRuleTypedCaptures exercises the typed accessors over one fragment.
func TestRuleTypedCaptures(t *testing.T) {
	t.Parallel()

	budget := Rule{Pattern: regexp.MustCompile(`<h4>Budget:</h4>\s*\$([0-9,]+)`)}
	n, ok := budget.Int(boxOfficeProse)
	require.True(t, ok)
	require.Equal(t, int64(63000000), n)

	gross := Rule{Pattern: regexp.MustCompile(`Gross:</h4>\s*\$([0-9,]+)[\s\S]*?\(([A-Z]+)\)`), Group: 2}
	country, ok := gross.Text(boxOfficeProse)
	require.True(t, ok)
	require.Equal(t, "USA", country)

	date := Rule{Pattern: regexp.MustCompile(`\((\d{1,2} [A-Za-z]+ \d{4})\)`)}
	d, ok := date.Date(boxOfficeProse, "2 January 2006")
	require.True(t, ok)
	require.Equal(t, time.Date(1999, time.September, 10, 0, 0, 0, 0, time.UTC), d)

	miss := Rule{Pattern: regexp.MustCompile(`Screens: (\d+)`)}
	_, ok = miss.Int(boxOfficeProse)
	require.False(t, ok)
}

// TestRuleUnparseableCapture treats a matched but unparseable capture as a
// miss, not an error.
func TestRuleUnparseableCapture(t *testing.T) {
	t.Parallel()

	r := Rule{Pattern: regexp.MustCompile(`Budget: (\w+)`)}
	_, ok := r.Int("Budget: unknown")
	require.False(t, ok)
	_, ok = r.Date("Budget: unknown", "2 January 2006")
	require.False(t, ok)
}

// TestFirstText applies rules in order and stops at the first hit.
func TestFirstText(t *testing.T) {
	t.Parallel()

	rules := []Rule{
		{Pattern: regexp.MustCompile(`Director: (\w+)`)},
		{Pattern: regexp.MustCompile(`Gross:</h4>\s*\$([0-9,]+)`)},
		{Pattern: regexp.MustCompile(`Budget:</h4>\s*\$([0-9,]+)`)},
	}
	v, ok := FirstText(boxOfficeProse, rules...)
	require.True(t, ok)
	require.Equal(t, "171,479,930", v)

	_, ok = FirstText("nothing here", rules...)
	require.False(t, ok)
}

// TestParseHelpers covers separator stripping and whitespace tolerance.
func TestParseHelpers(t *testing.T) {
	t.Parallel()

	n, ok := ParseInt(" 1,234,567 ")
	require.True(t, ok)
	require.Equal(t, int64(1234567), n)

	_, ok = ParseInt("12.5")
	require.False(t, ok)

	f, ok := ParseFloat("8.7")
	require.True(t, ok)
	require.InDelta(t, 8.7, f, 1e-9)

	f, ok = ParseFloat("1,234.5")
	require.True(t, ok)
	require.InDelta(t, 1234.5, f, 1e-9)

	d, ok := ParseDate("January 2, 2006", "Mar 24, 1999")
	require.False(t, ok, "shorthand months are the caller's problem, got %v", d)

	d, ok = ParseDate("January 2, 2006", "March 24, 1999")
	require.True(t, ok)
	require.Equal(t, 1999, d.Year())
}
