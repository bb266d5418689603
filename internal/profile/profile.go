// Package profile defines the canonical extracted record for one film from
// one source, plus the normalized key every subsystem joins on.
package profile

import (
	"regexp"
	"strings"
)

// Review is a sub-record embedded in a Profile's review collections. Reviews
// have no identity outside their parent profile.
type Review struct {
	// Score uses the source's own scale (e.g. 1-10 or 0-100).
	Score float64 `json:"score"`
	// Date is a date scalar or null when the source omits it.
	Date Scalar `json:"review_date"`
	// Author may be empty.
	Author string `json:"author,omitempty"`
	// Text is the free-text body or summary.
	Text string `json:"text,omitempty"`
	// Publication names the outlet behind a critic review, when known.
	Publication string `json:"publication,omitempty"`
	// Reactions carries source-specific reaction counters.
	Reactions map[string]float64 `json:"reactions,omitempty"`
}

// Profile is the normalized record for one film from one source. A stored
// profile is either fully present or absent; the store guarantees that a
// partial write is never observable.
type Profile struct {
	Source string `json:"source"`
	Key    string `json:"key"`
	Name   string `json:"name"`
	// Scalars maps field name to a typed value; null means the field was
	// attempted but absent or unparseable.
	Scalars map[string]Scalar `json:"scalars"`
	// Lists holds ordered categorical values such as genre tags.
	Lists map[string][]string `json:"lists"`
	// Tables holds cross-tabulated numbers keyed by source-defined category
	// labels (e.g. votes per demographic bucket).
	Tables map[string]map[string]float64 `json:"tables"`
	// Reviews maps collection name to its ordered review sub-records.
	Reviews map[string][]Review `json:"reviews"`
}

// New returns an empty profile for the given source and film name, keyed by
// the normalized name.
func New(source, name string) *Profile {
	return &Profile{
		Source:  source,
		Key:     NormalizeKey(name),
		Name:    name,
		Scalars: map[string]Scalar{},
		Lists:   map[string][]string{},
		Tables:  map[string]map[string]float64{},
		Reviews: map[string][]Review{},
	}
}

// Merge copies every field of other into p. Sources prefix their field names
// distinctly, so collisions should not occur; when they do, the later source
// wins (a documented limitation of the union step).
func (p *Profile) Merge(other *Profile) {
	for name, v := range other.Scalars {
		p.Scalars[name] = v
	}
	for name, v := range other.Lists {
		p.Lists[name] = append([]string(nil), v...)
	}
	for name, tab := range other.Tables {
		dst := map[string]float64{}
		for cat, n := range tab {
			dst[cat] = n
		}
		p.Tables[name] = dst
	}
	for name, revs := range other.Reviews {
		p.Reviews[name] = append([]Review(nil), revs...)
	}
}

var keyStripRe = regexp.MustCompile(`[:;,.'/!]`)

// NormalizeKey derives the stable, filename-safe identifier for a film name:
// lowercase, surrounding whitespace trimmed, the fixed punctuation class
// stripped, spaces turned into underscores.
func NormalizeKey(name string) string {
	parsed := keyStripRe.ReplaceAllString(strings.TrimSpace(name), "")
	return strings.ToLower(strings.ReplaceAll(parsed, " ", "_"))
}

// NormalizeLabel folds a free-text category label (demographic bucket, genre
// tag) the same way the key transform folds names, minus punctuation
// stripping.
func NormalizeLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}
