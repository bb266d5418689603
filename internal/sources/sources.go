// Package sources implements one profile extractor per public film source.
// Each extractor turns loosely structured documents into a typed profile
// under a tolerant-but-bounded failure policy: a field that cannot be parsed
// becomes null, a review that cannot be parsed is dropped, and only a failed
// fetch or an unresolvable search aborts the whole extraction.
package sources

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/hollydata/filmcrawl/internal/profile"
)

// Fetcher retrieves a URL and returns the parsed document tree. It is the
// single external collaborator of every extractor.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Extractor produces a profile for one film title, optionally disambiguated
// by a release-year hint (0 means no hint). A nil error implies a fully
// populated profile; there are no partial results.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, title string, year int) (*profile.Profile, error)
}

// DisambiguationError distinguishes the two ways candidate selection fails.
type DisambiguationError struct {
	Title string
	Year  int
	// NoCandidates is true when the search returned nothing at all, false
	// when candidates existed but none matched the year hint.
	NoCandidates bool
}

func (e *DisambiguationError) Error() string {
	if e.NoCandidates {
		return "search for " + e.Title + " returned no candidates"
	}
	return "no search candidate for " + e.Title + " matched the year hint"
}
