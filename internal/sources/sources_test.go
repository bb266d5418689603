package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// stubFetcher serves canned documents keyed by exact URL and records every
// fetch, so tests can assert both content handling and fetch ordering.
type stubFetcher struct {
	pages map[string]string

	mu      sync.Mutex
	fetched []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	html, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no canned page for %s", url)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
