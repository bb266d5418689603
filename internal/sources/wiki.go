package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// The reference-list site changed its film-table layout in 2014; pages back
// to 1999 use the older single-table format.
const (
	wikiFirstModernYear = 2014
	wikiFirstLegacyYear = 1999
)

// WikiConfig controls the title-list source.
type WikiConfig struct {
	// BaseURL overrides the live site root, mainly for tests.
	BaseURL string
}

// Wiki generates ordered film-title lists per year from the reference-list
// site. It is a title source, not a profile extractor.
type Wiki struct {
	fetcher Fetcher
	baseURL string
	logger  *zap.Logger
}

// NewWiki builds the title lister.
func NewWiki(cfg WikiConfig, fetcher Fetcher, logger *zap.Logger) *Wiki {
	base := cfg.BaseURL
	if base == "" {
		base = "https://en.wikipedia.org"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wiki{fetcher: fetcher, baseURL: strings.TrimRight(base, "/"), logger: logger}
}

// TitlesForYear fetches the year's film list page and extracts every title
// in page order.
func (s *Wiki) TitlesForYear(ctx context.Context, year int) ([]string, error) {
	if year < wikiFirstLegacyYear {
		return nil, fmt.Errorf("title lists are not supported for years before %d", wikiFirstLegacyYear)
	}
	pageURL := fmt.Sprintf("%s/wiki/List_of_American_films_of_%d", s.baseURL, year)
	doc, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("title list fetch: %w", err)
	}
	if year >= wikiFirstModernYear {
		return s.modernTitles(doc), nil
	}
	return s.legacyTitles(doc), nil
}

// modernTitles walks every film table on the page. The title column moved
// around over the years; its position follows from the row width.
func (s *Wiki) modernTitles(doc *goquery.Document) []string {
	var titles []string
	doc.Find("table.wikitable").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th").Map(func(_ int, cell *goquery.Selection) string {
				return strings.TrimSpace(cell.Text())
			})
			var title string
			switch len(cells) {
			case 6:
				title = cells[0]
			case 7:
				title = cells[1]
			case 8:
				title = cells[2]
			default:
				s.logger.Debug("skipping film table row of unknown width",
					zap.Int("cells", len(cells)))
				return
			}
			if title != "" && title != "Title" {
				titles = append(titles, title)
			}
		})
	})
	return titles
}

// legacyTitles reads the single film table of the pre-2014 layout. Title
// cells there render linked titles twice ("The MatrixThe Matrix"), so each
// one goes through mirror cleanup.
func (s *Wiki) legacyTitles(doc *goquery.Document) []string {
	var titles []string
	doc.Find("table.wikitable").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return
		}
		if title := cleanMirroredTitle(cell.Text()); title != "" {
			titles = append(titles, title)
		}
	})
	return titles
}

func cleanMirroredTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if i := strings.LastIndex(title, "TheThe"); i >= 0 {
		return strings.TrimSpace(title[i+3:])
	}
	if i := strings.LastIndex(title, "AA"); i >= 0 {
		return strings.TrimSpace(title[i+1:])
	}
	if h := len(title) / 2; h > 0 && len(title)%2 == 0 && title[:h] == title[h:] {
		return strings.TrimSpace(title[h:])
	}
	return title
}

// compile-time checks that the extractors satisfy their contracts.
var (
	_ Extractor = (*IMDB)(nil)
	_ Extractor = (*Metacritic)(nil)
)
