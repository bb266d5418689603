package sources

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/hollydata/filmcrawl/internal/extract"
	"github.com/hollydata/filmcrawl/internal/profile"
)

const (
	metacriticSourceName = "metacritic"
	metacriticDateLayout = "January 2, 2006"

	// Every field this source contributes carries the prefix, so united
	// rows never collide with the ratings site's field names.
	mcPrefix = "mc_"
)

// The site abbreviates month names in review dates; expand before parsing
// against the one fixed layout.
var monthShorthand = map[string]string{
	"Jan": "January", "Feb": "February", "Mar": "March", "Apr": "April",
	"Jun": "June", "Jul": "July", "Aug": "August",
	"Sep": "September", "Oct": "October", "Nov": "November", "Dec": "December",
}

var mcSearchStripRe = regexp.MustCompile(`[:;,.'/!]`)

// Metacritic extracts critic and user review profiles from the
// critic-aggregation site.
type Metacritic struct {
	fetcher Fetcher
	baseURL string
	logger  *zap.Logger
}

// MetacriticConfig controls the Metacritic extractor.
type MetacriticConfig struct {
	// BaseURL overrides the live site root, mainly for tests.
	BaseURL string
}

// NewMetacritic builds the extractor.
func NewMetacritic(cfg MetacriticConfig, fetcher Fetcher, logger *zap.Logger) *Metacritic {
	base := cfg.BaseURL
	if base == "" {
		base = "https://www.metacritic.com"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Metacritic{fetcher: fetcher, baseURL: strings.TrimRight(base, "/"), logger: logger}
}

// Name implements Extractor.
func (s *Metacritic) Name() string { return metacriticSourceName }

// Extract resolves the film's page via search, then reads the critic-reviews
// page and the paginated user-reviews chain.
func (s *Metacritic) Extract(ctx context.Context, title string, year int) (*profile.Profile, error) {
	movieURL, err := s.findMovieURL(ctx, title, year)
	if err != nil {
		return nil, err
	}

	prof := profile.New(metacriticSourceName, title)
	if err := s.extractCriticReviews(ctx, prof, movieURL); err != nil {
		return nil, err
	}
	if err := s.extractUserReviews(ctx, prof, movieURL); err != nil {
		return nil, err
	}
	return prof, nil
}

// findMovieURL picks the search candidate whose displayed title equals the
// query title case-insensitively; with a year hint, the candidate block must
// also mention the year.
func (s *Metacritic) findMovieURL(ctx context.Context, title string, year int) (string, error) {
	query := fmt.Sprintf(
		"%s/search/all/%s/results?cats%%5Bmovie%%5D=1&search_type=advanced",
		s.baseURL, searchTerm(title))
	doc, err := s.fetcher.Fetch(ctx, query)
	if err != nil {
		return "", fmt.Errorf("metacritic search fetch: %w", err)
	}

	results := doc.Find("li.result")
	if results.Length() == 0 {
		return "", &DisambiguationError{Title: title, Year: year, NoCandidates: true}
	}

	want := strings.ToLower(strings.TrimSpace(title))
	var href string
	results.EachWithBreak(func(_ int, result *goquery.Selection) bool {
		got := strings.ToLower(strings.TrimSpace(result.Find("h3.product_title").First().Text()))
		if got != want {
			return true
		}
		if year > 0 {
			html, err := goquery.OuterHtml(result)
			if err != nil || !strings.Contains(html, strconv.Itoa(year)) {
				return true
			}
		}
		if h, ok := result.Find("a").First().Attr("href"); ok {
			href = h
			return false
		}
		return true
	})
	if href == "" {
		return "", &DisambiguationError{Title: title, Year: year}
	}
	return s.baseURL + href, nil
}

func (s *Metacritic) extractCriticReviews(ctx context.Context, prof *profile.Profile, movieURL string) error {
	doc, err := s.fetcher.Fetch(ctx, movieURL+"/critic-reviews")
	if err != nil {
		return fmt.Errorf("metacritic critic reviews fetch: %w", err)
	}

	prof.Scalars[mcPrefix+"metascore"] = scalarInt(
		doc.Find("span.metascore_w.larger.movie").First().Text())

	reviews := []profile.Review{}
	doc.Find("div.review").Each(func(_ int, sel *goquery.Selection) {
		if rev, ok := s.parseCriticReview(sel); ok {
			reviews = append(reviews, rev)
		}
	})
	prof.Reviews[mcPrefix+"pro_critic_reviews"] = reviews
	return nil
}

func (s *Metacritic) parseCriticReview(sel *goquery.Selection) (profile.Review, bool) {
	date, ok := parseReviewDate(sel.Find("span.date").First().Text())
	if !ok {
		return profile.Review{}, false
	}
	score, ok := extract.ParseInt(sel.Find("div.metascore_w").First().Text())
	if !ok {
		return profile.Review{}, false
	}
	summary := strings.TrimSpace(sel.Find("a.no_hover").First().Text())
	if summary == "" {
		return profile.Review{}, false
	}

	var publication, critic string
	sel.Find("a").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if strings.Contains(href, "publication") {
			publication = strings.TrimSpace(link.Text())
		}
		if strings.Contains(href, "critic") {
			critic = strings.TrimSpace(link.Text())
		}
	})
	return profile.Review{
		Score:       float64(score),
		Date:        profile.DateScalar(date),
		Author:      critic,
		Text:        summary,
		Publication: publication,
	}, true
}

func (s *Metacritic) extractUserReviews(ctx context.Context, prof *profile.Profile, movieURL string) error {
	doc, err := s.fetcher.Fetch(ctx, movieURL+"/user-reviews?page=0")
	if err != nil {
		return fmt.Errorf("metacritic user reviews fetch: %w", err)
	}

	name, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	if name != "" {
		prof.Scalars[mcPrefix+"movie_name"] = profile.StringScalar(name)
	} else {
		prof.Scalars[mcPrefix+"movie_name"] = profile.NullScalar()
	}
	prof.Scalars[mcPrefix+"avg_user_score"] = scalarFloat(
		doc.Find("span.metascore_w.user.larger.movie").First().Text())

	freq := map[string]float64{}
	for _, bucket := range []string{"positive", "mixed", "negative"} {
		raw := doc.Find("div.chart."+bucket).Find("div.count.fr").First().Text()
		if n, ok := extract.ParseInt(raw); ok {
			freq[bucket] = float64(n)
		}
	}
	prof.Tables[mcPrefix+"user_rating_freq"] = freq

	reviews, err := s.collectUserReviews(ctx, doc)
	if err != nil {
		return err
	}
	prof.Reviews[mcPrefix+"user_reviews"] = reviews
	return nil
}

// collectUserReviews follows the "next" relation transitively, concatenating
// reviews in page order. The chain is naturally finite; each page must be
// parsed before its successor's URL is known, so the walk is sequential.
func (s *Metacritic) collectUserReviews(ctx context.Context, doc *goquery.Document) ([]profile.Review, error) {
	reviews := []profile.Review{}
	for {
		doc.Find("div.review").Each(func(_ int, sel *goquery.Selection) {
			if rev, ok := s.parseUserReview(sel); ok {
				reviews = append(reviews, rev)
			}
		})
		next, ok := doc.Find(`a.action[rel="next"]`).First().Attr("href")
		if !ok || next == "" {
			return reviews, nil
		}
		var err error
		doc, err = s.fetcher.Fetch(ctx, s.baseURL+next)
		if err != nil {
			return nil, fmt.Errorf("metacritic user reviews page fetch: %w", err)
		}
	}
}

func (s *Metacritic) parseUserReview(sel *goquery.Selection) (profile.Review, bool) {
	date, ok := parseReviewDate(sel.Find("span.date").First().Text())
	if !ok {
		return profile.Review{}, false
	}
	score, ok := extract.ParseInt(sel.Find("div.metascore_w").First().Text())
	if !ok {
		return profile.Review{}, false
	}
	text := strings.TrimSpace(sel.Find("span.blurb.blurb_expanded").First().Text())
	if text == "" {
		text = strings.TrimSpace(sel.Find("div.review_body").First().Text())
	}
	author := strings.TrimSpace(sel.Find("span.author").First().Text())
	if author == "" {
		return profile.Review{}, false
	}
	total, okT := extract.ParseInt(sel.Find("span.total_count").First().Text())
	pos, okP := extract.ParseInt(sel.Find("span.yes_count").First().Text())
	if !okT || !okP {
		return profile.Review{}, false
	}
	return profile.Review{
		Score:  float64(score),
		Date:   profile.DateScalar(date),
		Author: author,
		Text:   text,
		Reactions: map[string]float64{
			"total": float64(total),
			"pos":   float64(pos),
			"neg":   float64(total - pos),
		},
	}, true
}

func parseReviewDate(raw string) (time.Time, bool) {
	expanded := strings.TrimSpace(raw)
	for short, full := range monthShorthand {
		if strings.HasPrefix(expanded, short+" ") {
			expanded = full + expanded[len(short):]
			break
		}
	}
	return extract.ParseDate(metacriticDateLayout, expanded)
}

func searchTerm(title string) string {
	parsed := mcSearchStripRe.ReplaceAllString(title, "")
	return strings.ReplaceAll(parsed, " ", "+")
}
