package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/hollydata/filmcrawl/internal/extract"
	"github.com/hollydata/filmcrawl/internal/profile"
)

const (
	imdbSourceName = "imdb"
	imdbDateLayout = "2 January 2006"
)

// Search and candidate selection rules.
var (
	imdbCodeRe        = regexp.MustCompile(`/title/([a-z0-9]+)/`)
	imdbYearRule      = extract.Rule{Pattern: regexp.MustCompile(`(\d{4})`)}
	imdbDurationRule  = extract.Rule{Pattern: regexp.MustCompile(`PT([0-9]+)M`)}
	imdbReviewCountRe = regexp.MustCompile(`([0-9,]+) ([a-zA-Z]+)`)
)

// The box-office data is a free-form prose block, not a table; the rules run
// over the text window bounded by the section's header and the next one.
var (
	imdbBoxWindow = extract.Window{
		Start: regexp.MustCompile(`<h3[^>]*>Box Office</h3>`),
		End:   regexp.MustCompile(`<h3`),
	}
	imdbBudgetRule = extract.Rule{
		Pattern: regexp.MustCompile(`<h4[^>]*>Budget:</h4>\s*[\$£]([0-9,]+)`)}
	imdbBudgetCurrencyRule = extract.Rule{
		Pattern: regexp.MustCompile(`<h4[^>]*>Budget:</h4>\s*([\$£])`)}
	imdbOpenDateRule = extract.Rule{
		Pattern: regexp.MustCompile(`<h4[^>]*>Opening Weekend:</h4>[\s\S]*?\([A-Z]+\)[\s\S]*?\(([0-9a-zA-Z\s]+)\)[\s\S]*?<h4`)}
	imdbOpenIncomeRule = extract.Rule{
		Pattern: regexp.MustCompile(`<h4[^>]*>Opening Weekend:</h4>\s*[\$£]([0-9,]+)`)}
	imdbOpenIncomeCurrencyRule = extract.Rule{
		Pattern: regexp.MustCompile(`<h4[^>]*>Opening Weekend:</h4>\s*([\$£])[0-9,]+`)}
	imdbClosingDateRule = extract.Rule{
		Pattern: regexp.MustCompile(`<h4[^>]*>Gross:</h4>[\s\S]*?\([A-Z]+\)[\s\S]*?\(([0-9a-zA-Z\s]+)\)`)}
	imdbGrossRule = extract.Rule{
		Pattern: regexp.MustCompile(`<h4[^>]*>Gross:</h4>\s*\$([0-9,]+)[\s\S]*?\([A-Z]+\)`)}
)

// Business and release-info subpage rules.
var (
	imdbWeekendWindow = extract.Window{
		Start: regexp.MustCompile(`<h5>Weekend Gross</h5>`),
		End:   regexp.MustCompile(`<h[0-9]>`),
	}
	imdbScreensRe = regexp.MustCompile(`\$[\s\S]*?\(USA\)[\s\S]*?\(([0-9,]*) Screens\)`)
	imdbUSARowRe  = regexp.MustCompile(`USA[\s\S]*?(\d\d?)\s+([a-zA-Z]+)\s+(\d{4})`)
)

// User-review rules.
var (
	imdbReviewScoreRule = extract.Rule{Pattern: regexp.MustCompile(`alt="(\d|10)/10`)}
	imdbReviewDateRule  = extract.Rule{Pattern: regexp.MustCompile(`on (\d{1,2} [a-zA-Z]+ \d{4})`)}
)

var imdbBoxOfficeFields = []string{
	"budget", "budget_currency", "opening_weekend_date",
	"opening_weekend_income", "opening_weekend_income_currency",
	"closing_date", "gross_income",
}

// IMDBConfig controls the IMDB extractor.
type IMDBConfig struct {
	// BaseURL overrides the live site root, mainly for tests.
	BaseURL string
}

// IMDB extracts film profiles from the review/ratings site.
type IMDB struct {
	fetcher Fetcher
	baseURL string
	logger  *zap.Logger
}

// NewIMDB builds the extractor.
func NewIMDB(cfg IMDBConfig, fetcher Fetcher, logger *zap.Logger) *IMDB {
	base := cfg.BaseURL
	if base == "" {
		base = "https://www.imdb.com"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IMDB{fetcher: fetcher, baseURL: strings.TrimRight(base, "/"), logger: logger}
}

// Name implements Extractor.
func (s *IMDB) Name() string { return imdbSourceName }

// Extract searches for the title, disambiguates, and builds the profile.
func (s *IMDB) Extract(ctx context.Context, title string, year int) (*profile.Profile, error) {
	code, err := s.FindTitleCode(ctx, title, year)
	if err != nil {
		return nil, err
	}
	return s.ExtractByCode(ctx, title, code)
}

// FindTitleCode runs the search step and picks exactly one candidate. With a
// year hint the first candidate displaying the hinted year or the year before
// wins (sources disagree by one on release years often enough to warrant the
// tolerance); without a hint the first candidate wins unconditionally.
func (s *IMDB) FindTitleCode(ctx context.Context, title string, year int) (string, error) {
	query := fmt.Sprintf("%s/find?q=%s&s=tt&ttype=ft&exact=true",
		s.baseURL, url.QueryEscape(strings.ToLower(title)))
	doc, err := s.fetcher.Fetch(ctx, query)
	if err != nil {
		return "", fmt.Errorf("imdb search fetch: %w", err)
	}
	rows := doc.Find("table.findList tr")
	if rows.Length() == 0 {
		return "", &DisambiguationError{Title: title, Year: year, NoCandidates: true}
	}

	var chosen *goquery.Selection
	if year == 0 {
		chosen = rows.First()
	} else {
		rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
			html, err := goquery.OuterHtml(row)
			if err != nil {
				return true
			}
			if strings.Contains(html, strconv.Itoa(year)) ||
				strings.Contains(html, strconv.Itoa(year-1)) {
				chosen = row
				return false
			}
			return true
		})
		if chosen == nil {
			return "", &DisambiguationError{Title: title, Year: year}
		}
	}

	html, err := goquery.OuterHtml(chosen)
	if err != nil {
		return "", fmt.Errorf("imdb search candidate: %w", err)
	}
	m := imdbCodeRe.FindStringSubmatch(html)
	if m == nil {
		return "", &DisambiguationError{Title: title, Year: year, NoCandidates: true}
	}
	return m[1], nil
}

// ExtractByCode builds a profile for an already-resolved title code, skipping
// the search step. Subpage fetch failures abort the extraction; missing
// sections or fields only null the fields they cover.
func (s *IMDB) ExtractByCode(ctx context.Context, title, code string) (*profile.Profile, error) {
	prof := profile.New(imdbSourceName, title)
	prof.Scalars["name"] = profile.StringScalar(title)

	profDoc, err := s.fetcher.Fetch(ctx, fmt.Sprintf("%s/title/%s/", s.baseURL, code))
	if err != nil {
		return nil, fmt.Errorf("imdb profile fetch: %w", err)
	}
	s.extractProfilePage(prof, profDoc)
	if html, err := profDoc.Html(); err == nil {
		s.extractBoxOffice(prof, html)
	}

	ratingsDoc, err := s.fetcher.Fetch(ctx, fmt.Sprintf("%s/title/%s/ratings", s.baseURL, code))
	if err != nil {
		return nil, fmt.Errorf("imdb ratings fetch: %w", err)
	}
	s.extractRatings(prof, ratingsDoc)

	busiDoc, err := s.fetcher.Fetch(ctx, fmt.Sprintf("%s/title/%s/business", s.baseURL, code))
	if err != nil {
		return nil, fmt.Errorf("imdb business fetch: %w", err)
	}
	s.extractBusiness(prof, busiDoc)

	releaseDoc, err := s.fetcher.Fetch(ctx, fmt.Sprintf("%s/title/%s/releaseinfo", s.baseURL, code))
	if err != nil {
		return nil, fmt.Errorf("imdb release info fetch: %w", err)
	}
	s.extractRelease(prof, releaseDoc)

	reviewsDoc, err := s.fetcher.Fetch(ctx,
		fmt.Sprintf("%s/title/%s/reviews-index?start=0;count=9999", s.baseURL, code))
	if err != nil {
		return nil, fmt.Errorf("imdb reviews fetch: %w", err)
	}
	s.extractReviews(prof, reviewsDoc)

	return prof, nil
}

func (s *IMDB) extractProfilePage(prof *profile.Profile, doc *goquery.Document) {
	prof.Scalars["rating"] = scalarFloat(doc.Find("span[itemprop=ratingValue]").First().Text())
	prof.Scalars["rating_count"] = scalarInt(doc.Find("span[itemprop=ratingCount]").First().Text())

	var genres []string
	doc.Find("span[itemprop=genre]").Each(func(_ int, sel *goquery.Selection) {
		if g := profile.NormalizeLabel(sel.Text()); g != "" {
			genres = append(genres, g)
		}
	})
	prof.Lists["genres"] = genres

	userReviews, criticReviews := int64(0), int64(0)
	doc.Find("span[itemprop=reviewCount]").Each(func(_ int, sel *goquery.Selection) {
		m := imdbReviewCountRe.FindStringSubmatch(sel.Text())
		if m == nil {
			return
		}
		count, ok := extract.ParseInt(m[1])
		if !ok {
			return
		}
		switch m[2] {
		case "user":
			userReviews = count
		case "critic":
			criticReviews = count
		}
	})
	prof.Scalars["user_review_count"] = profile.IntScalar(userReviews)
	prof.Scalars["critic_review_count"] = profile.IntScalar(criticReviews)

	prof.Scalars["metascore"] = scalarInt(doc.Find("div.metacriticScore").First().Text())

	yearText := doc.Find("span#titleYear").First().Text()
	if y, ok := imdbYearRule.Int(yearText); ok {
		prof.Scalars["year"] = profile.IntScalar(y)
	} else {
		prof.Scalars["year"] = profile.NullScalar()
	}

	durationAttr, _ := doc.Find("time[itemprop=duration]").First().Attr("datetime")
	if d, ok := imdbDurationRule.Int(durationAttr); ok {
		prof.Scalars["duration"] = profile.IntScalar(d)
	} else {
		prof.Scalars["duration"] = profile.NullScalar()
	}
}

func (s *IMDB) extractBoxOffice(prof *profile.Profile, pageHTML string) {
	for _, field := range imdbBoxOfficeFields {
		prof.Scalars[field] = profile.NullScalar()
	}
	frag, ok := imdbBoxWindow.Bound(pageHTML)
	if !ok {
		return
	}
	if v, ok := imdbBudgetRule.Int(frag); ok {
		prof.Scalars["budget"] = profile.IntScalar(v)
	}
	if v, ok := imdbBudgetCurrencyRule.Text(frag); ok {
		prof.Scalars["budget_currency"] = profile.StringScalar(v)
	}
	if t, ok := imdbOpenDateRule.Date(frag, imdbDateLayout); ok {
		prof.Scalars["opening_weekend_date"] = profile.DateScalar(t)
	}
	if v, ok := imdbOpenIncomeRule.Int(frag); ok {
		prof.Scalars["opening_weekend_income"] = profile.IntScalar(v)
	}
	if v, ok := imdbOpenIncomeCurrencyRule.Text(frag); ok {
		prof.Scalars["opening_weekend_income_currency"] = profile.StringScalar(v)
	}
	if t, ok := imdbClosingDateRule.Date(frag, imdbDateLayout); ok {
		prof.Scalars["closing_date"] = profile.DateScalar(t)
	}
	if v, ok := imdbGrossRule.Int(frag); ok {
		prof.Scalars["gross_income"] = profile.IntScalar(v)
	}
}

// extractRatings reads the vote histogram and the demographic breakdown
// tables. Labels are source-defined free text; they are normalized here and
// bounded against a fixed vocabulary only at assembly time.
func (s *IMDB) extractRatings(prof *profile.Profile, doc *goquery.Document) {
	freq := map[string]float64{}
	votesPerDemo := map[string]float64{}
	avgPerDemo := map[string]float64{}

	tables := doc.Find("table")
	tables.Eq(0).Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td").Map(func(_ int, td *goquery.Selection) string {
			return td.Text()
		})
		if len(cells) < 3 {
			return
		}
		rating, okR := extract.ParseInt(cells[2])
		votes, okV := extract.ParseInt(cells[0])
		if okR && okV {
			freq[strconv.FormatInt(rating, 10)] = float64(votes)
		}
	})
	tables.Eq(1).Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td").Map(func(_ int, td *goquery.Selection) string {
			return td.Text()
		})
		if len(cells) < 3 {
			return
		}
		label := profile.NormalizeLabel(cells[0])
		votes, okV := extract.ParseInt(cells[1])
		avg, okA := extract.ParseFloat(cells[2])
		if label == "" || !okV || !okA {
			return
		}
		votesPerDemo[label] = float64(votes)
		avgPerDemo[label] = avg
	})

	prof.Tables["rating_freq"] = freq
	prof.Tables["votes_per_demo"] = votesPerDemo
	prof.Tables["avg_rating_per_demo"] = avgPerDemo
}

// extractBusiness derives screen-count aggregates from the weekend-gross
// prose block. The source lists weekends newest first; the per-weekend table
// is stored in chronological order.
func (s *IMDB) extractBusiness(prof *profile.Profile, doc *goquery.Document) {
	screenFields := []string{
		"opening_weekend_screens", "max_screens", "total_screens",
		"avg_screens", "num_weekends",
	}
	for _, field := range screenFields {
		prof.Scalars[field] = profile.NullScalar()
	}
	prof.Tables["screens_by_weekend"] = map[string]float64{}

	html, err := doc.Html()
	if err != nil {
		return
	}
	frag, ok := imdbWeekendWindow.Bound(html)
	if !ok {
		return
	}
	var screens []int64
	for _, m := range imdbScreensRe.FindAllStringSubmatch(frag, -1) {
		if n, ok := extract.ParseInt(m[1]); ok {
			screens = append(screens, n)
		}
	}
	if len(screens) == 0 {
		return
	}

	byWeekend := map[string]float64{}
	var total, max int64
	for i := range screens {
		chrono := screens[len(screens)-1-i]
		byWeekend[strconv.Itoa(i+1)] = float64(chrono)
		total += chrono
		if chrono > max {
			max = chrono
		}
	}
	prof.Tables["screens_by_weekend"] = byWeekend
	prof.Scalars["opening_weekend_screens"] = profile.IntScalar(screens[len(screens)-1])
	prof.Scalars["max_screens"] = profile.IntScalar(max)
	prof.Scalars["total_screens"] = profile.IntScalar(total)
	prof.Scalars["avg_screens"] = profile.FloatScalar(float64(total) / float64(len(screens)))
	prof.Scalars["num_weekends"] = profile.IntScalar(int64(len(screens)))
}

func (s *IMDB) extractRelease(prof *profile.Profile, doc *goquery.Document) {
	prof.Scalars["release_day"] = profile.NullScalar()
	prof.Scalars["release_month"] = profile.NullScalar()
	prof.Scalars["release_year"] = profile.NullScalar()

	doc.Find("table#release_dates tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		html, err := goquery.OuterHtml(row)
		if err != nil || !strings.Contains(html, "USA") {
			return
		}
		m := imdbUSARowRe.FindStringSubmatch(html)
		if m == nil {
			return
		}
		day, okD := extract.ParseInt(m[1])
		year, okY := extract.ParseInt(m[3])
		if !okD || !okY {
			return
		}
		prof.Scalars["release_day"] = profile.IntScalar(day)
		prof.Scalars["release_month"] = profile.StringScalar(m[2])
		prof.Scalars["release_year"] = profile.IntScalar(year)
	})
}

// extractReviews collects user reviews; a review that fails to parse is
// dropped from the collection without affecting its siblings.
func (s *IMDB) extractReviews(prof *profile.Profile, doc *goquery.Document) {
	reviews := []profile.Review{}
	doc.Find("td.comment-summary").Each(func(_ int, sel *goquery.Selection) {
		html, err := goquery.OuterHtml(sel)
		if err != nil {
			return
		}
		score, ok := imdbReviewScoreRule.Int(html)
		if !ok {
			return
		}
		date, ok := imdbReviewDateRule.Date(html, imdbDateLayout)
		if !ok {
			return
		}
		text := strings.TrimSpace(sel.Find(`a[href*="reviews"]`).First().Text())
		author := strings.TrimSpace(sel.Find(`a[href*="/user/"]`).Eq(1).Text())
		if text == "" || author == "" {
			return
		}
		reviews = append(reviews, profile.Review{
			Score:  float64(score),
			Date:   profile.DateScalar(date),
			Author: author,
			Text:   text,
		})
	})
	prof.Reviews["imdb_user_reviews"] = reviews
}

func scalarFloat(raw string) profile.Scalar {
	if f, ok := extract.ParseFloat(raw); ok {
		return profile.FloatScalar(f)
	}
	return profile.NullScalar()
}

func scalarInt(raw string) profile.Scalar {
	if n, ok := extract.ParseInt(raw); ok {
		return profile.IntScalar(n)
	}
	return profile.NullScalar()
}
