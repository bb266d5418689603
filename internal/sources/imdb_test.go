package sources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hollydata/filmcrawl/internal/profile"
)

const imdbTestBase = "http://imdb.test"

const imdbSearchPage = `<html><body>
<table class="findList">
<tr class="findResult">
<td class="result_text"><a href="/title/tt0106062/">The Matrix</a> (1993) (TV Series)</td>
</tr>
<tr class="findResult">
<td class="result_text"><a href="/title/tt0133093/">The Matrix</a> (1999)</td>
</tr>
</table>
</body></html>`

const imdbProfilePage = `<html><body>
<div class="title_wrapper">
<h1>The Matrix <span id="titleYear">(<a href="/year/1999/">1999</a>)</span></h1>
<time itemprop="duration" datetime="PT136M">2h 16min</time>
<span itemprop="genre">Action</span>, <span itemprop="genre">Sci-Fi</span>
</div>
<div class="ratingValue"><span itemprop="ratingValue">8.7</span></div>
<span itemprop="ratingCount">1,234,567</span>
<div class="titleReviewBar">
<span itemprop="reviewCount">4,500 user</span>
<span itemprop="reviewCount">300 critic</span>
<div class="metacriticScore score_favorable"><span>73</span></div>
</div>
<h3 class="subheading">Box Office</h3>
<div class="txt-block"><h4 class="inline">Budget:</h4> $63,000,000 <span>(estimated)</span></div>
<div class="txt-block"><h4 class="inline">Opening Weekend:</h4> $27,788,331 (USA) (2 April 1999)</div>
<div class="txt-block"><h4 class="inline">Gross:</h4> $171,479,930 (USA) (10 September 1999)</div>
<h3 class="subheading">Company Credits</h3>
</body></html>`

const imdbRatingsPage = `<html><body>
<table cellpadding="0">
<tr><th>Votes</th><th>Percentage</th><th>Rating</th></tr>
<tr><td>700,000</td><td>56.7%</td><td>10</td></tr>
<tr><td>300,000</td><td>24.3%</td><td>9</td></tr>
<tr><td>bogus</td><td>-</td><td>8</td></tr>
</table>
<table cellpadding="1">
<tr><th>Demographic</th><th>Votes</th><th>Average</th></tr>
<tr><td>Males</td><td>800,000</td><td>8.7</td></tr>
<tr><td>Aged under 18</td><td>10,000</td><td>9.1</td></tr>
<tr><td>Martians under 18</td><td>5</td><td>9.9</td></tr>
</table>
</body></html>`

const imdbBusinessPage = `<html><body><div id="tn15content">
<h5>Budget</h5>
$63,000,000 (estimated)
<h5>Weekend Gross</h5>
$1,000,000 (USA) (10 September 1999) (100 Screens)<br>
$5,000,000 (USA) (9 April 1999) (2,500 Screens)<br>
$27,788,331 (USA) (2 April 1999) (2,849 Screens)<br>
<h5>Admissions</h5>
1,000,000 (USA)
</div></body></html>`

const imdbReleasePage = `<html><body>
<table id="release_dates">
<tr><th>Country</th><th>Date</th></tr>
<tr><td><a href="/calendar/?region=de">Germany</a></td><td>17 June 1999</td></tr>
<tr><td><a href="/calendar/?region=us">USA</a></td><td>31 March 1999</td></tr>
</table>
</body></html>`

const imdbReviewsPage = `<html><body><table>
<tr><td class="comment-summary">
<img src="/10.gif" alt="10/10">
<a href="/title/tt0133093/reviews-detail#1">Mind-blowing.</a><br>
<a href="/user/ur0000001/"><img src="a.jpg"></a>
<a href="/user/ur0000001/comments">neo_fan</a> from Zion<br>
on 5 April 1999
</td></tr>
<tr><td class="comment-summary">
<img src="/7.gif" alt="7/10">
<a href="/title/tt0133093/reviews-detail#2">Good, not great.</a><br>
<a href="/user/ur0000002/"><img src="a.jpg"></a>
<a href="/user/ur0000002/comments">skeptic</a> from nowhere<br>
on 1 April 1999
</td></tr>
<tr><td class="comment-summary">
<a href="/title/tt0133093/reviews-detail#3">No score given.</a><br>
<a href="/user/ur0000003/"><img src="a.jpg"></a>
<a href="/user/ur0000003/comments">quiet</a><br>
on 2 April 1999
</td></tr>
</table></body></html>`

func imdbTestPages() map[string]string {
	pages := map[string]string{}
	pages[imdbTestBase+"/find?q=the+matrix&s=tt&ttype=ft&exact=true"] = imdbSearchPage
	pages[imdbTestBase+"/title/tt0133093/"] = imdbProfilePage
	pages[imdbTestBase+"/title/tt0133093/ratings"] = imdbRatingsPage
	pages[imdbTestBase+"/title/tt0133093/business"] = imdbBusinessPage
	pages[imdbTestBase+"/title/tt0133093/releaseinfo"] = imdbReleasePage
	pages[imdbTestBase+"/title/tt0133093/reviews-index?start=0;count=9999"] = imdbReviewsPage
	return pages
}

func newTestIMDB(pages map[string]string) (*IMDB, *stubFetcher) {
	fetcher := &stubFetcher{pages: pages}
	return NewIMDB(IMDBConfig{BaseURL: imdbTestBase}, fetcher, nil), fetcher
}

func day(y int, m time.Month, d int) profile.Scalar {
	return profile.DateScalar(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// TestIMDBExtract runs the full search-then-detail pipeline over synthetic
// pages and checks every extracted field.
func TestIMDBExtract(t *testing.T) {
	t.Parallel()

	s, _ := newTestIMDB(imdbTestPages())
	prof, err := s.Extract(context.Background(), "The Matrix", 1999)
	require.NoError(t, err)

	require.Equal(t, "imdb", prof.Source)
	require.Equal(t, "the_matrix", prof.Key)
	require.Equal(t, "The Matrix", prof.Name)

	// Profile page.
	require.Equal(t, profile.FloatScalar(8.7), prof.Scalars["rating"])
	require.Equal(t, profile.IntScalar(1234567), prof.Scalars["rating_count"])
	require.Equal(t, []string{"action", "sci-fi"}, prof.Lists["genres"])
	require.Equal(t, profile.IntScalar(4500), prof.Scalars["user_review_count"])
	require.Equal(t, profile.IntScalar(300), prof.Scalars["critic_review_count"])
	require.Equal(t, profile.IntScalar(73), prof.Scalars["metascore"])
	require.Equal(t, profile.IntScalar(1999), prof.Scalars["year"])
	require.Equal(t, profile.IntScalar(136), prof.Scalars["duration"])

	// Box-office prose block.
	require.Equal(t, profile.IntScalar(63000000), prof.Scalars["budget"])
	require.Equal(t, profile.StringScalar("$"), prof.Scalars["budget_currency"])
	require.Equal(t, day(1999, time.April, 2), prof.Scalars["opening_weekend_date"])
	require.Equal(t, profile.IntScalar(27788331), prof.Scalars["opening_weekend_income"])
	require.Equal(t, profile.StringScalar("$"), prof.Scalars["opening_weekend_income_currency"])
	require.Equal(t, day(1999, time.September, 10), prof.Scalars["closing_date"])
	require.Equal(t, profile.IntScalar(171479930), prof.Scalars["gross_income"])

	// Ratings page: out-of-vocabulary labels survive extraction; bounding
	// happens at assembly time.
	require.Equal(t, map[string]float64{"10": 700000, "9": 300000}, prof.Tables["rating_freq"])
	require.Equal(t, map[string]float64{
		"males":             800000,
		"aged_under_18":     10000,
		"martians_under_18": 5,
	}, prof.Tables["votes_per_demo"])
	require.InDelta(t, 8.7, prof.Tables["avg_rating_per_demo"]["males"], 1e-9)

	// Business page: the source lists weekends newest first, the table is
	// chronological.
	require.Equal(t, map[string]float64{"1": 2849, "2": 2500, "3": 100}, prof.Tables["screens_by_weekend"])
	require.Equal(t, profile.IntScalar(2849), prof.Scalars["opening_weekend_screens"])
	require.Equal(t, profile.IntScalar(2849), prof.Scalars["max_screens"])
	require.Equal(t, profile.IntScalar(5449), prof.Scalars["total_screens"])
	require.Equal(t, profile.IntScalar(3), prof.Scalars["num_weekends"])
	require.InDelta(t, 5449.0/3.0, prof.Scalars["avg_screens"].Float(), 1e-9)

	// Release-info page.
	require.Equal(t, profile.IntScalar(31), prof.Scalars["release_day"])
	require.Equal(t, profile.StringScalar("March"), prof.Scalars["release_month"])
	require.Equal(t, profile.IntScalar(1999), prof.Scalars["release_year"])

	// Reviews page: the scoreless review is dropped, its siblings survive.
	reviews := prof.Reviews["imdb_user_reviews"]
	require.Len(t, reviews, 2)
	require.Equal(t, profile.Review{
		Score:  10,
		Date:   day(1999, time.April, 5),
		Author: "neo_fan",
		Text:   "Mind-blowing.",
	}, reviews[0])
	require.Equal(t, float64(7), reviews[1].Score)
	require.Equal(t, "skeptic", reviews[1].Author)
}

// TestIMDBFindTitleCode covers the year-hint tolerance and both
// disambiguation failure modes.
func TestIMDBFindTitleCode(t *testing.T) {
	t.Parallel()

	s, _ := newTestIMDB(imdbTestPages())
	ctx := context.Background()

	code, err := s.FindTitleCode(ctx, "The Matrix", 1999)
	require.NoError(t, err)
	require.Equal(t, "tt0133093", code)

	// The hinted year may be one ahead of the displayed one.
	code, err = s.FindTitleCode(ctx, "The Matrix", 2000)
	require.NoError(t, err)
	require.Equal(t, "tt0133093", code)

	// No hint: first candidate wins.
	code, err = s.FindTitleCode(ctx, "The Matrix", 0)
	require.NoError(t, err)
	require.Equal(t, "tt0106062", code)

	// Candidates exist but none match the hint.
	_, err = s.FindTitleCode(ctx, "The Matrix", 2012)
	var disErr *DisambiguationError
	require.ErrorAs(t, err, &disErr)
	require.False(t, disErr.NoCandidates)
}

// TestIMDBFindTitleCodeNoCandidates distinguishes empty search results.
func TestIMDBFindTitleCodeNoCandidates(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		imdbTestBase + "/find?q=unknown+film&s=tt&ttype=ft&exact=true": `<html><body><div class="findNoResults">No results.</div></body></html>`,
	}
	s, _ := newTestIMDB(pages)

	_, err := s.FindTitleCode(context.Background(), "Unknown Film", 1999)
	var disErr *DisambiguationError
	require.ErrorAs(t, err, &disErr)
	require.True(t, disErr.NoCandidates)
}

// TestIMDBExtractMissingSections verifies field isolation: absent sections
// null their own fields without disturbing the rest of the profile.
func TestIMDBExtractMissingSections(t *testing.T) {
	t.Parallel()

	pages := imdbTestPages()
	pages[imdbTestBase+"/title/tt0133093/"] = `<html><body>
<span itemprop="ratingValue">8.7</span>
<h3 class="subheading">Company Credits</h3>
</body></html>`
	pages[imdbTestBase+"/title/tt0133093/business"] = `<html><body>no business data</body></html>`
	s, _ := newTestIMDB(pages)

	prof, err := s.ExtractByCode(context.Background(), "The Matrix", "tt0133093")
	require.NoError(t, err)

	require.Equal(t, profile.FloatScalar(8.7), prof.Scalars["rating"])
	for _, field := range []string{
		"budget", "opening_weekend_date", "gross_income",
		"metascore", "year", "duration",
		"opening_weekend_screens", "num_weekends",
	} {
		require.True(t, prof.Scalars[field].IsNull(), "field %s should be null", field)
	}
	require.Empty(t, prof.Tables["screens_by_weekend"])
	// The other subpages still contribute.
	require.Equal(t, profile.IntScalar(31), prof.Scalars["release_day"])
	require.Len(t, prof.Reviews["imdb_user_reviews"], 2)
}

// TestIMDBExtractSubpageFetchFailure aborts the whole extraction when a
// detail page cannot be fetched at all.
func TestIMDBExtractSubpageFetchFailure(t *testing.T) {
	t.Parallel()

	pages := imdbTestPages()
	delete(pages, imdbTestBase+"/title/tt0133093/ratings")
	s, _ := newTestIMDB(pages)

	_, err := s.Extract(context.Background(), "The Matrix", 1999)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ratings")
}
