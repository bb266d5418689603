// Package dataset assembles stored profiles into flat tabular datasets: it
// unions profiles across sources by key, flattens nested and categorical
// fields into a fixed wide schema, and derives aggregate feature columns
// from embedded review collections.
package dataset

// Demographics is the fixed, pre-declared vocabulary for the demographic
// breakdown fields. Flattening drops categories outside it, which bounds
// dataset width against free-text label noise in the source documents.
var Demographics = []string{
	"aged_under_18",
	"males_under_18",
	"males_aged_45+",
	"females",
	"males_aged_18-29",
	"imdb_staff",
	"imdb_users",
	"males",
	"aged_30-44",
	"females_aged_45+",
	"aged_18-29",
	"females_aged_18-29",
	"aged_45+",
	"males_aged_30-44",
	"top_1000_voters",
	"females_under_18",
	"females_aged_30-44",
	"us_users",
	"non-us_users",
}

// RatingFreqVocab is the declared vocabulary of the 1-10 vote histogram.
var RatingFreqVocab = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}

// UserRatingFreqVocab is the declared vocabulary of the sentiment histogram
// on the critic-aggregation site.
var UserRatingFreqVocab = []string{"positive", "mixed", "negative"}

// ScreensWeekendVocab bounds the per-weekend screen counts to the first
// twelve weekends on release.
var ScreensWeekendVocab = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}

// ReviewAgg derives count and mean-score columns from one review collection,
// plus the same two statistics restricted to reviews dated on or before the
// spec's reference date column (suffix "_by_opening").
type ReviewAgg struct {
	Collection  string
	CountColumn string
	MeanColumn  string
}

// DateSplit expands one date column into numeric month, day and day-of-year
// columns named <Prefix>_month, <Prefix>_day and <Prefix>_day_of_year.
type DateSplit struct {
	Column string
	Prefix string
}

// Spec describes one dataset variant as data. Every derivation step reads
// a Spec value rather than hard-coding per-source behavior.
type Spec struct {
	// Name is the output file stem, e.g. "movies_dataset".
	Name string
	// Sources lists the profile sources to union. One source selects every
	// key it holds; several select the intersection of their key sets. A key
	// missing from any source would leave an incomplete row.
	Sources []string
	// TableVocabs maps each keyed-numeric field to its fixed column
	// vocabulary. Observed fields without a declared vocabulary are dropped.
	TableVocabs map[string][]string
	// ListFields are flattened to one binary column per value observed
	// across the whole selected row set.
	ListFields []string
	// ReviewAggs derive aggregate columns from review collections.
	ReviewAggs []ReviewAgg
	// RefDateColumn anchors the restricted ("_by_opening") statistics.
	RefDateColumn string
	// RequireRefDate excludes rows lacking the reference date entirely.
	RequireRefDate bool
	// DateSplits decompose date columns into numeric parts.
	DateSplits []DateSplit
}

// IMDBSpec is the single-source dataset over the review/ratings site.
func IMDBSpec() Spec {
	return Spec{
		Name:    "imdb_dataset",
		Sources: []string{"imdb"},
		TableVocabs: map[string][]string{
			"avg_rating_per_demo": Demographics,
			"votes_per_demo":      Demographics,
			"rating_freq":         RatingFreqVocab,
			"screens_by_weekend":  ScreensWeekendVocab,
		},
		ListFields: []string{"genres"},
	}
}

// MetacriticSpec is the single-source dataset over the critic-aggregation
// site. Its review aggregates have no reference date column, so the
// restricted statistics stay null.
func MetacriticSpec() Spec {
	return Spec{
		Name:    "metacritic_dataset",
		Sources: []string{"metacritic"},
		TableVocabs: map[string][]string{
			"mc_user_rating_freq": UserRatingFreqVocab,
		},
		ReviewAggs: []ReviewAgg{
			{Collection: "mc_pro_critic_reviews", CountColumn: "num_mc_critic", MeanColumn: "avg_mc_critic"},
			{Collection: "mc_user_reviews", CountColumn: "num_mc_user", MeanColumn: "avg_mc_user"},
		},
	}
}

// UnitedSpec is the full cross-source dataset: intersection of keys present
// under both profile sources, every flattening and derivation enabled, and
// rows lacking the opening-weekend date excluded (the restricted statistics
// are meaningless without it).
func UnitedSpec() Spec {
	return Spec{
		Name:    "movies_dataset",
		Sources: []string{"imdb", "metacritic"},
		TableVocabs: map[string][]string{
			"avg_rating_per_demo": Demographics,
			"votes_per_demo":      Demographics,
			"rating_freq":         RatingFreqVocab,
			"screens_by_weekend":  ScreensWeekendVocab,
			"mc_user_rating_freq": UserRatingFreqVocab,
		},
		ListFields: []string{"genres"},
		ReviewAggs: []ReviewAgg{
			{Collection: "mc_pro_critic_reviews", CountColumn: "num_mc_critic", MeanColumn: "avg_mc_critic"},
			{Collection: "mc_user_reviews", CountColumn: "num_mc_user", MeanColumn: "avg_mc_user"},
			{Collection: "imdb_user_reviews", CountColumn: "num_imdb_user", MeanColumn: "avg_imdb_user"},
		},
		RefDateColumn:  "opening_weekend_date",
		RequireRefDate: true,
		DateSplits: []DateSplit{
			{Column: "opening_weekend_date", Prefix: "opening"},
		},
	}
}
