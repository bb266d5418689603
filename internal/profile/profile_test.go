package profile

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNormalizeKey verifies the key transform against titles covering every
// stripped punctuation mark.
func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want string
	}{
		{"The Matrix", "the_matrix"},
		{"  The Matrix  ", "the_matrix"},
		{"Crouching Tiger, Hidden Dragon: Sword of Destiny", "crouching_tiger_hidden_dragon_sword_of_destiny"},
		{"Don't Breathe", "dont_breathe"},
		{"Face/Off", "faceoff"},
		{"Mother!", "mother"},
		{"Dr. Strangelove", "dr_strangelove"},
		{"Them; Us", "them_us"},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizeKey(tc.name), "NormalizeKey(%q)", tc.name)
	}
}

// TestNormalizeKeyStable ensures normalizing an already-normalized key is a
// no-op, since keys round-trip through filenames.
func TestNormalizeKeyStable(t *testing.T) {
	t.Parallel()

	key := NormalizeKey("The Matrix: Reloaded!")
	require.Equal(t, key, NormalizeKey(key))
}

// TestNormalizeLabel keeps punctuation but folds case and spaces.
func TestNormalizeLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "aged_under_18", NormalizeLabel(" Aged under 18 "))
	require.Equal(t, "non-us_users", NormalizeLabel("Non-US users"))
}

// TestScalarJSONRoundTrip ensures every scalar kind survives a marshal and
// unmarshal unchanged, including floats with integral values.
func TestScalarJSONRoundTrip(t *testing.T) {
	t.Parallel()

	day := time.Date(1999, time.March, 31, 0, 0, 0, 0, time.UTC)
	cases := map[string]Scalar{
		"null":           NullScalar(),
		"string":         StringScalar("The Matrix"),
		"date-lookalike": StringScalar("not 1999-03-31 exactly"),
		"int":            IntScalar(63000000),
		"float":          FloatScalar(8.7),
		"integral-float": FloatScalar(80.0),
		"date":           DateScalar(day),
	}
	for name, in := range cases {
		data, err := json.Marshal(in)
		require.NoError(t, err, name)

		var out Scalar
		require.NoError(t, json.Unmarshal(data, &out), name)
		require.Equal(t, in.Kind(), out.Kind(), "%s: kind changed across %s", name, data)
		require.Equal(t, in, out, name)
	}
}

// TestScalarDateTruncation drops the time-of-day component.
func TestScalarDateTruncation(t *testing.T) {
	t.Parallel()

	s := DateScalar(time.Date(1999, time.March, 31, 17, 45, 12, 0, time.UTC))
	require.Equal(t, time.Date(1999, time.March, 31, 0, 0, 0, 0, time.UTC), s.Date())
}

// TestScalarCell covers the tabular rendering for every kind.
func TestScalarCell(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", NullScalar().Cell())
	require.Equal(t, "The Matrix", StringScalar("The Matrix").Cell())
	require.Equal(t, "42", IntScalar(42).Cell())
	require.Equal(t, "8.7", FloatScalar(8.7).Cell())
	require.Equal(t, "80.0", FloatScalar(80).Cell())
	require.Equal(t, "1999-03-31", DateScalar(time.Date(1999, time.March, 31, 0, 0, 0, 0, time.UTC)).Cell())
}

// TestProfileJSONRoundTrip exercises a fully populated profile through the
// store's serialization format.
func TestProfileJSONRoundTrip(t *testing.T) {
	t.Parallel()

	in := New("imdb", "The Matrix")
	in.Scalars["rating"] = FloatScalar(8.7)
	in.Scalars["budget"] = IntScalar(63000000)
	in.Scalars["metascore"] = NullScalar()
	in.Scalars["opening_weekend_date"] = DateScalar(time.Date(1999, time.April, 2, 0, 0, 0, 0, time.UTC))
	in.Lists["genres"] = []string{"action", "sci-fi"}
	in.Tables["rating_freq"] = map[string]float64{"10": 700000, "9": 300000}
	in.Reviews["imdb_user_reviews"] = []Review{
		{
			Score:  10,
			Date:   DateScalar(time.Date(1999, time.April, 5, 0, 0, 0, 0, time.UTC)),
			Author: "neo_fan",
			Text:   "Mind-blowing.",
		},
		{
			Score:     7,
			Date:      NullScalar(),
			Author:    "skeptic",
			Text:      "Overrated.",
			Reactions: map[string]float64{"total": 10, "pos": 3, "neg": 7},
		},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Profile
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, *in, out)
}

// TestMergeDeepCopies ensures merged collections do not alias the source
// profile's memory.
func TestMergeDeepCopies(t *testing.T) {
	t.Parallel()

	src := New("metacritic", "The Matrix")
	src.Scalars["mc_metascore"] = IntScalar(73)
	src.Lists["genres"] = []string{"action"}
	src.Tables["mc_user_rating_freq"] = map[string]float64{"positive": 100}
	src.Reviews["mc_user_reviews"] = []Review{{Score: 10, Author: "neo4life"}}

	dst := New("united", "The Matrix")
	dst.Merge(src)

	src.Lists["genres"][0] = "mutated"
	src.Tables["mc_user_rating_freq"]["positive"] = -1
	src.Reviews["mc_user_reviews"][0].Author = "mutated"

	require.Equal(t, []string{"action"}, dst.Lists["genres"])
	require.Equal(t, float64(100), dst.Tables["mc_user_rating_freq"]["positive"])
	require.Equal(t, "neo4life", dst.Reviews["mc_user_reviews"][0].Author)
}

// TestMergeLastSourceWins documents the collision policy.
func TestMergeLastSourceWins(t *testing.T) {
	t.Parallel()

	first := New("imdb", "The Matrix")
	first.Scalars["year"] = IntScalar(1999)
	second := New("metacritic", "The Matrix")
	second.Scalars["year"] = IntScalar(2000)

	dst := New("united", "The Matrix")
	dst.Merge(first)
	dst.Merge(second)
	require.Equal(t, int64(2000), dst.Scalars["year"].Int())
}
