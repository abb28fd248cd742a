package catalog

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailerdeck/trailerdeck/internal/store"
)

func movie(id int64, title, genre string, year int, rating float64, duration int, tier string) store.Movie {
	return store.Movie{
		ID:          id,
		TMDBID:      id,
		Title:       title,
		Genre:       genre,
		Rating:      rating,
		ReleaseYear: year,
		Duration:    duration,
		Tier:        tier,
	}
}

func sample() []store.Movie {
	return []store.Movie{
		movie(1, "The Matrix", "Science Fiction", 1999, 8.7, 136, store.TierBasic),
		movie(2, "The Matrix Reloaded", "Science Fiction", 2003, 7.2, 138, store.TierBasic),
		movie(3, "Inception", "Science Fiction", 2010, 8.8, 148, store.TierPremium),
		movie(4, "Heat", "Crime", 1995, 8.3, 170, store.TierBasic),
		movie(5, "Se7en", "Crime", 1995, 8.6, 127, store.TierPremium),
		movie(6, "Spirited Away", "Animation", 2001, 8.6, 125, store.TierBasic),
	}
}

func titles(items []store.Movie) []string {
	out := make([]string, 0, len(items))
	for i := range items {
		out = append(out, items[i].Title)
	}
	return out
}

func TestApplyNoFilters(t *testing.T) {
	got := Apply(sample(), Filters{})
	assert.Len(t, got, len(sample()), "empty filters must pass everything through")
}

func TestApplyFuzzySearch(t *testing.T) {
	got := Apply(sample(), Filters{Search: "matrix"})

	names := titles(got)
	assert.Contains(t, names, "The Matrix")
	assert.Contains(t, names, "The Matrix Reloaded")
	assert.NotContains(t, names, "Inception")
}

func TestApplySearchMatchesSynopsisAndGenre(t *testing.T) {
	items := sample()
	items[3].Synopsis = sql.Null[string]{V: "A heist crew and an obsessive detective circle each other across Los Angeles.", Valid: true}

	bySynopsis := Apply(items, Filters{Search: "heist"})
	require.Len(t, bySynopsis, 1)
	assert.Equal(t, "Heat", bySynopsis[0].Title)

	byGenre := Apply(items, Filters{Search: "animation"})
	require.Len(t, byGenre, 1)
	assert.Equal(t, "Spirited Away", byGenre[0].Title)
}

func TestApplyFiltersCombineAsAND(t *testing.T) {
	got := Apply(sample(), Filters{
		Genres:    []string{"Crime"},
		YearMin:   1990,
		YearMax:   2000,
		RatingMin: 8.5,
	})
	require.Len(t, got, 1)
	assert.Equal(t, "Se7en", got[0].Title)
}

func TestApplyGenreSelectionIsOR(t *testing.T) {
	got := Apply(sample(), Filters{Genres: []string{"Crime", "Animation"}})
	assert.ElementsMatch(t, []string{"Heat", "Se7en", "Spirited Away"}, titles(got))
}

func TestApplyRatingRange(t *testing.T) {
	got := Apply(sample(), Filters{RatingMin: 8.0, RatingMax: 8.7})
	for i := range got {
		assert.GreaterOrEqual(t, got[i].Rating, 8.0)
		assert.LessOrEqual(t, got[i].Rating, 8.7)
	}
	assert.NotContains(t, titles(got), "Inception")
}

func TestApplyRatingFloor(t *testing.T) {
	items := []store.Movie{
		movie(1, "A", "Drama", 2000, 8.7, 100, store.TierBasic),
		movie(2, "B", "Drama", 2000, 8.8, 100, store.TierBasic),
		movie(3, "C", "Drama", 2000, 9.0, 100, store.TierBasic),
		movie(4, "D", "Drama", 2000, 6.5, 100, store.TierBasic),
	}
	got := Apply(items, Filters{RatingMin: 8, RatingMax: 10})
	assert.ElementsMatch(t, []string{"A", "B", "C"}, titles(got))
}

func TestApplyDurationAndTier(t *testing.T) {
	got := Apply(sample(), Filters{DurationMax: 130, Tier: store.TierPremium})
	require.Len(t, got, 1)
	assert.Equal(t, "Se7en", got[0].Title)
}

func TestApplyTierAllIsNoOp(t *testing.T) {
	all := Apply(sample(), Filters{Tier: TierAll})
	assert.Len(t, all, len(sample()))
}

func TestSortKeys(t *testing.T) {
	cases := []struct {
		key   string
		desc  bool
		first string
		last  string
	}{
		{SortTitle, false, "Heat", "The Matrix Reloaded"},
		{SortTitle, true, "The Matrix Reloaded", "Heat"},
		{SortYear, false, "Heat", "Inception"},
		{SortRating, true, "Inception", "The Matrix Reloaded"},
		{SortDuration, false, "Spirited Away", "Heat"},
	}
	for _, tc := range cases {
		items := sample()
		Sort(items, tc.key, tc.desc)
		assert.Equal(t, tc.first, items[0].Title, "key=%s desc=%v", tc.key, tc.desc)
		assert.Equal(t, tc.last, items[len(items)-1].Title, "key=%s desc=%v", tc.key, tc.desc)
	}
}

func TestSortIsStableOnTies(t *testing.T) {
	// Heat, Se7en and Spirited Away tie pairwise on rating 8.3/8.6; equal keys
	// must keep input order.
	items := sample()
	Sort(items, SortRating, false)

	var tied []string
	for i := range items {
		if items[i].Rating == 8.6 {
			tied = append(tied, items[i].Title)
		}
	}
	assert.Equal(t, []string{"Se7en", "Spirited Away"}, tied)
}

func TestSortDescendingReverses(t *testing.T) {
	asc := sample()
	Sort(asc, SortYear, false)
	desc := sample()
	Sort(desc, SortYear, true)

	for i := range asc {
		assert.Equal(t, asc[i].ReleaseYear, desc[len(desc)-1-i].ReleaseYear)
	}
}

func TestSuggestCapsAndDedupes(t *testing.T) {
	items := []store.Movie{}
	for i := int64(1); i <= 8; i++ {
		items = append(items, movie(i, "Alien Chronicle", "Adventure", 2000, 7, 100, store.TierBasic))
	}
	items = append(items,
		movie(20, "Alien Planet", "Alien Documentary", 2004, 7, 100, store.TierBasic),
		movie(21, "Aliens Among Us", "Alien Comedy", 2005, 7, 100, store.TierBasic),
		movie(22, "Alien Rising", "Alien Horror", 2006, 7, 100, store.TierBasic),
		movie(23, "Alien Dawn", "Alien Drama", 2007, 7, 100, store.TierBasic),
	)

	got := Suggest(items, "alien")

	// Eight identical titles collapse to one; five title slots total, then at
	// most three genre suggestions.
	assert.LessOrEqual(t, len(got), 8)
	assert.Equal(t, "Alien Chronicle", got[0])

	seen := map[string]int{}
	for _, s := range got {
		seen[s]++
	}
	for s, n := range seen {
		assert.Equal(t, 1, n, "duplicate suggestion %q", s)
	}
}

func TestSuggestShortTerm(t *testing.T) {
	assert.Nil(t, Suggest(sample(), "a"))
	assert.Nil(t, Suggest(sample(), " "))
}

func TestSuggestSubstringFold(t *testing.T) {
	got := Suggest(sample(), "MATRIX")
	assert.Contains(t, got, "The Matrix")
	assert.Contains(t, got, "The Matrix Reloaded")
}
