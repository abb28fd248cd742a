// Package catalog filters, searches, sorts and incrementally loads the movie
// catalog. Everything here is a synchronous computation over an already
// loaded slice; only Feed touches I/O, through the page fetcher it is given.
package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/trailerdeck/trailerdeck/internal/store"
)

// Sort keys accepted by Filters.SortBy.
const (
	SortTitle    = "title"
	SortYear     = "release_year"
	SortRating   = "rating"
	SortDuration = "duration"
	SortCreated  = "created_at"
)

// Tier filter values. TierAll disables tier filtering.
const TierAll = "all"

// Filters hold the user-specified constraints applied to the loaded catalog.
// Zero values are no-ops: an empty search term skips text narrowing, a zero
// range bound leaves that side unbounded, an empty genre set matches
// everything and TierAll (or "") matches both tiers.
type Filters struct {
	Search string
	Genres []string

	YearMin, YearMax         int
	RatingMin, RatingMax     float64
	DurationMin, DurationMax int

	Tier string

	SortBy   string
	SortDesc bool
}

// Apply narrows items by fuzzy search first, then by the AND of all active
// predicates, then sorts. The input slice is not modified.
func Apply(items []store.Movie, f Filters) []store.Movie {
	out := make([]store.Movie, 0, len(items))

	term := strings.TrimSpace(f.Search)
	for i := range items {
		m := &items[i]
		if term != "" && !matchesSearch(m, term) {
			continue
		}
		if !matchesFilters(m, f) {
			continue
		}
		out = append(out, *m)
	}

	Sort(out, f.SortBy, f.SortDesc)
	return out
}

// matchesSearch approximately matches the term against title, synopsis and
// genre. Subsequence matching with unicode folding: tolerant of partial terms
// and minor gaps, stricter than arbitrary edit distance.
func matchesSearch(m *store.Movie, term string) bool {
	if fuzzy.MatchNormalizedFold(term, m.Title) {
		return true
	}
	if m.Synopsis.Valid && fuzzy.MatchNormalizedFold(term, m.Synopsis.V) {
		return true
	}
	return fuzzy.MatchNormalizedFold(term, m.Genre)
}

func matchesFilters(m *store.Movie, f Filters) bool {
	if len(f.Genres) > 0 && !genreIn(m.Genre, f.Genres) {
		return false
	}
	if f.YearMin > 0 && m.ReleaseYear < f.YearMin {
		return false
	}
	if f.YearMax > 0 && m.ReleaseYear > f.YearMax {
		return false
	}
	if f.RatingMin > 0 && m.Rating < f.RatingMin {
		return false
	}
	if f.RatingMax > 0 && m.Rating > f.RatingMax {
		return false
	}
	if f.DurationMin > 0 && m.Duration < f.DurationMin {
		return false
	}
	if f.DurationMax > 0 && m.Duration > f.DurationMax {
		return false
	}
	if f.Tier != "" && f.Tier != TierAll && !strings.EqualFold(m.Tier, f.Tier) {
		return false
	}
	return true
}

// genreIn reports whether the item's genre label is one of the selected set
// (OR semantics).
func genreIn(genre string, selected []string) bool {
	for _, g := range selected {
		if strings.EqualFold(strings.TrimSpace(g), genre) {
			return true
		}
	}
	return false
}

// Sort orders items in place by a single key. The sort is stable, so items
// with equal keys keep their relative order between calls on the same input.
func Sort(items []store.Movie, key string, descending bool) {
	if len(items) < 2 {
		return
	}

	var compare func(a, b store.Movie) int
	switch key {
	case SortTitle:
		compare = func(a, b store.Movie) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortYear:
		compare = func(a, b store.Movie) int {
			return cmp.Compare(a.ReleaseYear, b.ReleaseYear)
		}
	case SortRating:
		compare = func(a, b store.Movie) int {
			return cmp.Compare(a.Rating, b.Rating)
		}
	case SortDuration:
		compare = func(a, b store.Movie) int {
			return cmp.Compare(a.Duration, b.Duration)
		}
	default:
		// Creation time; RFC3339 strings compare chronologically.
		compare = func(a, b store.Movie) int {
			return strings.Compare(a.CreatedAt, b.CreatedAt)
		}
	}

	if descending {
		inner := compare
		compare = func(a, b store.Movie) int { return -inner(a, b) }
	}
	slices.SortStableFunc(items, compare)
}

// Suggestion limits for the typeahead affordance.
const (
	maxTitleSuggestions = 5
	maxGenreSuggestions = 3
	minSuggestTermLen   = 2
)

// Suggest produces up to 5 title matches plus up to 3 genre matches for a
// typeahead, by case-insensitive substring containment, deduplicated. Terms
// shorter than two characters produce nothing.
func Suggest(items []store.Movie, term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if len([]rune(term)) < minSuggestTermLen {
		return nil
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, maxTitleSuggestions+maxGenreSuggestions)

	titles := 0
	for i := range items {
		if titles >= maxTitleSuggestions {
			break
		}
		title := items[i].Title
		if !strings.Contains(strings.ToLower(title), term) {
			continue
		}
		key := strings.ToLower(title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, title)
		titles++
	}

	genres := 0
	for i := range items {
		if genres >= maxGenreSuggestions {
			break
		}
		genre := items[i].Genre
		if !strings.Contains(strings.ToLower(genre), term) {
			continue
		}
		key := strings.ToLower(genre)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, genre)
		genres++
	}

	return out
}
