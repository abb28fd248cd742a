package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trailerdeck/trailerdeck/internal/auth"
	"github.com/trailerdeck/trailerdeck/internal/catalog"
	"github.com/trailerdeck/trailerdeck/internal/logger"
	"github.com/trailerdeck/trailerdeck/internal/store"
)

// getMovies serves the browsing list: it loads store pages incrementally
// through a catalog.Feed, applies the query engine to the loaded set and
// slices out the requested page. The loaded set can be larger than strictly
// needed when filters discard items; filtering is re-applied to the full
// loaded set on every request.
func (h *Handler) getMovies(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	filters := parseCatalogFilters(r)
	page := queryInt(r, "page")
	if page < 1 {
		page = 1
	}

	feed := catalog.NewFeed(func(ctx context.Context, p int) ([]store.Movie, error) {
		return h.store.ListMoviesPage(ctx, p, catalog.PageSize, filters.SortBy, filters.SortDesc)
	})

	offset := (page - 1) * catalog.PageSize
	var visible []store.Movie
	for {
		if _, err := feed.LoadMore(ctx); err != nil {
			slog.Warn("load movies page failed", logger.Error(err))
			return internal(err)
		}
		visible = catalog.Apply(feed.Loaded(), filters)
		if len(visible) >= offset+catalog.PageSize || feed.Done() {
			break
		}
	}

	end := min(offset+catalog.PageSize, len(visible))
	pageItems := []store.Movie{}
	if offset < len(visible) {
		pageItems = visible[offset:end]
	}

	if term := strings.TrimSpace(filters.Search); term != "" {
		if claims, ok := auth.FromContext(ctx); ok {
			if err := h.recent.Record(ctx, claims.UserID, term); err != nil {
				slog.Warn("record recent search failed", logger.Error(err))
			}
		}
	}

	writeJSON(w, http.StatusOK, &MovieListResponse{
		Movies:  toMovieList(pageItems),
		Page:    page,
		HasMore: end < len(visible) || !feed.Done(),
	})
	return nil
}

func parseCatalogFilters(r *http.Request) catalog.Filters {
	q := r.URL.Query()

	var genres []string
	for _, part := range strings.Split(q.Get("genres"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			genres = append(genres, part)
		}
	}

	tier := strings.TrimSpace(q.Get("tier"))
	switch tier {
	case store.TierBasic, store.TierPremium:
	default:
		tier = catalog.TierAll
	}

	sortBy := strings.TrimSpace(q.Get("sort"))
	switch sortBy {
	case catalog.SortTitle, catalog.SortYear, catalog.SortRating, catalog.SortDuration:
	default:
		sortBy = catalog.SortCreated
	}

	return catalog.Filters{
		Search:      strings.TrimSpace(q.Get("q")),
		Genres:      genres,
		YearMin:     queryInt(r, "year_min"),
		YearMax:     queryInt(r, "year_max"),
		RatingMin:   queryFloat(r, "rating_min"),
		RatingMax:   queryFloat(r, "rating_max"),
		DurationMin: queryInt(r, "duration_min"),
		DurationMax: queryInt(r, "duration_max"),
		Tier:        tier,
		SortBy:      sortBy,
		SortDesc:    q.Get("dir") == "desc",
	}
}

// getMovie returns one movie with its credits. Premium movies viewed by
// Basic users come back locked with the trailer withheld; metadata is never
// blocked.
func (h *Handler) getMovie(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}

	movie, err := h.store.GetMovie(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return notFound("not found")
		}
		return internal(err)
	}

	claims, _ := auth.FromContext(ctx)
	tier, err := h.store.TierForUser(ctx, claims.UserID)
	if err != nil {
		return internal(err)
	}

	locked := movie.Tier == store.TierPremium && tier != store.TierPremium
	movieJSON := toMovieJSON(&movie)
	if locked {
		movieJSON.TrailerURL = nil
	}

	cast, err := h.store.CastForMovie(ctx, id, 10)
	if err != nil {
		slog.Warn("cast fetch failed", logger.Error(err))
		cast = nil
	}
	crew, err := h.store.CrewForMovie(ctx, id)
	if err != nil {
		slog.Warn("crew fetch failed", logger.Error(err))
		crew = nil
	}

	resp := &MovieDetailResponse{
		Movie:  movieJSON,
		Cast:   toCastJSON(cast),
		Crew:   toCrewJSON(crew),
		Locked: locked,
	}

	if inList, err := h.store.InWatchlist(ctx, claims.UserID, id); err == nil {
		resp.InWatchlist = inList
	}
	if ratings, err := h.store.RatingsForUser(ctx, claims.UserID); err == nil {
		if rating, ok := ratings[id]; ok {
			resp.UserRating = &rating
		}
	}

	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *Handler) getGenres(w http.ResponseWriter, r *http.Request) error {
	genres, err := h.store.ListGenres(r.Context())
	if err != nil {
		return internal(err)
	}
	writeJSON(w, http.StatusOK, genres)
	return nil
}

// getSuggest serves typeahead suggestions over the full catalog.
func (h *Handler) getSuggest(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	resp := &SuggestResponse{Suggestions: []string{}}
	if len([]rune(term)) < 2 {
		writeJSON(w, http.StatusOK, resp)
		return nil
	}

	loaded, err := h.loadFullCatalog(ctx)
	if err != nil {
		return internal(err)
	}
	if suggestions := catalog.Suggest(loaded, term); suggestions != nil {
		resp.Suggestions = suggestions
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

// loadFullCatalog drains the paged store read into memory.
func (h *Handler) loadFullCatalog(ctx context.Context) ([]store.Movie, error) {
	feed := catalog.NewFeed(func(ctx context.Context, p int) ([]store.Movie, error) {
		return h.store.ListMoviesPage(ctx, p, catalog.PageSize, catalog.SortCreated, false)
	})
	for !feed.Done() {
		if _, err := feed.LoadMore(ctx); err != nil {
			return nil, err
		}
	}
	return feed.Loaded(), nil
}

func (h *Handler) getRecentSearches(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	claims, _ := auth.FromContext(ctx)

	terms, err := h.recent.Recent(ctx, claims.UserID)
	if err != nil {
		return internal(err)
	}
	writeJSON(w, http.StatusOK, &RecentSearchesResponse{Searches: terms})
	return nil
}

func (h *Handler) postRecentSearch(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	claims, _ := auth.FromContext(ctx)

	var req RecordSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	if strings.TrimSpace(req.Term) == "" {
		return badRequest("term required")
	}

	if err := h.recent.Record(ctx, claims.UserID, req.Term); err != nil {
		return internal(err)
	}

	terms, err := h.recent.Recent(ctx, claims.UserID)
	if err != nil {
		return internal(err)
	}
	writeJSON(w, http.StatusOK, &RecentSearchesResponse{Searches: terms})
	return nil
}
