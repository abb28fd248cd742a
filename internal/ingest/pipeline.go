// Package ingest rebuilds the whole movie catalog from TMDB.
//
// A run fetches discover pages across several ranking strategies, dedupes by
// TMDB id, enriches each record with a trailer and credits, and replaces the
// persisted catalog wholesale. All per-page and per-item failures are logged
// and skipped; only a missing credential or total provider unreachability
// fails the run.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/trailerdeck/trailerdeck/internal/logger"
	"github.com/trailerdeck/trailerdeck/internal/store"
	"github.com/trailerdeck/trailerdeck/internal/tmdb"
)

const (
	// targetCount caps how many movies one refresh run produces.
	targetCount = 1000
	// providerPageSize is TMDB's fixed discover page size.
	providerPageSize = 20
	// courtesyDelay is the pause after every provider call.
	courtesyDelay = 250 * time.Millisecond

	minVoteCount     = 100
	releaseDateFloor = "1970-01-01"

	castLimit = 10
	crewLimit = 15

	// premiumShare is the fraction of items assigned the Premium tier.
	// Demo-data policy: the provider has no tier concept.
	premiumShare = 0.3

	runtimeMin = 90
	runtimeMax = 150
)

// rankingStrategies are the discover sort orders fetched per run. Each
// strategy covers an even share of targetCount.
var rankingStrategies = []string{"popularity.desc", "vote_average.desc"}

// crewJobAllowList keeps only headline crew roles.
var crewJobAllowList = map[string]struct{}{
	"Director":           {},
	"Writer":             {},
	"Producer":           {},
	"Executive Producer": {},
	"Screenplay":         {},
	"Story":              {},
}

// ErrRunInProgress is returned when another refresh holds the catalog lock.
var ErrRunInProgress = errors.New("a catalog refresh is already running")

// MetadataSource is the slice of the TMDB client the pipeline consumes.
type MetadataSource interface {
	Configured() bool
	Discover(ctx context.Context, filters tmdb.DiscoverFilters, page int) (tmdb.DiscoverPage, error)
	Videos(ctx context.Context, movieID int64) ([]tmdb.Video, error)
	Credits(ctx context.Context, movieID int64) (tmdb.Credits, error)
}

// CatalogStore is the slice of the store the pipeline writes through.
type CatalogStore interface {
	ReplaceCatalog(ctx context.Context, movies []store.Movie) (map[int64]int64, error)
	InsertCastMembers(ctx context.Context, members []store.CastMember) (int, error)
	InsertCrewMembers(ctx context.Context, members []store.CrewMember) (int, error)
}

// Report carries the aggregate insert counts of one run.
type Report struct {
	Movies int `json:"movies"`
	Cast   int `json:"cast"`
	Crew   int `json:"crew"`
}

type Config struct {
	Source    MetadataSource
	Store     CatalogStore
	Lock      Locker
	ImageBase string

	// Rand drives tier assignment and synthetic runtimes. Tests pass a
	// seeded source; nil gets a time-seeded one.
	Rand *rand.Rand
	// Sleep lets tests skip the courtesy delays. Nil means time.Sleep.
	Sleep func(time.Duration)
	Delay time.Duration
}

type Pipeline struct {
	source    MetadataSource
	store     CatalogStore
	lock      Locker
	imageBase string
	rng       *rand.Rand
	sleep     func(time.Duration)
	delay     time.Duration
}

func New(cfg Config) *Pipeline {
	p := &Pipeline{
		source:    cfg.Source,
		store:     cfg.Store,
		lock:      cfg.Lock,
		imageBase: cfg.ImageBase,
		rng:       cfg.Rand,
		sleep:     cfg.Sleep,
		delay:     cfg.Delay,
	}
	if p.lock == nil {
		p.lock = &mutexLocker{}
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
	if p.sleep == nil {
		p.sleep = time.Sleep
	}
	if p.delay <= 0 {
		p.delay = courtesyDelay
	}
	return p
}

// Run performs one full catalog refresh. It is idempotent in effect (each run
// replaces all prior state) and rejects concurrent invocations with
// ErrRunInProgress.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	release, ok := p.lock.TryLock(ctx)
	if !ok {
		return Report{}, ErrRunInProgress
	}
	defer release()

	if !p.source.Configured() {
		return Report{}, tmdb.ErrNoCredentials
	}

	records, err := p.collect(ctx)
	if err != nil {
		return Report{}, err
	}
	records = dedupeByID(records, targetCount)

	movies := make([]store.Movie, 0, len(records))
	for i := range records {
		movies = append(movies, p.buildMovie(ctx, &records[i]))
	}

	byTMDB, err := p.store.ReplaceCatalog(ctx, movies)
	if err != nil {
		return Report{}, fmt.Errorf("replace catalog: %w", err)
	}
	metricMoviesInserted.Add(float64(len(byTMDB)))

	report := Report{Movies: len(byTMDB)}
	p.attachCredits(ctx, records, byTMDB, &report)

	slog.Info("catalog refresh complete",
		slog.Int("movies", report.Movies),
		slog.Int("cast", report.Cast),
		slog.Int("crew", report.Crew))
	return report, nil
}

// collect accumulates discover records across all ranking strategies. A
// failed page is logged and skipped; the run only fails when every single
// page fetch failed, which means the provider was never reachable.
func (p *Pipeline) collect(ctx context.Context) ([]tmdb.Movie, error) {
	perStrategy := targetCount / len(rankingStrategies)
	pagesPerStrategy := (perStrategy + providerPageSize - 1) / providerPageSize

	var accumulated []tmdb.Movie
	var lastErr error
	anyPageOK := false

	for _, strategy := range rankingStrategies {
		filters := tmdb.DiscoverFilters{
			Sort:          strategy,
			MinVotes:      minVoteCount,
			ReleasedAfter: releaseDateFloor,
		}
		for page := 1; page <= pagesPerStrategy; page++ {
			if len(accumulated) >= targetCount {
				return accumulated, nil
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			result, err := p.source.Discover(ctx, filters, page)
			metricPagesFetched.Inc()
			// Courtesy pause after every request, success or failure.
			p.sleep(p.delay)

			if err != nil {
				if errors.Is(err, tmdb.ErrNoCredentials) {
					return nil, err
				}
				metricPageFailures.Inc()
				lastErr = err
				slog.Warn("discover page failed, skipping",
					slog.String("strategy", strategy),
					slog.Int("page", page),
					logger.Error(err))
				continue
			}
			anyPageOK = true
			accumulated = append(accumulated, result.Results...)
			if page >= result.TotalPages && result.TotalPages > 0 {
				break
			}
		}
	}

	if !anyPageOK {
		return nil, fmt.Errorf("metadata provider unreachable: %w", lastErr)
	}
	return accumulated, nil
}

// dedupeByID keeps the first occurrence of each TMDB id and truncates to the
// target count.
func dedupeByID(records []tmdb.Movie, limit int) []tmdb.Movie {
	seen := make(map[int64]struct{}, len(records))
	out := make([]tmdb.Movie, 0, min(len(records), limit))
	for i := range records {
		if _, ok := seen[records[i].ID]; ok {
			continue
		}
		seen[records[i].ID] = struct{}{}
		out = append(out, records[i])
		if len(out) >= limit {
			break
		}
	}
	return out
}

// buildMovie turns one discover record into a catalog row: trailer lookup,
// genre label mapping, tier assignment and a synthetic runtime (discover does
// not return runtimes in bulk).
func (p *Pipeline) buildMovie(ctx context.Context, rec *tmdb.Movie) store.Movie {
	m := store.Movie{
		TMDBID:      rec.ID,
		Title:       rec.Title,
		Genre:       genreLabel(rec.GenreIDs),
		Rating:      rec.VoteAverage,
		ReleaseYear: tmdb.ParseYear(rec.ReleaseDate),
		Duration:    runtimeMin + p.rng.Intn(runtimeMax-runtimeMin+1),
		Tier:        store.TierBasic,
	}
	if p.rng.Float64() < premiumShare {
		m.Tier = store.TierPremium
	}
	if synopsis := strings.TrimSpace(rec.Overview); synopsis != "" {
		m.Synopsis = sql.Null[string]{Valid: true, V: synopsis}
	}
	if poster := tmdb.PosterURL(p.imageBase, rec.PosterPath); poster != "" {
		m.PosterURL = sql.Null[string]{Valid: true, V: poster}
	}
	if trailer := p.lookupTrailer(ctx, rec.ID); trailer != "" {
		m.TrailerURL = sql.Null[string]{Valid: true, V: trailer}
	}
	return m
}

// lookupTrailer picks the first YouTube-hosted entry of type Trailer. Any
// failure or absence leaves the movie without a trailer; that is not an
// error.
func (p *Pipeline) lookupTrailer(ctx context.Context, movieID int64) string {
	videos, err := p.source.Videos(ctx, movieID)
	p.sleep(p.delay)
	if err != nil {
		slog.Warn("trailer lookup failed, leaving unset",
			slog.Int64("tmdb_id", movieID), logger.Error(err))
		return ""
	}
	for _, v := range videos {
		if v.Type == "Trailer" && v.Site == "YouTube" && v.Key != "" {
			return "https://www.youtube.com/watch?v=" + v.Key
		}
	}
	return ""
}

// attachCredits fetches combined credits for every inserted movie and writes
// capped cast and crew rows. Records are joined to inserted rows by TMDB id,
// never by position, so a silently skipped insert cannot shift credits onto
// the wrong movie.
func (p *Pipeline) attachCredits(ctx context.Context, records []tmdb.Movie, byTMDB map[int64]int64, report *Report) {
	for i := range records {
		rec := &records[i]
		movieID, ok := byTMDB[rec.ID]
		if !ok {
			continue
		}

		credits, err := p.source.Credits(ctx, rec.ID)
		p.sleep(p.delay)
		if err != nil {
			slog.Warn("credits fetch failed, skipping movie",
				slog.Int64("tmdb_id", rec.ID), logger.Error(err))
			continue
		}

		castRows := buildCast(movieID, credits.Cast, p.imageBase)
		if n, err := p.store.InsertCastMembers(ctx, castRows); err != nil {
			slog.Warn("cast insert failed", slog.Int64("movie_id", movieID), logger.Error(err))
		} else {
			report.Cast += n
			metricCastInserted.Add(float64(n))
		}

		crewRows := buildCrew(movieID, credits.Crew, p.imageBase)
		if n, err := p.store.InsertCrewMembers(ctx, crewRows); err != nil {
			slog.Warn("crew insert failed", slog.Int64("movie_id", movieID), logger.Error(err))
		} else {
			report.Crew += n
			metricCrewInserted.Add(float64(n))
		}
	}
}

func buildCast(movieID int64, cast []tmdb.CastMember, imageBase string) []store.CastMember {
	sorted := make([]tmdb.CastMember, len(cast))
	copy(sorted, cast)
	slices.SortStableFunc(sorted, func(a, b tmdb.CastMember) int {
		return a.Order - b.Order
	})
	if len(sorted) > castLimit {
		sorted = sorted[:castLimit]
	}

	out := make([]store.CastMember, 0, len(sorted))
	for _, member := range sorted {
		row := store.CastMember{
			MovieID:      movieID,
			TMDBPersonID: member.ID,
			Name:         member.Name,
			Position:     member.Order,
		}
		if member.Character != "" {
			row.Character = sql.Null[string]{Valid: true, V: member.Character}
		}
		if profile := tmdb.PosterURL(imageBase, member.ProfilePath); profile != "" {
			row.ProfileURL = sql.Null[string]{Valid: true, V: profile}
		}
		out = append(out, row)
	}
	return out
}

func buildCrew(movieID int64, crew []tmdb.CrewMember, imageBase string) []store.CrewMember {
	out := make([]store.CrewMember, 0, crewLimit)
	for _, member := range crew {
		if _, ok := crewJobAllowList[member.Job]; !ok {
			continue
		}
		row := store.CrewMember{
			MovieID:      movieID,
			TMDBPersonID: member.ID,
			Name:         member.Name,
			Job:          member.Job,
		}
		if member.Department != "" {
			row.Department = sql.Null[string]{Valid: true, V: member.Department}
		}
		if profile := tmdb.PosterURL(imageBase, member.ProfilePath); profile != "" {
			row.ProfileURL = sql.Null[string]{Valid: true, V: profile}
		}
		out = append(out, row)
		if len(out) >= crewLimit {
			break
		}
	}
	return out
}
