// Package store provides SQLite persistence for the catalog and user data.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

// Movie access tiers. The catalog never stores any other value.
const (
	TierBasic   = "Basic"
	TierPremium = "Premium"
)

type Store struct {
	sqldb *sql.DB
	db    *bun.DB
}

type Movie struct {
	bun.BaseModel `bun:"table:movies,alias:m"`

	ID          int64            `bun:"id,pk,autoincrement"`
	TMDBID      int64            `bun:"tmdb_id,notnull"`
	Title       string           `bun:"title,notnull"`
	Synopsis    sql.Null[string] `bun:"synopsis,nullzero"`
	Genre       string           `bun:"genre,notnull"`
	Rating      float64          `bun:"rating,notnull"`
	ReleaseYear int              `bun:"release_year,notnull"`
	Duration    int              `bun:"duration,notnull"`
	PosterURL   sql.Null[string] `bun:"poster_url,nullzero"`
	TrailerURL  sql.Null[string] `bun:"trailer_url,nullzero"`
	Tier        string           `bun:"tier,notnull"`

	CreatedAt string `bun:"created_at,notnull"`
	UpdatedAt string `bun:"updated_at,notnull"`
}

type CastMember struct {
	bun.BaseModel `bun:"table:cast_members,alias:cm"`

	ID           int64            `bun:"id,pk,autoincrement"`
	MovieID      int64            `bun:"movie_id,notnull"`
	TMDBPersonID int64            `bun:"tmdb_person_id,notnull"`
	Name         string           `bun:"name,notnull"`
	Character    sql.Null[string] `bun:"character,nullzero"`
	ProfileURL   sql.Null[string] `bun:"profile_url,nullzero"`
	Position     int              `bun:"position,notnull"`
}

type CrewMember struct {
	bun.BaseModel `bun:"table:crew_members,alias:cw"`

	ID           int64            `bun:"id,pk,autoincrement"`
	MovieID      int64            `bun:"movie_id,notnull"`
	TMDBPersonID int64            `bun:"tmdb_person_id,notnull"`
	Name         string           `bun:"name,notnull"`
	Job          string           `bun:"job,notnull"`
	Department   sql.Null[string] `bun:"department,nullzero"`
	ProfileURL   sql.Null[string] `bun:"profile_url,nullzero"`
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("DB_PATH is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := sqldb.PingContext(ctx); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("ping db: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	if _, err := sqldb.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("enable foreign keys: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	if err := initSchema(ctx, sqldb); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("init schema: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	bdb := bun.NewDB(sqldb, sqlitedialect.New())
	return &Store{sqldb: sqldb, db: bdb}, nil
}

func (s *Store) Close() error { return s.sqldb.Close() }

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS movies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tmdb_id INTEGER NOT NULL UNIQUE,
	title TEXT NOT NULL,
	synopsis TEXT,
	genre TEXT NOT NULL,
	rating REAL NOT NULL DEFAULT 0,
	release_year INTEGER NOT NULL DEFAULT 0,
	duration INTEGER NOT NULL DEFAULT 0,
	poster_url TEXT,
	trailer_url TEXT,
	tier TEXT NOT NULL CHECK (tier IN ('Basic', 'Premium')),
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_movies_genre ON movies(genre);
CREATE INDEX IF NOT EXISTS idx_movies_year ON movies(release_year);

CREATE TABLE IF NOT EXISTS cast_members (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
	tmdb_person_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	character TEXT,
	profile_url TEXT,
	position INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_cast_movie ON cast_members(movie_id);

CREATE TABLE IF NOT EXISTS crew_members (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
	tmdb_person_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	job TEXT NOT NULL,
	department TEXT,
	profile_url TEXT
);
CREATE INDEX IF NOT EXISTS idx_crew_movie ON crew_members(movie_id);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
	user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	tier TEXT NOT NULL CHECK (tier IN ('Basic', 'Premium')),
	stripe_customer_id TEXT,
	stripe_subscription_id TEXT,
	status TEXT NOT NULL DEFAULT 'active',
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_ratings (
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
	rating INTEGER NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (user_id, movie_id)
);

CREATE TABLE IF NOT EXISTS watchlist_items (
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
	created_at TEXT NOT NULL,
	PRIMARY KEY (user_id, movie_id)
);

CREATE TABLE IF NOT EXISTS watch_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
	watched_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_user ON watch_history(user_id);

CREATE TABLE IF NOT EXISTS webhook_events (
	event_id TEXT PRIMARY KEY,
	processed_at TEXT NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// ReplaceCatalog destroys the entire catalog and all dependent rows, then
// bulk-inserts the given movies, all in one transaction. Dependents are
// removed first to satisfy foreign keys. It returns a tmdb_id -> row id map
// so callers can attach credits by external identifier instead of relying on
// insert order.
func (s *Store) ReplaceCatalog(ctx context.Context, movies []Movie) (map[int64]int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, table := range []string{
			"cast_members", "crew_members", "user_ratings", "watch_history", "watchlist_items", "movies",
		} {
			if _, err := tx.NewDelete().Table(table).Where("1 = 1").Exec(ctx); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		if len(movies) == 0 {
			return nil
		}

		rows := make([]Movie, len(movies))
		copy(rows, movies)
		for i := range rows {
			rows[i].ID = 0
			rows[i].CreatedAt = now
			rows[i].UpdatedAt = now
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert movies: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var refs []struct {
		ID     int64 `bun:"id"`
		TMDBID int64 `bun:"tmdb_id"`
	}
	if err := s.db.NewSelect().Table("movies").Column("id", "tmdb_id").Scan(ctx, &refs); err != nil {
		return nil, err
	}
	byTMDB := make(map[int64]int64, len(refs))
	for _, ref := range refs {
		byTMDB[ref.TMDBID] = ref.ID
	}
	return byTMDB, nil
}

// InsertCastMembers bulk-inserts cast rows and reports how many were written.
func (s *Store) InsertCastMembers(ctx context.Context, members []CastMember) (int, error) {
	if len(members) == 0 {
		return 0, nil
	}
	res, err := s.db.NewInsert().Model(&members).Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(members), nil //nolint:nilerr // driver without RowsAffected support
	}
	return int(n), nil
}

// InsertCrewMembers bulk-inserts crew rows and reports how many were written.
func (s *Store) InsertCrewMembers(ctx context.Context, members []CrewMember) (int, error) {
	if len(members) == 0 {
		return 0, nil
	}
	res, err := s.db.NewInsert().Model(&members).Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(members), nil //nolint:nilerr
	}
	return int(n), nil
}

// movieOrderColumns whitelists the fields a paginated read may order by.
var movieOrderColumns = map[string]string{
	"title":        "title COLLATE NOCASE",
	"release_year": "release_year",
	"rating":       "rating",
	"duration":     "duration",
	"created_at":   "created_at",
}

// ListMoviesPage returns one fixed-size page of the catalog ordered by the
// given field. Unknown order fields fall back to creation time. Page numbers
// start at 1.
func (s *Store) ListMoviesPage(ctx context.Context, page, perPage int, orderBy string, descending bool) ([]Movie, error) {
	if page < 1 {
		page = 1
	}
	col, ok := movieOrderColumns[orderBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if descending {
		dir = "DESC"
	}

	out := []Movie{}
	err := s.db.NewSelect().
		Model(&out).
		OrderExpr(col + " " + dir).
		OrderExpr("id ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Scan(ctx)
	return out, err
}

func (s *Store) CountMovies(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Movie)(nil)).Count(ctx)
}

func (s *Store) GetMovie(ctx context.Context, id int64) (Movie, error) {
	var m Movie
	err := s.db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	return m, err
}

// CastForMovie returns up to limit cast entries in display order.
func (s *Store) CastForMovie(ctx context.Context, movieID int64, limit int) ([]CastMember, error) {
	out := []CastMember{}
	q := s.db.NewSelect().
		Model(&out).
		Where("movie_id = ?", movieID).
		OrderExpr("position ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(ctx)
	return out, err
}

func (s *Store) CrewForMovie(ctx context.Context, movieID int64) ([]CrewMember, error) {
	out := []CrewMember{}
	err := s.db.NewSelect().
		Model(&out).
		Where("movie_id = ?", movieID).
		OrderExpr("id ASC").
		Scan(ctx)
	return out, err
}

// ListGenres returns the distinct genre labels present in the catalog,
// alphabetically.
func (s *Store) ListGenres(ctx context.Context) ([]string, error) {
	out := []string{}
	err := s.db.NewSelect().
		Table("movies").
		ColumnExpr("DISTINCT genre").
		OrderExpr("genre COLLATE NOCASE ASC").
		Scan(ctx, &out)
	return out, err
}

func expectRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
