package store

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type UserRating struct {
	bun.BaseModel `bun:"table:user_ratings,alias:ur"`

	UserID    string `bun:"user_id,pk"`
	MovieID   int64  `bun:"movie_id,pk"`
	Rating    int    `bun:"rating,notnull"`
	UpdatedAt string `bun:"updated_at,notnull"`
}

type WatchlistItem struct {
	bun.BaseModel `bun:"table:watchlist_items,alias:wl"`

	UserID    string `bun:"user_id,pk"`
	MovieID   int64  `bun:"movie_id,pk"`
	CreatedAt string `bun:"created_at,notnull"`
}

type WatchEvent struct {
	bun.BaseModel `bun:"table:watch_history,alias:wh"`

	ID        int64  `bun:"id,pk,autoincrement"`
	UserID    string `bun:"user_id,notnull"`
	MovieID   int64  `bun:"movie_id,notnull"`
	WatchedAt string `bun:"watched_at,notnull"`
}

func (s *Store) UpsertRating(ctx context.Context, userID string, movieID int64, rating int) error {
	row := UserRating{
		UserID:    userID,
		MovieID:   movieID,
		Rating:    rating,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (user_id, movie_id) DO UPDATE").
		Set("rating = EXCLUDED.rating").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) DeleteRating(ctx context.Context, userID string, movieID int64) error {
	res, err := s.db.NewDelete().
		Table("user_ratings").
		Where("user_id = ?", userID).
		Where("movie_id = ?", movieID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRowsAffected(res)
}

// RatingsForUser returns the user's ratings keyed by movie id.
func (s *Store) RatingsForUser(ctx context.Context, userID string) (map[int64]int, error) {
	rows := []UserRating{}
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		out[row.MovieID] = row.Rating
	}
	return out, nil
}

// AddToWatchlist is idempotent: adding a movie twice keeps a single entry.
func (s *Store) AddToWatchlist(ctx context.Context, userID string, movieID int64) error {
	row := WatchlistItem{
		UserID:    userID,
		MovieID:   movieID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (user_id, movie_id) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) RemoveFromWatchlist(ctx context.Context, userID string, movieID int64) error {
	res, err := s.db.NewDelete().
		Table("watchlist_items").
		Where("user_id = ?", userID).
		Where("movie_id = ?", movieID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRowsAffected(res)
}

// ListWatchlist returns the user's watchlist movies, most recently added
// first.
func (s *Store) ListWatchlist(ctx context.Context, userID string) ([]Movie, error) {
	out := []Movie{}
	err := s.db.NewSelect().
		Model(&out).
		Join("JOIN watchlist_items AS wl ON wl.movie_id = m.id").
		Where("wl.user_id = ?", userID).
		OrderExpr("wl.created_at DESC").
		Scan(ctx)
	return out, err
}

func (s *Store) InWatchlist(ctx context.Context, userID string, movieID int64) (bool, error) {
	n, err := s.db.NewSelect().
		Table("watchlist_items").
		Where("user_id = ?", userID).
		Where("movie_id = ?", movieID).
		Count(ctx)
	return n > 0, err
}

func (s *Store) RecordWatch(ctx context.Context, userID string, movieID int64) error {
	row := WatchEvent{
		UserID:    userID,
		MovieID:   movieID,
		WatchedAt: time.Now().UTC().Format(time.RFC3339),
	}
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	return err
}

// ListHistory returns the user's most recent watch events with the movie rows
// joined in, newest first.
func (s *Store) ListHistory(ctx context.Context, userID string, limit int) ([]Movie, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []Movie{}
	err := s.db.NewSelect().
		Model(&out).
		Join("JOIN watch_history AS wh ON wh.movie_id = m.id").
		Where("wh.user_id = ?", userID).
		OrderExpr("wh.watched_at DESC").
		Limit(limit).
		Scan(ctx)
	return out, err
}
