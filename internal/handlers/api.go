package handlers

import (
	"github.com/trailerdeck/trailerdeck/internal/store"
)

// Wire types for the JSON API.

type ErrorResponse struct {
	Error string `json:"error"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
	User      UserInfo `json:"user"`
}

type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Tier  string `json:"tier"`
}

type MovieJSON struct {
	ID          int64   `json:"id"`
	TMDBID      int64   `json:"tmdb_id"`
	Title       string  `json:"title"`
	Synopsis    *string `json:"synopsis,omitempty"`
	Genre       string  `json:"genre"`
	Rating      float64 `json:"rating"`
	ReleaseYear int     `json:"release_year"`
	Duration    int     `json:"duration"`
	PosterURL   *string `json:"poster_url,omitempty"`
	TrailerURL  *string `json:"trailer_url,omitempty"`
	Tier        string  `json:"tier"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type MovieListResponse struct {
	Movies  []MovieJSON `json:"movies"`
	Page    int         `json:"page"`
	HasMore bool        `json:"has_more"`
}

type CastJSON struct {
	PersonID   int64   `json:"person_id"`
	Name       string  `json:"name"`
	Character  *string `json:"character,omitempty"`
	ProfileURL *string `json:"profile_url,omitempty"`
	Position   int     `json:"position"`
}

type CrewJSON struct {
	PersonID   int64   `json:"person_id"`
	Name       string  `json:"name"`
	Job        string  `json:"job"`
	Department *string `json:"department,omitempty"`
	ProfileURL *string `json:"profile_url,omitempty"`
}

type MovieDetailResponse struct {
	Movie       MovieJSON  `json:"movie"`
	Cast        []CastJSON `json:"cast"`
	Crew        []CrewJSON `json:"crew"`
	Locked      bool       `json:"locked"`
	InWatchlist bool       `json:"in_watchlist"`
	UserRating  *int       `json:"user_rating,omitempty"`
}

type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

type RecentSearchesResponse struct {
	Searches []string `json:"searches"`
}

type RecordSearchRequest struct {
	Term string `json:"term"`
}

type RateRequest struct {
	Rating int `json:"rating"`
}

type IngestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Movies  int    `json:"movies"`
	Cast    int    `json:"cast"`
	Crew    int    `json:"crew"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type SubscriptionResponse struct {
	Tier   string `json:"tier"`
	Status string `json:"status"`
}

func toMovieJSON(m *store.Movie) MovieJSON {
	return MovieJSON{
		ID:          m.ID,
		TMDBID:      m.TMDBID,
		Title:       m.Title,
		Synopsis:    fromSQLNull(m.Synopsis),
		Genre:       m.Genre,
		Rating:      m.Rating,
		ReleaseYear: m.ReleaseYear,
		Duration:    m.Duration,
		PosterURL:   fromSQLNull(m.PosterURL),
		TrailerURL:  fromSQLNull(m.TrailerURL),
		Tier:        m.Tier,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toMovieList(movies []store.Movie) []MovieJSON {
	out := make([]MovieJSON, 0, len(movies))
	for i := range movies {
		out = append(out, toMovieJSON(&movies[i]))
	}
	return out
}

func toCastJSON(members []store.CastMember) []CastJSON {
	out := make([]CastJSON, 0, len(members))
	for _, m := range members {
		out = append(out, CastJSON{
			PersonID:   m.TMDBPersonID,
			Name:       m.Name,
			Character:  fromSQLNull(m.Character),
			ProfileURL: fromSQLNull(m.ProfileURL),
			Position:   m.Position,
		})
	}
	return out
}

func toCrewJSON(members []store.CrewMember) []CrewJSON {
	out := make([]CrewJSON, 0, len(members))
	for _, m := range members {
		out = append(out, CrewJSON{
			PersonID:   m.TMDBPersonID,
			Name:       m.Name,
			Job:        m.Job,
			Department: fromSQLNull(m.Department),
			ProfileURL: fromSQLNull(m.ProfileURL),
		})
	}
	return out
}
