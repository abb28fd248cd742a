// Package tmdb wraps the TMDB API endpoints used to build the catalog.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const baseURL = "https://api.themoviedb.org/3"

// ErrNoCredentials is returned when neither an API key nor a read token is
// configured. Callers treat this as fatal for a whole ingestion run.
var ErrNoCredentials = errors.New("tmdb: missing API credentials")

type Client struct {
	apiKey    string
	readToken string
	baseURL   string
	http      *http.Client
}

func New(apiKey, readToken string) *Client {
	if strings.TrimSpace(readToken) == "" && looksLikeJWT(apiKey) {
		readToken = apiKey
		apiKey = ""
	}
	return &Client{
		apiKey:    apiKey,
		readToken: readToken,
		baseURL:   baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured reports whether any credential is present at all.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != "" || strings.TrimSpace(c.readToken) != ""
}

// Movie is one record from the discover endpoint.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	GenreIDs    []int   `json:"genre_ids"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
}

type DiscoverPage struct {
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
	Results      []Movie `json:"results"`
}

// DiscoverFilters parameterize the discover endpoint. Zero values are omitted
// from the request.
type DiscoverFilters struct {
	Sort          string // e.g. "popularity.desc", "vote_average.desc"
	MinVotes      int
	ReleasedAfter string // YYYY-MM-DD floor on the primary release date
}

// Discover fetches one page of movies ranked by filters.Sort. Adult content
// is always excluded.
func (c *Client) Discover(ctx context.Context, filters DiscoverFilters, page int) (DiscoverPage, error) {
	if !c.Configured() {
		return DiscoverPage{}, ErrNoCredentials
	}
	if page < 1 {
		page = 1
	}
	values := url.Values{}
	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}
	values.Set("include_adult", "false")
	if filters.Sort != "" {
		values.Set("sort_by", filters.Sort)
	}
	if filters.MinVotes > 0 {
		values.Set("vote_count.gte", strconv.Itoa(filters.MinVotes))
	}
	if filters.ReleasedAfter != "" {
		values.Set("primary_release_date.gte", filters.ReleasedAfter)
	}
	values.Set("page", strconv.Itoa(page))
	endpoint := c.baseURL + "/discover/movie?" + values.Encode()

	var payload DiscoverPage
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return DiscoverPage{}, err
	}
	return payload, nil
}

// Video is one entry from the per-movie video listing.
type Video struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// Videos lists trailers, teasers and clips attached to a movie.
func (c *Client) Videos(ctx context.Context, movieID int64) ([]Video, error) {
	if !c.Configured() {
		return nil, ErrNoCredentials
	}
	values := url.Values{}
	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}
	endpoint := fmt.Sprintf("%s/movie/%d/videos?%s", c.baseURL, movieID, values.Encode())

	var payload struct {
		Results []Video `json:"results"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// CastMember is a single cast entry from the credits endpoint.
type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

// CrewMember is a single crew entry from the credits endpoint.
type CrewMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	Department  string `json:"department"`
	ProfilePath string `json:"profile_path"`
}

type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Credits fetches the combined cast and crew listing for a movie.
func (c *Client) Credits(ctx context.Context, movieID int64) (Credits, error) {
	if !c.Configured() {
		return Credits{}, ErrNoCredentials
	}
	values := url.Values{}
	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}
	endpoint := fmt.Sprintf("%s/movie/%d/credits?%s", c.baseURL, movieID, values.Encode())

	var payload Credits
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return Credits{}, err
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.applyAuth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		statusErr := fmt.Errorf("tmdb request failed: %s", resp.Status)
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(statusErr, cerr)
		}
		return statusErr
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err
	}
	return resp.Body.Close()
}

func (c *Client) applyAuth(req *http.Request) {
	if strings.TrimSpace(c.readToken) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.readToken))
}

func looksLikeJWT(token string) bool {
	parts := strings.Split(strings.TrimSpace(token), ".")
	return len(parts) == 3 && len(token) > 80
}

// PosterURL builds a full image URL from a TMDB poster path, or returns ""
// when the path is absent.
func PosterURL(imageBase, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return strings.TrimRight(imageBase, "/") + "/" + strings.TrimLeft(path, "/")
}

// ParseYear extracts the year from a YYYY-MM-DD release date, or 0.
func ParseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
