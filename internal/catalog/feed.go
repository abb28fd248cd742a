package catalog

import (
	"context"
	"sync"

	"github.com/trailerdeck/trailerdeck/internal/store"
)

// PageSize is the fixed number of items fetched from the backing store per
// page. A shorter page marks the end of the data.
const PageSize = 15

// LoadMoreThreshold is how close (in scroll units) the viewport bottom must
// get to the content bottom before another page load fires.
const LoadMoreThreshold = 1000

// PageFunc fetches one page of the catalog, 1-based.
type PageFunc func(ctx context.Context, page int) ([]store.Movie, error)

// Feed manages incremental loading of the catalog: it appends pages to the
// loaded set, drops duplicates by identity, detects end-of-data and allows at
// most one outstanding fetch at a time.
type Feed struct {
	fetch    PageFunc
	pageSize int

	mu       sync.Mutex
	loaded   []store.Movie
	seen     map[int64]struct{}
	nextPage int
	done     bool
	inFlight bool
}

func NewFeed(fetch PageFunc) *Feed {
	return &Feed{
		fetch:    fetch,
		pageSize: PageSize,
		seen:     make(map[int64]struct{}),
		nextPage: 1,
	}
}

// LoadMore fetches and appends the next page. It is a no-op when the feed is
// exhausted or a fetch is already outstanding. It returns how many new items
// were appended; items already loaded are skipped, so the loaded set never
// holds two movies with the same id. A failed fetch leaves the loaded set
// untouched and the page will be retried on the next call.
func (f *Feed) LoadMore(ctx context.Context) (int, error) {
	f.mu.Lock()
	if f.done || f.inFlight {
		f.mu.Unlock()
		return 0, nil
	}
	f.inFlight = true
	page := f.nextPage
	f.mu.Unlock()

	items, err := f.fetch(ctx, page)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if err != nil {
		return 0, err
	}

	added := 0
	for i := range items {
		if _, ok := f.seen[items[i].ID]; ok {
			continue
		}
		f.seen[items[i].ID] = struct{}{}
		f.loaded = append(f.loaded, items[i])
		added++
	}
	if len(items) < f.pageSize {
		f.done = true
	}
	f.nextPage = page + 1
	return added, nil
}

// Loaded returns a copy of the currently loaded set.
func (f *Feed) Loaded() []store.Movie {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Movie, len(f.loaded))
	copy(out, f.loaded)
	return out
}

// Done reports whether a short page has marked the end of the data.
func (f *Feed) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// NearBottom reports whether the scroll position has come within
// LoadMoreThreshold units of the bottom of the rendered content.
func NearBottom(scrollTop, viewportHeight, contentHeight int) bool {
	return contentHeight-(scrollTop+viewportHeight) <= LoadMoreThreshold
}
