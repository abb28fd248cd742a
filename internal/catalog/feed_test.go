package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailerdeck/trailerdeck/internal/store"
)

// pageOf builds a page of movies with the given ids.
func pageOf(ids ...int64) []store.Movie {
	out := make([]store.Movie, 0, len(ids))
	for _, id := range ids {
		out = append(out, store.Movie{ID: id, Title: "m", Genre: "Drama", Tier: store.TierBasic})
	}
	return out
}

func idRange(from, to int64) []int64 {
	out := make([]int64, 0, to-from+1)
	for id := from; id <= to; id++ {
		out = append(out, id)
	}
	return out
}

func TestFeedLoadsSequentialPages(t *testing.T) {
	ctx := context.Background()

	pages := [][]store.Movie{
		pageOf(idRange(1, 15)...),
		pageOf(idRange(16, 30)...),
		pageOf(idRange(31, 35)...),
	}
	feed := NewFeed(func(_ context.Context, page int) ([]store.Movie, error) {
		require.LessOrEqual(t, page, len(pages))
		return pages[page-1], nil
	})

	added, err := feed.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, added)
	assert.False(t, feed.Done())

	added, err = feed.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, added)

	added, err = feed.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, added)
	assert.True(t, feed.Done(), "a short page marks the end of the data")
	assert.Len(t, feed.Loaded(), 35)
}

func TestFeedDropsDuplicates(t *testing.T) {
	ctx := context.Background()

	// Page 2 overlaps page 1 on ids 11..15, as happens when the backing data
	// shifts between fetches.
	pages := [][]store.Movie{
		pageOf(idRange(1, 15)...),
		pageOf(idRange(11, 25)...),
	}
	feed := NewFeed(func(_ context.Context, page int) ([]store.Movie, error) {
		return pages[page-1], nil
	})

	_, err := feed.LoadMore(ctx)
	require.NoError(t, err)
	added, err := feed.LoadMore(ctx)
	require.NoError(t, err)

	assert.Equal(t, 10, added, "overlapping items must not be re-added")
	loaded := feed.Loaded()
	assert.Len(t, loaded, 25)

	seen := map[int64]struct{}{}
	for i := range loaded {
		_, dup := seen[loaded[i].ID]
		assert.False(t, dup, "duplicate id %d", loaded[i].ID)
		seen[loaded[i].ID] = struct{}{}
	}
}

func TestFeedNoFetchAfterDone(t *testing.T) {
	ctx := context.Background()

	calls := 0
	feed := NewFeed(func(_ context.Context, page int) ([]store.Movie, error) {
		calls++
		return pageOf(1, 2, 3), nil
	})

	_, err := feed.LoadMore(ctx)
	require.NoError(t, err)
	require.True(t, feed.Done())

	for range 5 {
		added, err := feed.LoadMore(ctx)
		require.NoError(t, err)
		assert.Zero(t, added)
	}
	assert.Equal(t, 1, calls, "an exhausted feed must not fetch again")
}

func TestFeedSuppressesConcurrentFetch(t *testing.T) {
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	var mu sync.Mutex

	feed := NewFeed(func(_ context.Context, page int) ([]store.Movie, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(entered)
		<-release
		return pageOf(idRange(1, 15)...), nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = feed.LoadMore(ctx)
	}()

	<-entered
	// A second call while the first fetch is outstanding must be a silent
	// no-op rather than a double fetch.
	added, err := feed.LoadMore(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)

	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.Len(t, feed.Loaded(), 15)
}

func TestFeedRetriesFailedPage(t *testing.T) {
	ctx := context.Background()

	var pagesAsked []int
	fail := true
	feed := NewFeed(func(_ context.Context, page int) ([]store.Movie, error) {
		pagesAsked = append(pagesAsked, page)
		if fail {
			fail = false
			return nil, errors.New("upstream hiccup")
		}
		return pageOf(1, 2, 3), nil
	})

	_, err := feed.LoadMore(ctx)
	require.Error(t, err)
	assert.Empty(t, feed.Loaded(), "a failed fetch must leave the loaded set untouched")

	added, err := feed.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.Equal(t, []int{1, 1}, pagesAsked, "the failed page is retried, not skipped")
}

func TestNearBottom(t *testing.T) {
	cases := []struct {
		name                                string
		scrollTop, viewportHeight, contentH int
		want                                bool
	}{
		{"far from bottom", 0, 800, 10000, false},
		{"exactly at threshold", 8200, 800, 10000, true},
		{"inside threshold", 8500, 800, 10000, true},
		{"at the very bottom", 9200, 800, 10000, true},
		{"content fits viewport", 0, 800, 600, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NearBottom(tc.scrollTop, tc.viewportHeight, tc.contentH))
		})
	}
}
