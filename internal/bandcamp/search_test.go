package bandcamp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/handiism/bandcamp-catalog/internal/cache"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedBranch returns a branch that blocks until its gate is closed.
func gatedBranch(gate <-chan struct{}, items []model.Item, err error) SearchFunc {
	return func(ctx context.Context, _ string) ([]model.Item, error) {
		<-gate
		return items, err
	}
}

func fixedBranch(items ...model.Item) SearchFunc {
	return func(context.Context, string) ([]model.Item, error) {
		return items, nil
	}
}

func newHistory(t *testing.T) *cache.History[string] {
	t.Helper()
	return cache.NewHistory[string](context.Background(), cache.New(cache.NewMemoryStore()), cache.KeyRecentSearches, cache.DefaultHistoryLimit)
}

func TestAggregator_GateFiresOnceInAnyOrder(t *testing.T) {
	orders := [][4]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{1, 3, 0, 2},
		{2, 0, 3, 1},
	}

	for _, order := range orders {
		gates := [4]chan struct{}{}
		for i := range gates {
			gates[i] = make(chan struct{})
		}
		agg := NewAggregator(Branches{
			General: gatedBranch(gates[0], []model.Item{model.AlbumItem(model.Album{ID: 1, Title: "Ambient Works"})}, nil),
			Tags:    gatedBranch(gates[1], []model.Item{model.TagItem(model.Tag{Name: "drone"}), model.TagItem(model.Tag{Name: "Ambient"})}, nil),
			Artists: gatedBranch(gates[2], []model.Item{model.ArtistItem(model.NewBand(2, "Ambient Band"))}, nil),
			Fans:    gatedBranch(gates[3], nil, errors.New("fan search down")),
		}, newHistory(t), nil)

		var calls atomic.Int32
		results := make(chan []model.Item, 4)
		agg.Search(context.Background(), "s1", "ambient", func(items []model.Item) {
			calls.Add(1)
			results <- items
		})

		for i, b := range order {
			close(gates[b])
			if i < len(order)-1 {
				select {
				case <-results:
					t.Fatalf("order %v: callback fired after %d branches", order, i+1)
				case <-time.After(10 * time.Millisecond):
				}
			}
		}

		var items []model.Item
		select {
		case items = <-results:
		case <-time.After(2 * time.Second):
			t.Fatalf("order %v: callback never fired", order)
		}
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, int32(1), calls.Load(), "order %v", order)

		require.Len(t, items, 4)
		assert.Equal(t, "Ambient Works (album)", items[0].Name())
		assert.Equal(t, "Ambient Band (artist)", items[1].Name())
		assert.Equal(t, model.KindTag, items[2].Kind)
		assert.Equal(t, "Ambient", items[2].Name())
		assert.Equal(t, "drone", items[3].Name())
		assert.False(t, agg.Busy("s1"))
	}
}

func TestAggregator_NoTagsNoSuffix(t *testing.T) {
	agg := NewAggregator(Branches{
		General: fixedBranch(model.TrackItem(model.Track{ID: 1, Title: "Song"})),
		Tags:    fixedBranch(),
		Artists: fixedBranch(model.ArtistItem(model.NewBand(2, "Band"))),
		Fans:    fixedBranch(model.ArtistItem(model.NewFan(3, "Fan"))),
	}, nil, nil)

	items := agg.Run(context.Background(), "", "song")

	require.Len(t, items, 3)
	assert.Equal(t, "Song", items[0].Name())
	assert.Equal(t, "Band", items[1].Name())
	assert.Equal(t, "Fan", items[2].Name())
}

func TestAggregator_Dedupes(t *testing.T) {
	band := model.ArtistItem(model.NewBand(2, "Band"))
	agg := NewAggregator(Branches{
		General: fixedBranch(band),
		Tags:    fixedBranch(),
		Artists: fixedBranch(band),
		Fans:    fixedBranch(),
	}, nil, nil)

	items := agg.Run(context.Background(), "", "band")
	assert.Len(t, items, 1)
}

func TestAggregator_EmptySearch(t *testing.T) {
	history := newHistory(t)
	agg := NewAggregator(Branches{
		General: fixedBranch(),
		Tags:    fixedBranch(),
		Artists: fixedBranch(),
		Fans:    fixedBranch(),
	}, history, nil)

	items := agg.Run(context.Background(), "", "nothing matches")

	require.Len(t, items, 1)
	assert.Equal(t, model.KindEmpty, items[0].Kind)
	assert.False(t, items[0].Failed())
	assert.Equal(t, 0, history.Len())
}

func TestAggregator_RecordsHistory(t *testing.T) {
	history := newHistory(t)
	agg := NewAggregator(Branches{
		General: fixedBranch(model.AlbumItem(model.Album{ID: 1, Title: "A"})),
		Tags:    fixedBranch(),
		Artists: fixedBranch(),
		Fans:    fixedBranch(),
	}, history, nil)

	agg.Run(context.Background(), "", "first")
	agg.Run(context.Background(), "", "second")
	agg.Run(context.Background(), "", "First")

	assert.Equal(t, []string{"First", "second"}, history.Values())
}

func TestAggregator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	agg := NewAggregator(Branches{
		General: fixedBranch(model.AlbumItem(model.Album{ID: 1, Title: "A"})),
		Tags:    fixedBranch(),
		Artists: fixedBranch(),
		Fans:    fixedBranch(),
	}, nil, nil)

	items := agg.Run(ctx, "", "a")

	require.Len(t, items, 1)
	assert.True(t, items[0].Failed())
}

func TestAggregator_ConcurrentSessions(t *testing.T) {
	agg := NewAggregator(Branches{
		General: func(_ context.Context, q string) ([]model.Item, error) {
			return []model.Item{model.AlbumItem(model.Album{Title: q, URL: "https://x/" + q})}, nil
		},
		Tags:    fixedBranch(),
		Artists: fixedBranch(),
		Fans:    fixedBranch(),
	}, nil, nil)

	results := make(chan []model.Item, 2)
	agg.Search(context.Background(), "a", "one", func(items []model.Item) { results <- items })
	agg.Search(context.Background(), "b", "two", func(items []model.Item) { results <- items })

	got := map[string]bool{}
	for range 2 {
		items := <-results
		require.Len(t, items, 1)
		got[items[0].Name()] = true
	}
	assert.Equal(t, map[string]bool{"one": true, "two": true}, got)
}
