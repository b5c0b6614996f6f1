package bandcamp

import (
	"context"
	"maps"
	"net/url"
	"strconv"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/bandcamp-catalog/internal/bandcamp/dto"
	"github.com/handiism/bandcamp-catalog/internal/cache"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

// trackInfoBatch is how many ids one track info call carries.
const trackInfoBatch = 10

const trackInfoWorkers = 4

// WeeklyShows lists Bandcamp Weekly shows, newest first.
func (a *API) WeeklyShows(ctx context.Context) ([]model.Show, error) {
	body, err := a.get(ctx, call{
		path:  "/api/bcweekly/3/list",
		class: cache.Short,
		noKey: true,
	})
	if err != nil {
		return nil, err
	}
	var shows []model.Show
	for _, r := range body.Get("results").Array() {
		shows = append(shows, dto.ParseShow(r))
	}
	return shows, nil
}

// WeeklyShow returns a show with its track list. The show endpoint omits
// stream URLs, so they are filled in from track info, trackInfoBatch ids
// per call with up to trackInfoWorkers calls in flight.
func (a *API) WeeklyShow(ctx context.Context, showID int64) (model.Show, error) {
	body, err := a.get(ctx, call{
		path:   "/api/bcweekly/3/get",
		params: url.Values{"id": {strconv.FormatInt(showID, 10)}},
		class:  cache.Long,
		noKey:  true,
	})
	if err != nil {
		return model.Show{}, err
	}

	show := dto.ParseShow(body)
	if show.ID == 0 {
		show.ID = showID
	}
	for _, r := range body.Get("tracks").Array() {
		album := dto.ParseItemAlbum(r)
		show.Tracks = append(show.Tracks, a.norm.Normalize(ctx, r, &album))
	}

	missing := lo.FilterMap(show.Tracks, func(t model.Track, _ int) (int64, bool) {
		return t.ID, !t.Streamable() && t.ID != 0
	})

	var mu sync.Mutex
	info := make(map[string]model.Track)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(trackInfoWorkers)
	for _, batch := range lo.Chunk(missing, trackInfoBatch) {
		g.Go(func() error {
			tracks, err := a.TrackInfo(gctx, batch...)
			if err != nil {
				a.logger.Warn("Track info batch failed", "show", showID, "error", err)
				return nil
			}
			mu.Lock()
			maps.Copy(info, tracks)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i, t := range show.Tracks {
		full, ok := info[TrackKey(t)]
		if !ok {
			continue
		}
		merged, err := model.MergeTrack(t, full)
		if err != nil {
			a.logger.Warn("Failed to merge track info", "show", showID, "error", err)
		}
		show.Tracks[i] = a.norm.NormalizeTrack(ctx, merged, nil)
	}
	return show, nil
}
