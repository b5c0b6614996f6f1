package bandcamp

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/handiism/bandcamp-catalog/internal/cache"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

// SearchFunc is one search branch.
type SearchFunc func(ctx context.Context, query string) ([]model.Item, error)

// Branches are the four independent searches combined by an Aggregator.
type Branches struct {
	General SearchFunc
	Tags    SearchFunc
	Artists SearchFunc
	Fans    SearchFunc
}

type branch int

const (
	branchGeneral branch = iota
	branchTags
	branchArtists
	branchFans
	branchCount
)

var branchNames = [branchCount]string{"general", "tags", "artists", "fans"}

// pending is one query waiting for its branches.
type pending struct {
	mu       sync.Mutex
	query    string
	results  model.SearchResultSet
	reported [branchCount]bool
	count    int
	once     sync.Once
	done     func([]model.Item)
}

// Aggregator runs the four search branches of a query concurrently and
// reports the combined list once all of them have finished.
//
// Queries are tracked per session. A new query on a busy session does not
// cancel the older one; each query still completes exactly once.
//
// Example:
//
//	agg := NewAggregator(branches, searches, nil)
//	agg.Search(ctx, sessionID, "ambient", func(items []model.Item) {
//	    for _, it := range items {
//	        fmt.Println(it.Kind, it.Name())
//	    }
//	})
type Aggregator struct {
	branches [branchCount]SearchFunc
	history  *cache.History[string]
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*pending
}

// NewAggregator creates an Aggregator. history may be nil, in which case
// queries are not recorded.
func NewAggregator(b Branches, history *cache.History[string], logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		branches: [branchCount]SearchFunc{b.General, b.Tags, b.Artists, b.Fans},
		history:  history,
		logger:   logger,
		sessions: make(map[string]*pending),
	}
}

// Search starts the branches for query and returns immediately. done is
// called exactly once, from another goroutine, with the combined items.
func (a *Aggregator) Search(ctx context.Context, session, query string, done func([]model.Item)) {
	p := &pending{query: query, done: done}

	a.mu.Lock()
	a.sessions[session] = p
	a.mu.Unlock()

	for i := range branchCount {
		fn := a.branches[i]
		go func() {
			var items []model.Item
			var err error
			if fn != nil {
				items, err = fn(ctx, query)
			}
			if err != nil {
				a.logger.Warn("Search branch failed", "branch", branchNames[i], "query", query, "error", err)
				items = nil
			}
			a.report(ctx, session, p, i, items)
		}()
	}
}

// Run is the blocking form of Search.
func (a *Aggregator) Run(ctx context.Context, session, query string) []model.Item {
	ch := make(chan []model.Item, 1)
	a.Search(ctx, session, query, func(items []model.Item) { ch <- items })
	return <-ch
}

// Busy reports whether session has a query in flight.
func (a *Aggregator) Busy(session string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.sessions[session]
	return ok
}

func (a *Aggregator) report(ctx context.Context, session string, p *pending, b branch, items []model.Item) {
	p.mu.Lock()
	if p.reported[b] {
		p.mu.Unlock()
		return
	}
	p.reported[b] = true
	p.count++
	switch b {
	case branchGeneral:
		p.results.General = items
	case branchTags:
		p.results.Tags = items
	case branchArtists:
		p.results.Artists = items
	case branchFans:
		p.results.Fans = items
	}
	complete := p.count == int(branchCount)
	results := p.results
	p.mu.Unlock()

	if !complete {
		return
	}

	a.mu.Lock()
	if a.sessions[session] == p {
		delete(a.sessions, session)
	}
	a.mu.Unlock()

	p.once.Do(func() {
		if err := ctx.Err(); err != nil {
			p.done([]model.Item{model.ErrorItem(err.Error())})
			return
		}
		p.done(a.combine(ctx, p.query, results))
	})
}

// combine flattens the branch results: general, artist and fan matches
// first with duplicates removed, then tags sorted by name. When tags are
// present the other entries are labelled with their kind so they can be
// told apart from tags of the same name.
func (a *Aggregator) combine(ctx context.Context, query string, r model.SearchResultSet) []model.Item {
	tagged := len(r.Tags) > 0

	var items []model.Item
	for _, it := range r.General {
		if tagged {
			it = labelled(it, it.Kind.String())
		}
		items = append(items, it)
	}
	for _, it := range r.Artists {
		if tagged {
			it = labelled(it, "artist")
		}
		items = append(items, it)
	}
	items = append(items, r.Fans...)
	items = dedupe(items)

	tags := sortItems(append([]model.Item(nil), r.Tags...))
	items = append(items, tags...)

	if len(items) == 0 {
		return []model.Item{model.EmptyItem()}
	}
	if a.history != nil && strings.TrimSpace(query) != "" {
		a.history.Add(ctx, strings.ToLower(strings.TrimSpace(query)), query)
	}
	return items
}

func labelled(it model.Item, suffix string) model.Item {
	it.Label = it.Name() + " (" + suffix + ")"
	return it
}
