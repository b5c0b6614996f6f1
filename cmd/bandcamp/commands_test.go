package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/bandcamp-catalog/internal/bandcamp"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

func TestRequestParsers(t *testing.T) {
	tests := []struct {
		name    string
		parse   func([]string) (bandcamp.Request, error)
		args    []string
		want    bandcamp.Request
		wantErr bool
	}{
		{"id", idRequest, []string{"42"}, bandcamp.Request{ID: 42}, false},
		{"id not a number", idRequest, []string{"x"}, bandcamp.Request{}, true},
		{"id missing", idRequest, nil, bandcamp.Request{}, true},
		{"url", urlRequest, []string{"https://a.bandcamp.com"}, bandcamp.Request{URL: "https://a.bandcamp.com"}, false},
		{"url without scheme", urlRequest, []string{"a.bandcamp.com"}, bandcamp.Request{}, true},
		{"slug", slugRequest, []string{"ambient"}, bandcamp.Request{Slug: "ambient"}, false},
		{"fan default", fanRequest, nil, bandcamp.Request{}, false},
		{"fan section", fanRequest, []string{"jane", "wishlist"}, bandcamp.Request{Handle: "jane", Section: "wishlist"}, false},
		{"page token", pageRequest, []string{"jane", "tok"}, bandcamp.Request{Handle: "jane", Token: "tok"}, false},
		{"page too many", pageRequest, []string{"a", "b", "c"}, bandcamp.Request{}, true},
		{"no args", noArgs, []string{"extra"}, bandcamp.Request{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchRequest(t *testing.T) {
	req, err := searchRequest([]string{"boards", "of", "canada"})
	require.NoError(t, err)
	assert.Equal(t, "boards of canada", req.Query)
	assert.NotEmpty(t, req.Session)

	_, err = searchRequest([]string{" "})
	assert.ErrorIs(t, err, errUsage)
}

func TestAwait(t *testing.T) {
	fn := func(_ context.Context, req bandcamp.Request, cb bandcamp.Callback) {
		go cb([]model.Item{model.QueryItem(req.Query)})
	}
	items, err := await(context.Background(), fn, bandcamp.Request{Query: "q"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.KindQuery, items[0].Kind)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = await(ctx, func(context.Context, bandcamp.Request, bandcamp.Callback) {}, bandcamp.Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrintItems(t *testing.T) {
	items := []model.Item{
		model.AlbumItem(model.Album{Title: "Geogaddi", URL: "https://boc.bandcamp.com/album/geogaddi"}),
		model.InvalidIdentityItem(),
	}

	var buf bytes.Buffer
	require.NoError(t, printItems(&buf, items, false))
	assert.Contains(t, buf.String(), "https://boc.bandcamp.com/album/geogaddi")
	assert.Contains(t, buf.String(), "bandcamp login")

	buf.Reset()
	require.NoError(t, printItems(&buf, nil, true))
	assert.Equal(t, "[]\n", buf.String())
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".m3u", extension("out/list.M3U"))
	assert.Equal(t, "", extension("dir.d/list"))
	assert.Equal(t, "", extension("list"))
}

func TestCommandsHaveUsage(t *testing.T) {
	for _, name := range commandNames() {
		assert.NotEmpty(t, commands[name].usage, name)
		assert.NotNil(t, commands[name].run, name)
	}
}
