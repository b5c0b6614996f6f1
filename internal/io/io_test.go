package ioutils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Song: Part 1/2", "Song_ Part 1_2"},
		{"Track...", "Track"},
		{"Name   with  spaces ", "Name with spaces"},
		{`a<b>c"d|e?f*g\h`, "a_b_c_d_e_f_g_h"},
		{"tab\there", "tab_here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFileName(tt.in), tt.in)
	}
}

func TestExpand(t *testing.T) {
	got := Expand("/music/{artist}/{album}/{tracknum} {title}.mp3 {unknown}", map[string]string{
		"artist":   "AC/DC",
		"album":    "Live...",
		"tracknum": "01",
		"title":    "Thunder?",
	})
	assert.Equal(t, "/music/AC_DC/Live/01 Thunder_.mp3 {unknown}", got)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "list.m3u")
	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, max     int
		wantW, wantH int
	}{
		{1500, 1000, 1000, 1000, 666},
		{1000, 1500, 1000, 666, 1000},
		{800, 600, 1000, 800, 600},
		{800, 600, 0, 800, 600},
		{1200, 1200, 500, 500, 500},
	}
	for _, tt := range tests {
		w, h := Fit(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageService_Prepare(t *testing.T) {
	svc := NewImageService()
	src := testPNG(t, 40, 20)

	same, err := svc.Prepare(src, CoverOptions{})
	require.NoError(t, err)
	assert.Equal(t, src, same)

	small, err := svc.Prepare(src, CoverOptions{MaxSize: 10})
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(small))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)

	converted, err := svc.Prepare(src, CoverOptions{MaxSize: 100, JPEG: true})
	require.NoError(t, err)
	cfg, err = jpeg.DecodeConfig(bytes.NewReader(converted))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)

	untouched, err := svc.Prepare(src, CoverOptions{MaxSize: 100})
	require.NoError(t, err)
	assert.Equal(t, src, untouched)

	_, err = svc.Prepare([]byte("not an image"), CoverOptions{JPEG: true})
	assert.Error(t, err)
}
