package ioutils

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// jpegQuality is used for every re-encoded cover.
const jpegQuality = 90

// CoverOptions says how a cover is prepared before it is saved or embedded.
type CoverOptions struct {
	// MaxSize bounds both dimensions in pixels. Zero keeps the original size.
	MaxSize int

	// JPEG re-encodes the cover as JPEG even when it is not resized.
	JPEG bool
}

// ImageService prepares downloaded cover art.
//
//	svc := NewImageService()
//	cover, err := svc.Prepare(data, CoverOptions{MaxSize: 500, JPEG: true})
type ImageService struct{}

func NewImageService() *ImageService {
	return &ImageService{}
}

// Prepare applies opts to the encoded image data. When nothing needs to
// change the input is returned untouched.
func (s *ImageService) Prepare(data []byte, opts CoverOptions) ([]byte, error) {
	if opts.MaxSize <= 0 && !opts.JPEG {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	w, h := Fit(bounds.Dx(), bounds.Dy(), opts.MaxSize)
	if w != bounds.Dx() || h != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	} else if !opts.JPEG {
		return data, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fit scales w x h down to fit a box x box square, keeping the aspect
// ratio. Images already inside the square and a box of zero are left alone.
//
//	Fit(1500, 1000, 1000) // 1000, 666
//	Fit(800, 600, 1000)   // 800, 600
func Fit(w, h, box int) (int, int) {
	if box <= 0 || (w <= box && h <= box) || w <= 0 || h <= 0 {
		return w, h
	}
	if w >= h {
		return box, h * box / w
	}
	return w * box / h, box
}
