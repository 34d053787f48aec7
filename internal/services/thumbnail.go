package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	ThumbnailSize    = 300
	ThumbnailQuality = 80
	ImageQuality     = 92
)

// RenderedImage is a generated image re-encoded as JPEG plus its thumbnail.
type RenderedImage struct {
	Full      []byte
	Thumbnail []byte
	Width     int
	Height    int
}

// RenderImage decodes the generator's output (PNG, JPEG or WebP) and produces
// the stored JPEG and a square cover-cropped thumbnail.
func RenderImage(raw []byte) (*RenderedImage, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode generated image: %w", err)
	}

	full, err := encodeJPEG(src, ImageQuality)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	thumb, err := encodeJPEG(CoverCrop(src, ThumbnailSize, ThumbnailSize), ThumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	b := src.Bounds()
	return &RenderedImage{Full: full, Thumbnail: thumb, Width: b.Dx(), Height: b.Dy()}, nil
}

// CoverCrop scales src to fill w x h and crops the overflow around the centre.
func CoverCrop(src image.Image, w, h int) image.Image {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}

	// Largest centred region of src with the target aspect ratio.
	cropW, cropH := sw, sw*h/w
	if cropH > sh {
		cropW, cropH = sh*w/h, sh
	}
	x0 := sb.Min.X + (sw-cropW)/2
	y0 := sb.Min.Y + (sh-cropH)/2
	crop := image.Rect(x0, y0, x0+cropW, y0+cropH)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
