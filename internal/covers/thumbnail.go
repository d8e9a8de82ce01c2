package covers

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// ThumbnailWidth bounds the stored cover; height follows the aspect ratio.
	ThumbnailWidth = 300
	// ThumbnailQuality is the JPEG quality of stored thumbnails.
	ThumbnailQuality = 50

	blurHashSize = 64
)

// Thumbnail is a stored cover.
type Thumbnail struct {
	Key      string // Cache key, stored as Book.Cover
	BlurHash string
	Width    int
	Height   int
}

// SaveThumbnail decodes an embedded cover, scales it down, stores it as
// JPEG under "cover_<bookID>.jpg" and computes its BlurHash.
func (c *Cache) SaveThumbnail(bookID string, data []byte) (Thumbnail, error) {
	if bookID == "" {
		return Thumbnail{}, fmt.Errorf("book ID cannot be empty")
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Thumbnail{}, fmt.Errorf("decode cover: %w", err)
	}

	thumb := downscale(src, ThumbnailWidth, 0)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: ThumbnailQuality}); err != nil {
		return Thumbnail{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	key := "cover_" + bookID + ".jpg"
	if err := c.writeAtomic(c.Path(key), &buf); err != nil {
		return Thumbnail{}, fmt.Errorf("write thumbnail: %w", err)
	}

	// 4 horizontal, 3 vertical components - sweet spot for book covers
	hash, err := blurhash.Encode(4, 3, downscale(thumb, blurHashSize, blurHashSize))
	if err != nil {
		return Thumbnail{}, fmt.Errorf("encode blurhash: %w", err)
	}

	b := thumb.Bounds()
	return Thumbnail{Key: key, BlurHash: hash, Width: b.Dx(), Height: b.Dy()}, nil
}

// downscale fits src inside maxW x maxH (0 means unbounded), never upscaling.
func downscale(src image.Image, maxW, maxH int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && float64(h)*scale > float64(maxH) {
		scale = float64(maxH) / float64(h)
	}
	if scale >= 1 {
		return src
	}

	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
