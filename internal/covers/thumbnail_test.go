package covers

import (
	"image/jpeg"
	"os"
	"testing"

	"github.com/mrlokans/bookshelf/internal/renderer/renderertest"
)

func TestSaveThumbnail_Downscales(t *testing.T) {
	cache, _ := NewCache(t.TempDir())

	thumb, err := cache.SaveThumbnail("book-abc", renderertest.JPEG(600, 900))
	if err != nil {
		t.Fatalf("SaveThumbnail failed: %v", err)
	}

	if thumb.Key != "cover_book-abc.jpg" {
		t.Errorf("unexpected key %s", thumb.Key)
	}
	if thumb.Width != ThumbnailWidth || thumb.Height != 450 {
		t.Errorf("expected %dx450, got %dx%d", ThumbnailWidth, thumb.Width, thumb.Height)
	}
	if thumb.BlurHash == "" {
		t.Error("expected a blurhash")
	}

	f, err := os.Open(cache.Path(thumb.Key))
	if err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("thumbnail is not a JPEG: %v", err)
	}
	if cfg.Width != ThumbnailWidth {
		t.Errorf("stored width %d", cfg.Width)
	}
}

func TestSaveThumbnail_SmallImageKeepsSize(t *testing.T) {
	cache, _ := NewCache(t.TempDir())

	thumb, err := cache.SaveThumbnail("book-small", renderertest.JPEG(40, 60))
	if err != nil {
		t.Fatalf("SaveThumbnail failed: %v", err)
	}
	if thumb.Width != 40 || thumb.Height != 60 {
		t.Errorf("expected 40x60, got %dx%d", thumb.Width, thumb.Height)
	}
}

func TestSaveThumbnail_Errors(t *testing.T) {
	cache, _ := NewCache(t.TempDir())

	if _, err := cache.SaveThumbnail("", renderertest.JPEG(10, 10)); err == nil {
		t.Error("expected error for empty book ID")
	}
	if _, err := cache.SaveThumbnail("book-x", []byte("not an image")); err == nil {
		t.Error("expected error for undecodable data")
	}
}

func TestInvalidateCover_RemovesThumbnail(t *testing.T) {
	cache, _ := NewCache(t.TempDir())

	thumb, err := cache.SaveThumbnail("book-gone", renderertest.JPEG(10, 10))
	if err != nil {
		t.Fatalf("SaveThumbnail failed: %v", err)
	}
	if err := cache.InvalidateCover("book-gone"); err != nil {
		t.Fatalf("InvalidateCover failed: %v", err)
	}
	if _, err := os.Stat(cache.Path(thumb.Key)); !os.IsNotExist(err) {
		t.Error("thumbnail should be deleted")
	}
}
