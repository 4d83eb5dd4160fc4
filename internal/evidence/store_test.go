package evidence

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func TestSaveWritesJPEG(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "cache"), 1280)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ref, err := store.Save(encodePNG(t, 64, 48), "S100")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(ref), "S100_") || !strings.HasSuffix(ref, ".jpg") {
		t.Errorf("unexpected evidence reference %q", ref)
	}

	data, err := os.ReadFile(filepath.Join(dir, ref))
	if err != nil {
		t.Fatalf("reading saved evidence: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("saved evidence is not a valid JPEG: %v", err)
	}
}

func TestSaveGeneratesKeyWhenEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir(), 1280)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ref, err := store.Save(encodePNG(t, 10, 10), "")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if strings.HasPrefix(filepath.Base(ref), "_") {
		t.Errorf("expected generated key, got %q", ref)
	}
}

func TestSaveBoundsLargeImages(t *testing.T) {
	store, err := NewStore(t.TempDir(), 100)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ref, err := store.Save(encodePNG(t, 400, 200), "S100")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(store.dir), ref))
	if err != nil {
		t.Fatalf("reading saved evidence: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding saved evidence: %v", err)
	}
	if w := img.Bounds().Dx(); w != 100 {
		t.Errorf("expected width bounded to 100, got %d", w)
	}
	if h := img.Bounds().Dy(); h != 50 {
		t.Errorf("expected height scaled to 50, got %d", h)
	}
}

func TestSaveRejectsGarbage(t *testing.T) {
	store, err := NewStore(t.TempDir(), 1280)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if _, err := store.Save([]byte("not an image"), "S100"); err == nil {
		t.Error("expected error for undecodable data")
	}
}
