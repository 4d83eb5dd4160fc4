// Package evidence archives the captured frame behind each verification
// attempt so a disputed attendance row can be audited later.
package evidence

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const timestampLayout = "20060102_150405"

// Store writes evidence images to a local directory. Frames larger than
// maxSize on either axis are scaled down before writing so a misbehaving
// client cannot fill the disk with raw camera output.
type Store struct {
	dir     string
	maxSize int
}

// NewStore creates the evidence directory if missing.
func NewStore(dir string, maxSize int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating evidence dir %s: %w", dir, err)
	}
	return &Store{dir: dir, maxSize: maxSize}, nil
}

// Save writes the frame as JPEG and returns a path relative to the store
// root, suitable for the attendance record's image reference. The key is
// usually the matric number; when the attempt matched nobody a random key
// is generated so the frame is still kept.
func (s *Store) Save(imageData []byte, key string) (string, error) {
	if key == "" {
		key = uuid.NewString()
	}

	encoded, err := boundedJPEG(imageData, s.maxSize)
	if err != nil {
		return "", fmt.Errorf("preparing evidence image: %w", err)
	}

	name := fmt.Sprintf("%s_%s.jpg", key, time.Now().Format(timestampLayout))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return "", fmt.Errorf("writing evidence image: %w", err)
	}
	return filepath.Join(filepath.Base(s.dir), name), nil
}

// boundedJPEG re-encodes the image as JPEG, scaling it down to fit within
// maxSize while keeping aspect ratio.
func boundedJPEG(data []byte, maxSize int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSize && height <= maxSize {
		if format == "jpeg" {
			return data, nil
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}
		return buf.Bytes(), nil
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
