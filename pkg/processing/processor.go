// Package processing prepares site photographs for the vision model:
// validity checks before dispatch, decoding with WebP support, and
// downscale-plus-JPEG-encode so uploads stay within model limits.
package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultMaxFileSize is the upload cap for a single photograph.
const DefaultMaxFileSize = 5 * 1024 * 1024

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".webp": true,
}

// Processor handles image validation and preparation for model upload.
type Processor struct {
	MaxFileSize int64
}

// NewProcessor creates a Processor with the default file size cap.
func NewProcessor() *Processor {
	return &Processor{MaxFileSize: DefaultMaxFileSize}
}

// ValidateFile checks the validity precondition for dispatch: the file
// exists, has a supported extension, is within the size cap, and decodes
// as an image. Invalid files are filtered out before any model call.
func (p *Processor) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("not a file: %s", path)
	}
	if p.MaxFileSize > 0 && info.Size() > p.MaxFileSize {
		return fmt.Errorf("file size %d exceeds limit %d", info.Size(), p.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return fmt.Errorf("unsupported image format: %s", ext)
	}

	if _, err := p.LoadImage(path); err != nil {
		return fmt.Errorf("corrupt image: %w", err)
	}
	return nil
}

// LoadImage loads an image from a file path with WebP fallback.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
	}
	if img, _, err := image.Decode(f); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// PrepareForModel resizes an image so its longest side is at most maxDim
// and encodes it for upload. Aspect ratio is preserved; images already
// within bounds are not upscaled.
func (p *Processor) PrepareForModel(img image.Image, format string, maxDim, quality int) ([]byte, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// PrepareFile loads, validates and encodes one photograph in a single
// step. This is what the dispatcher calls per image.
func (p *Processor) PrepareFile(path, format string, maxDim, quality int) ([]byte, error) {
	if err := p.ValidateFile(path); err != nil {
		return nil, err
	}
	img, err := p.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return p.PrepareForModel(img, format, maxDim, quality)
}
