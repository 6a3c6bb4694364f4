package processing

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor()

	good := writeTestImage(t, dir, "site.png", 32, 32)
	assert.NoError(t, p.ValidateFile(good))

	assert.Error(t, p.ValidateFile(filepath.Join(dir, "missing.png")))

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("not an image"), 0o644))
	assert.Error(t, p.ValidateFile(txt))

	// Right extension, garbage content.
	fake := filepath.Join(dir, "fake.jpg")
	require.NoError(t, os.WriteFile(fake, []byte("garbage"), 0o644))
	assert.Error(t, p.ValidateFile(fake))
}

func TestValidateFileSizeCap(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir, "big.png", 64, 64)

	p := &Processor{MaxFileSize: 10}
	err := p.ValidateFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestPrepareForModelResizes(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir, "wide.png", 400, 100)

	p := NewProcessor()
	img, err := p.LoadImage(path)
	require.NoError(t, err)

	data, err := p.PrepareForModel(img, "jpg", 200, 85)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())
}

func TestPrepareForModelNoUpscale(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir, "small.png", 40, 30)

	p := NewProcessor()
	img, err := p.LoadImage(path)
	require.NoError(t, err)

	data, err := p.PrepareForModel(img, "png", 1024, 90)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 40, decoded.Bounds().Dx())
	assert.Equal(t, 30, decoded.Bounds().Dy())
}
