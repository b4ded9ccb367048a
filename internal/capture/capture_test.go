package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func screenshot(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveResizesKeepingAspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shots", "page.png")

	size, err := Save(screenshot(t, 200, 100), path, Options{MaxWidth: 50})
	require.NoError(t, err)
	assert.Positive(t, size)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 25, cfg.Height)
}

func TestSaveKeepsNarrowImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.jpg")

	_, err := Save(screenshot(t, 40, 30), path, Options{MaxWidth: 800})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestSaveGIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.gif")

	_, err := Save(screenshot(t, 64, 32), path, Options{})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := gif.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds())
}

func TestSaveErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Save([]byte("not a png"), filepath.Join(dir, "a.png"), Options{})
	assert.ErrorContains(t, err, "decode screenshot")

	_, err = Save(screenshot(t, 4, 4), filepath.Join(dir, "a.bmp"), Options{})
	assert.ErrorContains(t, err, "unsupported image format")
}

func TestPaletteSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	assert.Len(t, palette(img), 256)
}
