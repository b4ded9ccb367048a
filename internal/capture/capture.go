// Package capture writes page screenshots to disk.
package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nfnt/resize"
)

// Options configures how a screenshot is stored
type Options struct {
	MaxWidth uint // 0 keeps the original width
	Quality  int  // JPEG quality, defaults to 90
}

// Save decodes a PNG screenshot, scales it down to MaxWidth keeping the
// aspect ratio, and encodes it by the extension of path (.png, .jpg, .jpeg,
// .gif). It returns the size of the written file.
func Save(data []byte, path string, opts Options) (int64, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	img = Fit(img, opts.MaxWidth)

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
	default:
		return 0, fmt.Errorf("unsupported image format %q", ext)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	switch ext {
	case ".png":
		err = png.Encode(f, img)
	case ".gif":
		err = encodeGIF(f, img)
	default:
		quality := opts.Quality
		if quality <= 0 {
			quality = 90
		}
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Fit scales img down to maxWidth keeping its aspect ratio. Narrower images
// and a zero maxWidth return img unchanged.
func Fit(img image.Image, maxWidth uint) image.Image {
	bounds := img.Bounds()
	if maxWidth == 0 || uint(bounds.Dx()) <= maxWidth {
		return img
	}

	aspectRatio := float64(bounds.Dy()) / float64(bounds.Dx())
	height := uint(float64(maxWidth) * aspectRatio)
	if height == 0 {
		height = 1
	}
	return resize.Resize(maxWidth, height, img, resize.Lanczos3)
}

func encodeGIF(f *os.File, img image.Image) error {
	paletted := image.NewPaletted(img.Bounds(), palette(img))
	draw.FloydSteinberg.Draw(paletted, img.Bounds(), img, image.Point{})
	return gif.Encode(f, paletted, nil)
}

// palette builds a 256 colour palette from the most frequent sampled colours
func palette(img image.Image) color.Palette {
	bounds := img.Bounds()
	counts := make(map[color.RGBA]int)

	step := 4 // sample every 4th pixel
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			counts[color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}]++
		}
	}

	colors := make([]color.RGBA, 0, len(counts))
	for c := range counts {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool {
		if counts[colors[i]] != counts[colors[j]] {
			return counts[colors[i]] > counts[colors[j]]
		}
		ci, cj := colors[i], colors[j]
		return uint32(ci.R)<<24|uint32(ci.G)<<16|uint32(ci.B)<<8|uint32(ci.A) <
			uint32(cj.R)<<24|uint32(cj.G)<<16|uint32(cj.B)<<8|uint32(cj.A)
	})

	p := make(color.Palette, 0, 256)
	p = append(p, color.RGBA{0, 0, 0, 0})
	for i := 0; i < len(colors) && len(p) < 256; i++ {
		p = append(p, colors[i])
	}
	// pad with grayscale
	for len(p) < 256 {
		gray := uint8(len(p))
		p = append(p, color.RGBA{gray, gray, gray, 255})
	}
	return p
}
