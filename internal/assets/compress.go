package assets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxWidth bounds the width of stored images in pixels.
	DefaultMaxWidth = 1200
	// DefaultQuality is the JPEG quality factor applied to stored images.
	DefaultQuality = 0.8

	// MaxSourcePixels bounds the declared dimensions of an image accepted
	// for compression.
	MaxSourcePixels = 40_000_000

	dataURLPrefix = "data:image/jpeg;base64,"
)

var (
	// ErrImageTooLarge reports an image whose declared dimensions exceed
	// MaxSourcePixels.
	ErrImageTooLarge = errors.New("assets: image dimensions too large")

	errInvalidMaxWidth = errors.New("assets: max width must be positive")
)

// Compress decodes data, downsizes it proportionally so its width does not
// exceed maxWidth and re-encodes it as JPEG at quality (0..1). The result is
// a data URL. Identical inputs always produce identical output.
func Compress(data []byte, maxWidth int, quality float64) (string, error) {
	if maxWidth <= 0 {
		return "", errInvalidMaxWidth
	}
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("assets: decode image: %w", err)
	}
	if config.Width <= 0 || config.Height <= 0 || int64(config.Width)*int64(config.Height) > MaxSourcePixels {
		return "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, config.Width, config.Height)
	}
	source, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("assets: decode image: %w", err)
	}

	bounds := source.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxWidth {
		height = int(math.Round(float64(height) * float64(maxWidth) / float64(width)))
		if height < 1 {
			height = 1
		}
		width = maxWidth
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(canvas, canvas.Bounds(), source, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), source, bounds, draw.Over, nil)
	}

	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, canvas, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return "", fmt.Errorf("assets: encode image: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(encoded.Bytes()), nil
}

func jpegQuality(quality float64) int {
	scaled := int(math.Round(quality * 100))
	switch {
	case scaled < 1:
		return 1
	case scaled > 100:
		return 100
	default:
		return scaled
	}
}
