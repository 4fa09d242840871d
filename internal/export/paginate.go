package export

import (
	"errors"
	"math"
)

// PageGeometry describes an output page in millimetres.
type PageGeometry struct {
	Width     float64
	Height    float64
	MarginTop float64
}

// A4 returns the portrait A4 page with the default 10 mm margin.
func A4() PageGeometry {
	return PageGeometry{Width: 210, Height: 297, MarginTop: 10}
}

// ContentHeight is the height of the band shown on each page.
func (g PageGeometry) ContentHeight() float64 {
	return g.Height - 2*g.MarginTop
}

// Fit selects how a bitmap is scaled onto the page.
type Fit string

const (
	// FitPage scales the bitmap so it fits the page in both dimensions.
	FitPage Fit = "page"
	// FitWidth scales the bitmap to the page width and lets its height run
	// across as many pages as needed.
	FitWidth Fit = "width"
)

// ParseFit maps a configuration value onto a Fit. Blank selects FitPage.
func ParseFit(value string) (Fit, error) {
	switch Fit(value) {
	case "", FitPage:
		return FitPage, nil
	case FitWidth:
		return FitWidth, nil
	default:
		return "", errInvalidFit
	}
}

// Placement positions the bitmap on one page.
type Placement struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Layout is the result of paginating one bitmap.
type Layout struct {
	Ratio        float64
	ScaledWidth  float64
	ScaledHeight float64
	OffsetX      float64
	Pages        []Placement
}

var (
	errInvalidGeometry = errors.New("export: page geometry leaves no content height")
	errInvalidBitmap   = errors.New("export: bitmap has no area")
	errInvalidFit      = errors.New("export: fit must be page or width")
)

// Paginate places a single imageWidth x imageHeight bitmap across pages.
// Every page shows the same bitmap shifted upward so the next band of
// content lines up with the top of the page.
func Paginate(page PageGeometry, fit Fit, imageWidth, imageHeight float64) (Layout, error) {
	if page.Width <= 0 || page.ContentHeight() <= 0 {
		return Layout{}, errInvalidGeometry
	}
	if imageWidth <= 0 || imageHeight <= 0 {
		return Layout{}, errInvalidBitmap
	}

	ratio := page.Width / imageWidth
	if fit != FitWidth {
		ratio = math.Min(ratio, page.Height/imageHeight)
	}
	scaledWidth := imageWidth * ratio
	scaledHeight := imageHeight * ratio
	offsetX := (page.Width - scaledWidth) / 2

	layout := Layout{
		Ratio:        ratio,
		ScaledWidth:  scaledWidth,
		ScaledHeight: scaledHeight,
		OffsetX:      offsetX,
	}
	for _, y := range PageOffsets(page, scaledHeight) {
		layout.Pages = append(layout.Pages, Placement{X: offsetX, Y: y, Width: scaledWidth, Height: scaledHeight})
	}
	return layout, nil
}

// PageOffsets returns the vertical offset of the bitmap on each page for a
// bitmap scaled to scaledHeight. The first page places it at the top margin.
func PageOffsets(page PageGeometry, scaledHeight float64) []float64 {
	band := page.ContentHeight()
	if band <= 0 {
		return nil
	}
	offsets := []float64{page.MarginTop}
	heightLeft := scaledHeight - band
	for heightLeft > 0 {
		offsets = append(offsets, heightLeft-scaledHeight)
		heightLeft -= band
	}
	return offsets
}
