package export

import (
	"math"
	"testing"
)

func TestPageOffsetsCeilingBehaviour(t *testing.T) {
	page := A4()
	band := page.ContentHeight()

	tests := []struct {
		name         string
		scaledHeight float64
		wantPages    int
	}{
		{name: "shorter than a band", scaledHeight: band / 2, wantPages: 1},
		{name: "exactly one band", scaledHeight: band, wantPages: 1},
		{name: "one unit over one band", scaledHeight: band + 1, wantPages: 2},
		{name: "exactly two bands", scaledHeight: 2 * band, wantPages: 2},
		{name: "one unit over two bands", scaledHeight: 2*band + 1, wantPages: 3},
		{name: "two and a half bands", scaledHeight: 2.5 * band, wantPages: 3},
		{name: "exactly four bands", scaledHeight: 4 * band, wantPages: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offsets := PageOffsets(page, tt.scaledHeight)
			if len(offsets) != tt.wantPages {
				t.Fatalf("got %d pages, want %d", len(offsets), tt.wantPages)
			}
			if bound := int(math.Ceil(tt.scaledHeight / band)); len(offsets) > bound && bound > 0 {
				t.Fatalf("page count %d exceeds ceiling bound %d", len(offsets), bound)
			}
		})
	}
}

func TestPageOffsetsShiftBitmapUpward(t *testing.T) {
	page := A4()
	band := page.ContentHeight()
	scaledHeight := 2.5 * band

	offsets := PageOffsets(page, scaledHeight)
	want := []float64{
		page.MarginTop,
		(scaledHeight - band) - scaledHeight,
		(scaledHeight - 2*band) - scaledHeight,
	}
	for index := range want {
		if math.Abs(offsets[index]-want[index]) > 1e-9 {
			t.Fatalf("offset %d = %v, want %v", index, offsets[index], want[index])
		}
	}
	for index := 2; index < len(offsets); index++ {
		if offsets[index] >= offsets[index-1] {
			t.Fatalf("offsets must move upward, got %v", offsets)
		}
	}
}

func TestPaginateFitPageKeepsBitmapOnPage(t *testing.T) {
	page := A4()
	layout, err := Paginate(page, FitPage, 800, 400)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if math.Abs(layout.Ratio-page.Width/800) > 1e-9 {
		t.Fatalf("unexpected ratio %v", layout.Ratio)
	}
	if math.Abs(layout.OffsetX) > 1e-9 {
		t.Fatalf("expected no horizontal offset, got %v", layout.OffsetX)
	}
	if len(layout.Pages) != 1 || layout.Pages[0].Y != page.MarginTop {
		t.Fatalf("unexpected pages %#v", layout.Pages)
	}
}

func TestPaginateFitPageCentersTallBitmap(t *testing.T) {
	page := A4()
	layout, err := Paginate(page, FitPage, 100, 2970)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if math.Abs(layout.ScaledHeight-page.Height) > 1e-9 {
		t.Fatalf("expected bitmap scaled to page height, got %v", layout.ScaledHeight)
	}
	wantOffset := (page.Width - layout.ScaledWidth) / 2
	if math.Abs(layout.OffsetX-wantOffset) > 1e-9 || layout.OffsetX <= 0 {
		t.Fatalf("unexpected offset %v", layout.OffsetX)
	}
	if len(layout.Pages) != 2 {
		t.Fatalf("page height exceeds one band, expected 2 pages, got %d", len(layout.Pages))
	}
}

func TestPaginateFitWidthSpansPages(t *testing.T) {
	page := A4()
	band := page.ContentHeight()
	// 420 px wide maps to 210 mm, so every pixel is half a millimetre.
	imageHeight := 2.5 * band * 2

	layout, err := Paginate(page, FitWidth, 420, imageHeight)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if len(layout.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(layout.Pages))
	}
	for _, placement := range layout.Pages {
		if placement.Width != page.Width || placement.Height != layout.ScaledHeight {
			t.Fatalf("every page must carry the whole bitmap, got %#v", placement)
		}
	}
}

func TestPaginateRejectsDegenerateInput(t *testing.T) {
	if _, err := Paginate(A4(), FitPage, 0, 10); err == nil {
		t.Fatalf("expected error for empty bitmap")
	}
	if _, err := Paginate(PageGeometry{Width: 100, Height: 20, MarginTop: 10}, FitPage, 10, 10); err == nil {
		t.Fatalf("expected error for geometry without content height")
	}
}

func TestParseFit(t *testing.T) {
	for value, want := range map[string]Fit{"": FitPage, "page": FitPage, "width": FitWidth} {
		got, err := ParseFit(value)
		if err != nil || got != want {
			t.Fatalf("ParseFit(%q) = %q, %v", value, got, err)
		}
	}
	if _, err := ParseFit("height"); err == nil {
		t.Fatalf("expected error for unknown fit")
	}
}
