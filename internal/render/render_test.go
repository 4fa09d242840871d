package render

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/labcraft/internal/assets"
	"github.com/MarcoPoloResearchLab/labcraft/internal/notebook"
)

type stubAssets map[string]assets.Asset

func (s stubAssets) Get(_ context.Context, assetID string) (assets.Asset, bool, error) {
	if assetID == "broken" {
		return assets.Asset{}, false, errors.New("disk unavailable")
	}
	asset, ok := s[assetID]
	return asset, ok, nil
}

const samplePixel = "data:image/jpeg;base64,AAAA"

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	renderer, err := NewRenderer(Config{
		Assets: stubAssets{"asset-1": {ID: "asset-1", Data: samplePixel}},
		Clock:  func() time.Time { return time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("unexpected renderer error: %v", err)
	}
	return renderer
}

func TestRenderEntryProducesAddressableRegion(t *testing.T) {
	renderer := newTestRenderer(t)
	collection := notebook.Collection{ID: "c1", Title: "Mechanics Lab", Subject: "Physics"}
	entry := notebook.Entry{
		ID:          "e1",
		Ordinal:     3,
		Title:       "Pendulum <period>",
		Aim:         "Measure g",
		Code:        "print(9.81)",
		Language:    "python",
		Attachments: []string{"asset-1", "missing", "broken"},
	}

	region, err := renderer.RenderEntry(context.Background(), collection, entry)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if region.ElementID != "entry-print-e1" {
		t.Fatalf("unexpected element id %q", region.ElementID)
	}
	checks := []string{
		`id="entry-print-e1"`,
		"Entry 3: Pendulum &lt;period&gt;",
		"Language: python",
		"Measure g",
		`src="` + samplePixel + `"`,
		"Figure 1",
		"18 October 2026",
	}
	for _, want := range checks {
		if !strings.Contains(region.HTML, want) {
			t.Fatalf("expected %q in rendered html", want)
		}
	}
	if strings.Contains(region.HTML, "Figure 2") {
		t.Fatalf("unresolved attachments must be skipped")
	}
	if strings.Contains(region.HTML, "<h3>Theory</h3>") {
		t.Fatalf("empty sections must be omitted")
	}
}

func TestRenderEntryAcceptsInlineImages(t *testing.T) {
	renderer := newTestRenderer(t)
	region, err := renderer.RenderEntry(context.Background(), notebook.Collection{ID: "c1"}, notebook.Entry{
		ID:          "e1",
		Attachments: []string{samplePixel, "javascript:alert(1)"},
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(region.HTML, samplePixel) {
		t.Fatalf("expected inline image")
	}
	if strings.Contains(region.HTML, "javascript:") {
		t.Fatalf("non-image attachments must not be rendered")
	}
}

func TestRenderCollectionListsEntriesInOrder(t *testing.T) {
	renderer := newTestRenderer(t)
	collection := notebook.Collection{ID: "c1", Title: "Mechanics Lab", Subject: "Physics", Description: "Semester one"}
	entries := []notebook.Entry{
		{ID: "e1", Ordinal: 1, Title: "Pendulum"},
		{ID: "e2", Ordinal: 2, Title: "Optics"},
	}

	region, err := renderer.RenderCollection(context.Background(), collection, entries)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if region.ElementID != "collection-print-c1" {
		t.Fatalf("unexpected element id %q", region.ElementID)
	}
	first := strings.Index(region.HTML, "<h2>Entry 1: Pendulum</h2>")
	second := strings.Index(region.HTML, "<h2>Entry 2: Optics</h2>")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("expected entries in order, got %d and %d", first, second)
	}
	if !strings.Contains(region.HTML, "Semester one") {
		t.Fatalf("expected description")
	}

	empty, err := renderer.RenderCollection(context.Background(), collection, nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(empty.HTML, "No entries yet.") {
		t.Fatalf("expected empty collection notice")
	}
}

func TestRenderRequiresIdentifiers(t *testing.T) {
	renderer := newTestRenderer(t)
	if _, err := renderer.RenderEntry(context.Background(), notebook.Collection{}, notebook.Entry{}); err == nil {
		t.Fatalf("expected error for entry without id")
	}
	if _, err := renderer.RenderCollection(context.Background(), notebook.Collection{}, nil); err == nil {
		t.Fatalf("expected error for collection without id")
	}
}
