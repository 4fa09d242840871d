// Package render produces standalone HTML regions for notebook records so
// they can be exported or printed.
package render

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/labcraft/internal/assets"
	"github.com/MarcoPoloResearchLab/labcraft/internal/export"
	"github.com/MarcoPoloResearchLab/labcraft/internal/notebook"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFiles embed.FS

const (
	entryElementPrefix      = "entry-print-"
	collectionElementPrefix = "collection-print-"
	imageDataURLPrefix      = "data:image/"
	generatedDateLayout     = "2 January 2006"
)

var errMissingRecordID = errors.New("render: record identifier is required")

// AssetSource resolves attachment ids.
type AssetSource interface {
	Get(ctx context.Context, assetID string) (assets.Asset, bool, error)
}

// Config describes the dependencies of a Renderer.
type Config struct {
	Assets AssetSource
	Clock  func() time.Time
	Logger *zap.Logger
}

// Renderer turns collections and entries into export regions.
type Renderer struct {
	templates *template.Template
	assets    AssetSource
	clock     func() time.Time
	logger    *zap.Logger
}

// NewRenderer parses the embedded templates.
func NewRenderer(cfg Config) (*Renderer, error) {
	templates, err := template.New("document").Funcs(template.FuncMap{
		"inc": func(index int) int { return index + 1 },
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{templates: templates, assets: cfg.Assets, clock: clock, logger: logger}, nil
}

// EntryElementID is the id of the exported element for an entry.
func EntryElementID(entryID string) string {
	return entryElementPrefix + entryID
}

// CollectionElementID is the id of the exported element for a collection.
func CollectionElementID(collectionID string) string {
	return collectionElementPrefix + collectionID
}

type entryView struct {
	Heading    string
	Language   string
	Aim        string
	Theory     string
	Steps      string
	Code       string
	Conclusion string
	Figures    []template.URL
}

type documentView struct {
	ElementID       string
	Subject         string
	CollectionTitle string
	Description     string
	Generated       string
	Entry           entryView
	Entries         []entryView
}

// RenderEntry renders a single entry of collection.
func (r *Renderer) RenderEntry(ctx context.Context, collection notebook.Collection, entry notebook.Entry) (export.Region, error) {
	if strings.TrimSpace(entry.ID) == "" {
		return export.Region{}, errMissingRecordID
	}
	view := documentView{
		ElementID:       EntryElementID(entry.ID),
		Subject:         collection.Subject,
		CollectionTitle: collection.Title,
		Generated:       r.clock().Format(generatedDateLayout),
		Entry:           r.entryView(ctx, entry),
	}
	return r.execute("entry", view)
}

// RenderCollection renders collection followed by every entry in the given order.
func (r *Renderer) RenderCollection(ctx context.Context, collection notebook.Collection, entries []notebook.Entry) (export.Region, error) {
	if strings.TrimSpace(collection.ID) == "" {
		return export.Region{}, errMissingRecordID
	}
	view := documentView{
		ElementID:       CollectionElementID(collection.ID),
		Subject:         collection.Subject,
		CollectionTitle: collection.Title,
		Description:     collection.Description,
		Generated:       r.clock().Format(generatedDateLayout),
		Entries:         make([]entryView, 0, len(entries)),
	}
	for _, entry := range entries {
		view.Entries = append(view.Entries, r.entryView(ctx, entry))
	}
	return r.execute("collection", view)
}

func (r *Renderer) execute(name string, view documentView) (export.Region, error) {
	var buffer bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buffer, name, view); err != nil {
		return export.Region{}, fmt.Errorf("render: execute %s: %w", name, err)
	}
	return export.Region{HTML: buffer.String(), ElementID: view.ElementID}, nil
}

func (r *Renderer) entryView(ctx context.Context, entry notebook.Entry) entryView {
	language := entry.Language
	if language == notebook.LanguagePlainText {
		language = ""
	}
	return entryView{
		Heading:    fmt.Sprintf("Entry %d: %s", entry.Ordinal, entry.Title),
		Language:   language,
		Aim:        entry.Aim,
		Theory:     entry.Theory,
		Steps:      entry.Steps,
		Code:       entry.Code,
		Conclusion: entry.Conclusion,
		Figures:    r.figures(ctx, entry),
	}
}

// figures resolves attachments. Inline image data URLs are used as is;
// other values are asset ids. Unresolvable attachments are skipped.
func (r *Renderer) figures(ctx context.Context, entry notebook.Entry) []template.URL {
	figures := make([]template.URL, 0, len(entry.Attachments))
	for _, attachment := range entry.Attachments {
		if strings.HasPrefix(attachment, imageDataURLPrefix) {
			figures = append(figures, template.URL(attachment))
			continue
		}
		if r.assets == nil {
			continue
		}
		asset, found, err := r.assets.Get(ctx, attachment)
		if err != nil || !found || !strings.HasPrefix(asset.Data, imageDataURLPrefix) {
			r.logger.Warn("attachment skipped",
				zap.String("entry_id", entry.ID),
				zap.String("attachment", attachment),
				zap.Bool("found", found),
				zap.Error(err))
			continue
		}
		figures = append(figures, template.URL(asset.Data))
	}
	return figures
}
