package export

import (
	"context"

	"github.com/MarcoPoloResearchLab/labcraft/internal/notebook"
	"go.uber.org/zap"
)

// RegionRenderer produces printable regions for notebook records.
type RegionRenderer interface {
	RenderEntry(ctx context.Context, collection notebook.Collection, entry notebook.Entry) (Region, error)
	RenderCollection(ctx context.Context, collection notebook.Collection, entries []notebook.Entry) (Region, error)
}

// ExportEntry renders entry and exports it under EntryFilename.
func (e *Exporter) ExportEntry(ctx context.Context, renderer RegionRenderer, collection notebook.Collection, entry notebook.Entry) bool {
	if renderer == nil {
		e.logger.Error("pdf export failed", zap.String("entry_id", entry.ID), zap.Error(errMissingRegion))
		return false
	}
	region, err := renderer.RenderEntry(ctx, collection, entry)
	if err != nil {
		e.logger.Error("render entry failed", zap.String("entry_id", entry.ID), zap.Error(err))
		return false
	}
	return e.ExportToPDF(ctx, region, EntryFilename(collection, entry))
}

// ExportCollection renders collection with its entries and exports it
// under CollectionFilename.
func (e *Exporter) ExportCollection(ctx context.Context, renderer RegionRenderer, collection notebook.Collection, entries []notebook.Entry) bool {
	if renderer == nil {
		e.logger.Error("pdf export failed", zap.String("collection_id", collection.ID), zap.Error(errMissingRegion))
		return false
	}
	region, err := renderer.RenderCollection(ctx, collection, entries)
	if err != nil {
		e.logger.Error("render collection failed", zap.String("collection_id", collection.ID), zap.Error(err))
		return false
	}
	return e.ExportToPDF(ctx, region, CollectionFilename(collection))
}
