// Package export turns a rendered region into a paginated PDF document.
//
// Rasterization, document writing and printing are capabilities injected
// into the Exporter. A missing or failing capability makes the export report
// false instead of returning an error to the caller.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultScale is the oversampling factor used when rasterizing.
	DefaultScale = 2.0
	// DefaultSettleDelay is the pause granted to images before rasterizing.
	DefaultSettleDelay = 500 * time.Millisecond

	defaultBackground = "#ffffff"
	pdfExtension      = ".pdf"
)

var (
	errMissingRegion     = errors.New("export: region is missing")
	errMissingRasterizer = errors.New("export: rasterizer is not available")
	errMissingWriter     = errors.New("export: document writer is not available")
	errMissingPrinter    = errors.New("export: printer is not available")
	errMissingFilename   = errors.New("export: filename is required")
	noOpLogger           = zap.NewNop()
)

// Region is a rendered document containing the element to export.
type Region struct {
	// HTML is a complete standalone document.
	HTML string
	// ElementID identifies the element inside HTML that is exported.
	ElementID string
}

func (r Region) valid() bool {
	return strings.TrimSpace(r.HTML) != "" && strings.TrimSpace(r.ElementID) != ""
}

// RasterOptions controls rasterization.
type RasterOptions struct {
	Scale      float64
	Background string
}

// Bitmap is an encoded raster image.
type Bitmap struct {
	Width  int
	Height int
	// Format is the fpdf image type, for example "PNG".
	Format string
	Data   []byte
}

// Rasterizer renders the element of a region into a single bitmap.
type Rasterizer interface {
	Rasterize(ctx context.Context, region Region, options RasterOptions) (Bitmap, error)
}

// Document is a paged output document under construction.
type Document interface {
	PageSize() (width, height float64)
	AddPage() error
	AddImage(bitmap Bitmap, x, y, width, height float64) error
	Save(path string) error
}

// DocumentWriter starts documents. A new document already holds its first page.
type DocumentWriter interface {
	NewDocument(page PageGeometry) (Document, error)
}

// Printer sends the element of a region to a print surface written at outputPath.
type Printer interface {
	Print(ctx context.Context, region Region, outputPath string) error
}

// Config describes the dependencies of an Exporter.
type Config struct {
	Rasterizer  Rasterizer
	Writer      DocumentWriter
	Printer     Printer
	Page        PageGeometry
	Fit         Fit
	Scale       float64
	SettleDelay time.Duration
	OutputDir   string
	Logger      *zap.Logger
	// Sleep waits for the settle delay; tests replace it.
	Sleep func(ctx context.Context, delay time.Duration) error
}

// Result describes a written document.
type Result struct {
	Path  string
	Pages int
}

// Exporter rasterizes regions once and paginates the bitmap into documents.
type Exporter struct {
	rasterizer  Rasterizer
	writer      DocumentWriter
	printer     Printer
	page        PageGeometry
	fit         Fit
	scale       float64
	settleDelay time.Duration
	outputDir   string
	logger      *zap.Logger
	sleep       func(ctx context.Context, delay time.Duration) error
}

// NewExporter constructs an Exporter. Capabilities may be nil; operations
// needing them then report failure.
func NewExporter(cfg Config) *Exporter {
	page := cfg.Page
	if page.Width <= 0 || page.Height <= 0 {
		page = A4()
	}
	fit := cfg.Fit
	if fit == "" {
		fit = FitPage
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	settleDelay := cfg.SettleDelay
	if settleDelay < 0 {
		settleDelay = 0
	}
	outputDir := cfg.OutputDir
	if strings.TrimSpace(outputDir) == "" {
		outputDir = "."
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Exporter{
		rasterizer:  cfg.Rasterizer,
		writer:      cfg.Writer,
		printer:     cfg.Printer,
		page:        page,
		fit:         fit,
		scale:       scale,
		settleDelay: settleDelay,
		outputDir:   outputDir,
		logger:      logger,
		sleep:       sleep,
	}
}

// ExportToPDF writes region to <output dir>/<filename>.pdf and reports
// whether it succeeded. Failures are logged.
func (e *Exporter) ExportToPDF(ctx context.Context, region Region, filename string) bool {
	result, err := e.Export(ctx, region, filename)
	if err != nil {
		e.logger.Error("pdf export failed",
			zap.String("element_id", region.ElementID),
			zap.String("filename", filename),
			zap.Error(err))
		return false
	}
	e.logger.Info("pdf exported",
		zap.String("element_id", region.ElementID),
		zap.String("path", result.Path),
		zap.Int("pages", result.Pages))
	return true
}

// Export is ExportToPDF with the failure returned to the caller.
func (e *Exporter) Export(ctx context.Context, region Region, filename string) (Result, error) {
	if !region.valid() {
		return Result{}, errMissingRegion
	}
	if strings.TrimSpace(filename) == "" {
		return Result{}, errMissingFilename
	}
	if e.rasterizer == nil {
		return Result{}, errMissingRasterizer
	}
	if e.writer == nil {
		return Result{}, errMissingWriter
	}

	if err := e.sleep(ctx, e.settleDelay); err != nil {
		return Result{}, err
	}

	bitmap, err := e.rasterizer.Rasterize(ctx, region, RasterOptions{Scale: e.scale, Background: defaultBackground})
	if err != nil {
		return Result{}, fmt.Errorf("export: rasterize %s: %w", region.ElementID, err)
	}

	document, err := e.writer.NewDocument(e.page)
	if err != nil {
		return Result{}, fmt.Errorf("export: new document: %w", err)
	}
	width, height := document.PageSize()
	page := PageGeometry{Width: width, Height: height, MarginTop: e.page.MarginTop}

	layout, err := Paginate(page, e.fit, float64(bitmap.Width), float64(bitmap.Height))
	if err != nil {
		return Result{}, err
	}
	for index, placement := range layout.Pages {
		if index > 0 {
			if err := document.AddPage(); err != nil {
				return Result{}, fmt.Errorf("export: add page %d: %w", index+1, err)
			}
		}
		if err := document.AddImage(bitmap, placement.X, placement.Y, placement.Width, placement.Height); err != nil {
			return Result{}, fmt.Errorf("export: place page %d: %w", index+1, err)
		}
	}

	path := filepath.Join(e.outputDir, filename+pdfExtension)
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("export: create output dir: %w", err)
	}
	if err := document.Save(path); err != nil {
		return Result{}, fmt.Errorf("export: save %s: %w", path, err)
	}
	return Result{Path: path, Pages: len(layout.Pages)}, nil
}

// PrintElement sends the element of region to the printer and reports
// whether it succeeded.
func (e *Exporter) PrintElement(ctx context.Context, region Region) bool {
	path, err := e.Print(ctx, region)
	if err != nil {
		e.logger.Error("print failed",
			zap.String("element_id", region.ElementID),
			zap.Error(err))
		return false
	}
	e.logger.Info("printed", zap.String("element_id", region.ElementID), zap.String("path", path))
	return true
}

// Print is PrintElement with the failure returned to the caller. The print
// output is written to <output dir>/<element id>_print.pdf.
func (e *Exporter) Print(ctx context.Context, region Region) (string, error) {
	if !region.valid() {
		return "", errMissingRegion
	}
	if e.printer == nil {
		return "", errMissingPrinter
	}
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("export: create output dir: %w", err)
	}
	path := filepath.Join(e.outputDir, SanitizeName(region.ElementID)+"_print"+pdfExtension)
	if err := e.printer.Print(ctx, region, path); err != nil {
		return "", fmt.Errorf("export: print %s: %w", region.ElementID, err)
	}
	return path, nil
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
