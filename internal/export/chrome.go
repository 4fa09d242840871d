package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"image"
	_ "image/png"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const defaultChromeTimeout = 30 * time.Second

var errElementNotFound = errors.New("export: element not found in region")

// ChromeConfig configures the headless Chrome capabilities.
type ChromeConfig struct {
	// ExecPath overrides the Chrome binary; blank lets chromedp find it.
	ExecPath string
	Timeout  time.Duration
	// SettleDelay is how long the print document is given to load before printing.
	SettleDelay time.Duration
	Logger      *zap.Logger
}

type chromeBrowser struct {
	execPath string
	timeout  time.Duration
	logger   *zap.Logger
}

func newChromeBrowser(cfg ChromeConfig) chromeBrowser {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultChromeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return chromeBrowser{execPath: cfg.ExecPath, timeout: timeout, logger: logger}
}

// run starts a fresh headless browser, loads region and executes actions.
func (b chromeBrowser) run(ctx context.Context, region Region, actions ...chromedp.Action) error {
	options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if b.execPath != "" {
		options = append(options, chromedp.ExecPath(b.execPath))
	}
	allocatorCtx, cancelAllocator := chromedp.NewExecAllocator(ctx, options...)
	defer cancelAllocator()

	browserCtx, cancelBrowser := chromedp.NewContext(allocatorCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, b.timeout)
	defer cancelTimeout()

	steps := []chromedp.Action{
		chromedp.Navigate("about:blank"),
		setDocumentContent(region.HTML),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	steps = append(steps, actions...)
	return chromedp.Run(timeoutCtx, steps...)
}

func setDocumentContent(html string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
	})
}

func elementSelector(elementID string) string {
	return "#" + elementID
}

// ChromeRasterizer screenshots the region element with headless Chrome.
type ChromeRasterizer struct {
	browser chromeBrowser
}

// NewChromeRasterizer constructs a ChromeRasterizer.
func NewChromeRasterizer(cfg ChromeConfig) *ChromeRasterizer {
	return &ChromeRasterizer{browser: newChromeBrowser(cfg)}
}

// Rasterize implements Rasterizer. The bitmap is a PNG.
func (r *ChromeRasterizer) Rasterize(ctx context.Context, region Region, options RasterOptions) (Bitmap, error) {
	scale := options.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	background, err := parseHexColor(options.Background)
	if err != nil {
		return Bitmap{}, err
	}

	selector := elementSelector(region.ElementID)
	var shot []byte
	err = r.browser.run(ctx, region,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDefaultBackgroundColorOverride().WithColor(background).Do(ctx)
		}),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.ScreenshotScale(selector, scale, &shot, chromedp.ByQuery),
	)
	if err != nil {
		return Bitmap{}, err
	}

	config, _, err := image.DecodeConfig(bytes.NewReader(shot))
	if err != nil {
		return Bitmap{}, fmt.Errorf("export: decode screenshot: %w", err)
	}
	r.browser.logger.Debug("region rasterized",
		zap.String("element_id", region.ElementID),
		zap.Int("width", config.Width),
		zap.Int("height", config.Height))
	return Bitmap{Width: config.Width, Height: config.Height, Format: "PNG", Data: shot}, nil
}

// ChromePrinter copies the element markup and the page styles into a fresh
// document and prints it to PDF.
type ChromePrinter struct {
	browser     chromeBrowser
	settleDelay time.Duration
}

// NewChromePrinter constructs a ChromePrinter.
func NewChromePrinter(cfg ChromeConfig) *ChromePrinter {
	settleDelay := cfg.SettleDelay
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}
	return &ChromePrinter{browser: newChromeBrowser(cfg), settleDelay: settleDelay}
}

type printSource struct {
	Styles string `json:"styles"`
	Markup string `json:"markup"`
	Found  bool   `json:"found"`
}

var printDocument = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>Print</title>
    <style>{{.Styles}}</style>
    <style>
      @media print {
        body { margin: 0; padding: 20px; }
        .no-print { display: none !important; }
      }
    </style>
  </head>
  <body>{{.Markup}}</body>
</html>`))

// Print implements Printer.
func (p *ChromePrinter) Print(ctx context.Context, region Region, outputPath string) error {
	encodedID, err := json.Marshal(region.ElementID)
	if err != nil {
		return err
	}
	collect := fmt.Sprintf(`(function() {
  const element = document.getElementById(%s);
  if (!element) { return {found: false, styles: "", markup: ""}; }
  const styles = Array.from(document.styleSheets).map(function(sheet) {
    try { return Array.from(sheet.cssRules).map(function(rule) { return rule.cssText; }).join("\n"); }
    catch (e) { return ""; }
  }).join("\n");
  return {found: true, styles: styles, markup: element.innerHTML};
})()`, encodedID)

	var source printSource
	var output []byte
	err = p.browser.run(ctx, region,
		chromedp.Evaluate(collect, &source),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if !source.Found {
				return errElementNotFound
			}
			var composed strings.Builder
			if err := printDocument.Execute(&composed, struct {
				Styles template.CSS
				Markup template.HTML
			}{Styles: template.CSS(source.Styles), Markup: template.HTML(source.Markup)}); err != nil {
				return err
			}
			return setDocumentContent(composed.String()).Do(ctx)
		}),
		chromedp.Sleep(p.settleDelay),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			output = data
			return nil
		}),
	)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, output, 0o644)
}

func parseHexColor(value string) (*cdp.RGBA, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if trimmed == "" {
		trimmed = "ffffff"
	}
	if len(trimmed) != 6 {
		return nil, fmt.Errorf("export: invalid background %q", value)
	}
	parsed, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("export: invalid background %q: %w", value, err)
	}
	return &cdp.RGBA{
		R: int64((parsed >> 16) & 0xff),
		G: int64((parsed >> 8) & 0xff),
		B: int64(parsed & 0xff),
		A: 1,
	}, nil
}
