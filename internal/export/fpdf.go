package export

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/go-pdf/fpdf"
)

var errEmptyBitmap = errors.New("export: bitmap has no data")

// PDFWriter writes documents with fpdf using millimetre units.
type PDFWriter struct{}

// NewPDFWriter constructs a PDFWriter.
func NewPDFWriter() *PDFWriter {
	return &PDFWriter{}
}

// NewDocument implements DocumentWriter.
func (w *PDFWriter) NewDocument(page PageGeometry) (Document, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	if err := pdf.Error(); err != nil {
		return nil, err
	}
	return &pdfDocument{pdf: pdf, registered: make(map[string]struct{})}, nil
}

type pdfDocument struct {
	pdf        *fpdf.Fpdf
	registered map[string]struct{}
}

func (d *pdfDocument) PageSize() (float64, float64) {
	return d.pdf.GetPageSize()
}

func (d *pdfDocument) AddPage() error {
	d.pdf.AddPage()
	return d.pdf.Error()
}

// AddImage registers each distinct bitmap once and places it at x, y.
func (d *pdfDocument) AddImage(bitmap Bitmap, x, y, width, height float64) error {
	if len(bitmap.Data) == 0 {
		return errEmptyBitmap
	}
	options := fpdf.ImageOptions{
		ImageType:             strings.ToUpper(bitmap.Format),
		AllowNegativePosition: true,
	}
	sum := sha256.Sum256(bitmap.Data)
	name := hex.EncodeToString(sum[:8])
	if _, ok := d.registered[name]; !ok {
		d.pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(bitmap.Data))
		if err := d.pdf.Error(); err != nil {
			return err
		}
		d.registered[name] = struct{}{}
	}
	d.pdf.ImageOptions(name, x, y, width, height, false, options, 0, "")
	return d.pdf.Error()
}

func (d *pdfDocument) Save(path string) error {
	return d.pdf.OutputFileAndClose(path)
}
