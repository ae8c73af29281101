package docreport

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
)

// PDFContentType is the MIME type of a PDF document
const PDFContentType = "application/pdf"

const (
	pdfMargin      = 20.0 // mm
	pdfPageWidth   = 210.0
	pdfPageHeight  = 297.0
	pdfHeadingLine = 8.0
	mmPerPixel     = 25.4 / 96
	borderMM       = 0.3528 // 1pt
)

// fpdf reads these formats natively; everything else is re-encoded as PNG.
var pdfNativeTypes = map[string]string{
	".jpg":  "JPG",
	".jpeg": "JPG",
	".png":  "PNG",
	".gif":  "GIF",
}

// PDFWriter renders annexure sections as an A4 PDF
type PDFWriter struct {
	logger *zap.Logger
}

// NewPDFWriter creates a writer. A nil logger discards output.
func NewPDFWriter(logger *zap.Logger) *PDFWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFWriter{logger: logger}
}

// Write renders every section: a section title page header, then each
// annexure heading followed by its bordered image, one image per page.
func (w *PDFWriter) Write(out io.Writer, title string, sections []Section) (*Result, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("audit-reporter", true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	result := &Result{}
	for _, section := range sections {
		if len(section.Entries) == 0 {
			continue
		}
		pdf.AddPage()
		pdf.SetFont("Times", "B", 14)
		pdf.CellFormat(0, 10, tr(section.Title), "", 1, "L", false, 0, "")

		var pending bool
		for _, entry := range section.Entries {
			name := fmt.Sprintf("annexure-%d", len(result.Skipped)+result.Placed)
			imageType, err := registerImage(pdf, entry, name)
			if err != nil {
				w.logger.Warn("skipping annexure image", zap.String("image", entry.Image.Filename), zap.Error(err))
				result.Skipped = append(result.Skipped, evidence.SkippedImage{Image: entry.Image, Reason: err.Error()})
				if entry.NewAnnexure {
					if pending {
						pdf.AddPage()
						pending = false
					}
					writeHeading(pdf, tr, entry.Heading)
				}
				continue
			}
			if pending {
				pdf.AddPage()
			}
			writeHeading(pdf, tr, entry.Heading)
			drawImage(pdf, entry, name, imageType)
			pending = true
			result.Placed++
		}
	}

	if result.Placed == 0 && len(result.Skipped) == 0 {
		pdf.AddPage()
		pdf.SetFont("Times", "", 12)
		pdf.CellFormat(0, 10, "No annexures", "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(out); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return result, nil
}

// registerImage loads the entry's picture into pdf under name
func registerImage(pdf *fpdf.Fpdf, entry evidence.AnnexureEntry, name string) (string, error) {
	data, imageType, err := pdfImage(entry.Image.Path)
	if err != nil {
		return "", err
	}
	info := pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
	if !pdf.Ok() || info == nil {
		err := pdf.Error()
		pdf.ClearError()
		return "", fmt.Errorf("failed to register image: %w", err)
	}
	return imageType, nil
}

func writeHeading(pdf *fpdf.Fpdf, tr func(string) string, heading string) {
	pdf.SetFont("Times", "B", 12)
	pdf.MultiCell(0, pdfHeadingLine/1.5, tr(heading), "", "L", false)
	pdf.Ln(pdfHeadingLine / 2)
}

// drawImage places a registered image below the current position, shrunk to
// fit the page, with a thin black border
func drawImage(pdf *fpdf.Fpdf, entry evidence.AnnexureEntry, name, imageType string) {
	width := float64(entry.Size.Width) * mmPerPixel
	height := float64(entry.Size.Height) * mmPerPixel
	maxWidth := pdfPageWidth - 2*pdfMargin
	maxHeight := pdfPageHeight - pdf.GetY() - pdfMargin
	if width > maxWidth {
		height *= maxWidth / width
		width = maxWidth
	}
	if height > maxHeight {
		width *= maxHeight / height
		height = maxHeight
	}

	x := (pdfPageWidth - width) / 2
	y := pdf.GetY()
	pdf.ImageOptions(name, x, y, width, height, false, fpdf.ImageOptions{ImageType: imageType}, 0, "")
	pdf.SetLineWidth(borderMM)
	pdf.SetDrawColor(0, 0, 0)
	pdf.Rect(x, y, width, height, "D")
	pdf.SetY(y + height)
}

// pdfImage returns image bytes in a format fpdf can read
func pdfImage(path string) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".svg" {
		return nil, "", fmt.Errorf("svg images are not supported in pdf output")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if imageType, ok := pdfNativeTypes[ext]; ok {
		return data, imageType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to re-encode image: %w", err)
	}
	return buf.Bytes(), "PNG", nil
}
