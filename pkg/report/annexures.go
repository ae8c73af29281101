package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pramodksahoo/audit-reporter/pkg/docreport"
	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

// Annexure output formats
const (
	FormatDOCX = "docx"
	FormatPDF  = "pdf"
)

// Section titles, also used to force page breaks in templates
const (
	VICSSectionTitle = "Annexures For VICS"
	LOCSectionTitle  = "Annexures For LOC"
)

const annexureBaseName = "Gap_Assessment_Report_with_Bank_Input"

// AnnexureRequest is an archive of gap-assessment evidence plus an optional
// Word template holding the section placeholders.
type AnnexureRequest struct {
	Zip         Upload
	Template    Upload
	Format      string // docx (default) or pdf
	RequestedBy string
}

// GapAnnexures renders the numbered and lettered evidence images as
// annexure sections of a Word or PDF document.
func (g *Generator) GapAnnexures(ctx context.Context, req AnnexureRequest) (out *Output, err error) {
	rec := models.NewGenerationRecord(models.GeneratorGapAnnexure, req.RequestedBy)
	started := time.Now()
	defer func() { g.finish(ctx, rec, started, err) }()

	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = FormatDOCX
	}
	if format != FormatDOCX && format != FormatPDF {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, req.Format)
	}
	if err := ValidateUpload(req.Zip, "zipFile", ZipExtensions); err != nil {
		return nil, err
	}
	var template []byte
	if !req.Template.Empty() {
		if format != FormatDOCX {
			return nil, fmt.Errorf("%w: templates are only used for docx output", ErrInvalidFormat)
		}
		if err := ValidateUpload(req.Template, "templateFile", TemplateExtensions); err != nil {
			return nil, err
		}
		if template, err = os.ReadFile(req.Template.Path); err != nil {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}
	}

	dir, cleanup, err := g.Workspace("annexures")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	images, err := evidence.ExtractImages(req.Zip.Path, dir, g.limits)
	if err != nil {
		return nil, fmt.Errorf("failed to extract evidence: %w", err)
	}
	rec.ImagesFound = len(images)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	numbered, lettered := evidence.SplitByKind(images)
	vics, vicsSkipped := evidence.PlanAnnexures(numbered, evidence.Measure, g.logger)
	loc, locSkipped := evidence.PlanAnnexures(lettered, evidence.Measure, g.logger)
	sections := []docreport.Section{
		{Title: VICSSectionTitle, Placeholder: docreport.VICSPlaceholder, Entries: vics},
		{Title: LOCSectionTitle, Placeholder: docreport.LOCPlaceholder, Entries: loc},
	}

	var (
		buf         bytes.Buffer
		result      *docreport.Result
		contentType string
	)
	switch format {
	case FormatPDF:
		result, err = docreport.NewPDFWriter(g.logger).Write(&buf, "Gap Assessment Annexures", sections)
		contentType = docreport.PDFContentType
	default:
		result, err = docreport.NewDocxWriter(g.logger).Write(&buf, template, sections)
		contentType = docreport.DocxContentType
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render annexures: %w", err)
	}

	skipped := slices.Concat(vicsSkipped, locSkipped, result.Skipped)
	var warnings []string
	for _, placeholder := range result.MissingPlaceholders {
		warnings = append(warnings, fmt.Sprintf("placeholder %s not found, annexures appended at the end", placeholder))
	}

	name := annexureBaseName + "." + format
	rec.OutputName = name
	rec.ImagesPlaced = result.Placed
	rec.ImagesSkipped = len(skipped)
	return &Output{
		Name:        name,
		ContentType: contentType,
		Data:        buf.Bytes(),
		Record:      rec,
		Skipped:     skipped,
		Warnings:    warnings,
	}, nil
}

func extractArchive(zipPath, dir string, keep func(string) bool, limits evidence.ArchiveLimits) ([]evidence.ExtractedFile, error) {
	file, err := os.Open(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}
	return evidence.ExtractFiles(file, info.Size(), dir, keep, limits)
}
