package report

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
	"github.com/pramodksahoo/audit-reporter/pkg/models"
	"github.com/pramodksahoo/audit-reporter/pkg/workbook"
)

const (
	// DefaultPOCName is used when neither a branch name nor an upload name is usable
	DefaultPOCName = "Branch_Excel_With_POC.xlsx"
	// CombinedName is the file name of a combined workbook
	CombinedName = "Branch_Excel_With_Evidence.xlsx"
)

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// POCRequest is a branch workbook plus an archive of its evidence images
type POCRequest struct {
	Excel       Upload
	Zip         Upload
	SrNo        string
	BranchName  string
	RequestedBy string
}

// POCOutputName returns "<srNo> <branchName>.xlsx", falling back to the
// uploaded workbook name with underscores shown as spaces.
func POCOutputName(srNo, branchName, uploaded string) string {
	if name := strings.TrimSpace(branchName); name != "" {
		stem := strings.TrimSpace(strings.TrimSpace(srNo) + " " + name)
		stem = strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(stem, ""))
		if stem != "" {
			return stem + ".xlsx"
		}
	}

	base := filepath.Base(strings.ReplaceAll(uploaded, `\`, "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(strings.ReplaceAll(stem, "_", " "), ""))
	if stem == "" || stem == "." {
		return DefaultPOCName
	}
	return stem + ".xlsx"
}

// BranchPOC adds the POC columns to every sheet of the branch workbook and
// places each evidence image next to the question it belongs to.
func (g *Generator) BranchPOC(ctx context.Context, req POCRequest) (out *Output, err error) {
	rec := models.NewGenerationRecord(models.GeneratorBranchPOC, req.RequestedBy)
	started := time.Now()
	defer func() { g.finish(ctx, rec, started, err) }()

	if req.Excel.Empty() || req.Zip.Empty() {
		return nil, fmt.Errorf("%w: excel workbook and zip archive are both required", ErrMissingFile)
	}
	if err := ValidateUpload(req.Excel, "excelFile", ExcelExtensions); err != nil {
		return nil, err
	}
	if err := ValidateUpload(req.Zip, "zipFile", ZipExtensions); err != nil {
		return nil, err
	}

	dir, cleanup, err := g.Workspace("poc")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	f, err := excelize.OpenFile(req.Excel.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var pocSheets []string
	for _, sheet := range f.GetSheetList() {
		added, err := workbook.AddPOCColumns(f, sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to add POC columns to %s: %w", sheet, err)
		}
		if !added {
			g.logger.Debug("sheet has no data in column F, POC columns not added", zap.String("sheet", sheet))
			continue
		}
		pocSheets = append(pocSheets, sheet)
	}

	rows, err := workbook.QuestionRows(f, pocSheets)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	images, err := evidence.ExtractImages(req.Zip.Path, dir, g.limits)
	if err != nil {
		return nil, fmt.Errorf("failed to extract evidence: %w", err)
	}
	rec.ImagesFound = len(images)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups, unmatched := evidence.GroupByBase(images)
	var skipped []evidence.SkippedImage
	for _, img := range unmatched {
		g.logger.Info("evidence filename has no question number", zap.String("image", img.Filename))
		skipped = append(skipped, evidence.SkippedImage{Image: img, Reason: "filename has no question number"})
	}

	matcher := evidence.NewMatcher(g.registry.Branch(), g.logger)
	planner := evidence.NewSheetPlanner(matcher, evidence.Measure, workbook.POCStartColumn, g.logger)
	plan := planner.Plan(rows, groups)
	for _, row := range plan.UnmatchedRows {
		g.logger.Debug("question text not in catalog",
			zap.String("sheet", row.Sheet), zap.Int("row", row.Row), zap.String("text", row.Text))
	}

	placed, failed := workbook.InsertPictures(f, plan.Placements, g.logger)
	skipped = append(skipped, plan.Skipped...)
	skipped = append(skipped, plan.Unused...)
	skipped = append(skipped, failed...)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	name := POCOutputName(req.SrNo, req.BranchName, req.Excel.Name)
	rec.OutputName = name
	rec.ImagesPlaced = placed
	rec.ImagesSkipped = len(skipped)
	return &Output{
		Name:        name,
		ContentType: XLSXContentType,
		Data:        buf.Bytes(),
		Record:      rec,
		Skipped:     skipped,
	}, nil
}

// CombineRequest is an archive of branch workbooks
type CombineRequest struct {
	Zip         Upload
	RequestedBy string
}

func isWorkbook(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return !strings.HasPrefix(filepath.Base(name), "~$")
	}
	return false
}

// Combine merges every sheet of every workbook in the archive into a single
// workbook, one sheet per source sheet.
func (g *Generator) Combine(ctx context.Context, req CombineRequest) (out *Output, err error) {
	rec := models.NewGenerationRecord(models.GeneratorBranchCombine, req.RequestedBy)
	started := time.Now()
	defer func() { g.finish(ctx, rec, started, err) }()

	if err := ValidateUpload(req.Zip, "zipFile", ZipExtensions); err != nil {
		return nil, err
	}

	dir, cleanup, err := g.Workspace("combine")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	files, err := extractArchive(req.Zip.Path, dir, isWorkbook, g.limits)
	if err != nil {
		return nil, fmt.Errorf("failed to extract workbooks: %w", err)
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	sources := make([]workbook.CombineSource, 0, len(files))
	for _, file := range files {
		sources = append(sources, workbook.CombineSource{Name: file.Name, Path: file.Path})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := workbook.Combine(sources, g.logger)
	if err != nil {
		return nil, err
	}
	defer result.File.Close()

	buf, err := result.File.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write combined workbook: %w", err)
	}

	var warnings []string
	for _, name := range result.Failed {
		warnings = append(warnings, fmt.Sprintf("could not read %s", name))
	}
	rec.OutputName = CombinedName
	return &Output{
		Name:        CombinedName,
		ContentType: XLSXContentType,
		Data:        buf.Bytes(),
		Record:      rec,
		Warnings:    warnings,
	}, nil
}
