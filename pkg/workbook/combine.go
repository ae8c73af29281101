package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const maxSheetNameLength = 31

var sheetNameReplacer = strings.NewReplacer("[", "", "]", "", "*", "", "?", "", `\`, "", "/", "", ":", "")

// SanitizeSheetName makes name a legal worksheet name: forbidden characters
// removed, at most 31 characters, and "Sheet_<index>" when nothing is left.
func SanitizeSheetName(name string, index int) string {
	name = strings.Trim(sheetNameReplacer.Replace(name), "' ")
	if utf8.RuneCountInString(name) > maxSheetNameLength {
		name = strings.TrimRight(string([]rune(name)[:maxSheetNameLength]), "' ")
	}
	if name == "" {
		return fmt.Sprintf("Sheet_%d", index)
	}
	return name
}

// uniqueSheetName appends " (n)" until name is unused, keeping the 31 character limit
func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := " (" + strconv.Itoa(n) + ")"
		runes := []rune(name)
		if keep := maxSheetNameLength - len(suffix); len(runes) > keep {
			runes = runes[:keep]
		}
		candidate = string(runes) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// CombineSource is one workbook to merge
type CombineSource struct {
	Name string // file name used to title its sheets
	Path string
}

// CombineResult describes a merged workbook
type CombineResult struct {
	File   *excelize.File
	Sheets []string // created sheet names in order
	Failed []string // sources that could not be read
}

// Combine copies every sheet of every source into a new workbook. Values,
// formulas, styles, merged cells, column widths, row heights and pictures
// are carried over. A source that cannot be opened is logged and skipped.
func Combine(sources []CombineSource, logger *zap.Logger) (*CombineResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dst := excelize.NewFile()
	result := &CombineResult{File: dst}
	used := make(map[string]bool)

	for _, source := range sources {
		sheets, err := combineSource(dst, source, used, len(result.Sheets))
		if err != nil {
			logger.Warn("skipping workbook", zap.String("file", source.Name), zap.Error(err))
			result.Failed = append(result.Failed, source.Name)
			continue
		}
		result.Sheets = append(result.Sheets, sheets...)
		logger.Info("combined workbook", zap.String("file", source.Name), zap.Strings("sheets", sheets))
	}

	if len(result.Sheets) == 0 {
		dst.Close()
		return nil, fmt.Errorf("no workbook could be combined (%d failed)", len(result.Failed))
	}

	// NewFile always starts with Sheet1; drop it unless a source claimed the name.
	if !used["sheet1"] {
		if err := dst.DeleteSheet("Sheet1"); err != nil {
			dst.Close()
			return nil, fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}
	if idx, err := dst.GetSheetIndex(result.Sheets[0]); err == nil {
		dst.SetActiveSheet(idx)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := dst.SetDocProps(&excelize.DocProperties{
		Title:       "Combined Excel Files",
		Creator:     "Audit Dashboard",
		Subject:     "Branch Excel With Evidence",
		Description: "Combined Excel files from ZIP archive",
		Created:     now,
		Modified:    now,
	}); err != nil {
		dst.Close()
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}
	return result, nil
}

func combineSource(dst *excelize.File, source CombineSource, used map[string]bool, added int) ([]string, error) {
	src, err := excelize.OpenFile(source.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer src.Close()

	base := strings.TrimSuffix(source.Name, fileExt(source.Name))
	styles := make(map[int]int)

	var created []string
	for _, srcSheet := range src.GetSheetList() {
		name := uniqueSheetName(SanitizeSheetName(base, added+len(created)+1), used)
		if name != "Sheet1" {
			if _, err := dst.NewSheet(name); err != nil {
				return created, fmt.Errorf("failed to create sheet %s: %w", name, err)
			}
		}
		if err := copySheet(src, srcSheet, dst, name, styles); err != nil {
			return created, fmt.Errorf("failed to copy sheet %s: %w", srcSheet, err)
		}
		created = append(created, name)
	}
	return created, nil
}

func fileExt(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}

// sheetExtent returns the used rows and columns of a sheet
func sheetExtent(f *excelize.File, sheet string) (int, int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, 0, err
	}
	maxRow, maxCol := len(rows), 0
	for _, row := range rows {
		maxCol = max(maxCol, len(row))
	}

	if dim, err := f.GetSheetDimension(sheet); err == nil && dim != "" {
		refs := strings.Split(dim, ":")
		col, row, err := excelize.CellNameToCoordinates(refs[len(refs)-1])
		if err == nil {
			maxRow, maxCol = max(maxRow, row), max(maxCol, col)
		}
	}

	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return 0, 0, err
	}
	for _, m := range merges {
		col, row, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err == nil {
			maxRow, maxCol = max(maxRow, row), max(maxCol, col)
		}
	}
	return maxRow, maxCol, nil
}

func copySheet(src *excelize.File, srcSheet string, dst *excelize.File, dstSheet string, styles map[int]int) error {
	maxRow, maxCol, err := sheetExtent(src, srcSheet)
	if err != nil {
		return err
	}

	for r := 1; r <= maxRow; r++ {
		for c := 1; c <= maxCol; c++ {
			cell, _ := excelize.CoordinatesToCellName(c, r)
			if err := copyCell(src, srcSheet, dst, dstSheet, cell, styles); err != nil {
				return fmt.Errorf("cell %s: %w", cell, err)
			}
		}

		height, err := src.GetRowHeight(srcSheet, r)
		if err == nil && height > 0 && height != defaultRowHeight {
			if err := dst.SetRowHeight(dstSheet, r, height); err != nil {
				return err
			}
		}
	}

	for c := 1; c <= maxCol; c++ {
		col, _ := excelize.ColumnNumberToName(c)
		width, err := src.GetColWidth(srcSheet, col)
		if err != nil {
			return err
		}
		if err := dst.SetColWidth(dstSheet, col, col, width); err != nil {
			return err
		}
	}

	merges, err := src.GetMergeCells(srcSheet)
	if err != nil {
		return err
	}
	for _, m := range merges {
		if err := dst.MergeCell(dstSheet, m.GetStartAxis(), m.GetEndAxis()); err != nil {
			return err
		}
	}

	return copyPictures(src, srcSheet, dst, dstSheet)
}

func copyCell(src *excelize.File, srcSheet string, dst *excelize.File, dstSheet, cell string, styles map[int]int) error {
	formula, err := src.GetCellFormula(srcSheet, cell)
	if err != nil {
		return err
	}

	if formula != "" {
		if err := dst.SetCellFormula(dstSheet, cell, formula); err != nil {
			return err
		}
	} else {
		raw, err := src.GetCellValue(srcSheet, cell, excelize.Options{RawCellValue: true})
		if err != nil {
			return err
		}
		if raw != "" {
			if err := setTypedValue(src, srcSheet, dst, dstSheet, cell, raw); err != nil {
				return err
			}
		}
	}

	styleID, err := src.GetCellStyle(srcSheet, cell)
	if err != nil || styleID == 0 {
		return err
	}
	dstID, ok := styles[styleID]
	if !ok {
		style, err := src.GetStyle(styleID)
		if err != nil {
			return err
		}
		if dstID, err = dst.NewStyle(style); err != nil {
			return err
		}
		styles[styleID] = dstID
	}
	return dst.SetCellStyle(dstSheet, cell, cell, dstID)
}

func setTypedValue(src *excelize.File, srcSheet string, dst *excelize.File, dstSheet, cell, raw string) error {
	typ, err := src.GetCellType(srcSheet, cell)
	if err != nil {
		return err
	}
	switch typ {
	case excelize.CellTypeBool:
		return dst.SetCellBool(dstSheet, cell, raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return dst.SetCellStr(dstSheet, cell, raw)
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return dst.SetCellFloat(dstSheet, cell, v, -1, 64)
	}
	return dst.SetCellStr(dstSheet, cell, raw)
}

func copyPictures(src *excelize.File, srcSheet string, dst *excelize.File, dstSheet string) error {
	cells, err := src.GetPictureCells(srcSheet)
	if err != nil {
		return err
	}
	for _, cell := range cells {
		pics, err := src.GetPictures(srcSheet, cell)
		if err != nil {
			return err
		}
		for i := range pics {
			if err := dst.AddPictureFromBytes(dstSheet, cell, &pics[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
