package workbook

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
)

const (
	// POCStartColumn is the first POC column (G)
	POCStartColumn = 7
	// POCColumnCount is the number of POC columns inserted
	POCColumnCount = 3

	pocHeader        = "POC"
	pocColumnWidth   = 12
	pocDataColumn    = 6 // F decides how far the POC borders run
	questionColumn   = 2 // B holds question text
	rowHeightStep    = 10
	unsetRowHeight   = 30
	defaultRowHeight = 15 // excelize reports this for rows without a custom height
	maxRowHeight     = 409
)

// LastDataRow returns the last 1-based row whose cell in column col is not
// blank, or 0 when the column is empty.
func LastDataRow(f *excelize.File, sheet string, col int) (int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read rows of %s: %w", sheet, err)
	}
	last := 0
	for i, row := range rows {
		if len(row) >= col && strings.TrimSpace(row[col-1]) != "" {
			last = i + 1
		}
	}
	return last, nil
}

// AddPOCColumns inserts the three POC columns at G when column F has data.
// It reports whether the sheet was changed.
func AddPOCColumns(f *excelize.File, sheet string) (bool, error) {
	last, err := LastDataRow(f, sheet, pocDataColumn)
	if err != nil {
		return false, err
	}
	if last == 0 {
		return false, nil
	}

	first, _ := excelize.ColumnNumberToName(POCStartColumn)
	lastCol, _ := excelize.ColumnNumberToName(POCStartColumn + POCColumnCount - 1)

	if err := f.InsertCols(sheet, first, POCColumnCount); err != nil {
		return false, fmt.Errorf("failed to insert POC columns: %w", err)
	}
	if err := f.MergeCell(sheet, first+"1", lastCol+"1"); err != nil {
		return false, fmt.Errorf("failed to merge POC header: %w", err)
	}
	if err := f.SetCellValue(sheet, first+"1", pocHeader); err != nil {
		return false, fmt.Errorf("failed to write POC header: %w", err)
	}

	// The three columns read as one bordered block: the outer edges carry
	// the side borders and every cell keeps top and bottom.
	sides := [POCColumnCount][]string{
		{"left", "top", "bottom"},
		{"top", "bottom"},
		{"right", "top", "bottom"},
	}
	styles := newStyleCache(f)
	for offset := 0; offset < POCColumnCount; offset++ {
		colName, _ := excelize.ColumnNumberToName(POCStartColumn + offset)
		edge := sides[offset]

		headerStyle, err := styles.get(fmt.Sprintf("header:%d", offset), func() *excelize.Style {
			return &excelize.Style{
				Font:      &excelize.Font{Family: fontTimes, Size: 12, Bold: true},
				Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
				Border:    borders(edge...),
			}
		})
		if err != nil {
			return false, fmt.Errorf("failed to create POC header style: %w", err)
		}
		bodyStyle, err := styles.get(fmt.Sprintf("body:%d", offset), func() *excelize.Style {
			return &excelize.Style{Border: borders(edge...)}
		})
		if err != nil {
			return false, fmt.Errorf("failed to create POC border style: %w", err)
		}

		if err := f.SetCellStyle(sheet, colName+"1", colName+"1", headerStyle); err != nil {
			return false, fmt.Errorf("failed to style POC header: %w", err)
		}
		if last > 1 {
			if err := f.SetCellStyle(sheet, colName+"2", fmt.Sprintf("%s%d", colName, last), bodyStyle); err != nil {
				return false, fmt.Errorf("failed to style POC column %s: %w", colName, err)
			}
		}
	}

	if err := f.SetColWidth(sheet, first, lastCol, pocColumnWidth); err != nil {
		return false, fmt.Errorf("failed to set POC column width: %w", err)
	}

	if err := growRowHeights(f, sheet, last); err != nil {
		return false, err
	}
	return true, nil
}

// growRowHeights adds rowHeightStep points to every used row. Rows without
// a custom height become unsetRowHeight.
func growRowHeights(f *excelize.File, sheet string, minRows int) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read rows of %s: %w", sheet, err)
	}
	total := max(len(rows), minRows)

	for r := 1; r <= total; r++ {
		height, err := f.GetRowHeight(sheet, r)
		if err != nil {
			return fmt.Errorf("failed to read height of row %d: %w", r, err)
		}
		next := height + rowHeightStep
		if height <= 0 || height == defaultRowHeight {
			next = unsetRowHeight
		}
		if err := f.SetRowHeight(sheet, r, min(next, maxRowHeight)); err != nil {
			return fmt.Errorf("failed to set height of row %d: %w", r, err)
		}
	}
	return nil
}

// QuestionRows collects the question text of column B from the given
// sheets, in sheet order then row order.
func QuestionRows(f *excelize.File, sheets []string) ([]evidence.RowQuestion, error) {
	var out []evidence.RowQuestion
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read rows of %s: %w", sheet, err)
		}
		for i, row := range rows {
			if len(row) < questionColumn {
				continue
			}
			text := strings.TrimSpace(row[questionColumn-1])
			if text == "" {
				continue
			}
			out = append(out, evidence.RowQuestion{Sheet: sheet, Row: i + 1, Text: text})
		}
	}
	return out, nil
}
