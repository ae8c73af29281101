package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

// QuestionnaireHeaders is the header row of every questionnaire sheet
var QuestionnaireHeaders = []string{
	"Sr. No.",
	"Questionnaire/Points",
	"Compliance/Non-Compliance/Not Applicable",
	"Observation (Short/Brief)",
	"Risk Factor",
	"Observation",
	"Impact",
	"Recommendation",
}

var questionnaireWidths = map[string]float64{
	"A": 10, "B": 50, "C": 20, "D": 30, "E": 20, "F": 50, "G": 50, "H": 50,
}

const questionnaireRowHeight = 30

// QuestionnaireRow is one answered question
type QuestionnaireRow struct {
	Question       string
	Status         string
	Brief          string
	Risk           models.RiskFactor
	Observation    string
	Impact         string
	Recommendation string
}

// BuildQuestionnaire lays out a questionnaire sheet titled title, one row per
// question starting at row 2.
func BuildQuestionnaire(title string, rows []QuestionnaireRow) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := SanitizeSheetName(title, 1)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := writeQuestionnaire(f, sheet, rows); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeQuestionnaire(f *excelize.File, sheet string, rows []QuestionnaireRow) error {
	styles := newStyleCache(f)

	header := make([]interface{}, len(QuestionnaireHeaders))
	for i, h := range QuestionnaireHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	headerStyle, err := styles.get("header", func() *excelize.Style {
		return &excelize.Style{
			Font:      &excelize.Font{Family: fontCalibri, Size: 12, Bold: true, Color: white},
			Fill:      solidFill(headerFillColor),
			Alignment: centered(),
			Border:    allBorders(),
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "H1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for col, width := range questionnaireWidths {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", col, err)
		}
	}

	leftStyle, err := styles.get("left", func() *excelize.Style {
		return &excelize.Style{
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
			Border:    allBorders(),
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create body style: %w", err)
	}
	centerStyle, err := styles.get("center", func() *excelize.Style {
		return &excelize.Style{Alignment: centered(), Border: allBorders()}
	})
	if err != nil {
		return fmt.Errorf("failed to create body style: %w", err)
	}

	for i, row := range rows {
		r := i + 2
		values := []interface{}{
			i + 1,
			row.Question,
			row.Status,
			row.Brief,
			string(row.Risk),
			row.Observation,
			row.Impact,
			row.Recommendation,
		}
		start, _ := excelize.CoordinatesToCellName(1, r)
		end, _ := excelize.CoordinatesToCellName(8, r)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}

		if err := f.SetCellStyle(sheet, start, end, leftStyle); err != nil {
			return fmt.Errorf("failed to style row %d: %w", r, err)
		}
		for _, col := range []string{"A", "C"} {
			cell := fmt.Sprintf("%s%d", col, r)
			if err := f.SetCellStyle(sheet, cell, cell, centerStyle); err != nil {
				return fmt.Errorf("failed to style %s: %w", cell, err)
			}
		}

		risk := row.Risk
		riskStyle, err := styles.get("risk:"+risk.Color(), func() *excelize.Style {
			return &excelize.Style{
				Font:      &excelize.Font{Family: fontCalibri, Size: 11, Bold: true, Color: white},
				Fill:      solidFill(risk.Color()),
				Alignment: centered(),
				Border:    allBorders(),
			}
		})
		if err != nil {
			return fmt.Errorf("failed to create risk style: %w", err)
		}
		riskCell := fmt.Sprintf("E%d", r)
		if err := f.SetCellStyle(sheet, riskCell, riskCell, riskStyle); err != nil {
			return fmt.Errorf("failed to style %s: %w", riskCell, err)
		}

		if err := f.SetRowHeight(sheet, r, questionnaireRowHeight); err != nil {
			return fmt.Errorf("failed to set height of row %d: %w", r, err)
		}
	}
	return nil
}
