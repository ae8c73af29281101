package workbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func branchWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Sr. No.", "Questionnaire", "Compliance", "Brief", "Risk", "Observation", "Impact"},
		{1, "Do employees are using strong passwords?", "Compliance", "ok", "High", "Observed", "Low impact"},
		{2, "Do you mandate periodical password changes?", "Non-Compliance", "no", "Medium", "Observed", "Some impact"},
		{3, "Remarks"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SetRowHeight("Sheet1", 2, 40))
	return f
}

func TestAddPOCColumns(t *testing.T) {
	f := branchWorkbook(t)
	defer f.Close()

	changed, err := AddPOCColumns(f, "Sheet1")
	require.NoError(t, err)
	assert.True(t, changed)

	header, err := f.GetCellValue("Sheet1", "G1")
	require.NoError(t, err)
	assert.Equal(t, "POC", header)

	moved, err := f.GetCellValue("Sheet1", "J2")
	require.NoError(t, err)
	assert.Equal(t, "Low impact", moved, "existing column G shifts right by three")

	merges, err := f.GetMergeCells("Sheet1")
	require.NoError(t, err)
	require.Len(t, merges, 1)
	assert.Equal(t, "G1", merges[0].GetStartAxis())
	assert.Equal(t, "I1", merges[0].GetEndAxis())

	for _, col := range []string{"G", "H", "I"} {
		width, err := f.GetColWidth("Sheet1", col)
		require.NoError(t, err)
		assert.Equal(t, 12.0, width, col)
	}

	h1, err := f.GetRowHeight("Sheet1", 1)
	require.NoError(t, err)
	assert.Equal(t, 30.0, h1, "unset height becomes 30")
	h2, err := f.GetRowHeight("Sheet1", 2)
	require.NoError(t, err)
	assert.Equal(t, 50.0, h2, "custom height grows by 10")

	id, err := f.GetCellStyle("Sheet1", "H2")
	require.NoError(t, err)
	style, err := f.GetStyle(id)
	require.NoError(t, err)
	sides := make(map[string]bool)
	for _, b := range style.Border {
		sides[b.Type] = true
	}
	assert.Equal(t, map[string]bool{"top": true, "bottom": true}, sides)
}

func TestAddPOCColumnsWithoutColumnF(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "Only questions"))

	changed, err := AddPOCColumns(f, "Sheet1")
	require.NoError(t, err)
	assert.False(t, changed)

	value, err := f.GetCellValue("Sheet1", "G1")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestLastDataRow(t *testing.T) {
	f := branchWorkbook(t)
	defer f.Close()

	last, err := LastDataRow(f, "Sheet1", 6)
	require.NoError(t, err)
	assert.Equal(t, 3, last)
}

func TestQuestionRows(t *testing.T) {
	f := branchWorkbook(t)
	defer f.Close()
	_, err := f.NewSheet("Annex")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Annex", "B5", "  Personal Data have been found in the below systems  "))

	tests := []struct {
		name      string
		sheets    []string
		wantLen   int
		wantSheet []string
	}{
		{name: "all sheets", sheets: []string{"Sheet1", "Annex"}, wantLen: 5, wantSheet: []string{"Sheet1", "Annex"}},
		{name: "first sheet only", sheets: []string{"Sheet1"}, wantLen: 4, wantSheet: []string{"Sheet1"}},
		{name: "annex only", sheets: []string{"Annex"}, wantLen: 1, wantSheet: []string{"Annex"}},
		{name: "none", wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := QuestionRows(f, tt.sheets)
			require.NoError(t, err)
			require.Len(t, rows, tt.wantLen)

			var sheets []string
			for _, row := range rows {
				if len(sheets) == 0 || sheets[len(sheets)-1] != row.Sheet {
					sheets = append(sheets, row.Sheet)
				}
			}
			assert.Equal(t, tt.wantSheet, sheets)
		})
	}

	rows, err := QuestionRows(f, f.GetSheetList())
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Sheet1", rows[1].Sheet)
	assert.Equal(t, 2, rows[1].Row)
	assert.Equal(t, "Annex", rows[4].Sheet)
	assert.Equal(t, 5, rows[4].Row)
	assert.Equal(t, "Personal Data have been found in the below systems", rows[4].Text)
}
