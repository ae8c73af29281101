package workbook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

func fillColor(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	id, err := f.GetCellStyle(sheet, cell)
	require.NoError(t, err)
	style, err := f.GetStyle(id)
	require.NoError(t, err)
	require.NotEmpty(t, style.Fill.Color)
	return strings.ToUpper(style.Fill.Color[0])
}

func TestBuildQuestionnaire(t *testing.T) {
	f, err := BuildQuestionnaire("Antivirus", []QuestionnaireRow{
		{
			Question:       "Is the antivirus available?",
			Status:         "Compliance",
			Brief:          "Antivirus installed on all systems.",
			Risk:           models.RiskCritical,
			Observation:    "It was verified that antivirus is installed.",
			Impact:         "Ensures systems are safeguarded.",
			Recommendation: "Regularly verify antivirus installation.",
		},
		{Question: "Is USB blocked?", Status: "Not Applicable", Risk: models.RiskLow},
	})
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Antivirus"}, f.GetSheetList())

	for i, header := range QuestionnaireHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		value, err := f.GetCellValue("Antivirus", cell)
		require.NoError(t, err)
		assert.Equal(t, header, value)
	}
	assert.True(t, strings.HasSuffix(fillColor(t, f, "Antivirus", "A1"), "366092"))

	values := map[string]string{
		"A2": "1",
		"B2": "Is the antivirus available?",
		"C2": "Compliance",
		"D2": "Antivirus installed on all systems.",
		"E2": "Critical",
		"H2": "Regularly verify antivirus installation.",
		"A3": "2",
		"E3": "Low",
	}
	for cell, want := range values {
		got, err := f.GetCellValue("Antivirus", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	assert.True(t, strings.HasSuffix(fillColor(t, f, "Antivirus", "E2"), "8B0000"))
	assert.True(t, strings.HasSuffix(fillColor(t, f, "Antivirus", "E3"), "008000"))

	width, err := f.GetColWidth("Antivirus", "B")
	require.NoError(t, err)
	assert.Equal(t, 50.0, width)

	height, err := f.GetRowHeight("Antivirus", 2)
	require.NoError(t, err)
	assert.Equal(t, 30.0, height)
}

func TestBuildQuestionnaireUnknownRiskUsesFallbackFill(t *testing.T) {
	f, err := BuildQuestionnaire("Custom", []QuestionnaireRow{{Question: "Q", Risk: models.RiskFactor("Info")}})
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, strings.HasSuffix(fillColor(t, f, "Custom", "E2"), "808080"))
}
