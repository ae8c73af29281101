package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    Answer
		expectError bool
	}{
		{name: "form value compliance", input: "compliance", expected: AnswerCompliance},
		{name: "form value non compliance", input: "non_compliance", expected: AnswerNonCompliance},
		{name: "hyphenated", input: "Non-Compliance", expected: AnswerNonCompliance},
		{name: "display label", input: "Not Applicable", expected: AnswerNotApplicable},
		{name: "empty defaults to not applicable", input: "  ", expected: AnswerNotApplicable},
		{name: "unknown value", input: "maybe", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, err := ParseAnswer(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, answer)
			assert.True(t, answer.IsValid())
		})
	}
}

func TestAnswerLabel(t *testing.T) {
	assert.Equal(t, "Compliance", AnswerCompliance.Label())
	assert.Equal(t, "Non-Compliance", AnswerNonCompliance.Label())
	assert.Equal(t, "Not Applicable", AnswerNotApplicable.Label())
	assert.Len(t, Answers(), 3)
}

func TestRiskFactorColor(t *testing.T) {
	tests := []struct {
		risk  RiskFactor
		color string
	}{
		{RiskCritical, "8B0000"},
		{RiskHigh, "FF0000"},
		{RiskMedium, "FFA500"},
		{RiskLow, "008000"},
		{RiskFactor("Informational"), "808080"},
	}

	for _, tt := range tests {
		t.Run(string(tt.risk), func(t *testing.T) {
			assert.Equal(t, tt.color, tt.risk.Color())
		})
	}
}

func TestParseRiskFactor(t *testing.T) {
	risk, err := ParseRiskFactor(" critical ")
	require.NoError(t, err)
	assert.Equal(t, RiskCritical, risk)

	_, err = ParseRiskFactor("severe")
	assert.Error(t, err)
}

func TestGenerationRecordFinish(t *testing.T) {
	record := NewGenerationRecord(GeneratorBranchPOC, "auditor")
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, GenerationSucceeded, record.Status)

	record.Finish(time.Now().Add(-time.Second), nil)
	assert.GreaterOrEqual(t, record.Duration, time.Second)
	assert.Equal(t, GenerationSucceeded, record.Status)

	failed := NewGenerationRecord(GeneratorGapAnnexure, "")
	failed.Finish(time.Now(), errors.New("zip is empty"))
	assert.Equal(t, GenerationFailed, failed.Status)
	assert.Equal(t, "zip is empty", failed.Error)
}
