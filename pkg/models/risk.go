package models

import (
	"fmt"
	"strings"
)

// RiskFactor is the static severity attached to a questionnaire question
type RiskFactor string

const (
	RiskCritical RiskFactor = "Critical"
	RiskHigh     RiskFactor = "High"
	RiskMedium   RiskFactor = "Medium"
	RiskLow      RiskFactor = "Low"
)

// fallbackRiskColor fills risk cells whose factor is not recognised
const fallbackRiskColor = "808080"

var riskColors = map[RiskFactor]string{
	RiskCritical: "8B0000",
	RiskHigh:     "FF0000",
	RiskMedium:   "FFA500",
	RiskLow:      "008000",
}

// ParseRiskFactor parses a risk factor name, ignoring case
func ParseRiskFactor(value string) (RiskFactor, error) {
	for risk := range riskColors {
		if strings.EqualFold(string(risk), strings.TrimSpace(value)) {
			return risk, nil
		}
	}
	return "", fmt.Errorf("unknown risk factor %q", value)
}

// Color returns the RGB hex fill (without '#') used for the risk cell
func (r RiskFactor) Color() string {
	if color, ok := riskColors[r]; ok {
		return color
	}
	return fallbackRiskColor
}

// IsValid reports whether r is a known risk factor
func (r RiskFactor) IsValid() bool {
	_, ok := riskColors[r]
	return ok
}
