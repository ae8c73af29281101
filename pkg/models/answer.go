// Package models provides data models for the audit report generator
package models

import (
	"fmt"
	"strings"
)

// Answer is the auditor's response to a questionnaire question
type Answer string

const (
	AnswerCompliance    Answer = "compliance"
	AnswerNonCompliance Answer = "non_compliance"
	AnswerNotApplicable Answer = "not_applicable"
)

// DefaultAnswer is used for questions the auditor left unanswered
const DefaultAnswer = AnswerNotApplicable

// Answers lists every answer in display order
func Answers() []Answer {
	return []Answer{AnswerCompliance, AnswerNonCompliance, AnswerNotApplicable}
}

// ParseAnswer accepts form values (compliance, non_compliance, not_applicable),
// their hyphenated forms and the display labels. An empty value yields DefaultAnswer.
func ParseAnswer(value string) (Answer, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	switch normalized {
	case "":
		return DefaultAnswer, nil
	case "compliance", "compliant":
		return AnswerCompliance, nil
	case "non_compliance", "noncompliance", "non_compliant":
		return AnswerNonCompliance, nil
	case "not_applicable", "na", "n/a":
		return AnswerNotApplicable, nil
	}
	return "", fmt.Errorf("invalid answer %q", value)
}

// Label returns the text written into the status column
func (a Answer) Label() string {
	switch a {
	case AnswerCompliance:
		return "Compliance"
	case AnswerNonCompliance:
		return "Non-Compliance"
	case AnswerNotApplicable:
		return "Not Applicable"
	default:
		return string(a)
	}
}

// IsValid reports whether a is one of the known answers
func (a Answer) IsValid() bool {
	switch a {
	case AnswerCompliance, AnswerNonCompliance, AnswerNotApplicable:
		return true
	}
	return false
}
