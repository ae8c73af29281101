package models

import (
	"time"

	"github.com/google/uuid"
)

// Generator identifies which deliverable produced a GenerationRecord
type Generator string

const (
	GeneratorQuestionnaire Generator = "questionnaire"
	GeneratorBranchPOC     Generator = "branch_poc"
	GeneratorBranchCombine Generator = "branch_combine"
	GeneratorGapAnnexure   Generator = "gap_annexure"
)

// GenerationStatus is the outcome of a generation run
type GenerationStatus string

const (
	GenerationSucceeded GenerationStatus = "succeeded"
	GenerationFailed    GenerationStatus = "failed"
)

// GenerationRecord is the activity log entry written for every generated report
type GenerationRecord struct {
	ID            string           `json:"id"`
	Generator     Generator        `json:"generator"`
	Module        string           `json:"module,omitempty"`       // questionnaire module id, when applicable
	RequestedBy   string           `json:"requested_by,omitempty"` // JWT subject or CLI user
	OutputName    string           `json:"output_name,omitempty"`
	ImagesFound   int              `json:"images_found"`
	ImagesPlaced  int              `json:"images_placed"`
	ImagesSkipped int              `json:"images_skipped"`
	Duration      time.Duration    `json:"duration"`
	Status        GenerationStatus `json:"status"`
	Error         string           `json:"error,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NewGenerationRecord starts a record for the given generator
func NewGenerationRecord(generator Generator, requestedBy string) *GenerationRecord {
	return &GenerationRecord{
		ID:          uuid.New().String(),
		Generator:   generator,
		RequestedBy: requestedBy,
		Status:      GenerationSucceeded,
		CreatedAt:   time.Now().UTC(),
	}
}

// Finish stamps the duration and, when err is non-nil, marks the record failed
func (r *GenerationRecord) Finish(started time.Time, err error) {
	r.Duration = time.Since(started)
	if err != nil {
		r.Status = GenerationFailed
		r.Error = err.Error()
	}
}
