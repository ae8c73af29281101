package catalog

import (
	"errors"
	"fmt"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

// ErrMissingResponse is returned when a module has no boilerplate for a question/answer pair
var ErrMissingResponse = errors.New("catalog has no response for question")

// Response is the pre-written text emitted for one answer to one question
type Response struct {
	Status         string `yaml:"status" json:"status"`
	Brief          string `yaml:"brief" json:"brief"`
	Observation    string `yaml:"observation" json:"observation"`
	Impact         string `yaml:"impact" json:"impact"`
	Recommendation string `yaml:"recommendation" json:"recommendation"`
}

// Question is one questionnaire row
type Question struct {
	Number    int                        `yaml:"number" json:"number"`
	Field     string                     `yaml:"field" json:"field"` // form field name carrying the answer
	Text      string                     `yaml:"text" json:"text"`
	Risk      models.RiskFactor          `yaml:"risk" json:"risk"`
	Responses map[models.Answer]Response `yaml:"responses" json:"-"`
}

// Module is a per-asset audit questionnaire such as Antivirus or Firewall
type Module struct {
	ID        string     `yaml:"id" json:"id"`
	Title     string     `yaml:"title" json:"title"`
	Filename  string     `yaml:"filename" json:"filename"` // output workbook name
	Questions []Question `yaml:"questions" json:"questions"`
}

// Response returns the boilerplate for the given question and answer
func (m *Module) Response(q Question, answer models.Answer) (Response, error) {
	resp, ok := q.Responses[answer]
	if !ok {
		return Response{}, fmt.Errorf("%w: module %s question %d (%s) answer %s",
			ErrMissingResponse, m.ID, q.Number, q.Field, answer)
	}
	return resp, nil
}

// Question returns the question bound to a form field
func (m *Module) Question(field string) (Question, bool) {
	for _, q := range m.Questions {
		if q.Field == field {
			return q, true
		}
	}
	return Question{}, false
}

// Catalog exposes the module's questions as a QuestionCatalog so that
// worksheet text can be matched back to question numbers.
func (m *Module) Catalog() *QuestionCatalog {
	entries := make([]Entry, 0, len(m.Questions))
	for _, q := range m.Questions {
		entries = append(entries, Entry{Number: q.Number, Text: q.Text})
	}
	return NewQuestionCatalog(m.ID, m.Title, entries, nil)
}

func (m *Module) validate() error {
	if m.ID == "" {
		return errors.New("module id is required")
	}
	if m.Filename == "" {
		return fmt.Errorf("module %s: filename is required", m.ID)
	}
	if len(m.Questions) == 0 {
		return fmt.Errorf("module %s: no questions", m.ID)
	}

	numbers := make(map[int]bool, len(m.Questions))
	fields := make(map[string]bool, len(m.Questions))
	for _, q := range m.Questions {
		if numbers[q.Number] {
			return fmt.Errorf("module %s: duplicate question number %d", m.ID, q.Number)
		}
		numbers[q.Number] = true

		if q.Field == "" || fields[q.Field] {
			return fmt.Errorf("module %s: question %d has empty or duplicate field %q", m.ID, q.Number, q.Field)
		}
		fields[q.Field] = true

		if !q.Risk.IsValid() {
			return fmt.Errorf("module %s: question %d has unknown risk factor %q", m.ID, q.Number, q.Risk)
		}
		for _, answer := range models.Answers() {
			if _, err := m.Response(q, answer); err != nil {
				return err
			}
		}
	}
	return nil
}
