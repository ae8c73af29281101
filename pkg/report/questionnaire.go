package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
	"github.com/pramodksahoo/audit-reporter/pkg/workbook"
)

// QuestionnaireRequest carries the answers for one module, keyed by the
// question's form field. Unanswered questions default to Not Applicable.
type QuestionnaireRequest struct {
	Module      string
	Answers     map[string]string
	RequestedBy string
}

// Questionnaire renders the answered questionnaire workbook for a module
func (g *Generator) Questionnaire(ctx context.Context, req QuestionnaireRequest) (out *Output, err error) {
	rec := models.NewGenerationRecord(models.GeneratorQuestionnaire, req.RequestedBy)
	rec.Module = req.Module
	started := time.Now()
	defer func() { g.finish(ctx, rec, started, err) }()

	module, err := g.registry.Module(req.Module)
	if err != nil {
		return nil, err
	}
	rec.Module = module.ID

	for field := range req.Answers {
		if _, ok := module.Question(field); !ok {
			g.logger.Debug("ignoring answer for unknown field",
				zap.String("module", module.ID), zap.String("field", field))
		}
	}

	rows := make([]workbook.QuestionnaireRow, 0, len(module.Questions))
	for _, q := range module.Questions {
		answer, err := models.ParseAnswer(req.Answers[q.Field])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAnswer, q.Field, err)
		}
		resp, err := module.Response(q, answer)
		if err != nil {
			return nil, err
		}

		status := resp.Status
		if status == "" {
			status = answer.Label()
		}
		rows = append(rows, workbook.QuestionnaireRow{
			Question:       q.Text,
			Status:         status,
			Brief:          resp.Brief,
			Risk:           q.Risk,
			Observation:    resp.Observation,
			Impact:         resp.Impact,
			Recommendation: resp.Recommendation,
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := workbook.BuildQuestionnaire(module.Title, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build questionnaire: %w", err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write questionnaire: %w", err)
	}

	rec.OutputName = module.Filename
	return &Output{
		Name:        module.Filename,
		ContentType: XLSXContentType,
		Data:        buf.Bytes(),
		Record:      rec,
	}, nil
}
