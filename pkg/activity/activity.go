// Package activity records report generations to the configured sinks:
// a PostgreSQL activity log, a NATS subject and the metrics registry.
package activity

import (
	"context"
	"errors"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

// Recorder receives finished generation records
type Recorder interface {
	Record(ctx context.Context, rec *models.GenerationRecord) error
}

// Multi fans a record out to every recorder. All recorders are called even
// when some fail; the failures are joined.
type Multi []Recorder

// Record implements Recorder
func (m Multi) Record(ctx context.Context, rec *models.GenerationRecord) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards records
type Nop struct{}

// Record implements Recorder
func (Nop) Record(context.Context, *models.GenerationRecord) error { return nil }
