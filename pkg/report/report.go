// Package report orchestrates the generation of audit deliverables: answered
// questionnaires, branch workbooks with evidence, combined workbooks and
// gap-assessment annexure documents.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pramodksahoo/audit-reporter/pkg/catalog"
	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

// Output MIME types
const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	// ErrMissingFile is returned when a required upload is absent
	ErrMissingFile = errors.New("required file is missing")
	// ErrInvalidExtension is returned when an upload has the wrong file type
	ErrInvalidExtension = errors.New("invalid file extension")
	// ErrUnknownModule is returned for questionnaire modules that do not exist
	ErrUnknownModule = catalog.ErrUnknownModule
	// ErrInvalidAnswer is returned when a submitted answer is not a known status
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrInvalidFormat is returned for unsupported annexure output formats
	ErrInvalidFormat = errors.New("invalid output format")
)

// Accepted upload extensions
var (
	ExcelExtensions    = []string{".xlsx", ".xls"}
	ZipExtensions      = []string{".zip"}
	TemplateExtensions = []string{".docx"}
)

// Upload is a file received from a client and saved to disk
type Upload struct {
	Name string // client-side file name
	Path string // location on disk
}

// Empty reports whether no file was provided
func (u Upload) Empty() bool {
	return u.Name == "" || u.Path == ""
}

// ValidateUpload checks that u is present and carries one of exts
func ValidateUpload(u Upload, field string, exts []string) error {
	if u.Empty() {
		return fmt.Errorf("%w: %s", ErrMissingFile, field)
	}
	ext := strings.ToLower(filepath.Ext(u.Name))
	if !slices.Contains(exts, ext) {
		return fmt.Errorf("%w: %s has %q, want one of %s", ErrInvalidExtension, field, ext, strings.Join(exts, ", "))
	}
	return nil
}

// Recorder receives a record for every finished generation
type Recorder interface {
	Record(ctx context.Context, rec *models.GenerationRecord) error
}

// Output is a generated deliverable held in memory
type Output struct {
	Name        string                   `json:"name"`
	ContentType string                   `json:"content_type"`
	Data        []byte                   `json:"-"`
	Record      *models.GenerationRecord `json:"record"`
	Skipped     []evidence.SkippedImage  `json:"skipped,omitempty"`
	Warnings    []string                 `json:"warnings,omitempty"`
}

// Options configures a Generator
type Options struct {
	WorkDir  string                 // parent of per-request scratch directories; os.TempDir() when empty
	Limits   evidence.ArchiveLimits // applied to every extracted archive
	Logger   *zap.Logger
	Recorder Recorder
}

// Generator produces audit deliverables. It is safe for concurrent use:
// each call works in its own scratch directory.
type Generator struct {
	registry *catalog.Registry
	workDir  string
	limits   evidence.ArchiveLimits
	logger   *zap.Logger
	recorder Recorder
}

// NewGenerator creates a Generator backed by registry
func NewGenerator(registry *catalog.Registry, opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		registry: registry,
		workDir:  opts.WorkDir,
		limits:   opts.Limits,
		logger:   logger,
		recorder: opts.Recorder,
	}
}

// Registry returns the questionnaire registry
func (g *Generator) Registry() *catalog.Registry {
	return g.registry
}

// Workspace creates a scratch directory for one request. The returned
// cleanup removes it and everything inside.
func (g *Generator) Workspace(prefix string) (string, func(), error) {
	if g.workDir != "" {
		if err := os.MkdirAll(g.workDir, 0o750); err != nil {
			return "", nil, fmt.Errorf("failed to create work directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(g.workDir, "auditgen-"+prefix+"-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			g.logger.Warn("failed to remove scratch directory", zap.String("dir", dir), zap.Error(err))
		}
	}
	return dir, cleanup, nil
}

// finish stamps rec and hands it to the recorder. Recording failures are
// logged and never fail the generation.
func (g *Generator) finish(ctx context.Context, rec *models.GenerationRecord, started time.Time, err error) {
	rec.Finish(started, err)

	fields := []zap.Field{
		zap.String("id", rec.ID),
		zap.String("generator", string(rec.Generator)),
		zap.String("status", string(rec.Status)),
		zap.Int("images_placed", rec.ImagesPlaced),
		zap.Int("images_skipped", rec.ImagesSkipped),
		zap.Duration("duration", rec.Duration),
	}
	if err != nil {
		g.logger.Error("report generation failed", append(fields, zap.Error(err))...)
	} else {
		g.logger.Info("report generated", append(fields, zap.String("output", rec.OutputName))...)
	}

	if g.recorder == nil {
		return
	}
	if rerr := g.recorder.Record(context.WithoutCancel(ctx), rec); rerr != nil {
		g.logger.Warn("failed to record generation", zap.String("id", rec.ID), zap.Error(rerr))
	}
}
