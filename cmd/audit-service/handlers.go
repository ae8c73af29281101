package main

import (
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/pramodksahoo/audit-reporter/pkg/activity"
	"github.com/pramodksahoo/audit-reporter/pkg/artifacts"
	"github.com/pramodksahoo/audit-reporter/pkg/docreport"
	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
	"github.com/pramodksahoo/audit-reporter/pkg/middleware"
	"github.com/pramodksahoo/audit-reporter/pkg/report"
)

// Client-facing messages
const (
	msgFileTooLarge    = "File size too large! The maximum file size is 1GB. Please compress your ZIP file or split it into smaller files."
	msgBothRequired    = "Both Excel file and ZIP file are required!"
	msgZipRequired     = "ZIP file is required!"
	msgInvalidExcel    = "Invalid Excel file format! Please upload .xlsx or .xls files only."
	msgInvalidZip      = "Invalid ZIP file format! Please upload .zip files only."
	msgInvalidTemplate = "Invalid template format! Please upload .docx files only."
)

// errorHandler renders errors that escape the handlers, including the
// body limit rejection raised before routing.
func (s *ReportService) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	switch code {
	case fiber.StatusRequestEntityTooLarge:
		return c.Status(code).JSON(fiber.Map{"error": msgFileTooLarge})
	case fiber.StatusInternalServerError:
		s.logger.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(code).JSON(fiber.Map{"error": "Internal server error"})
	default:
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}

func (s *ReportService) healthCheckHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (s *ReportService) readinessHandler(c *fiber.Ctx) error {
	breakers := make([]activity.BreakerStats, 0, len(s.breakers))
	for _, b := range s.breakers {
		breakers = append(breakers, b.Stats())
	}

	if s.activity != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := s.activity.HealthCheck(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "not ready",
				"error":    err.Error(),
				"breakers": breakers,
			})
		}
	}

	return c.JSON(fiber.Map{
		"status":    "ready",
		"service":   serviceName,
		"version":   serviceVersion,
		"artifacts": s.store.Stats(),
		"breakers":  breakers,
	})
}

func (s *ReportService) listModulesHandler(c *fiber.Ctx) error {
	modules := s.generator.Registry().Modules()
	list := make([]fiber.Map, 0, len(modules))
	for _, m := range modules {
		list = append(list, fiber.Map{
			"id":        m.ID,
			"title":     m.Title,
			"filename":  m.Filename,
			"questions": len(m.Questions),
		})
	}
	return c.JSON(fiber.Map{"modules": list, "count": len(list)})
}

func (s *ReportService) getModuleHandler(c *fiber.Ctx) error {
	module, err := s.generator.Registry().Module(c.Params("module"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Module not found",
			"details": err.Error(),
		})
	}
	return c.JSON(module)
}

func (s *ReportService) questionnaireHandler(c *fiber.Ctx) error {
	answers, err := answerValues(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	out, err := s.generator.Questionnaire(c.UserContext(), report.QuestionnaireRequest{
		Module:      c.Params("module"),
		Answers:     answers,
		RequestedBy: middleware.Subject(c),
	})
	if err != nil {
		return s.generationError(c, err)
	}
	return s.deliver(c, out)
}

// answerValues reads answers keyed by field from a JSON object or form body
func answerValues(c *fiber.Ctx) (map[string]string, error) {
	answers := make(map[string]string)
	if c.Is("json") {
		if err := c.BodyParser(&answers); err != nil {
			return nil, err
		}
		return answers, nil
	}

	if form, err := c.MultipartForm(); err == nil {
		for key, values := range form.Value {
			if len(values) > 0 {
				answers[key] = values[0]
			}
		}
		return answers, nil
	}
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		answers[string(key)] = string(value)
	})
	return answers, nil
}

func (s *ReportService) branchPOCHandler(c *fiber.Ctx) error {
	dir, cleanup, err := s.generator.Workspace("upload")
	if err != nil {
		return s.generationError(c, err)
	}
	defer cleanup()

	excel, err := s.saveUpload(c, "excelFile", dir)
	if err != nil {
		return s.generationError(c, err)
	}
	zip, err := s.saveUpload(c, "zipFile", dir)
	if err != nil {
		return s.generationError(c, err)
	}

	if excel.Empty() || zip.Empty() {
		return badRequest(c, msgBothRequired, report.ErrMissingFile)
	}
	if err := report.ValidateUpload(excel, "excelFile", report.ExcelExtensions); err != nil {
		return badRequest(c, msgInvalidExcel, err)
	}
	if err := report.ValidateUpload(zip, "zipFile", report.ZipExtensions); err != nil {
		return badRequest(c, msgInvalidZip, err)
	}

	out, err := s.generator.BranchPOC(c.UserContext(), report.POCRequest{
		Excel:       excel,
		Zip:         zip,
		SrNo:        c.FormValue("srNo"),
		BranchName:  c.FormValue("branchName"),
		RequestedBy: middleware.Subject(c),
	})
	if err != nil {
		return s.generationError(c, err)
	}
	return s.deliver(c, out)
}

func (s *ReportService) combineHandler(c *fiber.Ctx) error {
	dir, cleanup, err := s.generator.Workspace("upload")
	if err != nil {
		return s.generationError(c, err)
	}
	defer cleanup()

	zip, err := s.saveUpload(c, "zipFile", dir)
	if err != nil {
		return s.generationError(c, err)
	}
	if msg, err := validateZip(zip); err != nil {
		return badRequest(c, msg, err)
	}

	out, err := s.generator.Combine(c.UserContext(), report.CombineRequest{
		Zip:         zip,
		RequestedBy: middleware.Subject(c),
	})
	if err != nil {
		return s.generationError(c, err)
	}
	return s.deliver(c, out)
}

func (s *ReportService) annexuresHandler(c *fiber.Ctx) error {
	dir, cleanup, err := s.generator.Workspace("upload")
	if err != nil {
		return s.generationError(c, err)
	}
	defer cleanup()

	zip, err := s.saveUpload(c, "zipFile", dir)
	if err != nil {
		return s.generationError(c, err)
	}
	if msg, err := validateZip(zip); err != nil {
		return badRequest(c, msg, err)
	}
	template, err := s.saveUpload(c, "templateFile", dir)
	if err != nil {
		return s.generationError(c, err)
	}
	if !template.Empty() {
		if err := report.ValidateUpload(template, "templateFile", report.TemplateExtensions); err != nil {
			return badRequest(c, msgInvalidTemplate, err)
		}
	}

	out, err := s.generator.GapAnnexures(c.UserContext(), report.AnnexureRequest{
		Zip:         zip,
		Template:    template,
		Format:      c.FormValue("format", c.Query("format")),
		RequestedBy: middleware.Subject(c),
	})
	if err != nil {
		return s.generationError(c, err)
	}
	return s.deliver(c, out)
}

func validateZip(zip report.Upload) (string, error) {
	if zip.Empty() {
		return msgZipRequired, report.ErrMissingFile
	}
	if err := report.ValidateUpload(zip, "zipFile", report.ZipExtensions); err != nil {
		return msgInvalidZip, err
	}
	return "", nil
}

// saveUpload stores the multipart file named field in dir. A missing file
// yields an empty Upload.
func (s *ReportService) saveUpload(c *fiber.Ctx, field, dir string) (report.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, multipart.ErrMessageTooLarge) {
			return report.Upload{}, fiber.ErrRequestEntityTooLarge
		}
		return report.Upload{}, nil
	}

	name := filepath.Base(strings.ReplaceAll(fh.Filename, `\`, "/"))
	path := filepath.Join(dir, field+strings.ToLower(filepath.Ext(name)))
	if err := c.SaveFile(fh, path); err != nil {
		return report.Upload{}, err
	}
	s.logger.Debug("upload saved", zap.String("field", field), zap.String("name", name), zap.Int64("size", fh.Size))
	return report.Upload{Name: name, Path: path}, nil
}

// deliver sends out as an attachment, or stores it for a later download
// when the client asked for deferred delivery.
func (s *ReportService) deliver(c *fiber.Ctx, out *report.Output) error {
	c.Set("X-Report-ID", out.Record.ID)
	c.Set("X-Images-Placed", strconv.Itoa(out.Record.ImagesPlaced))
	c.Set("X-Images-Skipped", strconv.Itoa(out.Record.ImagesSkipped))

	if c.Query("delivery") == "deferred" {
		artifact, err := s.store.Put(out.Name, out.ContentType, middleware.Subject(c), out.Data)
		if err != nil {
			if errors.Is(err, artifacts.ErrStoreFull) {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error":   "Report storage is full, download the report directly or retry later",
					"details": err.Error(),
				})
			}
			return s.generationError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"id":           artifact.ID,
			"name":         artifact.Name,
			"size":         artifact.Size,
			"expires_at":   artifact.ExpiresAt,
			"download_url": "/api/v1/reports/" + artifact.ID,
			"record":       out.Record,
			"skipped":      out.Skipped,
			"warnings":     out.Warnings,
		})
	}

	c.Attachment(out.Name)
	c.Set(fiber.HeaderContentType, out.ContentType)
	return c.Send(out.Data)
}

func (s *ReportService) listReportsHandler(c *fiber.Ctx) error {
	list := s.store.List(middleware.Subject(c))
	return c.JSON(fiber.Map{"reports": list, "count": len(list)})
}

func (s *ReportService) getReportHandler(c *fiber.Ctx) error {
	artifact, err := s.store.Get(c.Params("id"), middleware.Subject(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Report not found",
			"details": err.Error(),
		})
	}
	c.Attachment(artifact.Name)
	c.Set(fiber.HeaderContentType, artifact.ContentType)
	return c.Send(artifact.Data)
}

func (s *ReportService) deleteReportHandler(c *fiber.Ctx) error {
	if err := s.store.Delete(c.Params("id"), middleware.Subject(c)); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Report not found",
			"details": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *ReportService) activityHandler(c *fiber.Ctx) error {
	if s.activity == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Activity log is not configured",
		})
	}
	records, err := s.activity.Recent(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		s.logger.Error("failed to read activity log", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to read activity log",
			"details": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"records": records, "count": len(records)})
}

func badRequest(c *fiber.Ctx, msg string, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   msg,
		"details": err.Error(),
	})
}

// generationError maps generator errors to HTTP responses
func (s *ReportService) generationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, fiber.ErrRequestEntityTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": msgFileTooLarge})
	case errors.Is(err, report.ErrUnknownModule):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Module not found",
			"details": err.Error(),
		})
	case errors.Is(err, report.ErrMissingFile),
		errors.Is(err, report.ErrInvalidExtension),
		errors.Is(err, report.ErrInvalidAnswer),
		errors.Is(err, report.ErrInvalidFormat),
		errors.Is(err, evidence.ErrEmptyArchive),
		errors.Is(err, docreport.ErrInvalidTemplate):
		return badRequest(c, "Invalid request", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error":   "Request cancelled",
			"details": err.Error(),
		})
	default:
		s.logger.Error("report generation failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to generate report",
			"details": err.Error(),
		})
	}
}
