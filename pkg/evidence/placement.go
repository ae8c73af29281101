package evidence

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

const (
	// MaxImagesPerRow caps the evidence images placed beside one question row
	MaxImagesPerRow = 3
	// SheetImageHeight is the height in pixels of images embedded in a worksheet
	SheetImageHeight = 25
	// AnnexureImageHeight is the height in pixels (at 96 DPI) of annexure images
	AnnexureImageHeight = 440
	// EMUPerPixel converts 96 DPI pixels to English Metric Units
	EMUPerPixel = 9525
	// AnnexureBorderEMU is the 1pt picture border width
	AnnexureBorderEMU = 12700
)

// sheetSlotOffsets are the POC columns filled in order, relative to the
// first POC column: H, I, then G.
var sheetSlotOffsets = [MaxImagesPerRow]int{1, 2, 0}

// ErrZeroHeight is returned when an image reports no height
var ErrZeroHeight = errors.New("image has zero height")

// Size is an image size in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScaleToHeight returns the size scaled to height h preserving aspect ratio.
// The width is truncated toward zero.
func ScaleToHeight(s Size, h int) (Size, error) {
	if s.Height <= 0 {
		return Size{}, ErrZeroHeight
	}
	return Size{Width: int(float64(h) * float64(s.Width) / float64(s.Height)), Height: h}, nil
}

// MeasureFunc reports the pixel size of the image at path
type MeasureFunc func(path string) (Size, error)

// RowQuestion is the question text found in one worksheet row
type RowQuestion struct {
	Sheet string
	Row   int
	Text  string
}

// SheetPlacement places one image in a worksheet cell
type SheetPlacement struct {
	Sheet    string               `json:"sheet"`
	Anchor   models.Anchor        `json:"anchor"`
	Question int                  `json:"question"`
	Image    models.EvidenceImage `json:"image"`
	Size     Size                 `json:"size"`   // size after scaling
	Source   Size                 `json:"source"` // size of the image file
}

// SkippedImage records an image that could not be placed
type SkippedImage struct {
	Image  models.EvidenceImage `json:"image"`
	Reason string               `json:"reason"`
}

// SheetPlan is the full placement for one worksheet
type SheetPlan struct {
	Placements    []SheetPlacement `json:"placements"`
	Skipped       []SkippedImage   `json:"skipped"`
	Unused        []SkippedImage   `json:"unused"`         // images whose question never appeared, or overflowed
	UnmatchedRows []RowQuestion    `json:"unmatched_rows"` // rows whose text matched no question
}

// SheetPlanner plans where evidence images go in a branch worksheet
type SheetPlanner struct {
	matcher  *Matcher
	measure  MeasureFunc
	pocStart int
	logger   *zap.Logger
}

// NewSheetPlanner creates a planner whose three image slots start at column pocStart
func NewSheetPlanner(matcher *Matcher, measure MeasureFunc, pocStart int, logger *zap.Logger) *SheetPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetPlanner{matcher: matcher, measure: measure, pocStart: pocStart, logger: logger}
}

// Plan matches every row to a question and assigns the first MaxImagesPerRow
// images of that question's group to the row. A question that appears on
// several rows gets the same images on each of them. Images past the cap, and
// groups whose question is on no row, are reported once in Unused.
func (p *SheetPlanner) Plan(rows []RowQuestion, groups []models.MatchedQuestionGroup) SheetPlan {
	index := IndexGroups(groups)
	measured := make(map[string]measurement)
	seen := make(map[int]bool, len(groups))

	var plan SheetPlan
	for _, row := range rows {
		match, ok := p.matcher.Match(row.Text)
		if !ok {
			if row.Text != "" {
				plan.UnmatchedRows = append(plan.UnmatchedRows, row)
			}
			continue
		}

		group, ok := index[match.Number]
		if !ok {
			continue
		}
		seen[match.Number] = true

		for i, img := range group.Images[:min(len(group.Images), MaxImagesPerRow)] {
			m, done := measured[img.Path]
			if !done {
				m = p.measureImage(img.Path)
				measured[img.Path] = m
				if m.err != nil {
					p.logger.Warn("skipping evidence image",
						zap.String("image", img.Filename),
						zap.String("sheet", row.Sheet),
						zap.Int("row", row.Row),
						zap.Error(m.err))
					plan.Skipped = append(plan.Skipped, SkippedImage{Image: img, Reason: m.err.Error()})
				}
			}
			if m.err != nil {
				continue
			}

			plan.Placements = append(plan.Placements, SheetPlacement{
				Sheet:    row.Sheet,
				Anchor:   models.Anchor{Row: row.Row, Col: p.pocStart}.ShiftRight(sheetSlotOffsets[i]),
				Question: match.Number,
				Image:    img,
				Size:     m.size,
				Source:   m.source,
			})
		}
	}

	for _, g := range groups {
		if !seen[g.Base] {
			reason := p.absentReason(g.Base)
			for _, img := range g.Images {
				plan.Unused = append(plan.Unused, SkippedImage{Image: img, Reason: reason})
			}
			continue
		}
		for _, img := range g.Images[min(len(g.Images), MaxImagesPerRow):] {
			plan.Unused = append(plan.Unused, SkippedImage{
				Image:  img,
				Reason: fmt.Sprintf("more than %d images for question %d", MaxImagesPerRow, g.Base),
			})
		}
	}
	return plan
}

type measurement struct {
	source Size
	size   Size
	err    error
}

func (p *SheetPlanner) measureImage(path string) measurement {
	source, err := p.measure(path)
	if err != nil {
		return measurement{err: err}
	}
	size, err := ScaleToHeight(source, SheetImageHeight)
	return measurement{source: source, size: size, err: err}
}

func (p *SheetPlanner) absentReason(number int) string {
	if _, ok := p.matcher.Question(number); ok {
		return fmt.Sprintf("question %d has no matching row", number)
	}
	return fmt.Sprintf("question %d is not in the catalog", number)
}

// AnnexureEntry is one image in an annexure section
type AnnexureEntry struct {
	Number      int                  `json:"number"`
	Heading     string               `json:"heading"`      // "Annexure N (...)" or the continuation title
	NewAnnexure bool                 `json:"new_annexure"` // heading starts a new annexure number
	Image       models.EvidenceImage `json:"image"`
	Size        Size                 `json:"size"`
	Source      Size                 `json:"source"`
}

// PlanAnnexures numbers images sequentially from 1. A new annexure starts
// whenever the image prefix changes; images sharing a prefix continue the
// previous annexure. Images that cannot be measured are skipped.
func PlanAnnexures(images []models.EvidenceImage, measure MeasureFunc, logger *zap.Logger) ([]AnnexureEntry, []SkippedImage) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sorted := append([]models.EvidenceImage(nil), images...)
	SortImages(sorted)

	var (
		entries    []AnnexureEntry
		skipped    []SkippedImage
		number     int
		lastPrefix string
	)
	for _, img := range sorted {
		source, err := measure(img.Path)
		var size Size
		if err == nil {
			size, err = ScaleToHeight(source, AnnexureImageHeight)
		}
		if err != nil {
			logger.Warn("skipping annexure image", zap.String("image", img.Filename), zap.Error(err))
			skipped = append(skipped, SkippedImage{Image: img, Reason: err.Error()})
			continue
		}

		entry := AnnexureEntry{Image: img, Size: size, Source: source}
		prefix := img.Key.Prefix()
		if number == 0 || prefix != lastPrefix {
			number++
			lastPrefix = prefix
			entry.NewAnnexure = true
			entry.Heading = annexureHeading(number, img.Key)
		} else {
			entry.Heading = continuationTitle(img.Key)
		}
		entry.Number = number
		entries = append(entries, entry)
	}
	return entries, skipped
}

func annexureHeading(number int, key models.ImageKey) string {
	if key.Kind == models.KeyUnparsed || key.Label == "" {
		return fmt.Sprintf("Annexure %d (%s)", number, key.Display())
	}
	return fmt.Sprintf("Annexure %d (%s %s)", number, key.Display(), key.Label)
}

func continuationTitle(key models.ImageKey) string {
	if key.Label != "" {
		return key.Label
	}
	if key.Kind == models.KeyLettered {
		return key.Letter
	}
	return key.Display()
}

// EMU converts a pixel length to English Metric Units
func EMU(px int) int64 {
	return int64(px) * EMUPerPixel
}
