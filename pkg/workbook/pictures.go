package workbook

import (
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
)

// InsertPictures embeds each planned image at its anchor, scaled to the
// planned size. Failures are logged and returned; the rest are still inserted.
func InsertPictures(f *excelize.File, placements []evidence.SheetPlacement, logger *zap.Logger) (int, []evidence.SkippedImage) {
	if logger == nil {
		logger = zap.NewNop()
	}

	placed := 0
	var skipped []evidence.SkippedImage
	for _, p := range placements {
		if err := insertPicture(f, p); err != nil {
			logger.Warn("failed to insert evidence image",
				zap.String("image", p.Image.Filename),
				zap.String("sheet", p.Sheet),
				zap.Stringer("anchor", p.Anchor),
				zap.Error(err))
			skipped = append(skipped, evidence.SkippedImage{Image: p.Image, Reason: err.Error()})
			continue
		}
		placed++
		logger.Debug("inserted evidence image",
			zap.String("image", p.Image.Filename),
			zap.Int("question", p.Question),
			zap.Stringer("anchor", p.Anchor),
			zap.Int("width", p.Size.Width),
			zap.Int("height", p.Size.Height))
	}
	return placed, skipped
}

func insertPicture(f *excelize.File, p evidence.SheetPlacement) error {
	if p.Source.Width <= 0 || p.Source.Height <= 0 {
		return evidence.ErrZeroHeight
	}
	cell, err := excelize.CoordinatesToCellName(p.Anchor.Col, p.Anchor.Row)
	if err != nil {
		return err
	}

	data, ext, err := evidence.LoadPicture(p.Image.Path)
	if err != nil {
		return err
	}

	return f.AddPictureFromBytes(p.Sheet, cell, &excelize.Picture{
		Extension: ext,
		File:      data,
		Format: &excelize.GraphicOptions{
			AltText:     p.Image.Filename,
			ScaleX:      float64(p.Size.Width) / float64(p.Source.Width),
			ScaleY:      float64(p.Size.Height) / float64(p.Source.Height),
			Positioning: "oneCell",
		},
	})
}
