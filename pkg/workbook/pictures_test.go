package workbook

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestInsertPictures(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir, "1_1.png", 100, 50)

	f := excelize.NewFile()
	defer f.Close()

	placements := []evidence.SheetPlacement{
		{
			Sheet:  "Sheet1",
			Anchor: models.Anchor{Row: 2, Col: 8},
			Image:  evidence.NewImage("1_1.png", good),
			Size:   evidence.Size{Width: 50, Height: 25},
			Source: evidence.Size{Width: 100, Height: 50},
		},
		{
			Sheet:  "Sheet1",
			Anchor: models.Anchor{Row: 2, Col: 9},
			Image:  evidence.NewImage("1_2.png", filepath.Join(dir, "missing.png")),
			Size:   evidence.Size{Width: 50, Height: 25},
			Source: evidence.Size{Width: 100, Height: 50},
		},
	}

	placed, skipped := InsertPictures(f, placements, nil)
	assert.Equal(t, 1, placed)
	require.Len(t, skipped, 1)
	assert.Equal(t, "1_2.png", skipped[0].Image.Filename)

	pics, err := f.GetPictures("Sheet1", "H2")
	require.NoError(t, err)
	assert.Len(t, pics, 1)
}
