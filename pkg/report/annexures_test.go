package report

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pramodksahoo/audit-reporter/pkg/docreport"
)

func documentXML(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(content)
	}
	t.Fatal("document.xml not found")
	return ""
}

func TestGapAnnexuresDocx(t *testing.T) {
	g, recorder := newTestGenerator(t)
	img := pngData(t, 30, 10)

	out, err := g.GapAnnexures(context.Background(), AnnexureRequest{
		Zip: zipUpload(t, "gap.zip", map[string][]byte{
			"3_1.png":        img,
			"1_2_policy.png": img,
			"1_2.png":        img,
			"2_A.png":        img,
			"notes.txt":      []byte("ignored"),
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "Gap_Assessment_Report_with_Bank_Input.docx", out.Name)
	assert.Equal(t, docreport.DocxContentType, out.ContentType)
	assert.Empty(t, out.Skipped)

	doc := documentXML(t, out.Data)
	first := strings.Index(doc, "Annexure 1 (1.2)")
	second := strings.Index(doc, "Annexure 2 (3.1)")
	require.Greater(t, first, 0)
	assert.Greater(t, second, first)
	assert.Contains(t, doc, "Annexure 1 (2_A)")
	assert.Less(t, strings.Index(doc, VICSSectionTitle), strings.Index(doc, LOCSectionTitle))

	rec := recorder.last(t)
	assert.Equal(t, 4, rec.ImagesFound)
	assert.Equal(t, 4, rec.ImagesPlaced)
}

func TestGapAnnexuresPDF(t *testing.T) {
	g, _ := newTestGenerator(t)
	out, err := g.GapAnnexures(context.Background(), AnnexureRequest{
		Zip:    zipUpload(t, "gap.zip", map[string][]byte{"1_1.png": pngData(t, 8, 8)}),
		Format: "PDF",
	})
	require.NoError(t, err)
	assert.Equal(t, "Gap_Assessment_Report_with_Bank_Input.pdf", out.Name)
	assert.Equal(t, docreport.PDFContentType, out.ContentType)
	assert.True(t, bytes.HasPrefix(out.Data, []byte("%PDF")))
}

func TestGapAnnexuresValidation(t *testing.T) {
	g, _ := newTestGenerator(t)
	zipFile := zipUpload(t, "gap.zip", map[string][]byte{"1_1.png": pngData(t, 8, 8)})

	_, err := g.GapAnnexures(context.Background(), AnnexureRequest{Zip: zipFile, Format: "odt"})
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = g.GapAnnexures(context.Background(), AnnexureRequest{
		Zip:      zipFile,
		Template: writeUpload(t, "template.doc", []byte("x")),
	})
	assert.ErrorIs(t, err, ErrInvalidExtension)

	_, err = g.GapAnnexures(context.Background(), AnnexureRequest{
		Zip:      zipFile,
		Template: writeUpload(t, "template.docx", []byte("not a zip")),
	})
	assert.ErrorIs(t, err, docreport.ErrInvalidTemplate)

	_, err = g.GapAnnexures(context.Background(), AnnexureRequest{})
	assert.ErrorIs(t, err, ErrMissingFile)
}
