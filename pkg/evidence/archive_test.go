package evidence

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeZip(t *testing.T, files map[string][]byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "evidence.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestExtractImages(t *testing.T) {
	data := pngBytes(t, 4, 2)
	zipPath := writeZip(t, map[string][]byte{
		"branch/1_1.png":          data,
		"branch/sub/1_1.png":      data,
		"2_A.png":                 data,
		"readme.txt":              []byte("not an image"),
		"__MACOSX/branch/._1.png": []byte("resource fork"),
	})

	dest := t.TempDir()
	images, err := ExtractImages(zipPath, dest, ArchiveLimits{})
	require.NoError(t, err)
	require.Len(t, images, 3)

	paths := make(map[string]bool)
	for _, img := range images {
		assert.True(t, IsImageFile(img.Filename))
		assert.Equal(t, dest, filepath.Dir(img.Path))
		assert.FileExists(t, img.Path)
		paths[img.Path] = true
	}
	assert.Len(t, paths, 3, "duplicate names must not overwrite each other")
}

func TestExtractImagesEmpty(t *testing.T) {
	zipPath := writeZip(t, map[string][]byte{"notes.txt": []byte("x")})
	_, err := ExtractImages(zipPath, t.TempDir(), ArchiveLimits{})
	assert.ErrorIs(t, err, ErrEmptyArchive)
}

func TestExtractImagesNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	_, err := ExtractImages(path, t.TempDir(), ArchiveLimits{})
	assert.Error(t, err)
}

func TestExtractFilesLimits(t *testing.T) {
	zipPath := writeZip(t, map[string][]byte{
		"1.png": bytes.Repeat([]byte("a"), 64),
		"2.png": []byte("b"),
	})

	f, err := os.Open(zipPath)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)

	_, err = ExtractFiles(f, info.Size(), t.TempDir(), IsImageFile, ArchiveLimits{MaxFileBytes: 16})
	assert.ErrorContains(t, err, "exceeds")

	_, err = ExtractFiles(f, info.Size(), t.TempDir(), IsImageFile, ArchiveLimits{MaxFiles: 1})
	assert.ErrorContains(t, err, "more than 1 files")
}

func TestMeasure(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "1.png")
	require.NoError(t, os.WriteFile(pngPath, pngBytes(t, 120, 60), 0o600))
	size, err := Measure(pngPath)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 120, Height: 60}, size)

	svgPath := filepath.Join(dir, "2.svg")
	require.NoError(t, os.WriteFile(svgPath, []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 32"></svg>`), 0o600))
	size, err = Measure(svgPath)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 64, Height: 32}, size)

	badPath := filepath.Join(dir, "3.jpg")
	require.NoError(t, os.WriteFile(badPath, []byte("not really a jpeg"), 0o600))
	_, err = Measure(badPath)
	assert.Error(t, err)
}
