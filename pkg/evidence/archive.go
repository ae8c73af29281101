package evidence

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

// ErrEmptyArchive is returned when an archive holds no file the caller wants
var ErrEmptyArchive = errors.New("archive contains no matching files")

// ExtractedFile is one file written out of an archive
type ExtractedFile struct {
	Name string // base name inside the archive
	Path string // location on disk
	Size int64
}

// ArchiveLimits bounds what an extraction may write
type ArchiveLimits struct {
	MaxFiles     int   // 0 means unlimited
	MaxFileBytes int64 // 0 means unlimited
}

// ExtractFiles writes every archive entry accepted by keep into destDir and
// returns them in archive order. Directory structure is flattened; entries
// from macOS resource forks are ignored.
func ExtractFiles(r io.ReaderAt, size int64, destDir string, keep func(name string) bool, limits ArchiveLimits) ([]ExtractedFile, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}

	var files []ExtractedFile
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || skipArchiveEntry(f.Name) {
			continue
		}
		name := path.Base(strings.ReplaceAll(f.Name, `\`, "/"))
		if !keep(name) {
			continue
		}
		if limits.MaxFiles > 0 && len(files) >= limits.MaxFiles {
			return nil, fmt.Errorf("archive has more than %d files", limits.MaxFiles)
		}

		// Entries are renamed by position so duplicate base names in
		// different folders cannot overwrite each other.
		target := filepath.Join(destDir, fmt.Sprintf("%05d_%s", len(files), name))
		written, err := extractEntry(f, target, limits.MaxFileBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		files = append(files, ExtractedFile{Name: name, Path: target, Size: written})
	}

	if len(files) == 0 {
		return nil, ErrEmptyArchive
	}
	return files, nil
}

// ExtractImages extracts every supported image from the archive at zipPath
func ExtractImages(zipPath, destDir string, limits ArchiveLimits) ([]models.EvidenceImage, error) {
	file, err := os.Open(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	files, err := ExtractFiles(file, info.Size(), destDir, IsImageFile, limits)
	if err != nil {
		return nil, err
	}

	images := make([]models.EvidenceImage, 0, len(files))
	for _, f := range files {
		images = append(images, NewImage(f.Name, f.Path))
	}
	return images, nil
}

func skipArchiveEntry(name string) bool {
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(name, "__MACOSX/") || strings.Contains(name, "/__MACOSX/") {
		return true
	}
	base := path.Base(name)
	return strings.HasPrefix(base, "._") || base == ".DS_Store"
}

func extractEntry(f *zip.File, target string, maxBytes int64) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	var src io.Reader = rc
	if maxBytes > 0 {
		src = io.LimitReader(rc, maxBytes+1)
	}
	written, err := io.Copy(out, src)
	if err != nil {
		return written, err
	}
	if maxBytes > 0 && written > maxBytes {
		return written, fmt.Errorf("entry exceeds %d bytes", maxBytes)
	}
	return written, nil
}
