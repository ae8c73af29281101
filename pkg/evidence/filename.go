// Package evidence associates evidence images with audit questions.
//
// Images are named after the question they support: "7.jpg", "12_3_description.jpg"
// or "5_Bphoto.png". The package parses those names, matches worksheet text to
// question numbers, groups and orders the images, and plans where each image goes.
package evidence

import (
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
	".svg":  true,
}

// dualKeyPattern matches "<base>_<sub or letter><label>"
var dualKeyPattern = regexp.MustCompile(`(?i)^(\d+)_([0-9]+|[A-Z])(.*)$`)

// IsImageFile reports whether name has a supported image extension
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Stem strips directories (either separator) and the extension from name
func Stem(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// ParseBaseNumber reads the question number from the text before the first
// '_', '-' or space. It reports false when that text is not all digits.
func ParseBaseNumber(name string) (int, bool) {
	stem := Stem(name)
	head := stem
	if i := strings.IndexAny(stem, "_- "); i >= 0 {
		head = stem[:i]
	}
	return parseDigits(head)
}

// ParseImageKey parses the dual-key form of a filename. It never fails:
// names that follow no convention come back as an unparsed sentinel key.
func ParseImageKey(name string) models.ImageKey {
	stem := Stem(name)

	if base, ok := parseDigits(stem); ok {
		return models.BareKey(base)
	}

	m := dualKeyPattern.FindStringSubmatch(stem)
	if m == nil {
		return models.UnparsedKey(stem)
	}

	base, err := strconv.Atoi(m[1])
	if err != nil {
		return models.UnparsedKey(stem)
	}
	label := strings.Trim(m[3], " _-")

	if sub, ok := parseDigits(m[2]); ok {
		return models.NumberedKey(base, sub, label)
	}
	return models.LetteredKey(base, strings.ToUpper(m[2]), label)
}

// NewImage builds an EvidenceImage for a file extracted to filePath
func NewImage(filename, filePath string) models.EvidenceImage {
	img := models.EvidenceImage{
		Filename: filename,
		Path:     filePath,
		Key:      ParseImageKey(filename),
	}
	if img.Key.Parsed() {
		img.BaseNumber, img.HasBase = img.Key.Base, true
	} else {
		img.BaseNumber, img.HasBase = ParseBaseNumber(filename)
	}
	return img
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
