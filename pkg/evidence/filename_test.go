package evidence

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

func TestParseBaseNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		ok       bool
	}{
		{name: "bare number", input: "7.jpg", expected: 7, ok: true},
		{name: "underscore", input: "12_3_description.jpg", expected: 12, ok: true},
		{name: "hyphen", input: "7-firewall.png", expected: 7, ok: true},
		{name: "space", input: "42 screenshot.jpeg", expected: 42, ok: true},
		{name: "lettered", input: "5_Bphoto.png", expected: 5, ok: true},
		{name: "directory prefix", input: "evidence/branch/9_1.png", expected: 9, ok: true},
		{name: "windows directory prefix", input: `evidence\9_1.png`, expected: 9, ok: true},
		{name: "leading zeros", input: "007.jpg", expected: 7, ok: true},
		{name: "non numeric", input: "IMG_0001.jpg", ok: false},
		{name: "digits then letters", input: "1abc.jpg", ok: false},
		{name: "empty stem", input: ".jpg", ok: false},
		{name: "sign is not a digit", input: "+5.jpg", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, ok := ParseBaseNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, base)
			}
		})
	}
}

func TestParseBaseNumberRoundTrip(t *testing.T) {
	for n := 0; n <= 500; n++ {
		for _, ext := range []string{"", ".jpg", ".PNG"} {
			name := fmt.Sprintf("%d%s", n, ext)
			base, ok := ParseBaseNumber(name)
			assert.True(t, ok, name)
			assert.Equal(t, n, base, name)

			key := ParseImageKey(name)
			assert.Equal(t, models.KeyBare, key.Kind, name)
			assert.Equal(t, n, key.Base, name)
		}
	}
}

func TestParseImageKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected models.ImageKey
	}{
		{name: "bare", input: "1.jpg", expected: models.BareKey(1)},
		{name: "numbered with label", input: "12_3_description.jpg", expected: models.NumberedKey(12, 3, "description")},
		{name: "numbered without label", input: "2_1.jpg", expected: models.NumberedKey(2, 1, "")},
		{name: "multi digit sub", input: "4_15 server room.png", expected: models.NumberedKey(4, 15, "server room")},
		{name: "lettered", input: "5_Bphoto.png", expected: models.LetteredKey(5, "B", "photo")},
		{name: "lowercase letter", input: "1_bnote.png", expected: models.LetteredKey(1, "B", "note")},
		{name: "label trimmed", input: "3_A - lobby_.jpg", expected: models.LetteredKey(3, "A", "lobby")},
		{name: "hyphen separator is not dual key", input: "7-foo.jpg", expected: models.UnparsedKey("7-foo")},
		{name: "no number", input: "IMG_0001.jpg", expected: models.UnparsedKey("IMG_0001")},
		{name: "symbol after underscore", input: "3_#.jpg", expected: models.UnparsedKey("3_#")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseImageKey(tt.input))
		})
	}
}

func TestNewImageFallsBackToSimpleBase(t *testing.T) {
	img := NewImage("7-foo.jpg", "/tmp/7-foo.jpg")
	assert.False(t, img.Key.Parsed())
	assert.True(t, img.HasBase)
	assert.Equal(t, 7, img.BaseNumber)

	img = NewImage("scan.jpg", "/tmp/scan.jpg")
	assert.False(t, img.HasBase)
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.jpg", "a.JPEG", "a.png", "a.gif", "a.bmp", "a.tiff", "a.tif", "a.webp", "a.svg"} {
		assert.True(t, IsImageFile(name), name)
	}
	for _, name := range []string{"a.pdf", "a.xlsx", "jpg", "a.jpg.txt"} {
		assert.False(t, IsImageFile(name), name)
	}
}
