package evidence

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	"golang.org/x/image/webp"
)

// defaultSVGSize is used for SVG files that declare neither size nor viewBox
var defaultSVGSize = Size{Width: 300, Height: 150}

// Measure reads the pixel dimensions of the image at path without decoding pixels
func Measure(path string) (Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return Size{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return measureSVG(f)
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Size{}, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Height == 0 {
		return Size{}, fmt.Errorf("%s image: %w", format, ErrZeroHeight)
	}
	return Size{Width: cfg.Width, Height: cfg.Height}, nil
}

func measureSVG(r io.Reader) (Size, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			return Size{}, fmt.Errorf("failed to parse svg: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "svg" {
			continue
		}

		var width, height float64
		var viewBox string
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				width = svgLength(attr.Value)
			case "height":
				height = svgLength(attr.Value)
			case "viewBox":
				viewBox = attr.Value
			}
		}
		if (width == 0 || height == 0) && viewBox != "" {
			fields := strings.Fields(strings.ReplaceAll(viewBox, ",", " "))
			if len(fields) == 4 {
				width = svgLength(fields[2])
				height = svgLength(fields[3])
			}
		}
		if width == 0 || height == 0 {
			return defaultSVGSize, nil
		}
		return Size{Width: int(width), Height: int(height)}, nil
	}
}

func svgLength(v string) float64 {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// LoadPicture reads an image file in a form spreadsheet and document
// packages accept. WebP is re-encoded as PNG; other formats pass through.
func LoadPicture(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".webp" {
		return data, ext, nil
	}

	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode webp image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to re-encode webp image: %w", err)
	}
	return buf.Bytes(), ".png", nil
}
