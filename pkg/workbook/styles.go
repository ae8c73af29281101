// Package workbook renders questionnaire and branch workbooks with excelize
package workbook

import (
	"github.com/xuri/excelize/v2"
)

const (
	fontCalibri = "Calibri"
	fontTimes   = "Times New Roman"

	headerFillColor = "366092"
	white           = "FFFFFF"
	black           = "000000"

	// borderThin is excelize's index for a thin continuous border
	borderThin = 1
	// fillSolid is excelize's index for a solid pattern fill
	fillSolid = 1
)

// borders returns thin black borders on the named sides (left, right, top, bottom)
func borders(sides ...string) []excelize.Border {
	out := make([]excelize.Border, 0, len(sides))
	for _, side := range sides {
		out = append(out, excelize.Border{Type: side, Color: black, Style: borderThin})
	}
	return out
}

func allBorders() []excelize.Border {
	return borders("left", "right", "top", "bottom")
}

func solidFill(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: fillSolid}
}

func centered() *excelize.Alignment {
	return &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
}

// styleCache creates each distinct style once per file
type styleCache struct {
	file  *excelize.File
	cache map[string]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{file: f, cache: make(map[string]int)}
}

func (s *styleCache) get(key string, build func() *excelize.Style) (int, error) {
	if id, ok := s.cache[key]; ok {
		return id, nil
	}
	id, err := s.file.NewStyle(build())
	if err != nil {
		return 0, err
	}
	s.cache[key] = id
	return id, nil
}
