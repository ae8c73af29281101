package docreport

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
)

const (
	headingFont   = "Times New Roman"
	headingSizeHP = 24 // half-points, 12pt
	docPrIDBase   = 10000
)

func escapeText(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// headingParagraph is a bold 12pt Times New Roman line
func headingParagraph(text string) string {
	return fmt.Sprintf(`<w:p><w:r><w:rPr><w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s" w:cs="%[1]s"/><w:b/><w:bCs/>`+
		`<w:sz w:val="%[2]d"/><w:szCs w:val="%[2]d"/></w:rPr><w:t xml:space="preserve">%[3]s</w:t></w:r></w:p>`,
		headingFont, headingSizeHP, escapeText(text))
}

const (
	blankParagraph     = `<w:p/>`
	pageBreakParagraph = `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`
)

// pictureParagraph is a centered inline picture with a 1pt black outline
func pictureParagraph(relID string, id int, name string, cx, cy int64) string {
	return fmt.Sprintf(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing>`+
		`<wp:inline xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[4]d" cy="%[5]d"/><wp:effectExtent l="0" t="0" r="0" b="0"/>`+
		`<wp:docPr id="%[2]d" name="Picture %[2]d" descr="%[3]s"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="%[2]d" name="%[3]s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" r:embed="%[1]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[4]d" cy="%[5]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom>`+
		`<a:ln w="%[6]d"><a:solidFill><a:srgbClr val="000000"/></a:solidFill></a:ln></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`,
		relID, id, escapeText(name), cx, cy, evidence.AnnexureBorderEMU)
}

// pictureExtent returns the picture size in EMU: fixed annexure height and
// the width that keeps the source aspect ratio.
func pictureExtent(entry evidence.AnnexureEntry) (int64, int64) {
	cy := evidence.EMU(evidence.AnnexureImageHeight)
	if entry.Source.Height <= 0 {
		return evidence.EMU(entry.Size.Width), cy
	}
	cx := int64(float64(cy) * float64(entry.Source.Width) / float64(entry.Source.Height))
	return cx, cy
}
