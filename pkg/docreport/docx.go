// Package docreport renders evidence annexures into Word and PDF documents
package docreport

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"maps"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
)

const (
	// VICSPlaceholder marks where numbered (n_m) annexures are inserted
	VICSPlaceholder = "Annnnnnnnnnnnnnneessurer"
	// LOCPlaceholder marks where lettered (n_L) annexures are inserted
	LOCPlaceholder = "LLLLOCCCC_Annexuuuuree"

	// DocxContentType is the MIME type of a Word document
	DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	partDocument     = "word/document.xml"
	partDocumentRels = "word/_rels/document.xml.rels"
	partContentTypes = "[Content_Types].xml"
	partRootRels     = "_rels/.rels"

	relTypeImage = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

// ErrInvalidTemplate is returned when an uploaded template is not a Word package
var ErrInvalidTemplate = errors.New("template is not a valid .docx package")

// errUnsupportedPicture is reported for formats Word cannot embed directly
var errUnsupportedPicture = errors.New("image format cannot be embedded in a Word document")

var imageContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// sectionHeadings are paragraphs that always start on a new page
var sectionHeadings = []string{"annexures for vics", "annexures for loc"}

var textRunPattern = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)

// Section is one group of annexures inserted at a placeholder paragraph
type Section struct {
	Title       string // heading used when the section is appended rather than placed
	Placeholder string
	Entries     []evidence.AnnexureEntry
}

// Result summarises a rendered document
type Result struct {
	Placed              int                     `json:"placed"`
	Skipped             []evidence.SkippedImage `json:"skipped"`
	MissingPlaceholders []string                `json:"missing_placeholders"`
}

type part struct {
	name string
	data []byte
}

type media struct {
	relID   string
	target  string
	ext     string
	content []byte
}

// DocxWriter renders annexure sections into a Word package
type DocxWriter struct {
	logger *zap.Logger
}

// NewDocxWriter creates a writer. A nil logger discards output.
func NewDocxWriter(logger *zap.Logger) *DocxWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocxWriter{logger: logger}
}

// Write renders sections into template (or into a blank document when
// template is empty) and writes the resulting package to out. Each section
// replaces the first paragraph containing its placeholder; a section whose
// placeholder is missing is appended at the end of the body.
func (w *DocxWriter) Write(out io.Writer, template []byte, sections []Section) (*Result, error) {
	var (
		parts []part
		err   error
	)
	if len(template) == 0 {
		parts = blankPackage(sections)
	} else if parts, err = readPackage(template); err != nil {
		return nil, err
	}

	docIdx := findPart(parts, partDocument)
	if docIdx < 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidTemplate, partDocument)
	}

	result := &Result{}
	doc := addSectionPageBreaks(string(parts[docIdx].data))

	var images []media
	for _, section := range sections {
		body := w.renderSection(section, &images, result)
		var found bool
		doc, found = replacePlaceholder(doc, section.Placeholder, body)
		if !found {
			if len(section.Entries) == 0 {
				continue
			}
			w.logger.Warn("placeholder not found, appending annexures",
				zap.String("placeholder", section.Placeholder))
			result.MissingPlaceholders = append(result.MissingPlaceholders, section.Placeholder)
			doc = appendToBody(doc, pageBreakParagraph+headingParagraph(section.Title)+body)
		}
	}
	parts[docIdx].data = []byte(doc)

	if err := addMedia(&parts, images); err != nil {
		return nil, err
	}
	if err := writePackage(out, parts); err != nil {
		return nil, err
	}
	return result, nil
}

// renderSection writes one block per entry. A new annexure heading is
// written even when its image fails. Page breaks only separate blocks that
// end in a picture.
func (w *DocxWriter) renderSection(section Section, images *[]media, result *Result) string {
	var (
		body    strings.Builder
		pending bool
	)
	for _, entry := range section.Entries {
		data, ext, err := evidence.LoadPicture(entry.Image.Path)
		if err == nil {
			if _, ok := imageContentTypes[ext]; !ok {
				err = fmt.Errorf("%w: %s", errUnsupportedPicture, ext)
			}
		}
		if err != nil {
			w.logger.Warn("skipping annexure image", zap.String("image", entry.Image.Filename), zap.Error(err))
			result.Skipped = append(result.Skipped, evidence.SkippedImage{Image: entry.Image, Reason: err.Error()})
			if entry.NewAnnexure {
				if pending {
					body.WriteString(pageBreakParagraph)
					pending = false
				}
				body.WriteString(headingParagraph(entry.Heading))
			}
			continue
		}

		n := len(*images) + 1
		m := media{
			relID:   fmt.Sprintf("rIdAnnexure%d", n),
			target:  fmt.Sprintf("media/annexure_%d%s", n, ext),
			ext:     ext,
			content: data,
		}
		*images = append(*images, m)

		if pending {
			body.WriteString(pageBreakParagraph)
		}
		body.WriteString(headingParagraph(entry.Heading))
		body.WriteString(blankParagraph)
		cx, cy := pictureExtent(entry)
		body.WriteString(pictureParagraph(m.relID, docPrIDBase+n, entry.Image.Filename, cx, cy))
		pending = true
		result.Placed++
	}
	return body.String()
}

func findPart(parts []part, name string) int {
	for i, p := range parts {
		if p.name == name {
			return i
		}
	}
	return -1
}

func readPackage(data []byte) ([]part, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	parts := make([]part, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open template part %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read template part %s: %w", f.Name, err)
		}
		parts = append(parts, part{name: f.Name, data: content})
	}
	return parts, nil
}

func writePackage(out io.Writer, parts []part) error {
	zw := zip.NewWriter(out)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("failed to create part %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return fmt.Errorf("failed to write part %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize document: %w", err)
	}
	return nil
}

// paragraph is the byte range of one top-level <w:p> element
type paragraph struct {
	start, end int
	text       string
}

// paragraphStart finds the next "<w:p>" or "<w:p ...>" tag at or after from
func paragraphStart(doc string, from int) int {
	for from < len(doc) {
		j := strings.Index(doc[from:], "<w:p")
		if j < 0 {
			return -1
		}
		k := from + j
		if k+4 < len(doc) {
			switch doc[k+4] {
			case '>', ' ', '/', '\t', '\n', '\r':
				return k
			}
		}
		from = k + 4
	}
	return -1
}

func selfClosing(doc string, start int) (bool, int) {
	end := strings.IndexByte(doc[start:], '>')
	if end < 0 {
		return false, -1
	}
	end += start
	return doc[end-1] == '/', end + 1
}

func scanParagraphs(doc string) []paragraph {
	var out []paragraph
	for i := 0; ; {
		start := paragraphStart(doc, i)
		if start < 0 {
			return out
		}
		closed, next := selfClosing(doc, start)
		if next < 0 {
			return out
		}
		if closed {
			i = next
			continue
		}
		end := paragraphEnd(doc, next)
		if end < 0 {
			return out
		}
		out = append(out, paragraph{start: start, end: end, text: paragraphText(doc[start:end])})
		i = end
	}
}

// paragraphEnd returns the offset just past the </w:p> that closes the
// paragraph whose content starts at from. Nested paragraphs (text boxes)
// are skipped.
func paragraphEnd(doc string, from int) int {
	const closeTag = "</w:p>"
	depth := 1
	for depth > 0 {
		closeAt := strings.Index(doc[from:], closeTag)
		if closeAt < 0 {
			return -1
		}
		closeAt += from

		if open := paragraphStart(doc, from); open >= 0 && open < closeAt {
			closed, next := selfClosing(doc, open)
			if next < 0 {
				return -1
			}
			if !closed {
				depth++
			}
			from = next
			continue
		}
		depth--
		from = closeAt + len(closeTag)
	}
	return from
}

func paragraphText(p string) string {
	var b strings.Builder
	for _, m := range textRunPattern.FindAllStringSubmatch(p, -1) {
		b.WriteString(html.UnescapeString(m[1]))
	}
	return b.String()
}

// replacePlaceholder swaps the first paragraph containing placeholder for body
func replacePlaceholder(doc, placeholder, body string) (string, bool) {
	for _, p := range scanParagraphs(doc) {
		if strings.Contains(p.text, placeholder) {
			return doc[:p.start] + body + doc[p.end:], true
		}
	}
	return doc, false
}

// addSectionPageBreaks puts a page break before the annexure section
// headings unless the heading already opens the document.
func addSectionPageBreaks(doc string) string {
	paragraphs := scanParagraphs(doc)
	for i := len(paragraphs) - 1; i > 0; i-- {
		text := strings.ToLower(paragraphs[i].text)
		for _, heading := range sectionHeadings {
			if strings.Contains(text, heading) {
				doc = doc[:paragraphs[i].start] + pageBreakParagraph + doc[paragraphs[i].start:]
				break
			}
		}
	}
	return doc
}

// appendToBody inserts xml before the body-level section properties
func appendToBody(doc, xml string) string {
	bodyEnd := strings.LastIndex(doc, "</w:body>")
	if bodyEnd < 0 {
		return doc
	}
	at := bodyEnd
	if sect := strings.LastIndex(doc[:bodyEnd], "<w:sectPr"); sect >= 0 && sect > strings.LastIndex(doc[:bodyEnd], "</w:p>") {
		at = sect
	}
	return doc[:at] + xml + doc[at:]
}

func addMedia(parts *[]part, images []media) error {
	if len(images) == 0 {
		return nil
	}

	relsIdx := findPart(*parts, partDocumentRels)
	if relsIdx < 0 {
		*parts = append(*parts, part{name: partDocumentRels, data: []byte(emptyRelationships)})
		relsIdx = len(*parts) - 1
	}
	var rels strings.Builder
	exts := make(map[string]bool)
	for _, m := range images {
		fmt.Fprintf(&rels, `<Relationship Id="%s" Type="%s" Target="%s"/>`, m.relID, relTypeImage, m.target)
		*parts = append(*parts, part{name: "word/" + m.target, data: m.content})
		exts[m.ext] = true
	}
	updated, err := insertBeforeClose(string((*parts)[relsIdx].data), "Relationships", rels.String())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	(*parts)[relsIdx].data = []byte(updated)

	typesIdx := findPart(*parts, partContentTypes)
	if typesIdx < 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidTemplate, partContentTypes)
	}
	types := string((*parts)[typesIdx].data)
	var defaults strings.Builder
	for _, ext := range slices.Sorted(maps.Keys(exts)) {
		name := strings.TrimPrefix(ext, ".")
		if strings.Contains(strings.ToLower(types), fmt.Sprintf(`extension="%s"`, name)) {
			continue
		}
		fmt.Fprintf(&defaults, `<Default Extension="%s" ContentType="%s"/>`, name, imageContentTypes[ext])
	}
	if defaults.Len() > 0 {
		if types, err = insertBeforeClose(types, "Types", defaults.String()); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		(*parts)[typesIdx].data = []byte(types)
	}
	return nil
}

// insertBeforeClose inserts content before </element>, expanding a
// self-closing root element when needed.
func insertBeforeClose(doc, element, content string) (string, error) {
	closeTag := "</" + element + ">"
	if i := strings.LastIndex(doc, closeTag); i >= 0 {
		return doc[:i] + content + doc[i:], nil
	}
	open := strings.Index(doc, "<"+element)
	if open < 0 {
		return "", fmt.Errorf("no <%s> element", element)
	}
	end := strings.IndexByte(doc[open:], '>')
	if end < 1 || doc[open+end-1] != '/' {
		return "", fmt.Errorf("malformed <%s> element", element)
	}
	end += open
	return doc[:end-1] + ">" + content + closeTag + doc[end+1:], nil
}
