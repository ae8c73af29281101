package docreport

import (
	"fmt"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const emptyRelationships = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

const blankContentTypes = xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const blankRootRels = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

// A4 portrait with one inch margins, in twentieths of a point
const blankDocument = xmlHeader +
	`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">` +
	`<w:body>%s<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
	`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>` +
	`</w:sectPr></w:body></w:document>`

// blankPackage builds a minimal Word package with a titled placeholder
// paragraph for every section that has annexures.
func blankPackage(sections []Section) []part {
	var body strings.Builder
	for _, section := range sections {
		if len(section.Entries) == 0 {
			continue
		}
		body.WriteString(headingParagraph(section.Title))
		fmt.Fprintf(&body, `<w:p><w:r><w:t>%s</w:t></w:r></w:p>`, escapeText(section.Placeholder))
	}

	return []part{
		{name: partContentTypes, data: []byte(blankContentTypes)},
		{name: partRootRels, data: []byte(blankRootRels)},
		{name: partDocument, data: []byte(fmt.Sprintf(blankDocument, body.String()))},
		{name: partDocumentRels, data: []byte(emptyRelationships)},
	}
}
