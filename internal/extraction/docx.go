package extraction

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

func extractDOCX(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer func() { _ = doc.Close() }()

	return documentXMLText(strings.NewReader(doc.Editable().GetContent()))
}

// documentXMLText renders word/document.xml as text: body paragraphs one per
// line, followed by table rows with every cell followed by a space.
func documentXMLText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		rows       []string
		para       strings.Builder
		inText     bool
		tblDepth   int
		cellParas  []string
		rowCells   []string
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
			case "tr":
				if tblDepth == 1 {
					rowCells = nil
				}
			case "tc":
				if tblDepth == 1 {
					cellParas = nil
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if tblDepth == 0 {
					paragraphs = append(paragraphs, para.String())
				} else {
					cellParas = append(cellParas, para.String())
				}
				para.Reset()
			case "tc":
				if tblDepth == 1 {
					rowCells = append(rowCells, strings.Join(cellParas, "\n"))
				}
			case "tr":
				if tblDepth == 1 {
					var line strings.Builder
					for _, c := range rowCells {
						line.WriteString(c)
						line.WriteByte(' ')
					}
					rows = append(rows, line.String())
				}
			case "tbl":
				tblDepth--
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	var b strings.Builder
	for _, p := range paragraphs {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	for _, r := range rows {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
