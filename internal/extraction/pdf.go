package extraction

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDFText reads the embedded text layer row by row. The parser panics
// on some malformed files, so panics are converted into errors.
func extractPDFText(path string) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	pages = reader.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := pageTextByRow(page)
		if err != nil {
			pageText, err = page.GetPlainText(nil)
			if err != nil {
				return "", pages, fmt.Errorf("failed to read page %d: %w", i, err)
			}
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), pages, nil
}

// pageTextByRow joins the text runs of each row, inserting a space where the
// horizontal gap between runs is wider than a fraction of the font size.
func pageTextByRow(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, row := range rows {
		var line strings.Builder
		prevEnd := -1.0
		for _, word := range row.Content {
			if prevEnd >= 0 && word.X-prevEnd > 0.2*word.FontSize && !strings.HasPrefix(word.S, " ") {
				line.WriteByte(' ')
			}
			line.WriteString(word.S)
			prevEnd = word.X + word.W
		}
		if s := strings.TrimRight(line.String(), " "); s != "" {
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
