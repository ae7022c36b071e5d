package extractors

import "strings"

// tableMarkdown renders a cell grid as a GitHub-flavored Markdown table,
// treating the first row as the header (mirrors ocr.tableMarkdown's
// rendering for OCR-reconstructed tables; duplicated here rather than
// exported across the package boundary since it's a pure formatting
// helper with no OCR-specific state).
func tableMarkdown(cells [][]string) string {
	if len(cells) == 0 {
		return ""
	}
	var b strings.Builder
	for i, row := range cells {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		if i == 0 {
			b.WriteString("|")
			for range row {
				b.WriteString(" --- |")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
