package ocr

import (
	"sort"
	"strings"

	"github.com/adverant/kreuzberg-go/internal/result"
)

// ReconstructTable clusters OCR word boxes into rows and columns,
// following spec.md §4.4's PDF table-extraction rule: column threshold
// = 50 units, row threshold = 0.5 × median line height. Returns nil
// when fewer than two distinct rows are found (not a table).
func ReconstructTable(words []Word) *result.Table {
	if len(words) == 0 {
		return nil
	}

	rows := clusterRows(words)
	if len(rows) < 2 {
		return nil
	}

	columns := clusterColumns(words)
	if len(columns) < 2 {
		return nil
	}

	cells := make([][]string, len(rows))
	for ri, row := range rows {
		cells[ri] = make([]string, len(columns))
		for _, w := range row {
			ci := columnIndex(columns, w.BBox.X)
			if cells[ri][ci] != "" {
				cells[ri][ci] += " " + w.Text
			} else {
				cells[ri][ci] = w.Text
			}
		}
	}

	t := result.Table{Cells: cells, Markdown: tableMarkdown(cells)}
	return &t
}

// clusterRows groups words whose vertical centers fall within half
// the median line height of each other, then sorts each row
// left-to-right.
func clusterRows(words []Word) [][]Word {
	sorted := append([]Word(nil), words...)
	sort.Slice(sorted, func(i, j int) bool { return centerY(sorted[i]) < centerY(sorted[j]) })

	threshold := 0.5 * medianHeight(sorted)
	if threshold <= 0 {
		threshold = 5
	}

	var rows [][]Word
	var current []Word
	var currentY float64
	for _, w := range sorted {
		y := centerY(w)
		if len(current) == 0 || y-currentY <= threshold {
			current = append(current, w)
		} else {
			rows = append(rows, current)
			current = []Word{w}
		}
		currentY = y
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}

	for _, r := range rows {
		sort.Slice(r, func(i, j int) bool { return r[i].BBox.X < r[j].BBox.X })
	}
	return rows
}

// clusterColumns groups distinct left-edge X positions within 50
// units of each other into a shared column boundary (spec.md §4.4:
// "column threshold = 50 units").
func clusterColumns(words []Word) []float64 {
	const columnThreshold = 50.0

	xs := make([]float64, len(words))
	for i, w := range words {
		xs[i] = w.BBox.X
	}
	sort.Float64s(xs)

	var columns []float64
	for _, x := range xs {
		if len(columns) == 0 || x-columns[len(columns)-1] > columnThreshold {
			columns = append(columns, x)
		}
	}
	return columns
}

func columnIndex(columns []float64, x float64) int {
	best, bestDist := 0, -1.0
	for i, c := range columns {
		d := x - c
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func centerY(w Word) float64 { return w.BBox.Y + w.BBox.Height/2 }

func medianHeight(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	heights := make([]float64, len(words))
	for i, w := range words {
		heights[i] = w.BBox.Height
	}
	sort.Float64s(heights)
	return heights[len(heights)/2]
}

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
