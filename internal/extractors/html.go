package extractors

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// HTML converts a DOM to plain text or Markdown according to
// cfg.OutputFormat, preserves tables as structured cells plus a
// Markdown serialization, and lifts <title> into metadata (spec.md
// §4.4).
type HTML struct{ *extraction.Base }

func NewHTML() *HTML {
	return &HTML{&extraction.Base{
		MIMETypes: []string{"text/html"},
		Pri:       10,
		Nm:        "html",
		Ver:       "1.0.0",
		Desc:      "HTML to plain text/Markdown with table and title extraction",
		Auth:      "kreuzberg",
	}}
}

func (e *HTML) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, kerrors.Parsing("failed to parse HTML: "+err.Error(), err)
	}

	res := result.New("", mime)
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		res.Metadata.Title = title
	}

	tables := doc.Find("table")
	tables.Each(func(i int, sel *goquery.Selection) {
		t := tableFromSelection(sel)
		res.Tables = append(res.Tables, result.NewHandle(&t))
		sel.ReplaceWithHtml("")
	})

	markdown := cfg != nil && cfg.OutputFormat == result.OutputMarkdown
	var content string
	if markdown {
		content = renderMarkdown(doc.Selection)
	} else {
		content = collapseWhitespace(doc.Find("body").Text())
		if strings.TrimSpace(content) == "" {
			content = collapseWhitespace(doc.Text())
		}
	}
	res.Content = strings.TrimSpace(content)

	for _, t := range res.Tables {
		if res.Content != "" {
			res.Content += "\n\n" + t.Get().Markdown
		} else {
			res.Content = t.Get().Markdown
		}
	}

	return res, nil
}

func (e *HTML) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, e, path, mime, cfg)
}

// tableFromSelection reads a <table>'s rows into a Table cell grid and
// a Markdown serialization.
func tableFromSelection(sel *goquery.Selection) result.Table {
	var cells [][]string
	sel.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cols []string
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cols = append(cols, strings.TrimSpace(cell.Text()))
		})
		if len(cols) > 0 {
			cells = append(cells, cols)
		}
	})
	return result.Table{Cells: cells, Markdown: cellsToMarkdown(cells)}
}

func cellsToMarkdown(cells [][]string) string {
	if len(cells) == 0 {
		return ""
	}
	var b strings.Builder
	for i, row := range cells {
		b.WriteString("| ")
		b.WriteString(strings.Join(row, " | "))
		b.WriteString(" |\n")
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

// renderMarkdown walks headings/paragraphs/lists/links into a minimal
// Markdown rendering. Unknown tags fall back to their text content.
func renderMarkdown(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Find("body").First().Contents().Each(func(_ int, s *goquery.Selection) {
		renderNodeMarkdown(s, &b)
	})
	if b.Len() == 0 {
		return collapseWhitespace(sel.Text())
	}
	return b.String()
}

func renderNodeMarkdown(s *goquery.Selection, b *strings.Builder) {
	if len(s.Nodes) == 0 || s.Nodes[0].Type != html.ElementNode {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			b.WriteString(text + "\n")
		}
		return
	}
	switch s.Nodes[0].Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(s.Nodes[0].Data[1] - '0')
		b.WriteString(strings.Repeat("#", level) + " " + strings.TrimSpace(s.Text()) + "\n\n")
	case "p":
		b.WriteString(strings.TrimSpace(s.Text()) + "\n\n")
	case "li":
		b.WriteString("- " + strings.TrimSpace(s.Text()) + "\n")
	case "a":
		href, _ := s.Attr("href")
		b.WriteString("[" + strings.TrimSpace(s.Text()) + "](" + href + ")")
	case "ul", "ol":
		s.Children().Each(func(_ int, c *goquery.Selection) { renderNodeMarkdown(c, b) })
		b.WriteString("\n")
	default:
		s.Contents().Each(func(_ int, c *goquery.Selection) { renderNodeMarkdown(c, b) })
	}
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
