package extractors

import (
	"context"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Djot is a hand-rolled block-level parser: no Djot engine exists
// anywhere in the Go ecosystem the pack draws from (the reference
// implementation uses Rust's `jotdown` crate, which has no Go
// counterpart), so this walks Djot's block grammar directly — ATX
// headings (`#`...`######`), fenced code blocks, `*`/`-`/`+` bullet
// and `N.` ordered lists, pipe tables, and paragraphs — the same
// frontmatter-then-body shape as markdown.go, reusing its
// splitFrontmatter/applyFrontmatter helpers since Djot's YAML
// frontmatter convention is identical to Markdown's.
type Djot struct{ *extraction.Base }

func NewDjot() *Djot {
	return &Djot{&extraction.Base{
		MIMETypes: []string{"text/x-djot"},
		Pri:       10,
		Nm:        "djot",
	}}
}

// DjotBlock is the AST node type carried in ExtractionResult.DjotContent.
type DjotBlock struct {
	Type     string      `json:"type"`
	Level    int         `json:"level,omitempty"`
	Text     string      `json:"text,omitempty"`
	Language string      `json:"language,omitempty"`
	Ordered  bool        `json:"ordered,omitempty"`
	Items    []string    `json:"items,omitempty"`
	Children []DjotBlock `json:"children,omitempty"`
}

func (d *Djot) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	content, front := splitFrontmatter(string(data))

	blocks, tables, plainText := parseDjotBlocks(content)

	res := result.New(strings.TrimSpace(plainText), mime)
	res.DjotContent = blocks
	res.Tables = tables
	if front != "" {
		var fm map[string]interface{}
		if err := yaml.Unmarshal([]byte(front), &fm); err == nil {
			applyFrontmatter(&res.Metadata, fm)
		}
	}
	return res, nil
}

func (d *Djot) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, d, path, mime, cfg)
}

func parseDjotBlocks(content string) ([]DjotBlock, []result.Handle[result.Table], string) {
	lines := strings.Split(content, "\n")
	var blocks []DjotBlock
	var tables []result.Handle[result.Table]
	var plain strings.Builder

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++

		case strings.HasPrefix(trimmed, "```"):
			lang := strings.TrimPrefix(trimmed, "```")
			var code strings.Builder
			i++
			for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
				code.WriteString(lines[i])
				code.WriteString("\n")
				i++
			}
			i++ // consume closing fence
			blocks = append(blocks, DjotBlock{Type: "code_block", Language: lang, Text: code.String()})
			plain.WriteString(code.String())
			plain.WriteString("\n")

		case strings.HasPrefix(trimmed, "#"):
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' {
				level++
			}
			text := strings.TrimSpace(trimmed[level:])
			blocks = append(blocks, DjotBlock{Type: "heading", Level: level, Text: text})
			plain.WriteString(text)
			plain.WriteString("\n")
			i++

		case strings.HasPrefix(trimmed, "|"):
			var rows [][]string
			for i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "|") {
				cells := splitPipeRow(lines[i])
				if !isDjotTableSeparator(cells) {
					rows = append(rows, cells)
				}
				i++
			}
			if len(rows) > 0 {
				md := tableMarkdown(rows)
				tables = append(tables, result.NewHandle(&result.Table{Cells: rows, Markdown: md}))
				plain.WriteString(md)
			}

		case isDjotListMarker(trimmed):
			ordered := trimmed[0] >= '0' && trimmed[0] <= '9'
			var items []string
			for i < len(lines) && isDjotListMarker(strings.TrimSpace(lines[i])) {
				item := djotListItemText(strings.TrimSpace(lines[i]))
				items = append(items, item)
				plain.WriteString(item)
				plain.WriteString("\n")
				i++
			}
			blocks = append(blocks, DjotBlock{Type: "list", Ordered: ordered, Items: items})

		default:
			var para strings.Builder
			for i < len(lines) && strings.TrimSpace(lines[i]) != "" &&
				!strings.HasPrefix(strings.TrimSpace(lines[i]), "#") &&
				!strings.HasPrefix(strings.TrimSpace(lines[i]), "```") &&
				!strings.HasPrefix(strings.TrimSpace(lines[i]), "|") &&
				!isDjotListMarker(strings.TrimSpace(lines[i])) {
				if para.Len() > 0 {
					para.WriteString(" ")
				}
				para.WriteString(strings.TrimSpace(lines[i]))
				i++
			}
			text := para.String()
			blocks = append(blocks, DjotBlock{Type: "paragraph", Text: text})
			plain.WriteString(text)
			plain.WriteString("\n")
		}
	}
	return blocks, tables, plain.String()
}

func isDjotListMarker(line string) bool {
	if len(line) == 0 {
		return false
	}
	if line[0] == '-' || line[0] == '*' || line[0] == '+' {
		return len(line) > 1 && line[1] == ' '
	}
	j := 0
	for j < len(line) && line[j] >= '0' && line[j] <= '9' {
		j++
	}
	return j > 0 && j+1 < len(line) && line[j] == '.' && line[j+1] == ' '
}

func djotListItemText(line string) string {
	if line[0] == '-' || line[0] == '*' || line[0] == '+' {
		return strings.TrimSpace(line[1:])
	}
	j := 0
	for j < len(line) && line[j] >= '0' && line[j] <= '9' {
		j++
	}
	return strings.TrimSpace(line[j+1:])
}

func splitPipeRow(line string) []string {
	trimmed := strings.Trim(strings.TrimSpace(line), "|")
	parts := strings.Split(trimmed, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func isDjotTableSeparator(cells []string) bool {
	for _, c := range cells {
		c = strings.Trim(c, ": ")
		if c == "" {
			continue
		}
		for _, r := range c {
			if r != '-' {
				return false
			}
		}
	}
	return true
}
