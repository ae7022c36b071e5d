package extractors

import (
	"context"
	"regexp"
	"strings"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// LaTeX is a custom, non-TeX-engine parser recognizing just enough of
// LaTeX's command grammar to recover document structure and plain text
// (spec.md §4.4): \title/\author/\date into metadata, section commands
// into headings, itemize and description environments into bullet
// lists and enumerate into numbered lists, the tabular environment into a Table, and
// inline/display math left untouched in the text stream (verbatim
// preservation is the contract — not evaluation).
type LaTeX struct{ *extraction.Base }

func NewLaTeX() *LaTeX {
	return &LaTeX{&extraction.Base{
		MIMETypes: []string{"text/x-latex"},
		Pri:       10,
		Nm:        "latex",
	}}
}

var (
	latexTitleRe    = regexp.MustCompile(`\\title\{([^}]*)\}`)
	latexAuthorRe   = regexp.MustCompile(`\\author\{([^}]*)\}`)
	latexDateRe     = regexp.MustCompile(`\\date\{([^}]*)\}`)
	latexSectionRe  = regexp.MustCompile(`\\(part|chapter|section|subsection|subsubsection|paragraph|subparagraph)\*?\{([^}]*)\}`)
	latexFormatRe   = regexp.MustCompile(`\\(textbf|textit|texttt|emph|underline)\{([^}]*)\}`)
	latexCommentRe  = regexp.MustCompile(`(^|[^\\])%.*$`)
)

var latexSectionLevel = map[string]int{
	"part": 1, "chapter": 1, "section": 1,
	"subsection": 2, "subsubsection": 3,
	"paragraph": 4, "subparagraph": 5,
}

func (l *LaTeX) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	src := string(data)

	res := result.New("", mime)
	if m := latexTitleRe.FindStringSubmatch(src); m != nil {
		res.Metadata.Title = strings.TrimSpace(m[1])
	}
	if m := latexAuthorRe.FindStringSubmatch(src); m != nil {
		res.Metadata.Authors = splitLatexAuthors(m[1])
	}
	if m := latexDateRe.FindStringSubmatch(src); m != nil {
		res.Metadata.EnsureAdditional()
		res.Metadata.Additional["date"] = strings.TrimSpace(m[1])
	}

	body := stripLatexPreamble(src)
	body = latexCommentRe.ReplaceAllString(body, "$1")

	var content strings.Builder
	lines := strings.Split(body, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])

		switch {
		case line == "":
			i++

		case strings.HasPrefix(line, "\\begin{tabular}"):
			var rows [][]string
			i++
			for i < len(lines) && !strings.Contains(lines[i], "\\end{tabular}") {
				row := parseTabularRow(lines[i])
				if row != nil {
					rows = append(rows, row)
				}
				i++
			}
			i++ // consume \end{tabular}
			if len(rows) > 0 {
				md := tableMarkdown(rows)
				res.Tables = append(res.Tables, result.NewHandle(&result.Table{Cells: rows, Markdown: md}))
				content.WriteString(md)
				content.WriteString("\n")
			}

		case isLatexListBegin(line):
			envName, ordered := latexListEnv(line)
			i++
			for i < len(lines) && !strings.Contains(lines[i], "\\end{"+envName+"}") {
				item := strings.TrimSpace(lines[i])
				if strings.HasPrefix(item, "\\item") {
					text := latexFormatRe.ReplaceAllString(strings.TrimSpace(strings.TrimPrefix(item, "\\item")), "$2")
					if ordered {
						content.WriteString("1. " + text + "\n")
					} else {
						content.WriteString("- " + text + "\n")
					}
				}
				i++
			}
			i++ // consume \end{...}

		default:
			if m := latexSectionRe.FindStringSubmatch(line); m != nil {
				level := latexSectionLevel[m[1]]
				content.WriteString(strings.Repeat("#", level) + " " + m[2] + "\n")
			} else {
				text := latexFormatRe.ReplaceAllString(line, "$2")
				content.WriteString(text)
				content.WriteString("\n")
			}
			i++
		}
	}

	res.Content = strings.TrimSpace(content.String())
	return res, nil
}

func (l *LaTeX) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, l, path, mime, cfg)
}

// stripLatexPreamble drops everything before \begin{document} and the
// \end{document} marker itself, since the preamble carries no extractable
// content beyond the title/author/date commands already pulled out.
func stripLatexPreamble(src string) string {
	if idx := strings.Index(src, "\\begin{document}"); idx >= 0 {
		src = src[idx+len("\\begin{document}"):]
	}
	if idx := strings.Index(src, "\\end{document}"); idx >= 0 {
		src = src[:idx]
	}
	return src
}

func splitLatexAuthors(s string) []string {
	parts := strings.Split(s, "\\and")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func isLatexListBegin(line string) bool {
	return strings.HasPrefix(line, "\\begin{itemize}") ||
		strings.HasPrefix(line, "\\begin{enumerate}") ||
		strings.HasPrefix(line, "\\begin{description}")
}

func latexListEnv(line string) (name string, ordered bool) {
	switch {
	case strings.HasPrefix(line, "\\begin{itemize}"):
		return "itemize", false
	case strings.HasPrefix(line, "\\begin{enumerate}"):
		return "enumerate", true
	default:
		return "description", false
	}
}

func parseTabularRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\\\\"), "\\hline")
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "\\hline") {
		return nil
	}
	cells := strings.Split(line, "&")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}
