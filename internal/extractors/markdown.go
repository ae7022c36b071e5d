package extractors

import (
	"context"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Markdown passes content through verbatim, but lifts an optional
// leading YAML frontmatter block (`---`...`---`) into metadata and
// strips it from content (spec.md §4.4).
type Markdown struct{ *extraction.Base }

func NewMarkdown() *Markdown {
	return &Markdown{&extraction.Base{
		MIMETypes: []string{"text/markdown"},
		Pri:       10,
		Nm:        "markdown",
		Ver:       "1.0.0",
		Desc:      "Markdown pass-through with YAML frontmatter extraction",
		Auth:      "kreuzberg",
	}}
}

func (m *Markdown) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	content, front := splitFrontmatter(string(data))

	res := result.New(content, mime)
	if front != "" {
		var fm map[string]interface{}
		if err := yaml.Unmarshal([]byte(front), &fm); err == nil {
			applyFrontmatter(&res.Metadata, fm)
		}
	}
	return res, nil
}

func (m *Markdown) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, m, path, mime, cfg)
}

// splitFrontmatter returns (content-without-frontmatter, frontmatter-
// yaml-body) for a leading `---\n...\n---\n` block, or (s, "") if none.
func splitFrontmatter(s string) (string, string) {
	const delim = "---"
	if !strings.HasPrefix(s, delim) {
		return s, ""
	}
	rest := s[len(delim):]
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")

	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return s, ""
	}
	front := rest[:idx]
	after := rest[idx+1+len(delim):]
	after = strings.TrimPrefix(after, "\r\n")
	after = strings.TrimPrefix(after, "\n")
	return after, front
}

func applyFrontmatter(meta *result.Metadata, fm map[string]interface{}) {
	for k, v := range fm {
		switch strings.ToLower(k) {
		case "title":
			if s, ok := v.(string); ok {
				meta.Title = s
			}
		case "author", "authors":
			meta.Authors = append(meta.Authors, toStringSlice(v)...)
		case "language", "lang":
			if s, ok := v.(string); ok {
				meta.Language = s
			}
		default:
			meta.EnsureAdditional()[k] = v
		}
	}
}

func toStringSlice(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
