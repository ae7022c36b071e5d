// Package extractors holds one file per supported format, each a small
// extraction.Extractor embedding *extraction.Base for the shared
// lifecycle/identity boilerplate.
package extractors

import (
	"context"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// PlainText passes bytes through as UTF-8 content verbatim (spec.md
// §4.4: "Plain text... verbatim content pass-through").
type PlainText struct{ *extraction.Base }

func NewPlainText() *PlainText {
	return &PlainText{&extraction.Base{
		MIMETypes: []string{"text/plain", "text/csv"},
		Pri:       10,
		Nm:        "plaintext",
		Ver:       "1.0.0",
		Desc:      "Verbatim plain text pass-through",
		Auth:      "kreuzberg",
	}}
}

func (p *PlainText) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return result.New(string(data), mime), nil
}

func (p *PlainText) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, p, path, mime, cfg)
}
