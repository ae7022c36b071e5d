package extractors

import (
	"context"
	"encoding/json"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Structured passes JSON content through verbatim, validating it
// parses as JSON so a malformed document surfaces as Parsing rather
// than silently returning garbage (spec.md §4.4: "Structured...
// verbatim content pass-through").
type Structured struct{ *extraction.Base }

func NewStructured() *Structured {
	return &Structured{&extraction.Base{
		MIMETypes: []string{"application/json"},
		Pri:       10,
		Nm:        "structured",
		Ver:       "1.0.0",
		Desc:      "JSON pass-through with validation",
		Auth:      "kreuzberg",
	}}
}

func (s *Structured) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	if len(data) > 0 && !json.Valid(data) {
		return nil, kerrors.Parsing("invalid JSON input", nil)
	}
	return result.New(string(data), mime), nil
}

func (s *Structured) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, s, path, mime, cfg)
}
