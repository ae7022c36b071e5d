package extractors

import (
	"context"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/ocr"
	"github.com/adverant/kreuzberg-go/internal/registry"
)

// OCRRegistry is satisfied by *registry.OCRRegistry; extractors depend
// on this narrow interface instead of the concrete type so tests can
// substitute a stub registry.
type OCRRegistry interface {
	Lookup(name string) (registry.OCRBackend, error)
}

// runOCR resolves the configured backend and recognizes image data
// against it. Registered backends satisfy registry.OCRBackend (name +
// language capability only); the fuller ocr.Backend contract (the one
// that can actually Recognize) is recovered with a type assertion, the
// same pattern internal/pipeline/vectorindex.go uses to recover a
// concrete post-processor target from a registry entry.
func runOCR(ctx context.Context, reg OCRRegistry, cfg *extraction.OCRConfig, imageData []byte) (*ocr.Page, error) {
	if cfg == nil || cfg.Backend == "" {
		return nil, kerrors.Validation("OCR requested with no backend configured", nil)
	}
	backend, err := reg.Lookup(cfg.Backend)
	if err != nil {
		return nil, err
	}
	recognizer, ok := backend.(ocr.Backend)
	if !ok {
		return nil, kerrors.Plugin(cfg.Backend, "registered OCR backend does not implement Recognize")
	}
	return recognizer.Recognize(ctx, imageData, cfg.Language)
}
