// Package ocr implements the pluggable OCR backend contract spec.md
// §4.5 describes (Tesseract, PaddleOCR, EasyOCR), word-box table
// reconstruction, and the PDF OCR-fallback decision.
package ocr

import (
	"context"

	"github.com/adverant/kreuzberg-go/internal/result"
)

// Word is one recognized word with its page-coordinate bounding box,
// the unit table reconstruction clusters into rows and columns.
type Word struct {
	Text       string
	Confidence float64
	BBox       result.BBox
}

// Page is one page (or, for a plain image, the only page) of OCR
// output: full text, an overall confidence, and the word boxes needed
// for table reconstruction.
type Page struct {
	Text       string
	Confidence float64
	Words      []Word
}

// Backend is the capability set every OCR engine implementation
// satisfies, generalizing the teacher's cascade of single-purpose OCR
// callers (TesseractOCR.Process, MageAgent vision calls) into one
// interface the registry dispatches through by name.
type Backend interface {
	Name() string
	SupportsLanguage(code string) bool
	BackendType() string // "builtin" | "custom"

	Recognize(ctx context.Context, image []byte, lang string) (*Page, error)

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
