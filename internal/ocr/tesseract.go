package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Tesseract wraps gosseract, generalizing the teacher's TesseractOCR
// (single confidence-heuristic text extraction) into the full Backend
// contract: per-word bounding boxes for table reconstruction, and
// language-capability reporting driven by gosseract's installed
// language list rather than a hardcoded "en" default.
type Tesseract struct {
	languages map[string]bool
}

// NewTesseract probes the local tesseract installation's available
// languages once at construction.
func NewTesseract() *Tesseract {
	client := gosseract.NewClient()
	defer client.Close()

	langs := map[string]bool{"eng": true}
	if available, err := client.GetAvailableLanguages(); err == nil {
		for _, l := range available {
			langs[l] = true
		}
	}
	return &Tesseract{languages: langs}
}

func (t *Tesseract) Name() string        { return "tesseract" }
func (t *Tesseract) BackendType() string { return "builtin" }

func (t *Tesseract) SupportsLanguage(code string) bool {
	return t.languages[code] || t.languages[normalizeTesseractLang(code)]
}

func (t *Tesseract) Initialize(ctx context.Context) error { return nil }
func (t *Tesseract) Shutdown(ctx context.Context) error   { return nil }

// Recognize runs Tesseract over image, returning full text plus
// word-level bounding boxes (gosseract's RIL_WORD iterator level) so
// the table-reconstruction stage has boxes to cluster, unlike the
// teacher's Tesseract path which discarded word geometry entirely.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, lang string) (*Page, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if lang != "" {
		if err := client.SetLanguage(normalizeTesseractLang(lang)); err != nil {
			return nil, kerrors.OCR("failed to set tesseract language: "+err.Error(), err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, kerrors.OCR("failed to load image into tesseract: "+err.Error(), err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, kerrors.OCR("tesseract recognition failed: "+err.Error(), err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	var words []Word
	if err == nil {
		for _, b := range boxes {
			w := strings.TrimSpace(b.Word)
			if w == "" {
				continue
			}
			words = append(words, Word{
				Text:       w,
				Confidence: b.Confidence / 100.0,
				BBox: result.BBox{
					X:      float64(b.Box.Min.X),
					Y:      float64(b.Box.Min.Y),
					Width:  float64(b.Box.Dx()),
					Height: float64(b.Box.Dy()),
				},
			})
		}
	}

	return &Page{
		Text:       text,
		Confidence: estimateConfidence(text, words),
		Words:      words,
	}, nil
}

// estimateConfidence averages per-word confidences when available,
// falling back to the teacher's text-quality heuristic
// (calculateTesseractConfidence) when word boxes could not be read.
func estimateConfidence(text string, words []Word) float64 {
	if len(words) > 0 {
		var sum float64
		for _, w := range words {
			sum += w.Confidence
		}
		return sum / float64(len(words))
	}
	return heuristicConfidence(text)
}

func heuristicConfidence(text string) float64 {
	confidence := 0.5
	if len(text) > 1000 {
		confidence += 0.1
	}
	if len(text) > 5000 {
		confidence += 0.1
	}
	if len(strings.Fields(text)) > 100 {
		confidence += 0.1
	}
	var alpha int
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alpha++
		}
	}
	if len(text) > 0 {
		ratio := float64(alpha) / float64(len(text))
		if ratio > 0.5 && ratio < 0.9 {
			confidence += 0.1
		}
	}
	if confidence > 0.85 {
		confidence = 0.85
	}
	return confidence
}

// normalizeTesseractLang maps a BCP-47 tag ("en") to tesseract's
// three-letter ISO 639-2 traineddata naming ("eng") for the common
// cases; unknown tags pass through unchanged so a caller can still
// supply a raw traineddata name directly.
func normalizeTesseractLang(code string) string {
	switch strings.ToLower(code) {
	case "en":
		return "eng"
	case "es":
		return "spa"
	case "fr":
		return "fra"
	case "de":
		return "deu"
	case "pt":
		return "por"
	case "it":
		return "ita"
	default:
		return code
	}
}
