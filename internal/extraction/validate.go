package extraction

import (
	"golang.org/x/text/language"

	"github.com/adverant/kreuzberg-go/internal/kerrors"
)

var ocrBackends = map[string]bool{"tesseract": true, "easyocr": true, "paddleocr": true}
var chunkerTypes = map[string]bool{"text": true, "markdown": true}
var tokenReductionModes = map[string]bool{"off": true, "light": true, "moderate": true, "aggressive": true, "maximum": true}

// Validate enforces spec.md §3's config validation rules: overlap less
// than max_characters, min_confidence in [0,1], OCR backend in the
// enum, language code in the curated (BCP-47-parseable) set.
func (c *Config) Validate() error {
	if c.OCR != nil {
		if !ocrBackends[c.OCR.Backend] {
			return kerrors.Validation("unknown ocr.backend: "+c.OCR.Backend, nil)
		}
		if c.OCR.Language != "" {
			if _, err := language.Parse(c.OCR.Language); err != nil {
				return kerrors.Validation("unrecognized ocr.language: "+c.OCR.Language, err)
			}
		}
	}

	if c.Chunking != nil {
		if c.Chunking.MaxCharacters <= 0 {
			return kerrors.Validation("chunking.max_characters must be positive", nil)
		}
		if c.Chunking.Overlap >= c.Chunking.MaxCharacters {
			return kerrors.Validation("chunking.overlap must be less than max_characters", nil)
		}
		if c.Chunking.Overlap < 0 {
			return kerrors.Validation("chunking.overlap must be non-negative", nil)
		}
		if c.Chunking.ChunkerType != "" && !chunkerTypes[c.Chunking.ChunkerType] {
			return kerrors.Validation("unknown chunking.chunker_type: "+c.Chunking.ChunkerType, nil)
		}
	}

	if c.LanguageDetection != nil {
		mc := c.LanguageDetection.MinConfidence
		if mc < 0 || mc > 1 {
			return kerrors.Validation("language_detection.min_confidence must be in [0,1]", nil)
		}
	}

	if c.TokenReduction != nil && c.TokenReduction.Mode != "" {
		if !tokenReductionModes[c.TokenReduction.Mode] {
			return kerrors.Validation("unknown token_reduction.mode: "+c.TokenReduction.Mode, nil)
		}
	}

	if c.PDF != nil && c.PDF.Hierarchy != nil {
		h := c.PDF.Hierarchy
		if h.KClusters < 1 || h.KClusters > 7 {
			return kerrors.Validation("pdf.hierarchy.k_clusters must be in [1,7]", nil)
		}
		if h.OCRCoverageThreshold != nil {
			t := *h.OCRCoverageThreshold
			if t <= 0 || t > 1 {
				return kerrors.Validation("pdf.hierarchy.ocr_coverage_threshold must be in (0,1]", nil)
			}
		}
	}

	return nil
}
