package extractors

import (
	"context"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/ocr"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Image defers entirely to the OCR subsystem (spec.md §4.4): there is
// no native text layer to fall back to, so recognition always runs
// through the configured backend, preprocessed the same way a PDF's
// rasterized page would be.
type Image struct {
	*extraction.Base
	Registry OCRRegistry
}

func NewImage(reg OCRRegistry) *Image {
	return &Image{
		Base: &extraction.Base{
			MIMETypes: []string{"image/png", "image/jpeg", "image/gif", "image/bmp", "image/tiff", "image/webp"},
			Pri:       10,
			Nm:        "image",
		},
		Registry: reg,
	}
}

func (x *Image) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	pre, err := ocr.Preprocess(data)
	if err != nil {
		return nil, err
	}

	var ocrCfg *extraction.OCRConfig
	if cfg != nil {
		ocrCfg = cfg.OCR
	}
	if ocrCfg == nil {
		ocrCfg = &extraction.OCRConfig{Backend: "tesseract"}
	}

	page, err := runOCR(ctx, x.Registry, ocrCfg, pre)
	if err != nil {
		return nil, err
	}

	res := result.New(page.Text, mime)
	res.Metadata.EnsureAdditional()["ocr_confidence"] = page.Confidence

	if table := ocr.ReconstructTable(page.Words); table != nil {
		res.Tables = append(res.Tables, result.NewHandle(table))
	}
	return res, nil
}

func (x *Image) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, x, path, mime, cfg)
}
