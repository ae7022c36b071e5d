package extractors

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/ocr"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// PDF extracts native text and metadata via pdfcpu, then decides
// whether the text layer is trustworthy enough to skip OCR (spec.md
// §4.4 step 5 / §4.5's fallback decision).
type PDF struct {
	*extraction.Base
	Registry OCRRegistry
}

func NewPDF(reg OCRRegistry) *PDF {
	return &PDF{
		Base: &extraction.Base{
			MIMETypes: []string{"application/pdf"},
			Pri:       10,
			Nm:        "pdf",
		},
		Registry: reg,
	}
}

// ExtractFile is overridden rather than delegating to
// DefaultExtractFile: pdfcpu's api operates on file paths and a
// temporary extraction directory, not an in-memory byte slice, so
// buffering to a temp file (as ExtractBytes does) would be redundant
// when a path already exists on disk.
func (p *PDF) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return p.extract(ctx, path, cfg)
}

func (p *PDF) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	f, err := os.CreateTemp("", "kreuzberg-pdf-*.pdf")
	if err != nil {
		return nil, kerrors.IO(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return nil, kerrors.IO(err)
	}
	f.Close()
	return p.extract(ctx, f.Name(), cfg)
}

func (p *PDF) extract(ctx context.Context, path string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, kerrors.Parsing("failed to read PDF page count: "+err.Error(), err)
	}

	tempDir, err := os.MkdirTemp("", "kreuzberg-pdf-extract-*")
	if err != nil {
		return nil, kerrors.IO(err)
	}
	defer os.RemoveAll(tempDir)

	if err := api.ExtractTextFile(path, tempDir, nil); err != nil {
		return nil, kerrors.Parsing("pdfcpu text extraction failed: "+err.Error(), err)
	}
	raw, err := os.ReadFile(filepath.Join(tempDir, filepath.Base(path)+".txt"))
	if err != nil {
		return nil, kerrors.Parsing("failed to read pdfcpu text output: "+err.Error(), err)
	}

	pageTexts := splitPages(string(raw), pageCount)

	var pdfCfg *extraction.PDFConfig
	if cfg != nil {
		pdfCfg = cfg.PDF
	}
	forceOCR := cfg != nil && cfg.ForceOCR

	stats := make([]ocr.PageStats, len(pageTexts))
	for i, t := range pageTexts {
		stats[i] = ocr.AnalyzePage(t)
	}

	res := result.New(strings.Join(pageTexts, "\n\n"), "application/pdf")
	res.Pages = make([]result.PageContent, len(pageTexts))
	for i, t := range pageTexts {
		res.Pages[i] = result.PageContent{PageNumber: i + 1, Content: t, IsBlank: strings.TrimSpace(t) == ""}
	}

	if pdfCfg != nil && pdfCfg.Hierarchy != nil {
		applyHierarchy(res, pdfCfg.Hierarchy.KClusters)
	}

	if pdfCfg != nil && pdfCfg.ExtractImages {
		if err := extractPDFImages(path, res); err != nil {
			res.Metadata.EnsureAdditional()["image_extraction_error"] = err.Error()
		}
	}

	if ocr.NeedsOCR(stats, forceOCR) && p.Registry != nil {
		if err := p.runPageOCR(ctx, res, cfg); err != nil {
			res.Metadata.EnsureAdditional()["ocr_fallback_error"] = err.Error()
		}
	}

	return res, nil
}

// splitPages divides pdfcpu's combined text output on form-feed page
// breaks (pdfcpu inserts one between pages); when the output carries no
// such marker, the whole document is treated as a single page.
func splitPages(text string, pageCount int) []string {
	parts := strings.Split(text, "\f")
	var pages []string
	for _, p := range parts {
		pages = append(pages, p)
	}
	if len(pages) == 0 {
		pages = []string{text}
	}
	for len(pages) < pageCount {
		pages = append(pages, "")
	}
	if pageCount > 0 && len(pages) > pageCount {
		pages = pages[:pageCount]
	}
	return pages
}

// applyHierarchy provides a heading-level view when the text layer
// gives no font-size metadata to cluster (pdfcpu's ExtractTextFile API
// does not surface per-run font size at this level): lines in all caps
// or title case and shorter than a body-text line are treated as
// headings, clustered into up to kClusters levels by line length.
func applyHierarchy(res *result.ExtractionResult, kClusters int) {
	if kClusters <= 0 {
		kClusters = 6
	}
	if kClusters > 6 {
		kClusters = 6
	}

	var lengths []int
	for _, p := range res.Pages {
		for _, line := range strings.Split(p.Content, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || len(line) > 80 || !looksLikeHeading(line) {
				continue
			}
			lengths = append(lengths, len(line))
		}
	}
	if len(lengths) == 0 {
		return
	}
	sort.Ints(lengths)

	for pi, p := range res.Pages {
		var blocks []result.HierarchyBlock
		for _, line := range strings.Split(p.Content, "\n") {
			trimmed := strings.TrimSpace(line)
			level := "body"
			if trimmed != "" && len(trimmed) <= 80 && looksLikeHeading(trimmed) {
				level = headingLevel(len(trimmed), lengths, kClusters)
			}
			blocks = append(blocks, result.HierarchyBlock{Text: trimmed, Level: level})
		}
		res.Pages[pi].Hierarchy = blocks
	}
}

func looksLikeHeading(line string) bool {
	if line == strings.ToUpper(line) && strings.ToLower(line) != strings.ToUpper(line) {
		return true
	}
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 10 {
		return false
	}
	for _, w := range words {
		r := []rune(w)
		if len(r) > 0 && !(r[0] >= 'A' && r[0] <= 'Z') {
			return false
		}
	}
	return true
}

func headingLevel(length int, sortedLengths []int, kClusters int) string {
	idx := sort.SearchInts(sortedLengths, length)
	bucket := idx * kClusters / (len(sortedLengths) + 1)
	if bucket >= kClusters {
		bucket = kClusters - 1
	}
	return "h" + string(rune('1'+bucket))
}

// runPageOCR rasterization is out of this engine's scope without a PDF
// rendering dependency beyond pdfcpu's page-extraction surface; pages
// are instead OCR'd by recognizing the embedded raster images already
// loaded into res.Images (present only when PDFConfig.ExtractImages is set;
// common for scanned PDFs, where each page is a single full-page
// image). A page's content is replaced only when its native text is
// blank, and res.Content is then rebuilt from the page contents.
func (p *PDF) runPageOCR(ctx context.Context, res *result.ExtractionResult, cfg *extraction.Config) error {
	var ocrCfg *extraction.OCRConfig
	if cfg != nil {
		ocrCfg = cfg.OCR
	}
	if ocrCfg == nil {
		ocrCfg = &extraction.OCRConfig{Backend: "tesseract"}
	}

	for _, img := range res.Images {
		im := img.Get()
		pre, err := ocr.Preprocess(im.Bytes.Bytes())
		if err != nil {
			continue
		}
		page, err := runOCR(ctx, p.Registry, ocrCfg, pre)
		if err != nil {
			continue
		}
		pageNum := -1
		if im.PageNumber != nil {
			pageNum = *im.PageNumber - 1
		}
		if pageNum >= 0 && pageNum < len(res.Pages) && res.Pages[pageNum].IsBlank {
			res.Pages[pageNum].Content = page.Text
			res.Pages[pageNum].IsBlank = page.Text == ""
		}
		if table := ocr.ReconstructTable(page.Words); table != nil {
			res.Tables = append(res.Tables, result.NewHandle(table))
		}
	}
	pageTexts := make([]string, len(res.Pages))
	for i, pg := range res.Pages {
		pageTexts[i] = pg.Content
	}
	res.Content = strings.Join(pageTexts, "\n\n")
	return nil
}

// extractPDFImages dumps embedded raster images to a temp directory
// via pdfcpu's ExtractImagesFile and loads them into res.Images.
// pdfcpu names each file "<page>_<obj>.<ext>"; the leading page number
// is parsed back out so runPageOCR can target the right page.
func extractPDFImages(path string, res *result.ExtractionResult) error {
	tempDir, err := os.MkdirTemp("", "kreuzberg-pdf-images-*")
	if err != nil {
		return kerrors.IO(err)
	}
	defer os.RemoveAll(tempDir)

	if err := api.ExtractImagesFile(path, tempDir, nil); err != nil {
		return kerrors.Parsing("pdfcpu image extraction failed: "+err.Error(), err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return kerrors.IO(err)
	}

	for i, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(tempDir, entry.Name()))
		if err != nil {
			continue
		}
		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			continue
		}

		var pageNum *int
		if n, ok := parseLeadingPageNumber(entry.Name()); ok {
			pageNum = &n
		}

		res.Images = append(res.Images, result.NewHandle(&result.ExtractedImage{
			Bytes:      result.NewBytes(data),
			Format:     format,
			Index:      i,
			PageNumber: pageNum,
			Width:      cfg.Width,
			Height:     cfg.Height,
		}))
	}
	return nil
}

func parseLeadingPageNumber(name string) (int, bool) {
	i := 0
	for i < len(name) && name[i] >= '0' && name[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n := 0
	for _, c := range name[:i] {
		n = n*10 + int(c-'0')
	}
	return n, true
}
