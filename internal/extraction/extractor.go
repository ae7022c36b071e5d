// Package extraction defines the contract every format extractor (and,
// by extension, every OCR-delegating extractor) satisfies, plus the
// ExtractionConfig options the pipeline and extractors read. Modeled on
// the teacher's OCR backend interfaces (internal/processor/ocr_types.go)
// generalized to the full extractor surface spec.md §4.3 describes.
package extraction

import (
	"context"
	"os"

	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Extractor is the capability set every format implementation
// satisfies. ExtractFile's default behavior (read file, delegate to
// ExtractBytes) is provided by DefaultExtractFile for embedding.
type Extractor interface {
	SupportedMIMETypes() []string
	Priority() int

	ExtractBytes(ctx context.Context, data []byte, mime string, cfg *Config) (*result.ExtractionResult, error)
	ExtractFile(ctx context.Context, path string, mime string, cfg *Config) (*result.ExtractionResult, error)

	Name() string
	Version() string
	Description() string
	Author() string

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Base implements the lifecycle and identity boilerplate every concrete
// extractor satisfies identically, so a format extractor need only embed
// *Base and implement ExtractBytes (plus ExtractFile when it wants
// something other than read-then-delegate).
type Base struct {
	MIMETypes   []string
	Pri         int
	Nm, Ver     string
	Desc, Auth  string
}

func (b *Base) SupportedMIMETypes() []string { return b.MIMETypes }
func (b *Base) Priority() int                { return b.Pri }
func (b *Base) Name() string                 { return b.Nm }
func (b *Base) Version() string              { return b.Ver }
func (b *Base) Description() string          { return b.Desc }
func (b *Base) Author() string               { return b.Auth }
func (b *Base) Initialize(ctx context.Context) error { return nil }
func (b *Base) Shutdown(ctx context.Context) error   { return nil }

// DefaultExtractFile reads path and delegates to e.ExtractBytes, the
// default behavior spec.md §4.3 describes for every extractor's
// ExtractFile. Extractors that can stream directly from a file (e.g.
// to avoid buffering a large archive) override ExtractFile instead of
// calling this helper.
func DefaultExtractFile(ctx context.Context, e Extractor, path string, mime string, cfg *Config) (*result.ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kerrors.IO(err)
	}
	return e.ExtractBytes(ctx, data, mime, cfg)
}

// OCRConfig configures OCR backend selection for PDF/image extraction.
type OCRConfig struct {
	Backend  string                 `json:"backend"` // "tesseract" | "easyocr" | "paddleocr"
	Language string                 `json:"language"`
	Params   map[string]interface{} `json:"params,omitempty"`
}

// ChunkingConfig configures the pipeline's chunking stage.
type ChunkingConfig struct {
	MaxCharacters int             `json:"max_characters"`
	Overlap       int             `json:"overlap"`
	Trim          bool            `json:"trim"`
	ChunkerType   string          `json:"chunker_type"` // "text" | "markdown"
	Embedding     *EmbeddingConfig `json:"embedding,omitempty"`
	Preset        string          `json:"preset,omitempty"`
}

// EmbeddingConfig configures the pipeline's embedding stage.
type EmbeddingConfig struct {
	Model   string `json:"model"`
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// LanguageDetectionConfig configures the pipeline's language-detection stage.
type LanguageDetectionConfig struct {
	Enabled        bool    `json:"enabled"`
	MinConfidence  float64 `json:"min_confidence"`
	DetectMultiple bool    `json:"detect_multiple"`
}

// TokenReductionConfig configures optional content-size reduction.
type TokenReductionConfig struct {
	Mode                  string `json:"mode"` // off|light|moderate|aggressive|maximum
	PreserveImportantWords bool  `json:"preserve_important_words"`
}

// PDFHierarchyConfig configures heading-level clustering for PDF extraction.
type PDFHierarchyConfig struct {
	KClusters          int      `json:"k_clusters"` // 1..7
	IncludeBBox        bool     `json:"include_bbox"`
	OCRCoverageThreshold *float64 `json:"ocr_coverage_threshold,omitempty"` // (0,1]
}

// PDFConfig configures PDF-specific extraction behavior.
type PDFConfig struct {
	ExtractImages  bool                `json:"extract_images"`
	Passwords      []string            `json:"passwords,omitempty"`
	ExtractMetadata bool               `json:"extract_metadata"`
	Hierarchy      *PDFHierarchyConfig `json:"hierarchy,omitempty"`
}

// Config is ExtractionConfig: the full set of independently-optional
// extraction options (spec.md §3). Immutable after Validate succeeds;
// callers produce a new Config to override any field.
type Config struct {
	UseCache               bool                     `json:"use_cache"`
	ForceOCR               bool                     `json:"force_ocr"`
	EnableQualityProcessing bool                    `json:"enable_quality_processing"`
	OutputFormat           result.OutputFormat       `json:"output_format"`
	OCR                    *OCRConfig                `json:"ocr,omitempty"`
	Chunking               *ChunkingConfig           `json:"chunking,omitempty"`
	LanguageDetection      *LanguageDetectionConfig  `json:"language_detection,omitempty"`
	TokenReduction         *TokenReductionConfig     `json:"token_reduction,omitempty"`
	PDF                    *PDFConfig                `json:"pdf,omitempty"`
}

// DefaultConfig returns the zero-value-safe baseline configuration:
// caching on, no OCR forcing, plain output, no chunking/embeddings/
// language detection/token reduction configured.
func DefaultConfig() *Config {
	return &Config{
		UseCache:     true,
		OutputFormat: result.OutputPlain,
	}
}
