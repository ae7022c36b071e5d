// Package result defines the unified in-memory extraction product and
// its constituent types: ExtractionResult, Metadata, Table, Chunk,
// PageContent, ExtractedImage, and DocumentStructure.
package result

import "time"

// OutputFormat selects how content is serialized. Chunking always
// operates over the final content as encoded in this format — the two
// concerns are orthogonal (spec.md §9).
type OutputFormat string

const (
	OutputPlain      OutputFormat = "plain"
	OutputMarkdown   OutputFormat = "markdown"
	OutputDjot       OutputFormat = "djot"
	OutputHTML       OutputFormat = "html"
	OutputStructured OutputFormat = "structured"
)

// NormalizeOutputFormat resolves the documented aliases (text→plain,
// md→markdown, json→structured).
func NormalizeOutputFormat(s string) OutputFormat {
	switch s {
	case "text", "":
		return OutputPlain
	case "md":
		return OutputMarkdown
	case "json":
		return OutputStructured
	default:
		return OutputFormat(s)
	}
}

// Bytes is a cheaply clonable, reference-counted byte buffer. Cloning
// shares the backing array; callers must not mutate through a clone.
type Bytes struct {
	data *[]byte
}

// NewBytes takes ownership of data and wraps it for sharing.
func NewBytes(data []byte) Bytes {
	return Bytes{data: &data}
}

// Bytes returns the underlying slice. Do not mutate it in place.
func (b Bytes) Bytes() []byte {
	if b.data == nil {
		return nil
	}
	return *b.data
}

// Len reports the length of the underlying slice.
func (b Bytes) Len() int {
	if b.data == nil {
		return 0
	}
	return len(*b.data)
}

// Handle is a reference-counted, shareable pointer used so Table and
// ExtractedImage appear both at result-level and inside PageContent
// without copying (spec.md §3 "Ownership", §9 "Shared references").
type Handle[T any] struct {
	ptr *T
}

// NewHandle wraps v for sharing.
func NewHandle[T any](v *T) Handle[T] { return Handle[T]{ptr: v} }

// Get returns the shared value. Multiple Handles referencing the same
// underlying value observe the same mutations.
func (h Handle[T]) Get() *T { return h.ptr }

// MarshalJSON unwraps to a plain object on the wire — every position a
// Handle appears in serializes as a full copy of the object, never an
// internal pointer (spec.md §6 "Result serialization").
func (h Handle[T]) MarshalJSON() ([]byte, error) {
	return marshalJSON(h.ptr)
}

// UnmarshalJSON decodes a plain object back into a freshly owned value,
// so a Handle round-trips through JSON (e.g. the cache's on-disk
// representation) without needing to share identity with any other
// in-memory Handle.
func (h *Handle[T]) UnmarshalJSON(data []byte) error {
	var v T
	if err := unmarshalJSON(data, &v); err != nil {
		return err
	}
	h.ptr = &v
	return nil
}

// Table is an extracted table: a 2D cell grid, its Markdown
// serialization, and the 1-indexed source page (0 when pages are not
// tracked for this format).
type Table struct {
	Cells      [][]string `json:"cells"`
	Markdown   string     `json:"markdown"`
	PageNumber int        `json:"page_number"`
}

// ExtractedImage is a raster image pulled out of a document, optionally
// carrying a nested OCR result when the pipeline ran OCR over it.
type ExtractedImage struct {
	Bytes           Bytes          `json:"-"`
	Format          string         `json:"format"`
	Index           int            `json:"index"`
	PageNumber      *int           `json:"page_number,omitempty"`
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	Colorspace      string         `json:"colorspace,omitempty"`
	BitsPerComponent int           `json:"bits_per_component,omitempty"`
	IsMask          bool           `json:"is_mask"`
	OCR             *ExtractionResult `json:"ocr,omitempty"`
}

// MarshalJSON emits the raw bytes as base64 via a shadow struct so the
// unexported Bytes field still reaches the wire (json's default
// behavior skips unexported/`"-"` fields otherwise).
func (img ExtractedImage) MarshalJSON() ([]byte, error) {
	type shadow struct {
		Data             []byte            `json:"data"`
		Format           string            `json:"format"`
		Index            int               `json:"index"`
		PageNumber       *int              `json:"page_number,omitempty"`
		Width            int               `json:"width"`
		Height           int               `json:"height"`
		Colorspace       string            `json:"colorspace,omitempty"`
		BitsPerComponent int               `json:"bits_per_component,omitempty"`
		IsMask           bool              `json:"is_mask"`
		OCR              *ExtractionResult `json:"ocr,omitempty"`
	}
	return marshalJSON(shadow{
		Data: img.Bytes.Bytes(), Format: img.Format, Index: img.Index,
		PageNumber: img.PageNumber, Width: img.Width, Height: img.Height,
		Colorspace: img.Colorspace, BitsPerComponent: img.BitsPerComponent,
		IsMask: img.IsMask, OCR: img.OCR,
	})
}

// UnmarshalJSON reverses MarshalJSON's shadow-struct base64 encoding,
// restoring the unexported Bytes field.
func (img *ExtractedImage) UnmarshalJSON(data []byte) error {
	type shadow struct {
		Data             []byte            `json:"data"`
		Format           string            `json:"format"`
		Index            int               `json:"index"`
		PageNumber       *int              `json:"page_number,omitempty"`
		Width            int               `json:"width"`
		Height           int               `json:"height"`
		Colorspace       string            `json:"colorspace,omitempty"`
		BitsPerComponent int               `json:"bits_per_component,omitempty"`
		IsMask           bool              `json:"is_mask"`
		OCR              *ExtractionResult `json:"ocr,omitempty"`
	}
	var s shadow
	if err := unmarshalJSON(data, &s); err != nil {
		return err
	}
	img.Bytes = NewBytes(s.Data)
	img.Format, img.Index, img.PageNumber = s.Format, s.Index, s.PageNumber
	img.Width, img.Height = s.Width, s.Height
	img.Colorspace, img.BitsPerComponent = s.Colorspace, s.BitsPerComponent
	img.IsMask, img.OCR = s.IsMask, s.OCR
	return nil
}

// HierarchyBlock is a text block tagged with a heading level derived
// from font-size clustering (h1…h6, or body).
type HierarchyBlock struct {
	Text     string   `json:"text"`
	FontSize float64  `json:"font_size"`
	Level    string   `json:"level"` // "h1".."h6" or "body"
	BBox     *BBox    `json:"bbox,omitempty"`
}

// BBox is an axis-aligned bounding box in page coordinates.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageContent is a single page's view of the result.
type PageContent struct {
	PageNumber int                    `json:"page_number"`
	Content    string                 `json:"content"`
	Tables     []Handle[Table]        `json:"tables,omitempty"`
	Images     []Handle[ExtractedImage] `json:"images,omitempty"`
	Hierarchy  []HierarchyBlock       `json:"hierarchy,omitempty"`
	IsBlank    bool                   `json:"is_blank"`
}

// PageBoundary maps a [ByteStart, ByteEnd) range of content to a
// 1-indexed page number.
type PageBoundary struct {
	ByteStart  int
	ByteEnd    int
	PageNumber int
}

// ChunkMetadata carries the UTF-8 byte offsets and downstream-assigned
// fields for a single chunk.
type ChunkMetadata struct {
	ByteStart   int  `json:"byte_start"`
	ByteEnd     int  `json:"byte_end"`
	ChunkIndex  int  `json:"chunk_index"`
	TotalChunks int  `json:"total_chunks"`
	TokenCount  *int `json:"token_count,omitempty"`
	FirstPage   *int `json:"first_page,omitempty"`
	LastPage    *int `json:"last_page,omitempty"`
}

// Chunk is a contiguous slice of content with UTF-8-valid byte bounds
// and an optional embedding vector.
type Chunk struct {
	Content   string        `json:"content"`
	Embedding []float32     `json:"embedding,omitempty"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// Element is a semantic element within the document (heading, list
// item, paragraph, ...), tagged with a stable type and id.
type Element struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// DocumentStructure is the optional hierarchical, heading-driven view
// of a result. Sections form a stack that resets at page breaks;
// within one stack, heading levels must not invert (spec.md §9).
type DocumentStructure struct {
	Title    string              `json:"title,omitempty"`
	Sections []*DocumentSection  `json:"sections"`
}

type DocumentSection struct {
	Heading  string             `json:"heading"`
	Level    int                `json:"level"` // 1..6
	Body     string             `json:"body"`
	Children []*DocumentSection `json:"children,omitempty"`
}

// FormatMetadata is the open-ended, format-specific nested metadata
// record (PDF hierarchy info, Excel sheet names, EPUB Dublin Core, ...).
type FormatMetadata map[string]interface{}

// Metadata is the unified metadata record.
type Metadata struct {
	Title     string            `json:"title,omitempty"`
	Authors   []string          `json:"authors,omitempty"`
	Language  string            `json:"language,omitempty"`
	CreatedAt *time.Time        `json:"created_at,omitempty"`
	ModifiedAt *time.Time       `json:"modified_at,omitempty"`
	Format    FormatMetadata    `json:"format,omitempty"`
	Additional map[string]interface{} `json:"additional,omitempty"`
}

// EnsureAdditional lazily initializes the open-ended map and returns it.
func (m *Metadata) EnsureAdditional() map[string]interface{} {
	if m.Additional == nil {
		m.Additional = make(map[string]interface{})
	}
	return m.Additional
}

// ExtractionResult is the unified product of the extraction core.
type ExtractionResult struct {
	Content           string                 `json:"content"`
	MimeType          string                 `json:"mime_type"`
	Metadata          Metadata               `json:"metadata"`
	Tables            []Handle[Table]        `json:"tables"`
	DetectedLanguages []string               `json:"detected_languages,omitempty"`
	Chunks            []Chunk                `json:"chunks,omitempty"`
	Images            []Handle[ExtractedImage] `json:"images,omitempty"`
	Pages             []PageContent          `json:"pages,omitempty"`
	Elements          []Element              `json:"elements,omitempty"`
	Document          *DocumentStructure     `json:"document,omitempty"`
	DjotContent       interface{}            `json:"djot_content,omitempty"`

	// PageBoundaries is not part of the public wire shape but is kept
	// alongside the result so the pipeline's chunking stage can map
	// byte ranges to first_page/last_page without recomputation.
	PageBoundaries []PageBoundary `json:"-"`
}

// New returns an ExtractionResult with Tables and Images initialized to
// empty (never nil) so JSON encodes `[]` rather than `null` for the
// always-present tables field, matching S1's expectation tables == [].
// The other slice fields stay nil.
func New(content, mimeType string) *ExtractionResult {
	return &ExtractionResult{
		Content:  content,
		MimeType: mimeType,
		Tables:   []Handle[Table]{},
		Images:   []Handle[ExtractedImage]{},
	}
}
