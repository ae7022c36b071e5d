package kreuzberg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/extractors"
	"github.com/adverant/kreuzberg-go/internal/logging"
	"github.com/adverant/kreuzberg-go/internal/registry"
)

// newTestEngine builds an Engine with just the plaintext extractor
// registered and no cache store (tests that extract set cfg.UseCache to
// false), so façade tests don't touch a real cache backend. The registries' Bootstrap latch
// is pre-consumed with a no-op so ExtractFile/ExtractBytes's
// first-call registration never overwrites this fixture's deliberately
// minimal extractor set with the full built-in list.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	regs := registry.New()
	require.NoError(t, regs.Extractors.Register(extractors.NewPlainText()))
	regs.Bootstrap(func(*registry.Registries) {})
	return &Engine{
		Extractors:     regs.Extractors,
		OCR:            regs.OCRBackends,
		Validators:     regs.Validators,
		PostProcessors: regs.PostProcessors,
		registries:     regs,
		Log:            logging.New("test"),
	}
}

// TestExtractBytesPlainTextPassThrough is S1: "Hello, world!\n" through
// the default config comes back verbatim, with no tables and no chunks.
func TestExtractBytesPlainTextPassThrough(t *testing.T) {
	e := newTestEngine(t)
	cfg := extraction.DefaultConfig()
	cfg.UseCache = false

	res, err := e.ExtractBytes(context.Background(), []byte("Hello, world!\n"), "text/plain", cfg)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!\n", res.Content)
	assert.Equal(t, "text/plain", res.MimeType)
	assert.Empty(t, res.Tables)
	assert.Nil(t, res.Chunks)
}

// TestExtractBytesEmptyInput covers the boundary behavior: empty bytes
// on a text MIME yield empty content and no error.
func TestExtractBytesEmptyInput(t *testing.T) {
	e := newTestEngine(t)
	cfg := extraction.DefaultConfig()
	cfg.UseCache = false

	res, err := e.ExtractBytes(context.Background(), []byte{}, "text/plain", cfg)
	require.NoError(t, err)
	assert.Equal(t, "", res.Content)
}

// TestExtractBytesUnknownMIMEHint rejects a hint outside the known set,
// rather than silently falling back to sniffing.
func TestExtractBytesUnknownMIMEHint(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.ExtractBytes(context.Background(), []byte("x"), "application/x-not-a-real-mime", extraction.DefaultConfig())
	assert.Error(t, err)
}

// TestExtractBytesUnregisteredMIME dispatches to no extractor.
func TestExtractBytesUnregisteredMIME(t *testing.T) {
	e := newTestEngine(t)
	cfg := extraction.DefaultConfig()
	cfg.UseCache = false

	_, err := e.ExtractBytes(context.Background(), []byte("<html></html>"), "text/html", cfg)
	assert.Error(t, err)
}

// TestExtractFileExtractBytesRoundTrip is property 5: extract_bytes and
// extract_file agree on content/mime for the same input, excluding
// path-dependent metadata.
func TestExtractFileExtractBytesRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	cfg := extraction.DefaultConfig()
	cfg.UseCache = false

	data := []byte("round trip content\n")
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	byBytes, err := e.ExtractBytes(context.Background(), data, "text/plain", cfg)
	require.NoError(t, err)

	byFile, err := e.ExtractFile(context.Background(), path, "text/plain", cfg)
	require.NoError(t, err)

	assert.Equal(t, byBytes.Content, byFile.Content)
	assert.Equal(t, byBytes.MimeType, byFile.MimeType)
}

// TestBatchExtractFilesPreservesOrder: one bad path never cancels the
// others, and results line up with the input order.
func TestBatchExtractFilesPreservesOrder(t *testing.T) {
	e := newTestEngine(t)
	cfg := extraction.DefaultConfig()
	cfg.UseCache = false

	dir := t.TempDir()
	var paths []string
	for i, content := range []string{"one", "two", "three"} {
		p := filepath.Join(dir, string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(dir, "missing.txt"))

	results := e.BatchExtractFiles(context.Background(), paths, 2, cfg)
	require.Len(t, results, 4)
	assert.Equal(t, "one", results[0].Value.Content)
	assert.Equal(t, "two", results[1].Value.Content)
	assert.Equal(t, "three", results[2].Value.Content)
	assert.Error(t, results[3].Err)
}

// TestRegisterDocumentExtractorClaimsMIME verifies the registry mutator
// wiring: a freshly registered extractor is immediately reachable, and
// ClearDocumentExtractors removes built-ins too (spec.md's "clearing a
// registry removes every entry, including defaults").
func TestRegisterDocumentExtractorClaimsMIME(t *testing.T) {
	e := newTestEngine(t)
	require.Len(t, e.ListDocumentExtractors(), 1)

	require.NoError(t, e.RegisterDocumentExtractor(extractors.NewMarkdown()))
	assert.Len(t, e.ListDocumentExtractors(), 2)

	e.ClearDocumentExtractors()
	assert.Empty(t, e.ListDocumentExtractors())
}

// TestRegisterValidatorAbortsPipeline exercises the validator mutator
// end to end: a validator that always fails stops extraction.
func TestRegisterValidatorAbortsPipeline(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.RegisterValidator("always-fail", 10, func(res interface{}) error {
		return assert.AnError
	}))

	cfg := extraction.DefaultConfig()
	cfg.UseCache = false
	_, err := e.ExtractBytes(context.Background(), []byte("hi"), "text/plain", cfg)
	assert.Error(t, err)
}
