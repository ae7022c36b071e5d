package kreuzberg

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/adverant/kreuzberg-go/internal/batch"
	"github.com/adverant/kreuzberg-go/internal/cache"
	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/logging"
	"github.com/adverant/kreuzberg-go/internal/mimetype"
	"github.com/adverant/kreuzberg-go/internal/panics"
	"github.com/adverant/kreuzberg-go/internal/pipeline"
	"github.com/adverant/kreuzberg-go/internal/registry"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// ExtractFile resolves path's MIME type (hint, then extension, then
// magic bytes read from the file), dispatches to the registered extractor, runs the
// enrichment pipeline, and serves/stores the cache entry when
// cfg.UseCache is set (spec.md §4.7, §6). hint may be empty.
func (e *Engine) ExtractFile(ctx context.Context, path string, hint string, cfg *extraction.Config) (res *result.ExtractionResult, err error) {
	defer panics.Recover(&err)

	log := e.Log.WithJob(uuid.New().String())

	if err := e.ensureBuiltins(); err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = extraction.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mime, err := mimetype.DetectOrValidate(path, nil, hint)
	if err != nil && hint == "" {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, kerrors.IO(readErr)
		}
		mime, err = mimetype.DetectFromBytes(data)
	}
	if err != nil {
		return nil, err
	}
	log.Info("extracting file", "path", path, "mime", mime)

	var key string
	if cfg.UseCache {
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, kerrors.IO(statErr)
		}
		key, err = cache.Key(nil, path, info.ModTime(), info.Size(), cfg)
		if err != nil {
			return nil, err
		}
		if cached, getErr := e.Cache.Get(ctx, key); getErr == nil && cached != nil {
			log.Info("cache hit", "key", key)
			return cached, nil
		}
	}

	extractor, err := e.Extractors.Lookup(mime)
	if err != nil {
		return nil, err
	}

	res, err = extractor.ExtractFile(ctx, path, mime, cfg)
	if err != nil {
		return nil, err
	}

	if err := e.runPipelineLogged(ctx, res, cfg, log); err != nil {
		return nil, err
	}

	if cfg.UseCache {
		_ = e.Cache.Set(ctx, key, res)
	}
	log.Info("extraction complete", "path", path)
	return res, nil
}

// ExtractBytes is ExtractFile's in-memory counterpart: mime is
// required when hint/path-based detection isn't available to the
// caller, matching spec.md's extract_bytes(bytes, mime, config).
func (e *Engine) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (res *result.ExtractionResult, err error) {
	defer panics.Recover(&err)

	log := e.Log.WithJob(uuid.New().String())

	if err := e.ensureBuiltins(); err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = extraction.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	resolvedMIME, err := mimetype.DetectOrValidate("", data, mime)
	if err != nil {
		return nil, err
	}
	log.Info("extracting bytes", "size", len(data), "mime", resolvedMIME)

	var key string
	if cfg.UseCache {
		key, err = cache.Key(data, "", zeroTime, 0, cfg)
		if err != nil {
			return nil, err
		}
		if cached, getErr := e.Cache.Get(ctx, key); getErr == nil && cached != nil {
			log.Info("cache hit", "key", key)
			return cached, nil
		}
	}

	extractor, err := e.Extractors.Lookup(resolvedMIME)
	if err != nil {
		return nil, err
	}

	res, err = extractor.ExtractBytes(ctx, data, resolvedMIME, cfg)
	if err != nil {
		return nil, err
	}

	if err := e.runPipelineLogged(ctx, res, cfg, log); err != nil {
		return nil, err
	}

	if cfg.UseCache {
		_ = e.Cache.Set(ctx, key, res)
	}
	log.Info("extraction complete")
	return res, nil
}

func (e *Engine) runPipelineLogged(ctx context.Context, res *result.ExtractionResult, cfg *extraction.Config, log *logging.Logger) error {
	return pipeline.Run(ctx, res, cfg, pipeline.Stages{
		Embeddings: e.Embeddings,
		Validators: e.Validators,
		PostProcs:  e.PostProcessors,
		Log:        log,
	})
}

// BatchExtractFiles runs ExtractFile over every path with up to
// maxConcurrent in flight at once, per spec.md §4.9 (results preserve
// input order; one failure never cancels the others).
func (e *Engine) BatchExtractFiles(ctx context.Context, paths []string, maxConcurrent int, cfg *extraction.Config) []batch.Result[*result.ExtractionResult] {
	return batch.Run(ctx, paths, maxConcurrent, func(ctx context.Context, path string) (*result.ExtractionResult, error) {
		return e.ExtractFile(ctx, path, "", cfg)
	})
}

// BytesPayload pairs one batch_extract_bytes input slot: raw content
// plus its MIME hint.
type BytesPayload struct {
	Data []byte
	MIME string
}

// BatchExtractBytes is BatchExtractFiles' in-memory counterpart.
func (e *Engine) BatchExtractBytes(ctx context.Context, payloads []BytesPayload, maxConcurrent int, cfg *extraction.Config) []batch.Result[*result.ExtractionResult] {
	return batch.Run(ctx, payloads, maxConcurrent, func(ctx context.Context, p BytesPayload) (*result.ExtractionResult, error) {
		return e.ExtractBytes(ctx, p.Data, p.MIME, cfg)
	})
}

// RegisterDocumentExtractor adds e to the extractor registry, claiming
// its advertised MIME types.
func (e *Engine) RegisterDocumentExtractor(ex extraction.Extractor) error {
	return e.Extractors.Register(ex)
}

// UnregisterDocumentExtractor removes every MIME claim belonging to
// the named extractor.
func (e *Engine) UnregisterDocumentExtractor(name string) { e.Extractors.Unregister(name) }

// ListDocumentExtractors returns the distinct registered extractors.
func (e *Engine) ListDocumentExtractors() []extraction.Extractor { return e.Extractors.List() }

// ClearDocumentExtractors removes every registered extractor, built-in
// ones included (spec.md §4.2: "Clearing a registry removes every
// entry, including defaults").
func (e *Engine) ClearDocumentExtractors() { e.Extractors.Clear() }

// RegisterOCRBackend adds b to the OCR registry, keyed by its name.
func (e *Engine) RegisterOCRBackend(b registry.OCRBackend) error { return e.OCR.Register(b) }

func (e *Engine) UnregisterOCRBackend(name string) { e.OCR.Unregister(name) }
func (e *Engine) ListOCRBackends() []registry.OCRBackend { return e.OCR.List() }
func (e *Engine) ClearOCRBackends()                      { e.OCR.Clear() }

// RegisterPostProcessor adds fn under name at priority, highest
// priority running first among post-processors.
func (e *Engine) RegisterPostProcessor(name string, priority int, fn registry.PostProcessorFunc) error {
	return e.PostProcessors.Register(name, priority, fn)
}

func (e *Engine) UnregisterPostProcessor(name string) { e.PostProcessors.Unregister(name) }
func (e *Engine) ClearPostProcessors()                { e.PostProcessors.Clear() }

// RegisterValidator adds fn under name at priority; the first
// validator (in priority order) to fail aborts the pipeline.
func (e *Engine) RegisterValidator(name string, priority int, fn registry.ValidatorFunc) error {
	return e.Validators.Register(name, priority, fn)
}

func (e *Engine) UnregisterValidator(name string) { e.Validators.Unregister(name) }
func (e *Engine) ClearValidators()                { e.Validators.Clear() }

// CacheStats reports aggregate cache occupancy for the configured backend.
func (e *Engine) CacheStats(ctx context.Context) (*cache.Stats, error) { return e.Cache.Stats(ctx) }

// CacheClear removes every cached entry.
func (e *Engine) CacheClear(ctx context.Context) (*cache.ClearResult, error) {
	return e.Cache.Clear(ctx)
}

var zeroTime time.Time
