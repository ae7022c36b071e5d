// Package kreuzberg is the external façade: the small set of entry
// points (extract_file/extract_bytes and their batch variants,
// registry mutators, cache mutators) spec.md §6 names as the boundary
// callers — CLI, HTTP handlers, or a future language binding — cross.
// ExtractFile and ExtractBytes recover panics via internal/panics, and
// the batch entry points run every item through them; the registry and
// cache mutators do not recover panics.
package kreuzberg

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adverant/kreuzberg-go/internal/cache"
	"github.com/adverant/kreuzberg-go/internal/config"
	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/extractors"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/logging"
	"github.com/adverant/kreuzberg-go/internal/pipeline"
	"github.com/adverant/kreuzberg-go/internal/pool"
	"github.com/adverant/kreuzberg-go/internal/registry"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Store is the cache surface the engine depends on, letting the
// directory, Redis, and Postgres-indexed backends stand in for one
// another behind cfg.CacheBackend.
type Store interface {
	Get(ctx context.Context, key string) (*result.ExtractionResult, error)
	Set(ctx context.Context, key string, res *result.ExtractionResult) error
	Clear(ctx context.Context) (*cache.ClearResult, error)
	Stats(ctx context.Context) (*cache.Stats, error)
}

// Engine bundles the registries, cache, pools, and logger one process
// needs to serve extraction calls — the façade's receiver, mirroring
// the teacher's top-level worker struct that owns every collaborator a
// job handler touches.
type Engine struct {
	Extractors     *registry.ExtractorRegistry
	OCR            *registry.OCRRegistry
	Validators     *registry.ValidatorRegistry
	PostProcessors *registry.PostProcessorRegistry

	// registries is the same four registries above, bundled behind the
	// one-shot latch that defers built-in extractor registration to the
	// first extraction call (spec.md §4.2).
	registries *registry.Registries

	Cache Store

	BytePool *pool.BytePool
	TextPool *pool.TextPool

	Embeddings pipeline.EmbeddingBackend

	Log *logging.Logger
	Cfg *config.Config
}

// New builds an Engine from cfg: wires the configured cache backend and
// sizes the object pools the teacher's worker keeps fixed for the
// process lifetime. Built-in format extractors are NOT registered here
// — the first call to ExtractFile/ExtractBytes does that, exactly
// once, through registries.Bootstrap (spec.md §4.2). OCR backends are
// left for the caller to register (spec.md's OCR backends are
// themselves pluggable binaries/models; the engine doesn't assume any
// is installed).
func New(cfg *config.Config) (*Engine, error) {
	regs := registry.New()

	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	return &Engine{
		Extractors:     regs.Extractors,
		OCR:            regs.OCRBackends,
		Validators:     regs.Validators,
		PostProcessors: regs.PostProcessors,
		registries:     regs,
		Cache:          store,
		BytePool:       pool.NewBytePool(32),
		TextPool:       pool.NewTextPool(32),
		Log:            logging.New("kreuzberg"),
		Cfg:            cfg,
	}, nil
}

// ensureBuiltins runs registerBuiltinExtractors exactly once for this
// Engine, on whichever goroutine's extraction call reaches it first
// (spec.md §4.2's "on first extraction call... at-most-once guarantee
// via a one-shot latch"). Later calls, concurrent or not, observe the
// same outcome without re-registering.
func (e *Engine) ensureBuiltins() error {
	var err error
	e.registries.Bootstrap(func(r *registry.Registries) {
		err = registerBuiltinExtractors(r.Extractors, r.OCRBackends)
	})
	return err
}

func buildStore(cfg *config.Config) (Store, error) {
	switch cfg.CacheBackend {
	case "redis":
		return redisStore{cache.NewRedisCache(cfg.CacheRedisAddr, cfg.CacheMaxAgeDays)}, nil
	case "postgres":
		dirCache, err := cache.New(cfg.CacheDir, cfg.CacheMaxAgeDays, cfg.CacheMaxSizeMB)
		if err != nil {
			return nil, err
		}
		idx, err := cache.NewPostgresIndex(cfg.CachePostgresURL)
		if err != nil {
			return nil, err
		}
		return postgresStore{dir: dirCache, idx: idx}, nil
	default:
		dirCache, err := cache.New(cfg.CacheDir, cfg.CacheMaxAgeDays, cfg.CacheMaxSizeMB)
		if err != nil {
			return nil, err
		}
		return dirStore{dirCache}, nil
	}
}

// dirStore adapts the directory-backed cache.Cache (no ctx in its own
// API, since it's pure local filesystem I/O) to the ctx-aware Store
// interface the other two backends need for their network calls.
type dirStore struct{ c *cache.Cache }

func (d dirStore) Get(ctx context.Context, key string) (*result.ExtractionResult, error) {
	return d.c.Get(key)
}
func (d dirStore) Set(ctx context.Context, key string, res *result.ExtractionResult) error {
	return d.c.Set(key, res)
}
func (d dirStore) Clear(ctx context.Context) (*cache.ClearResult, error) { return d.c.Clear() }
func (d dirStore) Stats(ctx context.Context) (*cache.Stats, error)      { return d.c.Stats() }

type redisStore struct{ c *cache.RedisCache }

func (r redisStore) Get(ctx context.Context, key string) (*result.ExtractionResult, error) {
	return r.c.Get(ctx, key)
}
func (r redisStore) Set(ctx context.Context, key string, res *result.ExtractionResult) error {
	return r.c.Set(ctx, key, res)
}
func (r redisStore) Clear(ctx context.Context) (*cache.ClearResult, error) { return r.c.Clear(ctx) }

// Stats has no cheap equivalent over Redis' native key expiry (no
// directory to walk, no per-entry size tracked) — reports an empty
// Stats rather than scanning every key to approximate one.
func (r redisStore) Stats(ctx context.Context) (*cache.Stats, error) { return &cache.Stats{}, nil }

// postgresStore uses the directory cache for storage and a Postgres
// index purely to answer Stats() without a directory walk across
// workers sharing a cache volume (spec.md §4.7's eviction stays
// directory-local; Postgres only mirrors counts/sizes for reporting).
type postgresStore struct {
	dir *cache.Cache
	idx *cache.PostgresIndex
}

func (p postgresStore) Get(ctx context.Context, key string) (*result.ExtractionResult, error) {
	return p.dir.Get(key)
}
func (p postgresStore) Set(ctx context.Context, key string, res *result.ExtractionResult) error {
	if err := p.dir.Set(key, res); err != nil {
		return err
	}
	data, err := json.Marshal(res)
	if err != nil {
		return kerrors.Serialization("failed to size result for cache index: " + err.Error())
	}
	return p.idx.Record(ctx, key, int64(len(data)), time.Now())
}
func (p postgresStore) Clear(ctx context.Context) (*cache.ClearResult, error) {
	res, err := p.dir.Clear()
	if err != nil {
		return nil, err
	}
	return res, nil
}
func (p postgresStore) Stats(ctx context.Context) (*cache.Stats, error)      { return p.idx.Stats(ctx) }

// registerBuiltinExtractors claims every MIME type the engine ships
// with an extractor for. Order doesn't matter: registration is keyed
// by MIME with highest-priority-wins, and every built-in extractor is
// registered at the same baseline priority (10).
func registerBuiltinExtractors(reg *registry.ExtractorRegistry, ocrReg *registry.OCRRegistry) error {
	builtins := []extraction.Extractor{
		extractors.NewPlainText(),
		extractors.NewMarkdown(),
		extractors.NewStructured(),
		extractors.NewHTML(),
		extractors.NewDjot(),
		extractors.NewLaTeX(),
		extractors.NewImage(ocrReg),
		extractors.NewPDF(ocrReg),
		extractors.NewDOCX(),
		extractors.NewLegacyDoc(),
		extractors.NewPPTX(),
		extractors.NewXLSX(),
		extractors.NewEPUB(),
		extractors.NewRTF(),
		extractors.NewEmail(),
		extractors.NewOPML(),
	}
	for _, e := range builtins {
		if err := reg.Register(e); err != nil {
			return err
		}
	}
	// Archive is registered last since it depends on the registry it's
	// about to join, to recursively dispatch archive members.
	return reg.Register(extractors.NewArchive(reg))
}
