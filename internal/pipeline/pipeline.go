package pipeline

import (
	"context"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/logging"
	"github.com/adverant/kreuzberg-go/internal/registry"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Stages bundles the pluggable, per-run collaborators Run dispatches
// to. EmbeddingBackend is nil when embeddings are not configured.
type Stages struct {
	Embeddings  EmbeddingBackend
	Validators  *registry.ValidatorRegistry
	PostProcs   *registry.PostProcessorRegistry
	Log         *logging.Logger
}

// Run augments res in place with chunks, embeddings, detected
// languages, then runs validators (abort-on-failure) and
// post-processors (non-fatal), in that fixed order (spec.md §4.6,
// "Ordering contract: validators run before post-processors; chunking+
// embeddings+language detection run before both so validators/
// post-processors see the enriched result").
func Run(ctx context.Context, res *result.ExtractionResult, cfg *extraction.Config, st Stages) error {
	if cfg.Chunking != nil {
		res.Chunks = Chunk(res.Content, res.PageBoundaries, cfg.Chunking)
		res.Metadata.EnsureAdditional()["chunk_count"] = len(res.Chunks)
	}

	if cfg.Chunking != nil && cfg.Chunking.Embedding != nil && len(res.Chunks) > 0 {
		RunEmbeddings(ctx, res.Chunks, st.Embeddings, &res.Metadata, st.Log)
	}

	if cfg.LanguageDetection != nil && cfg.LanguageDetection.Enabled {
		res.DetectedLanguages = RunLanguageDetection(res.Content, cfg.LanguageDetection, &res.Metadata)
	}

	if err := RunValidators(res, st.Validators); err != nil {
		return err
	}

	RunPostProcessors(res, st.PostProcs, st.Log)

	return nil
}
