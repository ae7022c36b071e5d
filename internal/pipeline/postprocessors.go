package pipeline

import (
	"fmt"

	"github.com/adverant/kreuzberg-go/internal/logging"
	"github.com/adverant/kreuzberg-go/internal/registry"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// RunPostProcessors executes every registered post-processor in
// descending priority order. Unlike validators, a post-processor
// failure never aborts: it is recorded under a processor-specific key
// in metadata.additional (spec.md §4.9: "post-processor failures never
// abort — they attach a diagnostic to the result's additional-metadata
// map under a processor-specific key") and the next post-processor
// still runs against the (possibly partially mutated) result.
func RunPostProcessors(res *result.ExtractionResult, reg *registry.PostProcessorRegistry, log *logging.Logger) {
	if reg == nil {
		return
	}
	for _, p := range reg.Ordered() {
		if err := p.Fn(res); err != nil {
			key := fmt.Sprintf("post_processor_error:%s", p.Name)
			res.Metadata.EnsureAdditional()[key] = err.Error()
			if log != nil {
				log.Warn("post-processor failed", "processor", p.Name, "error", err)
			}
		}
	}
}
