package pipeline

import (
	"github.com/adverant/kreuzberg-go/internal/registry"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// RunValidators executes every registered validator in descending
// priority order (ties by insertion order). The first failure aborts
// and its error propagates to the caller unwrapped — validators are
// a hard gate, not a diagnostic (spec.md §4.6 step 4, §4.9 propagation
// policy: "Validation surfaces and aborts").
func RunValidators(res *result.ExtractionResult, reg *registry.ValidatorRegistry) error {
	if reg == nil {
		return nil
	}
	for _, v := range reg.Ordered() {
		if err := v.Fn(res); err != nil {
			return err
		}
	}
	return nil
}
