package registry

import "sync"

// Registries bundles the four collections behind one handle, as they're
// always constructed and bootstrapped together by the façade.
type Registries struct {
	Extractors     *ExtractorRegistry
	OCRBackends    *OCRRegistry
	PostProcessors *PostProcessorRegistry
	Validators     *ValidatorRegistry

	once sync.Once
}

// New returns an empty set of registries.
func New() *Registries {
	return &Registries{
		Extractors:     NewExtractorRegistry(),
		OCRBackends:    NewOCRRegistry(),
		PostProcessors: NewPostProcessorRegistry(),
		Validators:     NewValidatorRegistry(),
	}
}

// Bootstrap runs register exactly once for the lifetime of this
// Registries value (an at-most-once guarantee via a one-shot latch),
// even under concurrent calls from multiple simultaneous first
// extractions.
func (r *Registries) Bootstrap(register func(*Registries)) {
	r.once.Do(func() { register(r) })
}
