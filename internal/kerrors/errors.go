// Package kerrors defines the closed set of structured error kinds
// produced by the extraction core.
//
// Design Pattern: Factory Pattern for error creation
// SOLID Principle: Single Responsibility (each kind carries only the
// context relevant to its failure mode)
package kerrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies which of the closed error kinds an Error carries.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindParsing           Kind = "PARSING"
	KindOCR               Kind = "OCR"
	KindIO                Kind = "IO"
	KindCache             Kind = "CACHE"
	KindImageProcessing   Kind = "IMAGE_PROCESSING"
	KindSerialization     Kind = "SERIALIZATION"
	KindMissingDependency Kind = "MISSING_DEPENDENCY"
	KindPlugin            Kind = "PLUGIN"
	KindLockPoisoned      Kind = "LOCK_POISONED"
	KindUnsupportedFormat Kind = "UNSUPPORTED_FORMAT"
	KindTimeout           Kind = "TIMEOUT"
	KindOther             Kind = "OTHER"
)

// Error is the single error type the core returns. Kind discriminates
// behavior (e.g. HTTP status mapping in callers); Stage and Input
// identify where in the pipeline the failure happened.
type Error struct {
	Kind    Kind
	Message string
	Stage   string // e.g. "while reading OPF", "while extracting slide 4"
	Input   string // offending path / mime / plugin name, best-effort
	Cause   error

	// PluginName is set only for Kind == KindPlugin.
	PluginName string
	// NotFound distinguishes a missing-file IO error from other IO errors.
	NotFound bool

	// Panic is set only when this error was produced by package panics
	// recovering a panic at an FFI-shaped boundary (spec.md §7, §9).
	Panic *PanicContext
}

// PanicContext describes a recovered panic: its source location, a
// UTF-8-safe-truncated message, and when it was recovered.
type PanicContext struct {
	File      string    `json:"file"`
	Line      int       `json:"line"`
	Function  string    `json:"function"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Stage != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Stage)
	}
	if e.Input != "" {
		msg = fmt.Sprintf("%s [input=%s]", msg, e.Input)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Kind, so callers
// can do errors.Is(err, kerrors.Validation("", nil)).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// WithStage annotates the error with the pipeline stage it occurred in
// and returns it, for chained construction at call sites.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithInput annotates the error with the offending input identifier.
func (e *Error) WithInput(input string) *Error {
	e.Input = input
	return e
}

// Factory constructors, one per kind, mirroring the shape of a closed
// sum type while staying idiomatic Go.

func Validation(message string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: message, Cause: cause}
}

func Parsing(message string, cause error) *Error {
	return &Error{Kind: KindParsing, Message: message, Cause: cause}
}

func OCR(message string, cause error) *Error {
	return &Error{Kind: KindOCR, Message: message, Cause: cause}
}

func IO(cause error) *Error {
	return &Error{Kind: KindIO, Message: "I/O failure", Cause: cause}
}

func NotFound(cause error) *Error {
	return &Error{Kind: KindIO, Message: "not found", Cause: cause, NotFound: true}
}

func Cache(message string) *Error {
	return &Error{Kind: KindCache, Message: message}
}

func ImageProcessing(message string) *Error {
	return &Error{Kind: KindImageProcessing, Message: message}
}

func Serialization(message string) *Error {
	return &Error{Kind: KindSerialization, Message: message}
}

func MissingDependency(name string) *Error {
	return &Error{Kind: KindMissingDependency, Message: fmt.Sprintf("missing dependency: %s", name)}
}

func Plugin(pluginName, message string) *Error {
	return &Error{Kind: KindPlugin, Message: message, PluginName: pluginName}
}

func LockPoisoned(message string) *Error {
	return &Error{Kind: KindLockPoisoned, Message: message}
}

func UnsupportedFormat(message string) *Error {
	return &Error{Kind: KindUnsupportedFormat, Message: message}
}

func Timeout(message string) *Error {
	return &Error{Kind: KindTimeout, Message: message}
}

func Other(message string) *Error {
	return &Error{Kind: KindOther, Message: message}
}

// HTTPStatus maps a Kind to the status code external HTTP collaborators
// should use, per spec.md §7's "HTTP mapping (for callers that care)".
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return 400
	case KindParsing, KindOCR:
		return 422
	default:
		return 500
	}
}

// ToMap converts the error into a flat map suitable for attaching to
// metadata.additional (post-processor diagnostics never abort the
// pipeline, so they are recorded rather than returned).
func (e *Error) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"kind":    string(e.Kind),
		"message": e.Message,
	}
	if e.Stage != "" {
		m["stage"] = e.Stage
	}
	if e.Input != "" {
		m["input"] = e.Input
	}
	if e.PluginName != "" {
		m["plugin"] = e.PluginName
	}
	if e.Cause != nil {
		m["cause"] = e.Cause.Error()
	}
	if e.Panic != nil {
		m["panic_file"] = e.Panic.File
		m["panic_line"] = e.Panic.Line
		m["panic_function"] = e.Panic.Function
		m["panic_message"] = e.Panic.Message
	}
	return m
}
