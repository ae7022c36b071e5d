// Package panics recovers panics at FFI-shaped boundaries — the
// internal/kreuzberg façade functions meant to be called from language
// bindings — and turns them into a kerrors.Other error carrying a
// kerrors.PanicContext, per spec.md §7 and §9.
package panics

import (
	"fmt"
	"runtime"
	"time"

	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

const maxMessageBytes = 4096

// Recover, called via `defer panics.Recover(&err)` in a façade function,
// converts an in-flight panic into a *kerrors.Error carrying a
// PanicContext. No-op when there is no panic in flight.
func Recover(errOut *error) {
	r := recover()
	if r == nil {
		return
	}

	pc, file, line, ok := runtime.Caller(2)
	fn := "unknown"
	if ok {
		if f := runtime.FuncForPC(pc); f != nil {
			fn = f.Name()
		}
	} else {
		file, line = "unknown", 0
	}

	message := result.TruncateUTF8(fmt.Sprint(r), maxMessageBytes)

	e := kerrors.Other(fmt.Sprintf("recovered panic in %s: %s", fn, message)).WithStage("panic-recovery")
	e.Panic = &kerrors.PanicContext{
		File:      file,
		Line:      line,
		Function:  fn,
		Message:   message,
		Timestamp: safeNow(),
	}
	*errOut = e
}

// safeNow reads the clock, itself recovering from any panic so a
// broken time source can never escape as a panic-in-panic (spec.md §7).
func safeNow() (t time.Time) {
	defer func() {
		if recover() != nil {
			t = time.Time{}
		}
	}()
	return time.Now()
}
