// Package batch implements the worker pool bounded by max_concurrent
// that backs batch_extract_files/batch_extract_bytes, plus a
// process-wide batch-mode latch individual extractors consult to decide
// whether to offload expensive work to a blocking pool (spec.md §4.9,
// §5). Concurrency mirrors the teacher's RedisConsumer worker-goroutine
// pattern (internal/queue/redis_consumer.go), generalized from a queue
// consumer loop into a bounded fan-out over a fixed input slice.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
)

// modeFlag is the process-wide batch-mode latch: non-zero while any
// batch call is in flight. Individual extractors read IsBatchMode() to
// decide whether to hand CPU-bound work to a blocking pool instead of
// running inline, per spec.md §5's scheduling model.
var modeFlag int32

// IsBatchMode reports whether a batch call is currently in flight
// anywhere in this process.
func IsBatchMode() bool { return atomic.LoadInt32(&modeFlag) != 0 }

func enterBatchMode() { atomic.AddInt32(&modeFlag, 1) }
func exitBatchMode()  { atomic.AddInt32(&modeFlag, -1) }

// Result pairs one batch slot's outcome; exactly one of Value/Err is set.
type Result[T any] struct {
	Value T
	Err   error
}

// Run executes fn(ctx, items[i]) for every i with up to maxConcurrent
// in flight at once, preserving input order in the returned slice
// regardless of completion order. One failing slot does not cancel the
// others (spec.md §4.9's "one failure does not cancel others").
func Run[I any, O any](ctx context.Context, items []I, maxConcurrent int, fn func(context.Context, I) (O, error)) []Result[O] {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	enterBatchMode()
	defer exitBatchMode()

	out := make([]Result[O], len(items))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, item := range items {
		i, item := i, item
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			val, err := fn(ctx, item)
			out[i] = Result[O]{Value: val, Err: err}
		}()
	}

	wg.Wait()
	return out
}
