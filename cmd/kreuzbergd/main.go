/*
kreuzbergd is the document extraction daemon: it loads configuration,
boots the extraction engine (registries, cache, pools), and serves
extraction requests from a Redis-backed task queue so extraction work
can be distributed across worker processes (spec.md §4.9's batch
entry points, scaled out via internal/batch's asynq-backed QueueDriver).

Single-process/embedded use doesn't need this binary at all — callers
can construct a kreuzberg.Engine directly and call ExtractFile/
ExtractBytes in-process. This binary exists for the distributed,
queue-consumer deployment shape, mirroring the teacher's standalone
worker process.
*/
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/adverant/kreuzberg-go/internal/batch"
	"github.com/adverant/kreuzberg-go/internal/config"
	"github.com/adverant/kreuzberg-go/internal/kreuzberg"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	log.Printf("kreuzbergd starting (cache_backend=%s, worker_concurrency=%d)", cfg.CacheBackend, cfg.WorkerConcurrency)

	engine, err := kreuzberg.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize extraction engine: %v", err)
	}
	log.Printf("extraction engine initialized (built-in extractors register lazily on first call)")

	driver := batch.NewQueueDriver(cfg.QueueRedisAddr, cfg.WorkerConcurrency)
	defer driver.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("queue consumer starting (redis=%s, concurrency=%d)", cfg.QueueRedisAddr, cfg.WorkerConcurrency)
		errCh <- driver.Run(ctx, engine.ExtractFile)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down", sig)
		cancel()
		if err := <-errCh; err != nil {
			log.Printf("queue consumer stopped with error: %v", err)
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("queue consumer exited: %v", err)
		}
	}

	log.Printf("kreuzbergd shutdown complete")
}
