package batch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// TaskExtractFile is the asynq task type name for a single-file
// extraction dispatched through the distributed queue driver.
const TaskExtractFile = "kreuzberg:extract_file"

// ExtractFilePayload is the task payload for TaskExtractFile.
type ExtractFilePayload struct {
	Path   string             `json:"path"`
	MIME   string             `json:"mime,omitempty"`
	Config *extraction.Config `json:"config"`
}

// QueueDriver generalizes the teacher's RedisConsumer/job-queue pattern
// into an asynq-backed batch_extract_* driver, so batch extraction can
// fan out across worker processes rather than only across goroutines
// within one process (spec.md §4.9's batch entry points, scaled out).
type QueueDriver struct {
	client *asynq.Client
	srv    *asynq.Server
}

// NewQueueDriver dials redisAddr for both task enqueueing and the
// worker-side server, mirroring the teacher's concurrency-configured
// RedisConsumer construction.
func NewQueueDriver(redisAddr string, concurrency int) *QueueDriver {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	return &QueueDriver{
		client: asynq.NewClient(redisOpt),
		srv: asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: concurrency,
		}),
	}
}

// Enqueue submits one extraction task and returns once it is durably
// queued (not once it has run).
func (d *QueueDriver) Enqueue(ctx context.Context, p ExtractFilePayload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return kerrors.Serialization("failed to marshal batch task payload: " + err.Error())
	}
	task := asynq.NewTask(TaskExtractFile, data)
	if _, err := d.client.EnqueueContext(ctx, task, asynq.Timeout(5*time.Minute)); err != nil {
		return kerrors.Other("failed to enqueue batch extraction task: " + err.Error())
	}
	return nil
}

// ExtractFunc is the per-task handler the caller supplies (wired to the
// internal/kreuzberg façade's ExtractFile).
type ExtractFunc func(ctx context.Context, path, mime string, cfg *extraction.Config) (*result.ExtractionResult, error)

// Run starts the asynq worker server, dispatching TaskExtractFile tasks
// to extract. Blocks until ctx is canceled.
func (d *QueueDriver) Run(ctx context.Context, extract ExtractFunc) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskExtractFile, func(taskCtx context.Context, t *asynq.Task) error {
		var p ExtractFilePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return kerrors.Serialization("failed to unmarshal batch task payload: " + err.Error())
		}
		_, err := extract(taskCtx, p.Path, p.MIME, p.Config)
		return err
	})

	go func() {
		<-ctx.Done()
		d.srv.Shutdown()
	}()

	return d.srv.Run(mux)
}

// Close releases the enqueue-side client connection.
func (d *QueueDriver) Close() error {
	return d.client.Close()
}
