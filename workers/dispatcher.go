package workers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"wawebhook/logger"
	"wawebhook/models"

	"github.com/google/uuid"
)

type UpdateProcessor interface {
	ProcessUpdates(ctx context.Context, update models.WebhookUpdate) error
}

// Dispatcher runs each webhook update in its own goroutine, off the request
// path, wrapped in the retry runner.
type Dispatcher struct {
	processor UpdateProcessor
	runner    *Runner
	wg        sync.WaitGroup
	mu        sync.Mutex
	pending   map[string]struct{}
	log       *logger.Logger
}

func NewDispatcher(processor UpdateProcessor, runner *Runner, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		processor: processor,
		runner:    runner,
		pending:   map[string]struct{}{},
		log:       log.With("component", "Dispatcher"),
	}
}

// Submit schedules update and returns its task id right away.
func (d *Dispatcher) Submit(update models.WebhookUpdate) string {
	taskID := uuid.NewString()
	log := d.log.With("task_id", taskID)

	d.mu.Lock()
	d.pending[taskID] = struct{}{}
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.finish(taskID)

		// detached from the request: the webhook was acknowledged already
		ctx := context.Background()
		log.Info("Processing task started", "entries", len(update.Entry))
		err := d.runner.Run(ctx, "process_updates:"+taskID, func(ctx context.Context) error {
			return d.processor.ProcessUpdates(ctx, update)
		})
		if err != nil {
			log.Error("Processing task failed", "error", err)
			return
		}
		log.Info("Processing task finished")
	}()
	return taskID
}

func (d *Dispatcher) finish(taskID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, taskID)
}

// Pending lists the ids of the tasks still running, sorted.
func (d *Dispatcher) Pending() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.pending))
	for id := range d.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Wait blocks until every submitted task finished or ctx is done. Tasks still
// running at that point are logged as abandoned; their in-flight rows stay behind.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		abandoned := d.Pending()
		d.log.Warn("Abandoning running tasks", "task_ids", abandoned)
		return fmt.Errorf("%d tasks abandoned: %w", len(abandoned), ctx.Err())
	}
}
