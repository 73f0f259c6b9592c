package pipeline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"shaggydog/internal/infra"
)

// ErrQueueFull is returned when the dispatch queue cannot take another job.
var ErrQueueFull = errors.New("pipeline: dispatch queue full")

// Runner executes one job to completion.
type Runner interface {
	Run(ctx context.Context, jobID string) error
}

// Dispatcher feeds accepted jobs into a bounded worker pool. Uploads return
// to the client immediately; the pool drains the queue in the background.
type Dispatcher struct {
	runner  Runner
	logger  infra.Logger
	queue   chan string
	workers int
	group   *errgroup.Group
}

// NewDispatcher builds a dispatcher with the given pool size.
func NewDispatcher(runner Runner, workers int, logger infra.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		runner:  runner,
		logger:  logger,
		queue:   make(chan string, workers*16),
		workers: workers,
	}
}

// Start launches the worker goroutines. They exit when ctx is cancelled and
// the queue has drained.
func (d *Dispatcher) Start(ctx context.Context) {
	group, ctx := errgroup.WithContext(ctx)
	d.group = group
	for i := 0; i < d.workers; i++ {
		group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case jobID, ok := <-d.queue:
					if !ok {
						return nil
					}
					d.process(ctx, jobID)
				}
			}
		})
	}
	d.logger.Info().Int("workers", d.workers).Msg("dispatcher: started")
}

func (d *Dispatcher) process(ctx context.Context, jobID string) {
	if err := d.runner.Run(ctx, jobID); err != nil {
		d.logger.Error().Err(err).Str("job_id", jobID).Msg("dispatcher: job run failed")
	}
}

// Dispatch enqueues a job without blocking. When the queue is saturated the
// caller gets ErrQueueFull and should surface a retryable error.
func (d *Dispatcher) Dispatch(jobID string) error {
	select {
	case d.queue <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() error {
	close(d.queue)
	if d.group == nil {
		return nil
	}
	return d.group.Wait()
}
