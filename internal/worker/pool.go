package worker

import (
	"context"
	"sync"

	"aws2spaces/internal/metrics"
	"aws2spaces/internal/storage"

	"go.uber.org/zap"
)

// Pool runs at most size Transferrers concurrently over a task channel.
type Pool struct {
	size      int
	config    Config
	srcClient storage.Client
	dstClient storage.Client
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewPool creates a new worker pool.
func NewPool(
	size int,
	config Config,
	srcClient storage.Client,
	dstClient storage.Client,
	metricsCollector *metrics.Collector,
	logger *zap.Logger,
) *Pool {
	return &Pool{
		size:      size,
		config:    config,
		srcClient: srcClient,
		dstClient: dstClient,
		metrics:   metricsCollector,
		logger:    logger,
	}
}

// Run consumes tasks until the channel is closed and emits one Outcome per
// task, in completion order. The returned channel closes only after every
// submitted task has produced its outcome, which gives the caller the
// wait-for-all barrier.
func (p *Pool) Run(ctx context.Context, tasks <-chan Task) <-chan Outcome {
	outcomes := make(chan Outcome, p.size)

	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go p.worker(ctx, i, tasks, outcomes, &wg)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	return outcomes
}

func (p *Pool) worker(ctx context.Context, id int, tasks <-chan Task, outcomes chan<- Outcome, wg *sync.WaitGroup) {
	defer wg.Done()

	logger := p.logger.With(zap.Int("worker_id", id))
	logger.Debug("Worker started")

	transferrer := &Transferrer{
		config:    p.config,
		srcClient: p.srcClient,
		dstClient: p.dstClient,
		metrics:   p.metrics,
		logger:    logger,
	}

	for {
		select {
		case task, ok := <-tasks:
			if !ok {
				logger.Debug("Worker finished - no more tasks")
				return
			}

			p.metrics.IncInflight()
			outcome := transferrer.Transfer(ctx, task)
			p.metrics.DecInflight()

			// The outcome consumer drains until this pool closes the
			// channel, so the send cannot be dropped.
			outcomes <- outcome

		case <-ctx.Done():
			// Tasks still queued in the channel are abandoned here and get
			// no outcome; the caller surfaces ctx.Err() as fatal instead
			// of fabricating outcomes for work that was never attempted.
			logger.Info("Worker stopped - context cancelled")
			return
		}
	}
}
