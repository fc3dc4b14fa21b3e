package worker

import (
	"context"
	"fmt"
	"time"

	"aws2spaces/internal/metrics"
	"aws2spaces/internal/storage"

	"go.uber.org/zap"
)

// Transferrer copies single objects from the source store to the destination
// store with bounded retry.
type Transferrer struct {
	config    Config
	srcClient storage.Client
	dstClient storage.Client
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// Transfer runs attempts 1..Retries in sequence and returns the terminal
// outcome. Every store error is retried identically up to the limit; no
// error escapes. Attempts stay local to this call and never run in parallel.
func (t *Transferrer) Transfer(ctx context.Context, task Task) Outcome {
	startTime := time.Now()

	var lastErr error
	for attempt := 1; attempt <= t.config.Retries; attempt++ {
		err := t.attempt(ctx, task)
		if err == nil {
			t.metrics.IncSucceeded(task.Size)
			t.metrics.ObserveDuration(time.Since(startTime))
			t.metrics.ObserveAttempts(attempt)
			t.logger.Info("Object transferred",
				zap.String("key", task.SourceKey),
				zap.String("dest_key", task.DestKey),
				zap.Int64("size", task.Size),
				zap.Int("attempt", attempt),
				zap.Duration("duration", time.Since(startTime)),
			)
			return Outcome{
				SourceKey: task.SourceKey,
				DestKey:   task.DestKey,
				Status:    StatusSucceeded,
				Attempts:  attempt,
				Bytes:     task.Size,
			}
		}

		lastErr = err
		t.logger.Warn("Transfer attempt failed",
			zap.String("key", task.SourceKey),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", t.config.Retries),
			zap.Error(err),
		)
	}

	t.metrics.IncFailed()
	t.metrics.ObserveAttempts(t.config.Retries)
	t.logger.Error("Transfer failed after all attempts",
		zap.String("key", task.SourceKey),
		zap.Error(lastErr),
	)
	return Outcome{
		SourceKey: task.SourceKey,
		DestKey:   task.DestKey,
		Status:    StatusFailed,
		Attempts:  t.config.Retries,
		Err:       lastErr,
	}
}

// attempt performs one streaming copy: the source read is piped straight
// into the destination write, so memory stays bounded by the stream buffers
// regardless of object size.
func (t *Transferrer) attempt(ctx context.Context, task Task) error {
	src, err := t.srcClient.GetObjectStream(ctx, t.config.SourceBucket, task.SourceKey)
	if err != nil {
		return fmt.Errorf("failed to open source object: %w", err)
	}
	defer src.Close()

	if err := t.dstClient.PutObjectStream(ctx, t.config.DestBucket, task.DestKey, src, task.Size, task.ContentType); err != nil {
		return fmt.Errorf("failed to write destination object: %w", err)
	}

	return nil
}
