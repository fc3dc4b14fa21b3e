package report

import (
	"fmt"
	"sync"
	"time"

	"aws2spaces/internal/worker"

	"go.uber.org/zap"
)

// Summary is the run-level accounting returned to the caller.
type Summary struct {
	Enumerated int64
	Succeeded  int64
	Failed     int64
	Bytes      int64
	Elapsed    time.Duration
}

// Aggregator routes every outcome into exactly one of the two sinks and
// keeps the run counters. Record may be called concurrently from any
// worker's completion context; outcomes are never dropped or merged.
type Aggregator struct {
	succeeded Sink
	failed    Sink
	journal   *Journal
	logger    *zap.Logger

	mu        sync.Mutex
	succCount int64
	failCount int64
	bytes     int64
	sinkErr   error
}

// NewAggregator creates an aggregator over the two sinks. journal may be
// nil to disable the outcome journal.
func NewAggregator(succeeded, failed Sink, journal *Journal, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		succeeded: succeeded,
		failed:    failed,
		journal:   journal,
		logger:    logger,
	}
}

// Record persists one outcome. A sink append failure is returned and also
// retained: losing accounting is worse than stopping, so the first such
// error fails the run.
func (a *Aggregator) Record(outcome worker.Outcome) error {
	sink := a.succeeded
	if outcome.Status == worker.StatusFailed {
		sink = a.failed
	}

	if err := sink.Append(FormatRecord(outcome)); err != nil {
		a.mu.Lock()
		if a.sinkErr == nil {
			a.sinkErr = err
		}
		a.mu.Unlock()
		return fmt.Errorf("failed to append %s record for %q: %w", outcome.Status, outcome.SourceKey, err)
	}

	a.mu.Lock()
	switch outcome.Status {
	case worker.StatusFailed:
		a.failCount++
	default:
		a.succCount++
		a.bytes += outcome.Bytes
	}
	a.mu.Unlock()

	if a.journal != nil {
		if err := a.journal.Save(outcome); err != nil {
			// The journal is a secondary artifact; the sinks hold the
			// authoritative accounting.
			a.logger.Warn("Failed to journal outcome",
				zap.String("key", outcome.SourceKey),
				zap.Error(err),
			)
		}
	}

	return nil
}

// Err returns the first sink failure seen by Record, if any.
func (a *Aggregator) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sinkErr
}

// Summary returns the counters accumulated so far.
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Summary{
		Succeeded: a.succCount,
		Failed:    a.failCount,
		Bytes:     a.bytes,
	}
}

// FormatRecord renders one outcome as a self-contained line. The destination
// key appears only when the rename rule changed it; failed records carry the
// attempt count and last error.
func FormatRecord(outcome worker.Outcome) string {
	record := outcome.SourceKey
	if outcome.DestKey != "" && outcome.DestKey != outcome.SourceKey {
		record = fmt.Sprintf("%s -> %s", outcome.SourceKey, outcome.DestKey)
	}
	if outcome.Status == worker.StatusFailed {
		lastErr := ""
		if outcome.Err != nil {
			lastErr = outcome.Err.Error()
		}
		record = fmt.Sprintf("%s attempts=%d last_error=%q", record, outcome.Attempts, lastErr)
	}
	return record
}
