package app

import (
	"context"
	"fmt"
	"time"

	"aws2spaces/internal/config"
	"aws2spaces/internal/keymap"
	"aws2spaces/internal/metrics"
	"aws2spaces/internal/report"
	"aws2spaces/internal/storage"
	"aws2spaces/internal/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Migrator represents the main migration application
type Migrator struct {
	cfg        *config.Config
	logger     *zap.Logger
	runID      string
	srcClient  storage.Client
	dstClient  storage.Client
	rule       keymap.Rule
	metrics    *metrics.Collector
	pool       *worker.Pool
	aggregator *report.Aggregator
	sinks      []report.Sink
	journal    *report.Journal
}

// New creates a new migrator instance with real clients and file sinks.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Migrator, error) {
	srcClient, err := storage.New(ctx, storage.Config{
		Provider:  storage.Provider(cfg.Source.Provider),
		Endpoint:  cfg.Source.Endpoint,
		Region:    cfg.Source.Region,
		AccessKey: cfg.Source.AccessKey,
		SecretKey: cfg.Source.SecretKey,
		Secure:    cfg.Source.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create source client: %w", err)
	}

	dstClient, err := storage.New(ctx, storage.Config{
		Provider:  storage.Provider(cfg.Target.Provider),
		Endpoint:  cfg.Target.Endpoint,
		Region:    cfg.Target.Region,
		AccessKey: cfg.Target.AccessKey,
		SecretKey: cfg.Target.SecretKey,
		Secure:    cfg.Target.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create destination client: %w", err)
	}

	succeededSink, err := report.NewFileSink(cfg.Migration.SucceededLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open succeeded log: %w", err)
	}

	failedSink, err := report.NewFileSink(cfg.Migration.FailedLog)
	if err != nil {
		succeededSink.Close()
		return nil, fmt.Errorf("failed to open failed log: %w", err)
	}

	runID := uuid.NewString()

	var journal *report.Journal
	if cfg.Migration.JournalDB != "" {
		journal, err = report.NewJournal(cfg.Migration.JournalDB, runID)
		if err != nil {
			succeededSink.Close()
			failedSink.Close()
			return nil, fmt.Errorf("failed to open outcome journal: %w", err)
		}
	}

	return newMigrator(cfg, logger, runID, srcClient, dstClient, succeededSink, failedSink, journal), nil
}

// newMigrator wires the engine from already-constructed collaborators.
func newMigrator(
	cfg *config.Config,
	logger *zap.Logger,
	runID string,
	srcClient storage.Client,
	dstClient storage.Client,
	succeededSink report.Sink,
	failedSink report.Sink,
	journal *report.Journal,
) *Migrator {
	logger = logger.With(zap.String("run_id", runID))

	metricsCollector := metrics.New()

	pool := worker.NewPool(cfg.Migration.Concurrency, worker.Config{
		SourceBucket: cfg.Source.Bucket,
		DestBucket:   cfg.Target.Bucket,
		Retries:      cfg.Migration.Retries,
	}, srcClient, dstClient, metricsCollector, logger)

	return &Migrator{
		cfg:        cfg,
		logger:     logger,
		runID:      runID,
		srcClient:  srcClient,
		dstClient:  dstClient,
		rule:       cfg.Migration.Rename,
		metrics:    metricsCollector,
		pool:       pool,
		aggregator: report.NewAggregator(succeededSink, failedSink, journal, logger),
		sinks:      []report.Sink{succeededSink, failedSink},
		journal:    journal,
	}
}

// Run executes the migration and returns the run summary. Every object
// enumerated before a fatal error still ends up in exactly one of the two
// sinks: in-flight work is drained through the completion barrier before
// the error is returned.
func (m *Migrator) Run(ctx context.Context) (report.Summary, error) {
	startTime := time.Now()

	m.logger.Info("Starting migration",
		zap.String("src_bucket", m.cfg.Source.Bucket),
		zap.String("dst_bucket", m.cfg.Target.Bucket),
		zap.String("prefix", m.cfg.Migration.Prefix),
		zap.Int("page_size", m.cfg.Migration.PageSize),
		zap.Int("concurrency", m.cfg.Migration.Concurrency),
		zap.Int("retries", m.cfg.Migration.Retries),
		zap.Bool("dry_run", m.cfg.Migration.DryRun),
	)

	// Connectivity probes before any listing.
	if err := m.srcClient.HeadBucket(ctx, m.cfg.Source.Bucket); err != nil {
		return report.Summary{}, fmt.Errorf("failed to connect to source bucket %q: %w", m.cfg.Source.Bucket, err)
	}
	if err := m.dstClient.HeadBucket(ctx, m.cfg.Target.Bucket); err != nil {
		return report.Summary{}, fmt.Errorf("failed to connect to destination bucket %q: %w", m.cfg.Target.Bucket, err)
	}

	if addr := m.cfg.Migration.MetricsAddr; addr != "" {
		go func() {
			if err := m.metrics.StartServer(addr); err != nil {
				m.logger.Error("Failed to start metrics server", zap.Error(err))
			}
		}()
	}

	tasks := make(chan worker.Task, m.cfg.Migration.Concurrency*2)
	outcomes := m.pool.Run(ctx, tasks)

	// Drain outcomes concurrently with enumeration so the sinks fill as
	// workers complete, in whatever order they finish.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for outcome := range outcomes {
			if err := m.aggregator.Record(outcome); err != nil {
				m.logger.Error("Failed to record outcome",
					zap.String("key", outcome.SourceKey),
					zap.Error(err),
				)
			}
		}
	}()

	lister := &ObjectLister{client: m.srcClient, logger: m.logger}
	pages, errCh := lister.Pages(ctx, m.cfg.Source.Bucket, m.cfg.Migration.Prefix, m.cfg.Migration.PageSize)

	var enumerated int64
	var fatalErr error

feed:
	for {
		select {
		case page, ok := <-pages:
			if !ok {
				// The lister buffers a fatal error and then closes both
				// channels, so select can see the closed pages channel
				// first. Drain errCh so a listing failure is never lost.
				if fatalErr == nil {
					fatalErr = <-errCh
				}
				break feed
			}

			for _, obj := range page.Objects {
				destKey := m.rule.Map(obj.Key)

				if m.cfg.Migration.DryRun {
					enumerated++
					m.logger.Info("Would transfer object",
						zap.String("key", obj.Key),
						zap.String("dest_key", destKey),
						zap.Int64("size", obj.Size),
					)
					continue
				}

				task := worker.Task{
					SourceKey:   obj.Key,
					DestKey:     destKey,
					Size:        obj.Size,
					ContentType: obj.ContentType,
				}

				select {
				case tasks <- task:
					enumerated++
				case <-ctx.Done():
					fatalErr = ctx.Err()
					break feed
				}
			}

		case err := <-errCh:
			if err != nil {
				fatalErr = err
				break feed
			}

		case <-ctx.Done():
			fatalErr = ctx.Err()
			break feed
		}
	}

	// Completion barrier: every submitted task produces exactly one
	// outcome before the pool closes the channel.
	close(tasks)
	<-drained

	summary := m.aggregator.Summary()
	summary.Enumerated = enumerated
	summary.Elapsed = time.Since(startTime)

	if fatalErr != nil {
		return summary, fmt.Errorf("enumeration failed: %w", fatalErr)
	}
	if err := m.aggregator.Err(); err != nil {
		return summary, fmt.Errorf("result sink failed: %w", err)
	}

	if enumerated == 0 {
		m.logger.Info("No objects found in source bucket, nothing to transfer",
			zap.String("bucket", m.cfg.Source.Bucket),
			zap.String("prefix", m.cfg.Migration.Prefix),
		)
		return summary, nil
	}

	m.logger.Info("Migration completed",
		zap.Int64("enumerated", summary.Enumerated),
		zap.Int64("succeeded", summary.Succeeded),
		zap.Int64("failed", summary.Failed),
		zap.Int64("bytes", summary.Bytes),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// Close releases the sinks and the journal.
func (m *Migrator) Close() error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if m.journal != nil {
		if err := m.journal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
