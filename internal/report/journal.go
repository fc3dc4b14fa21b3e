package report

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"aws2spaces/internal/worker"

	_ "modernc.org/sqlite"
)

// Journal persists every outcome to a local SQLite database for post-run
// inspection (which objects failed, with how many attempts, and why). It is
// a report artifact only and is never read back to skip work on a later
// run.
type Journal struct {
	db      *sql.DB
	runID   string
	writeMu sync.Mutex
}

// JournalRow is one recorded outcome.
type JournalRow struct {
	RunID      string
	SourceKey  string
	DestKey    string
	Status     worker.Status
	Attempts   int
	Bytes      int64
	LastError  string
	RecordedAt time.Time
}

// NewJournal opens (or creates) the journal database.
func NewJournal(dbPath, runID string) (*Journal, error) {
	// Configure SQLite for concurrent access
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=60000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	j := &Journal{db: db, runID: runID}
	if err := j.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return j, nil
}

func (j *Journal) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS outcomes (
		run_id TEXT NOT NULL,
		source_key TEXT NOT NULL,
		dest_key TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		bytes INTEGER NOT NULL,
		last_error TEXT,
		recorded_at DATETIME NOT NULL,
		PRIMARY KEY (run_id, source_key)
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(status);
	`

	_, err := j.db.Exec(query)
	return err
}

// Save records one outcome. Writes are serialized to avoid SQLITE_BUSY from
// multiple concurrent writers.
func (j *Journal) Save(outcome worker.Outcome) error {
	j.writeMu.Lock()
	defer j.writeMu.Unlock()

	return j.retryOnBusy(func() error {
		return j.saveRow(outcome)
	})
}

func (j *Journal) saveRow(outcome worker.Outcome) error {
	lastErr := ""
	if outcome.Err != nil {
		lastErr = outcome.Err.Error()
	}

	query := `
	INSERT INTO outcomes
	(run_id, source_key, dest_key, status, attempts, bytes, last_error, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, source_key) DO UPDATE SET
		dest_key = excluded.dest_key,
		status = excluded.status,
		attempts = excluded.attempts,
		bytes = excluded.bytes,
		last_error = excluded.last_error,
		recorded_at = excluded.recorded_at
	`

	_, err := j.db.Exec(query,
		j.runID,
		outcome.SourceKey,
		outcome.DestKey,
		string(outcome.Status),
		outcome.Attempts,
		outcome.Bytes,
		lastErr,
		time.Now(),
	)
	return err
}

// ListByStatus returns the recorded outcomes of this run with the given
// status, oldest first.
func (j *Journal) ListByStatus(status worker.Status) ([]*JournalRow, error) {
	query := `
	SELECT run_id, source_key, dest_key, status, attempts, bytes, last_error, recorded_at
	FROM outcomes WHERE run_id = ? AND status = ?
	ORDER BY recorded_at ASC
	`

	rows, err := j.db.Query(query, j.runID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*JournalRow
	for rows.Next() {
		var row JournalRow
		var lastError sql.NullString

		err := rows.Scan(
			&row.RunID,
			&row.SourceKey,
			&row.DestKey,
			&row.Status,
			&row.Attempts,
			&row.Bytes,
			&lastError,
			&row.RecordedAt,
		)
		if err != nil {
			return nil, err
		}

		if lastError.Valid {
			row.LastError = lastError.String
		}
		records = append(records, &row)
	}

	return records, rows.Err()
}

// retryOnBusy retries the operation if SQLite is busy.
func (j *Journal) retryOnBusy(operation func() error) error {
	const maxRetries = 10
	baseDelay := 50 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if isSQLiteBusyError(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
			continue
		}

		return err
	}

	return nil
}

// isSQLiteBusyError checks if the error is a SQLite busy error.
func isSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	errorStr := err.Error()
	return strings.Contains(errorStr, "database is locked") ||
		strings.Contains(errorStr, "SQLITE_BUSY")
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
