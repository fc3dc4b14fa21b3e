package worker

// Status is the terminal state recorded for one migrated object.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Task describes one object to copy. DestKey is derived once, when the task
// is created, and never recomputed.
type Task struct {
	SourceKey   string
	DestKey     string
	Size        int64
	ContentType string
}

// Outcome is the terminal result of one task. Exactly one outcome exists per
// enumerated object by the end of a run.
type Outcome struct {
	SourceKey string
	DestKey   string
	Status    Status
	Attempts  int
	Bytes     int64
	Err       error
}

// Config contains worker configuration.
type Config struct {
	SourceBucket string
	DestBucket   string
	Retries      int
}
