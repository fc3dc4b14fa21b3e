package report

// Sink is an append-only destination for outcome records. Implementations
// must be safe for concurrent callers; every record is one self-contained
// line.
type Sink interface {
	Append(record string) error
	Close() error
}
