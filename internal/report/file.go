package report

import (
	"fmt"
	"os"
	"sync"
)

// FileSink appends one record per line to a local file. A mutex serializes
// writers so concurrent completions never interleave within a line.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (or creates) the file in append mode.
func NewFileSink(path string) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink file %s: %w", path, err)
	}
	return &FileSink{file: file}, nil
}

// Append writes one record as a single line.
func (s *FileSink) Append(record string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.WriteString(record + "\n"); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
