package synth

import (
	"errors"
	"fmt"
)

var (
	// ErrRetriesExhausted is matched by *RetriesExhaustedError.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrCancelled is returned when the job context ends before the job does.
	ErrCancelled = errors.New("synthesis cancelled")
)

// RetriesExhaustedError is returned when every attempt failed with a retryable error.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }

func (e *RetriesExhaustedError) Is(target error) bool { return target == ErrRetriesExhausted }

// ChunkError identifies the chunk that failed a job.
type ChunkError struct {
	JobID       string
	ChunkIndex  int
	TotalChunks int
	Attempts    int
	Cause       error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d/%d failed after %d attempt(s): %v",
		e.ChunkIndex+1, e.TotalChunks, e.Attempts, e.Cause)
}

func (e *ChunkError) Unwrap() error { return e.Cause }

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
