package domain

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned by stores when no batch matches the given id.
var ErrJobNotFound = errors.New("batch job not found")

// ErrJobCompleted is returned when an operation is rejected because the batch
// already reached a terminal completed state.
var ErrJobCompleted = errors.New("batch job already completed")

// BatchJobStore persists batch status records. Implementations must return
// snapshots that are safe to read while the supervising goroutine keeps
// mutating its own copy. Durability across restarts is not part of the
// contract; the in-memory implementation is valid for production use.
type BatchJobStore interface {
	Put(ctx context.Context, job *BatchJob) error
	Get(ctx context.Context, id string) (*BatchJob, error)
	List(ctx context.Context) ([]*BatchJob, error)
}
