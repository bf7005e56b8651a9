package job

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store implementations when a job or item id
// does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence collaborator the pipeline writes through.
// Implementations serialize individual item/job writes; nothing here needs
// multi-item transactions. Implementations live in internal/store.
type Store interface {
	// CreateJob inserts a new pending job covering total URLs.
	CreateJob(ctx context.Context, total int) (*Job, error)

	// CreateItems inserts one pending item per URL, preserving order.
	CreateItems(ctx context.Context, jobID string, urls []string) ([]Item, error)

	Job(ctx context.Context, jobID string) (*Job, error)
	Items(ctx context.Context, jobID string) ([]Item, error)

	// MarkItemQueued records successful submission to the task queue.
	// The worker may dequeue and advance the item before this write
	// lands, so it only applies to items still pending; otherwise it is
	// a no-op.
	MarkItemQueued(ctx context.Context, itemID string) error

	// MarkItemProcessing records the start of one execution attempt.
	MarkItemProcessing(ctx context.Context, itemID string, startedAt time.Time) error

	// CompleteItem persists extracted fields, clears the last error and
	// marks the item completed. Re-running for the same item overwrites.
	CompleteItem(ctx context.Context, itemID string, company Company, contacts []Contact, meta FetchMeta, finishedAt time.Time) error

	// FailItem records the failure classification and marks the item failed.
	FailItem(ctx context.Context, itemID string, lastError string, finishedAt time.Time) error

	// UpdateJobProgress persists a derived progress snapshot.
	UpdateJobProgress(ctx context.Context, jobID string, p Progress) error
}
