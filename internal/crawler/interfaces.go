package crawler

import (
	"context"
	"errors"
	"time"
)

// ErrHomepageFetch is returned when a homepage/category page cannot be
// fetched. It is the only hard failure in the crawl pipeline and maps
// to an upstream-failure response at the API boundary.
var ErrHomepageFetch = errors.New("failed_to_fetch_homepage")

// ErrJobNotFound is returned by JobStore lookups for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// Fetcher retrieves a page body. ok is false for any transport error,
// timeout, or non-200 status; callers treat that as a soft miss and
// fall back, never as an error to propagate.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body string, ok bool)
}

// JobStore persists job lifecycle state.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string) error
	UpdateJobProgress(ctx context.Context, jobID string, progress int) error
	SetJobResult(ctx context.Context, jobID string, result []Book) error
}

// Queue provides enqueue/dequeue semantics for submitted crawl jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
