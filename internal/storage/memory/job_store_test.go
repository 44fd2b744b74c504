package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qnote/auto-import/internal/crawler"
)

func newJob(id string) crawler.Job {
	return crawler.Job{
		ID:        id,
		Status:    crawler.JobStatusPending,
		Submitted: time.Now().UTC(),
	}
}

func TestJobStoreCreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewJobStore()

	require.NoError(t, store.CreateJob(ctx, newJob("a")))
	job, err := store.GetJob(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, crawler.JobStatusPending, job.Status)

	require.Error(t, store.CreateJob(ctx, newJob("a")))
}

func TestJobStoreGetUnknown(t *testing.T) {
	t.Parallel()
	_, err := NewJobStore().GetJob(context.Background(), "nope")
	require.ErrorIs(t, err, crawler.ErrJobNotFound)
}

func TestJobStoreStatusTimestamps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewJobStore()
	require.NoError(t, store.CreateJob(ctx, newJob("a")))

	require.NoError(t, store.UpdateJobStatus(ctx, "a", crawler.JobStatusRunning, ""))
	job, err := store.GetJob(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, job.Started)
	require.Nil(t, job.Finished)

	started := *job.Started
	require.NoError(t, store.UpdateJobStatus(ctx, "a", crawler.JobStatusDone, ""))
	job, err = store.GetJob(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, started, *job.Started)
	require.NotNil(t, job.Finished)
}

func TestJobStoreErrorText(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewJobStore()
	require.NoError(t, store.CreateJob(ctx, newJob("a")))

	require.NoError(t, store.UpdateJobStatus(ctx, "a", crawler.JobStatusError, "boom"))
	job, err := store.GetJob(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, crawler.JobStatusError, job.Status)
	require.Equal(t, "boom", job.ErrorText)
}

func TestJobStoreProgressClamped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewJobStore()
	require.NoError(t, store.CreateJob(ctx, newJob("a")))

	require.NoError(t, store.UpdateJobProgress(ctx, "a", 150))
	job, _ := store.GetJob(ctx, "a")
	require.Equal(t, 100, job.Progress)

	require.NoError(t, store.UpdateJobProgress(ctx, "a", -5))
	job, _ = store.GetJob(ctx, "a")
	require.Equal(t, 0, job.Progress)

	require.ErrorIs(t, store.UpdateJobProgress(ctx, "nope", 10), crawler.ErrJobNotFound)
}

func TestJobStoreResultCopied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewJobStore()
	require.NoError(t, store.CreateJob(ctx, newJob("a")))

	books := []crawler.Book{{ID: "1", Title: "T"}}
	require.NoError(t, store.SetJobResult(ctx, "a", books))
	books[0].Title = "mutated"

	job, err := store.GetJob(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "T", job.Result[0].Title)
}
