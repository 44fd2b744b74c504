package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qnote/auto-import/internal/crawler"
	queuememory "github.com/qnote/auto-import/internal/queue/memory"
	storagememory "github.com/qnote/auto-import/internal/storage/memory"
	"github.com/qnote/auto-import/internal/worker"
)

type staticRunner struct {
	books []crawler.Book
}

func (r staticRunner) Crawl(context.Context, crawler.CrawlRequest) ([]crawler.Book, error) {
	return r.books, nil
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func TestDispatcherProcessesJobs(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := queuememory.NewQueue(4)
	store := storagememory.NewJobStore()
	workers := []*worker.Worker{
		worker.New(queue, store, staticRunner{books: []crawler.Book{{ID: "5"}}}, nil, realClock{}, zap.NewNop()),
		worker.New(queue, store, staticRunner{books: []crawler.Book{{ID: "5"}}}, nil, realClock{}, zap.NewNop()),
	}
	d := New(queue, workers)

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.CreateJob(ctx, crawler.Job{ID: id, Status: crawler.JobStatusPending, Submitted: time.Now()}))
		require.NoError(t, d.Enqueue(ctx, crawler.QueueItem{JobID: id}))
	}

	require.Eventually(t, func() bool {
		for _, id := range []string{"a", "b", "c"} {
			job, err := store.GetJob(context.Background(), id)
			if err != nil || job.Status != crawler.JobStatusDone {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop on cancel")
	}
}

func TestDispatcherEnqueueError(t *testing.T) {
	t.Parallel()
	queue := queuememory.NewQueue(1)
	d := New(queue, nil)

	require.NoError(t, d.Enqueue(context.Background(), crawler.QueueItem{JobID: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, d.Enqueue(ctx, crawler.QueueItem{JobID: "b"}))
}
