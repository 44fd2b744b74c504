package scraper

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/qnote/auto-import/internal/crawler"
	"github.com/qnote/auto-import/internal/metrics"
	"github.com/qnote/auto-import/internal/progress"
)

// Crawl discovers candidate books on the mode's homepage and crawls a
// random sample of them. The homepage fetch is the only hard failure;
// individual book failures are logged and skipped. Output order follows
// the shuffled selection order, not completion order.
func (s *Scraper) Crawl(ctx context.Context, req crawler.CrawlRequest) ([]crawler.Book, error) {
	homepage := s.cfg.HomepageLong
	if req.Mode == crawler.ModeShort {
		homepage = s.cfg.HomepageShort
	}
	body, ok := s.fetcher.Fetch(ctx, homepage)
	metrics.ObserveFetch(ok)
	if !ok {
		return nil, crawler.ErrHomepageFetch
	}

	ids := ExtractBookIDs(body, homepage)
	if len(ids) == 0 {
		s.logger.Info("homepage yielded no candidate books", zap.String("homepage", homepage))
		return []crawler.Book{}, nil
	}
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	// A request for fewer than one book still crawls one; requests
	// beyond the candidate pool are clamped to it.
	n := req.NumBooks
	if n > len(ids) {
		n = len(ids)
	}
	if n < 1 {
		n = 1
	}
	ids = ids[:n]

	concurrency := s.cfg.BookConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		wg        sync.WaitGroup
		completed atomic.Int32
	)
	results := make([]*crawler.Book, len(ids))
	sem := make(chan struct{}, concurrency)
	for i, id := range ids {
		wg.Add(1)
		go func(slot int, bookID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			book, ok := s.CrawlBook(ctx, bookID, req.Chapters, req.Mode)
			done := int(completed.Add(1))
			if !ok {
				s.logger.Warn("book crawl failed", zap.String("book_id", bookID))
				return
			}
			results[slot] = &book
			s.emitBookDone(bookID, done, len(ids))
			if req.OnBook != nil {
				req.OnBook(book, done, len(ids))
			}
		}(i, id)
	}
	wg.Wait()

	books := make([]crawler.Book, 0, len(ids))
	for _, b := range results {
		if b != nil {
			books = append(books, *b)
		}
	}
	return books, nil
}

func (s *Scraper) emitBookDone(bookID string, completed, total int) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(progress.Event{
		JobID:     "sync",
		TS:        time.Now().UTC(),
		Stage:     progress.StageBookDone,
		BookID:    bookID,
		Completed: completed,
		Total:     total,
	})
}
