package scraper

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// fakeFetcher serves pages from a map; any URL not present is a miss.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	return body, ok
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestScraper(pages map[string]string) (*Scraper, *fakeFetcher) {
	f := &fakeFetcher{pages: pages}
	s := New(f, Config{
		HomepageLong:    "https://example.test/",
		HomepageShort:   "https://example.test/cate/1",
		DetailURL:       "https://example.test/detail/%s",
		ChapterURL:      "https://example.test/read/%s/%d",
		BookConcurrency: 2,
	}, nil, zap.NewNop())
	return s, f
}
