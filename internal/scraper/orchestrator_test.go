package scraper

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qnote/auto-import/internal/crawler"
)

func TestCrawlHomepageMiss(t *testing.T) {
	t.Parallel()

	s, _ := newTestScraper(nil)
	_, err := s.Crawl(context.Background(), crawler.CrawlRequest{NumBooks: 2, Mode: crawler.ModeLong})
	require.ErrorIs(t, err, crawler.ErrHomepageFetch)
}

func TestCrawlNoCandidates(t *testing.T) {
	t.Parallel()

	s, _ := newTestScraper(map[string]string{
		"https://example.test/": "<p>no links today</p>",
	})
	books, err := s.Crawl(context.Background(), crawler.CrawlRequest{NumBooks: 2, Mode: crawler.ModeLong})
	require.NoError(t, err)
	require.NotNil(t, books)
	require.Empty(t, books)
}

func TestCrawlZeroBooksStillCrawlsOne(t *testing.T) {
	t.Parallel()

	s, _ := newTestScraper(map[string]string{
		"https://example.test/":         `<a href="/detail/5">x</a>`,
		"https://example.test/detail/5": "<h1>T</h1>",
	})
	books, err := s.Crawl(context.Background(), crawler.CrawlRequest{NumBooks: 0, Mode: crawler.ModeLong})
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, "5", books[0].ID)
}

func TestCrawlClampsToCandidatePool(t *testing.T) {
	t.Parallel()

	s, _ := newTestScraper(map[string]string{
		"https://example.test/":         `<a href="/detail/5">x</a><a href="/detail/9">y</a>`,
		"https://example.test/detail/5": "<h1>A</h1>",
		"https://example.test/detail/9": "<h1>B</h1>",
	})
	books, err := s.Crawl(context.Background(), crawler.CrawlRequest{NumBooks: 50, Mode: crawler.ModeLong})
	require.NoError(t, err)
	require.Len(t, books, 2)

	ids := []string{books[0].ID, books[1].ID}
	require.ElementsMatch(t, []string{"5", "9"}, ids)
}

func TestCrawlSkipsFailedBooks(t *testing.T) {
	t.Parallel()

	// Book 9 has no detail page; the crawl still delivers book 5.
	s, _ := newTestScraper(map[string]string{
		"https://example.test/":         `<a href="/detail/5">x</a><a href="/detail/9">y</a>`,
		"https://example.test/detail/5": "<h1>A</h1>",
	})
	books, err := s.Crawl(context.Background(), crawler.CrawlRequest{NumBooks: 2, Mode: crawler.ModeLong})
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, "5", books[0].ID)
}

func TestCrawlShortModeUsesShortHomepage(t *testing.T) {
	t.Parallel()

	s, _ := newTestScraper(map[string]string{
		"https://example.test/cate/1":   `<a href="/detail/5">x</a>`,
		"https://example.test/detail/5": "<h1>A</h1>",
	})
	books, err := s.Crawl(context.Background(), crawler.CrawlRequest{NumBooks: 1, Mode: crawler.ModeShort})
	require.NoError(t, err)
	require.Len(t, books, 1)
}

func TestCrawlOnBookCallback(t *testing.T) {
	t.Parallel()

	s, _ := newTestScraper(map[string]string{
		"https://example.test/":         `<a href="/detail/5">x</a><a href="/detail/9">y</a>`,
		"https://example.test/detail/5": "<h1>A</h1>",
		"https://example.test/detail/9": "<h1>B</h1>",
	})

	var (
		mu     sync.Mutex
		gotIDs []string
		totals []int
	)
	req := crawler.CrawlRequest{
		NumBooks: 2,
		Mode:     crawler.ModeLong,
		OnBook: func(book crawler.Book, _, total int) {
			mu.Lock()
			gotIDs = append(gotIDs, book.ID)
			totals = append(totals, total)
			mu.Unlock()
		},
	}
	_, err := s.Crawl(context.Background(), req)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"5", "9"}, gotIDs)
	require.Equal(t, []int{2, 2}, totals)
}
