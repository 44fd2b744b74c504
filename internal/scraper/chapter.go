package scraper

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/qnote/auto-import/internal/crawler"
	"github.com/qnote/auto-import/internal/metrics"
	"github.com/qnote/auto-import/internal/sanitize"
)

var (
	chapterTitleSelectors   = []string{".chapter-title", "h1"}
	chapterContentSelectors = []string{".content", ".chapter", ".read-content", "#content", ".article"}
)

const (
	chapterTitleFormat   = "Chương %d"
	noContentPlaceholder = "<p>Chưa có nội dung</p>"
	maxFallbackTextLines = 50
)

// CrawlChapter fetches one chapter page and extracts its title and
// content. A fetch miss yields ok=false; a page that fetches but
// resists parsing degrades to placeholders instead of failing.
func (s *Scraper) CrawlChapter(ctx context.Context, bookID string, index int) (crawler.Chapter, bool) {
	chapterURL := fmt.Sprintf(s.cfg.ChapterURL, bookID, index)
	body, ok := s.fetcher.Fetch(ctx, chapterURL)
	metrics.ObserveFetch(ok)
	if !ok {
		return crawler.Chapter{}, false
	}

	title := fmt.Sprintf(chapterTitleFormat, index)
	content := noContentPlaceholder

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err == nil {
		if t := firstText(doc, chapterTitleSelectors); t != "" {
			title = t
		}
		if c := chapterContent(doc); c != "" {
			content = c
		}
	}

	metrics.ObserveChapter()
	return crawler.Chapter{
		Title:   title,
		Content: sanitize.Clean(content),
		Source:  chapterURL,
	}, true
}

// chapterContent tries the content-container candidates, then every
// paragraph on the page, then bare text lines capped at 50.
func chapterContent(doc *goquery.Document) string {
	if c := firstOuterHTML(doc, chapterContentSelectors); c != "" {
		return c
	}
	if c := firstOuterHTML(doc, []string{"p"}); c != "" {
		return c
	}
	return textLinesHTML(doc, maxFallbackTextLines)
}

// textLinesHTML wraps each non-empty visible text line in a paragraph.
func textLinesHTML(doc *goquery.Document, maxLines int) string {
	var b strings.Builder
	lines := 0
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if lines >= maxLines {
			break
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
		lines++
	}
	return b.String()
}

// crawlChapters acquires chapters 1..MaxChapters under the policy's
// strategy: bounded concurrent fan-out, or sequential with early exit
// after MaxConsecutiveMisses misses in a row.
func (s *Scraper) crawlChapters(ctx context.Context, bookID string, policy crawler.ChapterPolicy) []crawler.Chapter {
	if policy.MaxChapters <= 0 {
		return []crawler.Chapter{}
	}
	if policy.Concurrency > 1 {
		return s.crawlChaptersConcurrent(ctx, bookID, policy)
	}
	return s.crawlChaptersSequential(ctx, bookID, policy)
}

func (s *Scraper) crawlChaptersSequential(ctx context.Context, bookID string, policy crawler.ChapterPolicy) []crawler.Chapter {
	maxMisses := policy.MaxConsecutiveMisses
	if maxMisses <= 0 {
		maxMisses = 3
	}
	chapters := make([]crawler.Chapter, 0, policy.MaxChapters)
	misses := 0
	for i := 1; i <= policy.MaxChapters; i++ {
		ch, ok := s.CrawlChapter(ctx, bookID, i)
		if !ok {
			misses++
			if misses >= maxMisses {
				break
			}
			continue
		}
		misses = 0
		chapters = append(chapters, ch)
	}
	return chapters
}

// Results keep index order regardless of completion order.
func (s *Scraper) crawlChaptersConcurrent(ctx context.Context, bookID string, policy crawler.ChapterPolicy) []crawler.Chapter {
	results := make([]*crawler.Chapter, policy.MaxChapters)
	sem := make(chan struct{}, policy.Concurrency)
	var wg sync.WaitGroup
	for i := 1; i <= policy.MaxChapters; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if ch, ok := s.CrawlChapter(ctx, bookID, index); ok {
				results[index-1] = &ch
			}
		}(i)
	}
	wg.Wait()

	chapters := make([]crawler.Chapter, 0, policy.MaxChapters)
	for _, ch := range results {
		if ch != nil {
			chapters = append(chapters, *ch)
		}
	}
	return chapters
}
