// Package scraper implements the two-stage crawl pipeline: homepage
// link discovery, then per-book detail and chapter extraction.
package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/qnote/auto-import/internal/crawler"
	"github.com/qnote/auto-import/internal/progress"
)

// Config holds site addressing and crawl bounds for the Scraper.
// DetailURL takes the book ID; ChapterURL takes the book ID and a
// 1-based chapter index.
type Config struct {
	HomepageLong    string
	HomepageShort   string
	DetailURL       string
	ChapterURL      string
	BookConcurrency int
}

// Scraper runs crawls against the configured source site.
type Scraper struct {
	fetcher crawler.Fetcher
	cfg     Config
	emitter progress.Emitter
	logger  *zap.Logger
}

// New constructs a Scraper. The emitter may be nil.
func New(fetcher crawler.Fetcher, cfg Config, emitter progress.Emitter, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		fetcher: fetcher,
		cfg:     cfg,
		emitter: emitter,
		logger:  logger,
	}
}

// firstText returns the trimmed text of the first non-empty match among
// the selector candidates.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstOuterHTML returns the concatenated outer HTML of every node
// matched by the first selector that matches at least one element.
func firstOuterHTML(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		nodes := doc.Find(sel)
		if nodes.Length() == 0 {
			continue
		}
		var b strings.Builder
		nodes.Each(func(_ int, n *goquery.Selection) {
			if h, err := goquery.OuterHtml(n); err == nil {
				b.WriteString(h)
			}
		})
		return b.String()
	}
	return ""
}
