package scraper

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/qnote/auto-import/internal/crawler"
	"github.com/qnote/auto-import/internal/metrics"
	"github.com/qnote/auto-import/internal/sanitize"
)

var (
	bookTitleSelectors   = []string{"h1", "h2"}
	descriptionSelectors = []string{".intro", ".detail_intro", ".book-intro", ".summary"}
)

const (
	descriptionMetaSelector  = `meta[name="description"]`
	categorySelector         = ".breadcrumb a:nth-of-type(2)"
	noDescriptionPlaceholder = "<p>Chưa có mô tả</p>"
	unknownCategory          = "Unknown"
)

// CrawlBook fetches a book's detail page plus its chapter range and
// assembles the record. A detail-page miss aborts the whole book; every
// later extraction degrades to a placeholder instead.
func (s *Scraper) CrawlBook(ctx context.Context, bookID string, policy crawler.ChapterPolicy, mode crawler.Mode) (crawler.Book, bool) {
	detailURL := fmt.Sprintf(s.cfg.DetailURL, bookID)
	body, ok := s.fetcher.Fetch(ctx, detailURL)
	metrics.ObserveFetch(ok)
	if !ok {
		return crawler.Book{}, false
	}

	var title, desc, category string
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
		title = firstText(doc, bookTitleSelectors)
		desc = bookDescription(doc)
		category = strings.TrimSpace(doc.Find(categorySelector).First().Text())
	}
	if title == "" {
		title = "Book " + bookID
	}
	if desc == "" {
		desc = noDescriptionPlaceholder
	}
	if category == "" {
		category = unknownCategory
	}

	chapters := s.crawlChapters(ctx, bookID, policy)

	// The canonical source link is chapter 1 when any chapter came
	// back, else the detail page.
	source := detailURL
	if len(chapters) > 0 {
		source = fmt.Sprintf(s.cfg.ChapterURL, bookID, 1)
	}

	book := crawler.Book{
		ID:          bookID,
		Title:       title,
		Description: desc,
		Category:    category,
		SourceBook:  source,
		Chapters:    chapters,
	}
	if mode == crawler.ModeShort {
		book = foldChapters(book)
	}
	return book, true
}

// bookDescription walks the description candidates (first selector with
// non-empty text wins), then the description meta tag.
func bookDescription(doc *goquery.Document) string {
	for _, sel := range descriptionSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 || strings.TrimSpace(node.Text()) == "" {
			continue
		}
		if h, err := goquery.OuterHtml(node); err == nil {
			return sanitize.Clean(h)
		}
	}
	if content, exists := doc.Find(descriptionMetaSelector).First().Attr("content"); exists && content != "" {
		return content
	}
	return ""
}

// foldChapters collapses chapter bodies into the description for the
// single-page reading view and empties the chapter list.
func foldChapters(book crawler.Book) crawler.Book {
	var b strings.Builder
	b.WriteString(book.Description)
	for _, ch := range book.Chapters {
		b.WriteString("<h2>")
		b.WriteString(html.EscapeString(ch.Title))
		b.WriteString("</h2>")
		b.WriteString(ch.Content)
	}
	book.Description = b.String()
	book.Chapters = []crawler.Chapter{}
	return book
}
