// Package sanitize normalizes scraped HTML fragments for storage.
package sanitize

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Clean removes every image element and unwraps every anchor, keeping
// only the anchor's visible text. The result is safe to hand to the
// note importer. Cleaning already-clean HTML yields the same output.
func Clean(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	doc.Find("img").Remove()
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		a.ReplaceWithHtml(html.EscapeString(a.Text()))
	})
	out, err := doc.Find("body").Html()
	if err != nil {
		return fragment
	}
	return out
}
