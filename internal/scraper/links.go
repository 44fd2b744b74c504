package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var detailPathRe = regexp.MustCompile(`/detail/(\d+)`)

// ExtractBookIDs scans every anchor for a detail-page link and returns
// the numeric book IDs, deduplicated in first-seen order. Relative
// hrefs are resolved against base; anchors that don't match the detail
// pattern are ignored.
func ExtractBookIDs(fragment, base string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	baseURL, baseErr := url.Parse(base)

	seen := make(map[string]struct{})
	var ids []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" {
			return
		}
		resolved := href
		if baseErr == nil {
			if ref, err := url.Parse(href); err == nil {
				resolved = baseURL.ResolveReference(ref).String()
			}
		}
		m := detailPathRe.FindStringSubmatch(resolved)
		if m == nil {
			return
		}
		if _, dup := seen[m[1]]; dup {
			return
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	})
	return ids
}
