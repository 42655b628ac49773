package crawler

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/sitemap-scraper/pkg/parse"
)

// ExtractLinks returns the absolute form of every a[href] in body, resolved
// against pageURL, in document order without duplicates.
// Unparsable HTML yields no links.
func ExtractLinks(body []byte, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		absolute, ok := parse.ResolveLink(href, pageURL)
		if !ok {
			return
		}
		if _, dup := seen[absolute]; dup {
			return
		}
		seen[absolute] = struct{}{}
		links = append(links, absolute)
	})
	return links
}
