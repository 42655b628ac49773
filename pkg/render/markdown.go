package render

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// strippedTags never carry document text
var strippedTags = []string{"script", "style", "noscript", "template", "iframe"}

// Converter extracts a page's content region and converts it to Markdown
type Converter struct {
	selector string
	detector *frameworkDetector // non-nil for AutoSelector
	log      *logrus.Entry
}

// NewConverter creates a Converter selecting contentSelector (default "body").
// AutoSelector detects the docs framework per host, falling back to readability.
func NewConverter(contentSelector string, log *logrus.Entry) *Converter {
	if strings.TrimSpace(contentSelector) == "" {
		contentSelector = "body"
	}
	c := &Converter{selector: contentSelector, log: log}
	if IsAutoSelector(contentSelector) {
		c.detector = newFrameworkDetector()
	}
	return c
}

// Convert parses html fetched from pageURL and returns its content as Markdown.
// Relative links and images are made absolute against pageURL's domain.
// When the selector matches nothing the whole document is converted.
func (c *Converter) Convert(pageURL string, html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("%w: HTML of '%s': %w", utils.ErrParsing, pageURL, err)
	}

	var content *goquery.Selection
	if c.detector != nil {
		content = c.autoContent(doc, pageURL, html)
	} else {
		content = doc.Find(c.selector).First()
	}
	if content.Length() == 0 {
		c.log.WithFields(logrus.Fields{"url": pageURL, "selector": c.selector}).
			Warn("Content selector matched nothing, converting whole document")
		content = doc.Selection
	}
	cleanupHTML(content)

	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("%w: serializing content of '%s': %w", utils.ErrMarkdownConversion, pageURL, err)
	}

	converter := md.NewConverter(md.DomainFromURL(pageURL), true, nil)
	converter.Remove(strippedTags...)
	markdown, err := converter.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("%w: '%s': %w", utils.ErrMarkdownConversion, pageURL, err)
	}
	return strings.TrimSpace(markdown) + "\n", nil
}

// autoContent selects the detected framework's content region, else the
// readability article. An empty selection means neither produced anything.
func (c *Converter) autoContent(doc *goquery.Document, pageURL string, html []byte) *goquery.Selection {
	taskLog := c.log.WithField("url", pageURL)

	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Host
	}
	det, fresh := c.detector.detect(host, doc)
	if fresh {
		if det.selector != "" {
			taskLog.Infof("Detected framework %s for host %s, using selector: %s", det.framework, host, det.selector)
		} else {
			taskLog.Infof("No framework detected for host %s, will use readability extraction", host)
		}
	}

	if det.selector != "" {
		if content := doc.Find(det.selector).First(); content.Length() > 0 {
			return content
		}
		taskLog.Warnf("Detected selector '%s' not found, falling back to readability", det.selector)
	}

	content, err := extractArticle(html, pageURL)
	if err != nil {
		taskLog.Warnf("Readability: %v", err)
		return doc.Selection.Slice(0, 0)
	}
	return content
}

// cleanupHTML removes permalink noise that would otherwise become stray links
func cleanupHTML(content *goquery.Selection) {
	content.Find("a.headerlink, a.permalink, a[title='Permalink to this heading'], a[title='Link to this heading']").Remove()

	content.Find("a").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		href, _ := s.Attr("href")
		if text == "¶" || text == "#" || (text == "" && strings.HasPrefix(href, "#")) {
			s.Remove()
		}
	})
}
