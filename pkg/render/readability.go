package render

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
)

var errEmptyArticle = errors.New("readability extracted no content")

// extractArticle runs Mozilla's Readability algorithm over html and returns
// the main article as a selection for the Markdown converter
func extractArticle(html []byte, pageURL string) (*goquery.Selection, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(html), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability extraction failed: %w", err)
	}
	if article.Node == nil {
		return nil, errEmptyArticle
	}

	content := goquery.NewDocumentFromNode(article.Node).Selection
	if strings.TrimSpace(content.Text()) == "" {
		return nil, errEmptyArticle
	}
	return content, nil
}
