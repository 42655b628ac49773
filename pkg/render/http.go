package render

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-scraper/pkg/fetch"
	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// HTTPRenderer renders pages from their served HTML, without running scripts
type HTTPRenderer struct {
	fetcher   fetch.Fetcher
	converter *Converter
	log       *logrus.Entry
}

var _ Renderer = (*HTTPRenderer)(nil)

// NewHTTPRenderer creates a renderer that fetches through fetcher
func NewHTTPRenderer(fetcher fetch.Fetcher, converter *Converter, log *logrus.Entry) *HTTPRenderer {
	return &HTTPRenderer{fetcher: fetcher, converter: converter, log: log}
}

// Start implements Renderer; there is nothing to launch
func (r *HTTPRenderer) Start(context.Context) error { return nil }

// Render implements Renderer
func (r *HTTPRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	page, err := r.fetcher.Get(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", utils.ErrRender, err)
	}
	if !page.IsHTML() {
		return "", fmt.Errorf("%w: '%s' served as '%s'", utils.ErrNotHTML, pageURL, page.ContentType)
	}
	return r.converter.Convert(page.FinalURL, page.Body)
}

// Close implements Renderer
func (r *HTTPRenderer) Close() error { return nil }
