package render

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// ChromeOptions configures the headless browser
type ChromeOptions struct {
	ExecPath  string // Browser binary; empty = chromedp's lookup
	UserAgent string
}

// ChromeRenderer renders pages in one headless Chrome per run, one tab per page
type ChromeRenderer struct {
	opts      ChromeOptions
	converter *Converter
	log       *logrus.Entry

	mu            sync.RWMutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

var _ Renderer = (*ChromeRenderer)(nil)

// NewChromeRenderer creates a renderer; the browser launches in Start
func NewChromeRenderer(opts ChromeOptions, converter *Converter, log *logrus.Entry) *ChromeRenderer {
	return &ChromeRenderer{opts: opts, converter: converter, log: log}
}

// Start launches the browser. The browser lives until Close or until ctx ends.
func (r *ChromeRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCtx != nil {
		return nil
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.opts.ExecPath))
	}
	if r.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(r.opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(r.log.Debugf),
		chromedp.WithErrorf(r.log.Debugf),
	)

	// Run with no actions allocates the browser
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("%w: launching headless browser: %w", utils.ErrRender, err)
	}

	r.browserCtx, r.browserCancel, r.allocCancel = browserCtx, browserCancel, allocCancel
	r.log.Info("Headless browser started")
	return nil
}

// Render opens pageURL in a new tab, waits for the body, and converts the
// rendered DOM. ctx bounds the whole tab lifetime.
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	r.mu.RLock()
	browserCtx := r.browserCtx
	r.mu.RUnlock()
	if browserCtx == nil {
		return "", ErrRendererNotStarted
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: '%s': %w", utils.ErrRender, pageURL, ctxErr)
		}
		return "", fmt.Errorf("%w: '%s': %w", utils.ErrRender, pageURL, err)
	}
	return r.converter.Convert(pageURL, []byte(html))
}

// Close shuts the browser down. Safe to call more than once.
func (r *ChromeRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCtx == nil {
		return nil
	}
	r.browserCancel()
	r.allocCancel()
	r.browserCtx, r.browserCancel, r.allocCancel = nil, nil, nil
	r.log.Info("Headless browser closed")
	return nil
}
