package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-scraper/pkg/fetch"
	"github.com/Sriram-PR/sitemap-scraper/pkg/metrics"
	"github.com/Sriram-PR/sitemap-scraper/pkg/models"
	"github.com/Sriram-PR/sitemap-scraper/pkg/parse"
	"github.com/Sriram-PR/sitemap-scraper/pkg/queue"
	"github.com/Sriram-PR/sitemap-scraper/pkg/storage"
	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// ErrFrontierUsed is returned when Crawl is called on a Frontier that already ran
var ErrFrontierUsed = errors.New("frontier already used")

const (
	stateIdle int32 = iota
	stateRunning
	stateDone
)

// Delayer sleeps between crawl requests
type Delayer interface {
	Wait(ctx context.Context) (time.Duration, error)
}

// Options holds optional Frontier behaviour
type Options struct {
	MaxDepth         int  // Links are not expanded from pages at this depth; 0 = unlimited
	CanonicalizeURLs bool // Key the visited set by parse.CanonicalKey instead of the exact URL
	FailOnHTTPError  bool // Record HTML pages with a 4xx/3xx final status as failed instead of fetched
}

// CrawlResult is the outcome of one Frontier run
type CrawlResult struct {
	URLs      []string             // Successfully fetched HTML pages, in fetch order
	Outcomes  []models.PageOutcome // One per attempted URL
	Remaining int                  // URLs still queued when the crawl stopped
	Visited   int                  // Distinct keys marked visited
	Duration  time.Duration
}

// Frontier performs a sequential breadth-first crawl of one site
type Frontier struct {
	fetcher fetch.Fetcher
	delay   Delayer
	store   storage.VisitedStore
	filter  *ScopeFilter
	metrics *metrics.Metrics // nil = no metrics
	opts    Options
	log     *logrus.Entry

	state atomic.Int32
}

// NewFrontier creates a Frontier. The store must be empty and is owned by this
// Frontier for the duration of Crawl; the caller closes it afterwards.
func NewFrontier(fetcher fetch.Fetcher, delay Delayer, store storage.VisitedStore, filter *ScopeFilter, m *metrics.Metrics, opts Options, log *logrus.Entry) *Frontier {
	return &Frontier{
		fetcher: fetcher,
		delay:   delay,
		store:   store,
		filter:  filter,
		metrics: m,
		opts:    opts,
		log:     log.WithField("component", "frontier"),
	}
}

// Crawl runs the breadth-first traversal from startURL until the queue is empty
// or maxPages pages were fetched successfully. If ctx ends first the partial
// result is returned together with ctx.Err().
func (f *Frontier) Crawl(ctx context.Context, startURL string, maxPages int) (*CrawlResult, error) {
	if !f.state.CompareAndSwap(stateIdle, stateRunning) {
		return nil, ErrFrontierUsed
	}
	defer f.state.Store(stateDone)

	start := time.Now()
	result := &CrawlResult{URLs: []string{}}
	q := queue.NewURLQueue(models.WorkItem{URL: startURL, Depth: 0})

	f.log.WithFields(logrus.Fields{"start_url": startURL, "max_pages": maxPages, "domain": f.filter.Domain()}).Info("Crawl starting")

	var crawlErr error
	for q.Len() > 0 && len(result.URLs) < maxPages {
		if err := ctx.Err(); err != nil {
			crawlErr = err
			break
		}

		item, _ := q.Pop()
		f.metrics.SetQueueLength(q.Len())
		taskLog := f.log.WithFields(logrus.Fields{"url": item.URL, "depth": item.Depth})

		added, err := f.store.MarkVisited(f.key(item.URL))
		if err != nil {
			taskLog.Errorf("Visited store error, skipping URL: %v", err)
			f.record(result, models.PageOutcome{
				URL:       item.URL,
				Status:    models.StatusSkipped,
				Reason:    err.Error(),
				ErrorType: utils.CategorizeError(err),
				Depth:     item.Depth,
				FetchedAt: time.Now(),
			})
			continue
		}
		if !added {
			taskLog.Debug("Already visited")
			continue
		}

		delay, err := f.delay.Wait(ctx)
		f.metrics.ObservePolitenessDelay(delay)
		if err != nil {
			crawlErr = err
			break
		}

		outcome, links, err := f.visit(ctx, item, taskLog)
		if err != nil {
			crawlErr = err
			break
		}
		f.record(result, outcome)
		if outcome.Status == models.StatusSuccess {
			result.URLs = append(result.URLs, item.URL)
		}

		if f.opts.MaxDepth > 0 && item.Depth >= f.opts.MaxDepth {
			if len(links) > 0 {
				taskLog.Debugf("Max depth %d reached, not following %d links", f.opts.MaxDepth, len(links))
			}
			continue
		}
		queued := f.enqueue(q, links, item.Depth+1)
		f.metrics.SetQueueLength(q.Len())
		taskLog.WithFields(logrus.Fields{"found": len(links), "queued": queued}).Debug("Links processed")
	}

	if crawlErr == nil && q.Len() > 0 {
		pending := q.Pending()
		f.log.WithField("max_pages", maxPages).Infof("Page budget reached with %d URLs still queued", len(pending))
		for _, u := range pending {
			f.log.WithField("url", u).Debug("Left in queue")
		}
	}

	result.Remaining = q.Len()
	result.Visited = f.store.Count()
	result.Duration = time.Since(start)

	doneLog := f.log.WithFields(logrus.Fields{
		"pages":     len(result.URLs),
		"attempted": len(result.Outcomes),
		"remaining": result.Remaining,
		"duration":  result.Duration.String(),
	})
	if crawlErr != nil {
		doneLog.Warnf("Crawl interrupted: %v", crawlErr)
		return result, crawlErr
	}
	doneLog.Info("Crawl finished")
	return result, nil
}

// visit fetches one URL and classifies it. The returned error is non-nil only
// when ctx ended during the fetch; every other failure is an outcome.
func (f *Frontier) visit(ctx context.Context, item models.WorkItem, taskLog *logrus.Entry) (models.PageOutcome, []string, error) {
	outcome := models.PageOutcome{URL: item.URL, Depth: item.Depth, FetchedAt: time.Now()}

	page, err := f.fetcher.Get(ctx, item.URL)
	if page != nil {
		outcome.FinalURL = page.FinalURL
		outcome.HTTPStatus = page.StatusCode
		outcome.ContentType = page.ContentType
	}
	if err != nil && f.acceptErrorPage(page, err) {
		taskLog.WithField("status_code", page.StatusCode).Info("HTML error page, treating as fetched")
		err = nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, nil, ctxErr
		}
		outcome.Status = models.StatusFailed
		outcome.Reason = err.Error()
		outcome.ErrorType = utils.CategorizeError(err)
		taskLog.WithField("category", outcome.ErrorType).Warnf("Fetch failed: %v", err)
		return outcome, nil, nil
	}

	if !page.IsHTML() {
		notHTML := fmt.Errorf("%w: content type '%s'", utils.ErrNotHTML, page.ContentType)
		outcome.Status = models.StatusSkipped
		outcome.Reason = notHTML.Error()
		outcome.ErrorType = utils.CategorizeError(notHTML)
		taskLog.WithField("content_type", page.ContentType).Info("Skipping non-HTML page")
		return outcome, nil, nil
	}

	outcome.Status = models.StatusSuccess
	if page.FinalURL != "" && page.FinalURL != item.URL {
		taskLog.WithField("final_url", page.FinalURL).Debug("URL redirected")
	}
	taskLog.Info("Page fetched")

	base := page.FinalURL
	if base == "" {
		base = item.URL
	}
	return outcome, ExtractLinks(page.Body, base), nil
}

// acceptErrorPage reports whether a non-retryable status response is kept as
// a fetched page: an HTML body was read and FailOnHTTPError is off
func (f *Frontier) acceptErrorPage(page *fetch.Page, err error) bool {
	if f.opts.FailOnHTTPError || page == nil || !page.IsHTML() {
		return false
	}
	if errors.Is(err, utils.ErrResponseBodyRead) {
		return false
	}
	return errors.Is(err, utils.ErrClientHTTPError) || errors.Is(err, utils.ErrOtherHTTPError)
}

// enqueue pushes the in-scope, unvisited links and returns how many were queued
func (f *Frontier) enqueue(q *queue.URLQueue, links []string, depth int) int {
	queued := 0
	for _, link := range links {
		if !f.filter.InScope(link) {
			continue
		}
		visited, err := f.store.IsVisited(f.key(link))
		if err != nil {
			f.log.WithField("url", link).Warnf("Visited check failed, queueing anyway: %v", err)
		} else if visited {
			continue
		}
		q.Push(models.WorkItem{URL: link, Depth: depth})
		queued++
	}
	return queued
}

func (f *Frontier) record(result *CrawlResult, outcome models.PageOutcome) {
	result.Outcomes = append(result.Outcomes, outcome)
	errorType := outcome.ErrorType
	if errorType == "" {
		errorType = "None"
	}
	f.metrics.PageAttempted(outcome.Status.String(), errorType)
}

func (f *Frontier) key(rawURL string) string {
	if f.opts.CanonicalizeURLs {
		return parse.CanonicalKey(rawURL)
	}
	return rawURL
}
