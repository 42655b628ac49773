package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// Options configures an HTTPFetcher
type Options struct {
	MaxRetries        int           // Retries after the first attempt; 0 = single attempt
	InitialRetryDelay time.Duration // Backoff before the first retry, doubled per retry
	MaxRetryDelay     time.Duration // Backoff cap
	RequestTimeout    time.Duration // Bounds a whole Get (attempts and body read); 0 = none
	MaxBodyBytes      int64         // Body read limit for Get; 0 = unlimited
}

// Page is a fetched response with its body read into memory
type Page struct {
	URL         string // Requested URL
	FinalURL    string // URL after redirects
	StatusCode  int
	ContentType string // Media type without parameters, lowercased
	Body        []byte
	Truncated   bool // Body hit MaxBodyBytes
}

// IsHTML reports whether the page was served as an HTML document
func (p *Page) IsHTML() bool {
	return p.ContentType == "text/html" || p.ContentType == "application/xhtml+xml"
}

// Fetcher retrieves a URL
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*Page, error)
}

// HTTPFetcher makes HTTP requests with retry logic, using an underlying http.Client
type HTTPFetcher struct {
	client *http.Client
	opts   Options
	log    *logrus.Entry
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a new HTTPFetcher
func NewHTTPFetcher(client *http.Client, opts Options, log *logrus.Entry) *HTTPFetcher {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &HTTPFetcher{client: client, opts: opts, log: log}
}

// Get fetches rawURL and reads its body.
// A non-retryable non-2xx response returns both the Page (status, content type
// and body) and an error wrapping ErrClientHTTPError or ErrOtherHTTPError.
// Transport failures and exhausted retries return a nil Page.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) (*Page, error) {
	if f.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrRequestCreation, rawURL, err)
	}

	resp, err := f.FetchWithRetry(ctx, req)
	if resp == nil {
		return nil, err
	}
	defer resp.Body.Close()

	page := &Page{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: mediaType(resp.Header.Get("Content-Type")),
	}
	statusErr := err

	var reader io.Reader = resp.Body
	if f.opts.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		readErr := fmt.Errorf("%w: %s: %w", utils.ErrResponseBodyRead, rawURL, err)
		return page, errors.Join(statusErr, readErr)
	}
	if f.opts.MaxBodyBytes > 0 && int64(len(body)) > f.opts.MaxBodyBytes {
		body = body[:f.opts.MaxBodyBytes]
		page.Truncated = true
		f.log.WithFields(logrus.Fields{"url": rawURL, "limit": f.opts.MaxBodyBytes}).Warn("Response body truncated")
	}
	page.Body = body
	return page, statusErr
}

// FetchWithRetry performs req under ctx, retrying transient network errors and
// 5xx / 429 statuses with exponential backoff and jitter.
// On 2xx the response is returned with a nil error. Other 4xx and unexpected
// statuses are returned with both the response and an error; the caller must
// close the body in either case.
func (f *HTTPFetcher) FetchWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	reqLog := f.log.WithField("url", req.URL.String())
	maxRetries := f.opts.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("%w before retry, last error: %w", err, lastErr)
			}
			return nil, fmt.Errorf("context cancelled before first attempt: %w", err)
		}

		if attempt > 0 {
			delay := f.backoff(attempt)
			reqLog.WithFields(logrus.Fields{"attempt": attempt, "max_retries": maxRetries, "delay": delay}).Warn("Retrying request...")

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("%w during retry delay, last error: %w", ctx.Err(), lastErr)
			}
		}

		resp, err := f.client.Do(req.WithContext(ctx))
		if err != nil {
			if resp != nil {
				drainAndClose(resp)
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				reqLog.Debugf("Request cancelled or timed out: %v", err)
				return nil, err
			}
			reqLog.WithField("attempt", attempt).Warnf("Network error: %v", err)
			lastErr = err
			continue
		}

		statusCode := resp.StatusCode
		resLog := reqLog.WithFields(logrus.Fields{"status_code": statusCode, "attempt": attempt})

		switch {
		case statusCode >= 200 && statusCode < 300:
			resLog.Debug("Successfully fetched")
			return resp, nil

		case statusCode >= 500:
			resLog.Warn("Server error")
			lastErr = fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, statusCode, resp.Status)
			drainAndClose(resp)

		case statusCode == http.StatusTooManyRequests:
			resLog.Warn("Received 429 Too Many Requests")
			lastErr = fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, resp.Status)
			drainAndClose(resp)

		case statusCode >= 400:
			resLog.Debug("Client error (4xx), not retrying")
			return resp, fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, resp.Status)

		default:
			resLog.Debugf("Non-retryable/unexpected status: %d", statusCode)
			return resp, fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, statusCode, resp.Status)
		}
	}

	reqLog.Debugf("All %d attempts failed. Last error: %v", maxRetries+1, lastErr)
	return nil, fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
}

// backoff returns initial * 2^(attempt-1) capped at the max delay, with +/-10% jitter
func (f *HTTPFetcher) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(f.opts.InitialRetryDelay) * math.Pow(2, float64(attempt-1)))
	if delay <= 0 || (f.opts.MaxRetryDelay > 0 && delay > f.opts.MaxRetryDelay) {
		delay = f.opts.MaxRetryDelay
	}
	if spread := int64(delay) / 5; spread > 0 {
		delay += time.Duration(rand.Int63n(spread)) - delay/10
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

func drainAndClose(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// mediaType strips parameters from a Content-Type header value
func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		mt, _, _ = strings.Cut(header, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
