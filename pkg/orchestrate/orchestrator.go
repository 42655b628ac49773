package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-scraper/pkg/config"
	"github.com/Sriram-PR/sitemap-scraper/pkg/crawler"
	"github.com/Sriram-PR/sitemap-scraper/pkg/fetch"
	"github.com/Sriram-PR/sitemap-scraper/pkg/metrics"
	"github.com/Sriram-PR/sitemap-scraper/pkg/models"
	"github.com/Sriram-PR/sitemap-scraper/pkg/pipeline"
	"github.com/Sriram-PR/sitemap-scraper/pkg/render"
	"github.com/Sriram-PR/sitemap-scraper/pkg/sitemap"
	"github.com/Sriram-PR/sitemap-scraper/pkg/storage"
	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// SitemapResult is the outcome of GenerateSitemap
type SitemapResult struct {
	Crawl       *crawler.CrawlResult
	SitemapPath string // Empty when the sitemap could not be written
	Duration    time.Duration
}

// Orchestrator wires a validated AppConfig into the two entry points:
// crawl -> sitemap file, and sitemap -> rendered Markdown files
type Orchestrator struct {
	appCfg  *config.AppConfig
	metrics *metrics.Metrics // nil = no metrics
	log     *logrus.Entry

	// newRenderer builds the page renderer for FetchPages; replaced in tests
	newRenderer func(cfg config.PipelineConfig) (render.Renderer, error)
}

// NewOrchestrator creates an orchestrator. appCfg must already be validated:
// AppConfig.Validate for both entry points, plus CrawlConfig.Validate for GenerateSitemap.
func NewOrchestrator(appCfg *config.AppConfig, m *metrics.Metrics, log *logrus.Entry) *Orchestrator {
	o := &Orchestrator{appCfg: appCfg, metrics: m, log: log}
	o.newRenderer = o.buildRenderer
	return o
}

// GenerateSitemap crawls from crawl.start_url and writes crawl.sitemap_path.
// The sitemap is written even when ctx ends mid-crawl, then ctx.Err() is returned.
func (o *Orchestrator) GenerateSitemap(ctx context.Context) (*SitemapResult, error) {
	start := time.Now()
	cfg := o.appCfg.Crawl
	runLog := o.log.WithFields(logrus.Fields{"start_url": cfg.StartURL, "domain": cfg.AllowedDomain})

	disallowed, err := utils.CompileRegexPatterns(cfg.DisallowedPathPatterns)
	if err != nil {
		return nil, fmt.Errorf("compiling disallowed patterns: %w", err)
	}
	if len(disallowed) > 0 {
		runLog.Infof("Compiled %d disallowed path patterns.", len(disallowed))
	}

	store, err := o.newVisitedStore(cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			runLog.Warnf("Failed to close visited store: %v", closeErr)
		}
	}()

	fetcher := o.newFetcher(cfg.RequestTimeout, cfg.MaxPageSizeBytes)
	delay := fetch.NewPolitenessDelay(cfg.MinDelay, cfg.MaxDelay, o.log.WithField("component", "politeness"))
	filter := crawler.NewScopeFilter(cfg.AllowedDomain, cfg.EffectiveIgnoredExtensions(), cfg.EffectiveIgnoredPatterns(), disallowed)
	frontier := crawler.NewFrontier(fetcher, delay, store, filter, o.metrics, crawler.Options{
		MaxDepth:         cfg.MaxDepth,
		CanonicalizeURLs: cfg.CanonicalizeURLs,
		FailOnHTTPError:  cfg.FailOnHTTPError,
	}, o.log)

	crawlResult, crawlErr := frontier.Crawl(ctx, cfg.StartURL, cfg.MaxPages)
	if crawlResult == nil {
		return nil, crawlErr
	}
	result := &SitemapResult{Crawl: crawlResult}

	if len(crawlResult.URLs) == 0 {
		runLog.Warn("No pages were fetched successfully; the sitemap will be empty")
	}
	writer := sitemap.NewWriter(cfg.ChangeFreq, cfg.Priority, o.log)
	if err := writer.Write(crawlResult.URLs, cfg.SitemapPath); err != nil {
		result.Duration = time.Since(start)
		return result, errors.Join(err, crawlErr)
	}
	result.SitemapPath = cfg.SitemapPath
	result.Duration = time.Since(start)

	logCrawlSummary(runLog, result)
	return result, crawlErr
}

// FetchPages reads pipeline.sitemap_path and renders every URL into
// pipeline.output_dir. An unreadable or empty sitemap is logged and yields an
// empty report with a nil error.
func (o *Orchestrator) FetchPages(ctx context.Context) (*pipeline.Report, error) {
	cfg := o.appCfg.Pipeline
	runLog := o.log.WithFields(logrus.Fields{"sitemap": cfg.SitemapPath, "output_dir": cfg.OutputDir})

	reader := sitemap.NewReader(o.newFetcher(cfg.RenderTimeout, 0), o.log)
	urls, err := reader.Read(ctx, cfg.SitemapPath)
	if err != nil {
		runLog.WithField("category", utils.CategorizeError(err)).Errorf("Could not read sitemap: %v", err)
	}
	if len(urls) == 0 {
		runLog.Warn("No URLs to fetch")
		now := time.Now()
		return &pipeline.Report{Outcomes: []models.FetchOutcome{}, Start: now, End: now}, nil
	}
	runLog.Infof("Loaded %d URLs", len(urls))

	renderer, err := o.newRenderer(cfg)
	if err != nil {
		return nil, err
	}
	p := pipeline.New(renderer, pipeline.OptionsFromConfig(cfg, o.appCfg.SemaphoreAcquireTimeout), o.metrics, o.log)

	report, err := p.Run(ctx, urls, cfg.OutputDir, cfg.BatchSize)
	if report != nil {
		logFetchSummary(runLog, report)
	}
	return report, err
}

// buildRenderer returns the renderer selected by pipeline.renderer
func (o *Orchestrator) buildRenderer(cfg config.PipelineConfig) (render.Renderer, error) {
	converter := render.NewConverter(cfg.ContentSelector, o.log.WithField("component", "converter"))
	switch cfg.Renderer {
	case config.RendererHTTP:
		return render.NewHTTPRenderer(o.newFetcher(cfg.RenderTimeout, 0), converter, o.log.WithField("component", "http_renderer")), nil
	case config.RendererChrome, "":
		return render.NewChromeRenderer(render.ChromeOptions{
			ExecPath:  cfg.ChromePath,
			UserAgent: o.appCfg.DefaultUserAgent,
		}, converter, o.log.WithField("component", "chrome_renderer")), nil
	}
	return nil, fmt.Errorf("%w: unknown renderer '%s'", utils.ErrConfigValidation, cfg.Renderer)
}

func (o *Orchestrator) newFetcher(requestTimeout time.Duration, maxBody int64) *fetch.HTTPFetcher {
	client := fetch.NewClient(o.appCfg.HTTPClientSettings, o.appCfg.DefaultUserAgent, o.log)
	return fetch.NewHTTPFetcher(client, fetch.Options{
		MaxRetries:        o.appCfg.MaxRetries,
		InitialRetryDelay: o.appCfg.InitialRetryDelay,
		MaxRetryDelay:     o.appCfg.MaxRetryDelay,
		RequestTimeout:    requestTimeout,
		MaxBodyBytes:      maxBody,
	}, o.log.WithField("component", "fetcher"))
}

func (o *Orchestrator) newVisitedStore(cfg config.CrawlConfig) (storage.VisitedStore, error) {
	if cfg.VisitedStore != config.VisitedStoreBadger {
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewBadgerStore(cfg.StateDir, o.log.WithField("component", "visited_store"))
	if err != nil {
		return nil, fmt.Errorf("opening visited store: %w", err)
	}
	return store, nil
}

func logCrawlSummary(log *logrus.Entry, result *SitemapResult) {
	counts := make(map[string]int)
	for _, o := range result.Crawl.Outcomes {
		counts[o.Status.String()]++
	}
	log.Info("============================================")
	log.Infof("Sitemap generation completed in %v", result.Duration)
	log.Infof("  URLs in sitemap: %d (%s)", len(result.Crawl.URLs), result.SitemapPath)
	log.Infof("  Attempted: %d (success %d, skipped %d, failed %d)",
		len(result.Crawl.Outcomes), counts["success"], counts["skipped"], counts["failed"])
	log.Infof("  Left in queue: %d", result.Crawl.Remaining)
	log.Info("============================================")
}

func logFetchSummary(log *logrus.Entry, report *pipeline.Report) {
	log.Info("============================================")
	log.Infof("Fetch completed in %v (%d batches)", report.End.Sub(report.Start), report.Batches)
	log.Infof("  Saved: %d, Failed: %d, Skipped: %d, Collisions: %d",
		report.Saved, report.Failed, report.Skipped, report.Collisions)
	log.Infof("  Hosts: %d (peak %d concurrent renders per host)", report.Hosts, report.PeakPerHost)
	for _, o := range report.Outcomes {
		if o.Status == models.StatusFailed {
			log.Infof("    %s: %s", o.URL, o.ErrorType)
		}
	}
	log.Info("============================================")
}
