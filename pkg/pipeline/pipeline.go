package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Sriram-PR/sitemap-scraper/pkg/config"
	"github.com/Sriram-PR/sitemap-scraper/pkg/fetch"
	"github.com/Sriram-PR/sitemap-scraper/pkg/metrics"
	"github.com/Sriram-PR/sitemap-scraper/pkg/models"
	"github.com/Sriram-PR/sitemap-scraper/pkg/render"
	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// Options tunes a Pipeline. Zero values fall back to the config defaults.
type Options struct {
	RenderTimeout           time.Duration
	MaxRequestsPerHost      int // 0 = batch size
	SemaphoreAcquireTimeout time.Duration
	MaxFilenameLength       int
	FileExtension           string

	EnableOutputMapping   bool
	OutputMappingFilename string
	EnableMetadataYAML    bool
	MetadataYAMLFilename  string

	// Recorded in the metadata file only
	SitemapSource string
	RendererName  string
}

// OptionsFromConfig maps a validated PipelineConfig onto Options
func OptionsFromConfig(cfg config.PipelineConfig, semaphoreTimeout time.Duration) Options {
	return Options{
		RenderTimeout:           cfg.RenderTimeout,
		MaxRequestsPerHost:      cfg.EffectiveMaxRequestsPerHost(),
		SemaphoreAcquireTimeout: semaphoreTimeout,
		MaxFilenameLength:       cfg.MaxFilenameLength,
		FileExtension:           cfg.FileExtension,
		EnableOutputMapping:     cfg.EnableOutputMapping,
		OutputMappingFilename:   cfg.OutputMappingFilename,
		EnableMetadataYAML:      cfg.EnableMetadataYAML,
		MetadataYAMLFilename:    cfg.MetadataYAMLFilename,
		SitemapSource:           cfg.SitemapPath,
		RendererName:            cfg.Renderer,
	}
}

// Report summarizes a pipeline run. Outcomes is index-aligned with the input URLs.
type Report struct {
	Outcomes    []models.FetchOutcome
	Batches     int // Batches started
	Saved       int
	Failed      int
	Skipped     int
	Collisions  int
	Hosts       int // Distinct hosts rendered
	PeakPerHost int // Most renders in flight at once against one host
	Start       time.Time
	End         time.Time
}

// Pipeline renders a URL list to one Markdown file per URL, in batches
type Pipeline struct {
	renderer render.Renderer
	opts     Options
	metrics  *metrics.Metrics
	log      *logrus.Entry
}

// New creates a Pipeline around renderer. The renderer is started and closed by Run.
func New(renderer render.Renderer, opts Options, m *metrics.Metrics, log *logrus.Entry) *Pipeline {
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = config.DefaultRenderTimeout
	}
	if opts.MaxFilenameLength <= 0 {
		opts.MaxFilenameLength = utils.DefaultMaxFilenameLength
	}
	if opts.FileExtension == "" {
		opts.FileExtension = config.DefaultFileExtension
	}
	if opts.OutputMappingFilename == "" {
		opts.OutputMappingFilename = config.DefaultMappingFilename
	}
	if opts.MetadataYAMLFilename == "" {
		opts.MetadataYAMLFilename = config.DefaultMetadataYAML
	}
	return &Pipeline{
		renderer: renderer,
		opts:     opts,
		metrics:  m,
		log:      log.WithField("component", "pipeline"),
	}
}

// Run renders urls into outputDir, batchSize at a time. Every task of a batch
// runs concurrently and the next batch starts only once the whole batch is
// done. Per-URL failures are recorded in the Report and never stop the run.
// An error is returned when outputDir cannot be created or the renderer fails
// to start (no report), or when ctx ends (partial report, remaining URLs skipped).
func (p *Pipeline) Run(ctx context.Context, urls []string, outputDir string, batchSize int) (*Report, error) {
	report := &Report{Start: time.Now(), Outcomes: make([]models.FetchOutcome, len(urls))}
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	runLog := p.log.WithFields(logrus.Fields{"output_dir": outputDir, "urls": len(urls), "batch_size": batchSize})

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating output directory '%s': %w", utils.ErrFilesystem, outputDir, err)
	}

	if err := p.renderer.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting renderer: %w", err)
	}
	defer func() {
		if err := p.renderer.Close(); err != nil {
			runLog.Warnf("Failed to close renderer: %v", err)
		}
	}()

	perHost := p.opts.MaxRequestsPerHost
	if perHost <= 0 || perHost > batchSize {
		perHost = batchSize
	}
	run := &runState{
		pipeline:  p,
		outputDir: outputDir,
		report:    report,
		hosts:     fetch.NewHostSemaphorePool(perHost, p.opts.SemaphoreAcquireTimeout, p.log),
		files:     make(map[string]int),
	}

	runLog.Info("Pipeline starting")
	var runErr error
	for start := 0; start < len(urls); start += batchSize {
		if err := ctx.Err(); err != nil {
			runErr = err
			markSkipped(report, urls, start, err)
			break
		}

		end := min(start+batchSize, len(urls))
		report.Batches++
		batch := report.Batches
		batchLog := runLog.WithFields(logrus.Fields{"batch": batch, "first": start, "size": end - start})
		batchLog.Debug("Batch starting")

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				run.task(ctx, i, urls[i], batch)
				return nil
			})
		}
		g.Wait()
		p.metrics.BatchCompleted()
		batchLog.Infof("Batch complete (%d/%d URLs processed)", end, len(urls))
	}
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}

	report.End = time.Now()
	for _, o := range report.Outcomes {
		switch o.Status {
		case models.StatusSuccess:
			report.Saved++
		case models.StatusFailed:
			report.Failed++
		case models.StatusSkipped:
			report.Skipped++
		}
	}
	report.Collisions = run.collisions
	report.Hosts = run.hosts.Len()
	report.PeakPerHost = run.hosts.PeakInFlight()

	if p.opts.EnableOutputMapping {
		if err := p.writeMapping(outputDir, report.Outcomes); err != nil {
			runLog.Errorf("Failed to write URL mapping: %v", err)
		}
	}
	if p.opts.EnableMetadataYAML {
		if err := p.writeMetadata(outputDir, batchSize, report); err != nil {
			runLog.Errorf("Failed to write run metadata: %v", err)
		}
	}

	doneLog := runLog.WithFields(logrus.Fields{
		"saved":      report.Saved,
		"failed":     report.Failed,
		"skipped":    report.Skipped,
		"collisions": report.Collisions,
		"duration":   report.End.Sub(report.Start).String(),
	})
	if runErr != nil {
		doneLog.Warnf("Pipeline interrupted: %v", runErr)
		return report, runErr
	}
	doneLog.Info("Pipeline finished")
	return report, nil
}

// runState is the state shared by the tasks of one Run
type runState struct {
	pipeline  *Pipeline
	outputDir string
	report    *Report // Outcomes[i] is written only by task i
	hosts     *fetch.HostSemaphorePool

	filesMu    sync.Mutex
	files      map[string]int // filename -> index of the first URL that claimed it
	collisions int
}

func (r *runState) task(ctx context.Context, index int, pageURL string, batch int) {
	p := r.pipeline
	start := time.Now()
	outcome := &r.report.Outcomes[index]
	*outcome = models.FetchOutcome{URL: pageURL, Batch: batch}
	taskLog := p.log.WithFields(logrus.Fields{"url": pageURL, "batch": batch})

	p.metrics.TaskStarted()
	defer func() {
		p.metrics.TaskDone()
		outcome.Duration = time.Since(start)
		errorType := outcome.ErrorType
		if errorType == "" {
			errorType = "None"
		}
		p.metrics.TaskFinished(outcome.Status.String(), errorType)
	}()

	fail := func(err error) {
		if ctx.Err() != nil {
			outcome.Status = models.StatusSkipped
		} else {
			outcome.Status = models.StatusFailed
		}
		outcome.ErrorType = utils.CategorizeError(err)
		outcome.Error = err.Error()
		taskLog.WithField("category", outcome.ErrorType).Errorf("Task %s: %v", outcome.Status, err)
	}

	host := fetch.HostKey(pageURL)
	if err := r.hosts.Acquire(ctx, host); err != nil {
		fail(err)
		return
	}
	defer r.hosts.Release(host)

	renderCtx, cancel := context.WithTimeout(ctx, p.opts.RenderTimeout)
	renderStart := time.Now()
	markdown, err := p.renderer.Render(renderCtx, pageURL)
	cancel()
	p.metrics.ObserveRender(time.Since(renderStart))
	if err != nil {
		fail(err)
		return
	}

	filename := utils.URLFilename(pageURL, p.opts.MaxFilenameLength, p.opts.FileExtension)
	path := filepath.Join(r.outputDir, filename)
	outcome.Filename = filename
	outcome.Path = path

	if err := r.save(index, pageURL, path, filename, markdown, taskLog); err != nil {
		fail(err)
		return
	}

	outcome.Status = models.StatusSuccess
	outcome.Bytes = len(markdown)
	outcome.ContentHash = utils.CalculateStringSHA256(markdown)
	taskLog.WithFields(logrus.Fields{"file": filename, "bytes": outcome.Bytes}).Info("Saved page")
}

// save claims filename for index and writes the document. Claim and write happen
// under one lock so that the URL registered last is also the one written last.
func (r *runState) save(index int, pageURL, path, filename, markdown string, taskLog *logrus.Entry) error {
	r.filesMu.Lock()
	defer r.filesMu.Unlock()

	if first, claimed := r.files[filename]; claimed && r.report.Outcomes[first].URL != pageURL {
		r.collisions++
		r.report.Outcomes[index].Collision = true
		r.report.Outcomes[first].Collision = true
		r.pipeline.metrics.FilenameCollision()
		taskLog.WithFields(logrus.Fields{"file": filename, "previous_url": r.report.Outcomes[first].URL}).
			Warn("Filename collision, overwriting previous document")
	} else if !claimed {
		r.files[filename] = index
	}

	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("%w: writing '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}

// markSkipped records every URL from start on as skipped because ctx ended
func markSkipped(report *Report, urls []string, start int, cause error) {
	for i := start; i < len(urls); i++ {
		report.Outcomes[i] = models.FetchOutcome{
			URL:       urls[i],
			Status:    models.StatusSkipped,
			ErrorType: utils.CategorizeError(cause),
			Error:     cause.Error(),
		}
	}
}
