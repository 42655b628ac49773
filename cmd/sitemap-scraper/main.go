package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-scraper/pkg/config"
	"github.com/Sriram-PR/sitemap-scraper/pkg/metrics"
	"github.com/Sriram-PR/sitemap-scraper/pkg/orchestrate"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "sitemap":
		runSitemap(os.Args[2:])
	case "fetch":
		runFetch(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("sitemap-scraper %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `sitemap-scraper - Sitemap generator and page-to-Markdown fetcher

Usage:
  sitemap-scraper <command> [options]

Commands:
  sitemap     Crawl from a seed URL and write sitemap.xml
  fetch       Render every URL of a sitemap into a Markdown file
  validate    Validate configuration file
  version     Show version info

Run 'sitemap-scraper <command> -h' for command-specific help.`)
}

// loadConfig loads the config file. An empty path yields an empty config,
// every field of which has a default.
func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		return &config.AppConfig{}, nil
	}
	return config.Load(path)
}

// sitemapOverrides are command-line values for the sitemap command; zero values keep the config's
type sitemapOverrides struct {
	StartURL string
	MaxPages int
	Out      string
}

func (o sitemapOverrides) apply(cfg *config.AppConfig) {
	if o.StartURL != "" {
		cfg.Crawl.StartURL = o.StartURL
	}
	if o.MaxPages > 0 {
		cfg.Crawl.MaxPages = o.MaxPages
	}
	if o.Out != "" {
		cfg.Crawl.SitemapPath = o.Out
	}
}

// fetchOverrides are command-line values for the fetch command
type fetchOverrides struct {
	Sitemap   string
	Out       string
	BatchSize int
	Renderer  string
}

func (o fetchOverrides) apply(cfg *config.AppConfig) {
	if o.Sitemap != "" {
		cfg.Pipeline.SitemapPath = o.Sitemap
	}
	if o.Out != "" {
		cfg.Pipeline.OutputDir = o.Out
	}
	if o.BatchSize > 0 {
		cfg.Pipeline.BatchSize = o.BatchSize
	}
	if o.Renderer != "" {
		cfg.Pipeline.Renderer = o.Renderer
	}
}

// prepareConfig loads the config, applies overrides and validates the sections
// the command needs. Warnings are returned for the caller to log.
func prepareConfig(configPath string, apply func(*config.AppConfig), withCrawl bool) (*config.AppConfig, []string, error) {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	apply(appCfg)

	warnings, err := appCfg.Validate()
	if err != nil {
		return nil, warnings, err
	}
	if withCrawl {
		crawlWarnings, err := appCfg.Crawl.Validate()
		warnings = append(warnings, crawlWarnings...)
		if err != nil {
			return nil, warnings, err
		}
	}
	return appCfg, warnings, nil
}

// runSitemap handles the sitemap subcommand
func runSitemap(args []string) {
	fs := flag.NewFlagSet("sitemap", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (optional)")
	startURL := fs.String("url", "", "Seed URL to crawl from (overrides crawl.start_url)")
	maxPages := fs.Int("max-pages", 0, "Maximum pages to fetch (overrides crawl.max_pages)")
	out := fs.String("out", "", "Sitemap output path (overrides crawl.sitemap_path)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	metricsAddr := fs.String("metrics-addr", "", "Prometheus metrics address, e.g. localhost:9090 (disabled by default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sitemap-scraper sitemap [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  sitemap-scraper sitemap -url https://docs.example.com/\n")
		fmt.Fprintf(os.Stderr, "  sitemap-scraper sitemap -config config.yaml -max-pages 200 -out out/sitemap.xml\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	overrides := sitemapOverrides{StartURL: *startURL, MaxPages: *maxPages, Out: *out}
	appCfg := loadAndValidateConfig(*configFile, overrides.apply, true, log)
	log.Infof("Crawl Config: StartURL:%s, Domain:%s, MaxPages:%d, MaxDepth:%d, Delay:%v-%v, Store:%s",
		appCfg.Crawl.StartURL, appCfg.Crawl.AllowedDomain, appCfg.Crawl.MaxPages, appCfg.Crawl.MaxDepth,
		appCfg.Crawl.MinDelay, appCfg.Crawl.MaxDelay, appCfg.Crawl.VisitedStore)

	m := startMetrics(*metricsAddr, log)
	ctx, stop := setupSignalContext(log)
	defer stop()

	orch := orchestrate.NewOrchestrator(appCfg, m, log.WithField("component", "sitemap"))
	result, err := orch.GenerateSitemap(ctx)
	if result != nil && result.SitemapPath != "" {
		log.Infof("Sitemap written to %s (%d URLs)", result.SitemapPath, len(result.Crawl.URLs))
	}
	stop()
	os.Exit(exitCode(err, "Sitemap generation", log))
}

// runFetch handles the fetch subcommand
func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (optional)")
	sitemapSrc := fs.String("sitemap", "", "Sitemap path or http(s) URL (overrides pipeline.sitemap_path)")
	out := fs.String("out", "", "Output directory (overrides pipeline.output_dir)")
	batchSize := fs.Int("batch-size", 0, "Pages rendered concurrently per batch (overrides pipeline.batch_size)")
	renderer := fs.String("renderer", "", "Renderer: chrome or http (overrides pipeline.renderer)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	metricsAddr := fs.String("metrics-addr", "", "Prometheus metrics address, e.g. localhost:9090 (disabled by default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sitemap-scraper fetch [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  sitemap-scraper fetch -sitemap sitemap.xml -out crawled_pages\n")
		fmt.Fprintf(os.Stderr, "  sitemap-scraper fetch -sitemap https://example.com/sitemap.xml -renderer http -batch-size 10\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	overrides := fetchOverrides{Sitemap: *sitemapSrc, Out: *out, BatchSize: *batchSize, Renderer: *renderer}
	appCfg := loadAndValidateConfig(*configFile, overrides.apply, false, log)
	log.Infof("Pipeline Config: Sitemap:%s, OutputDir:%s, BatchSize:%d, Renderer:%s, RenderTimeout:%v, Selector:'%s'",
		appCfg.Pipeline.SitemapPath, appCfg.Pipeline.OutputDir, appCfg.Pipeline.BatchSize,
		appCfg.Pipeline.Renderer, appCfg.Pipeline.RenderTimeout, appCfg.Pipeline.ContentSelector)

	m := startMetrics(*metricsAddr, log)
	ctx, stop := setupSignalContext(log)
	defer stop()

	orch := orchestrate.NewOrchestrator(appCfg, m, log.WithField("component", "fetch"))
	_, err := orch.FetchPages(ctx)
	stop()
	os.Exit(exitCode(err, "Fetch", log))
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sitemap-scraper validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: [pipeline] %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "OK: [pipeline]")

	if appCfg.Crawl.StartURL == "" {
		fmt.Fprintln(stdout, "SKIP: [crawl] no start_url; pass -url to the sitemap command")
	} else {
		crawlWarnings, err := appCfg.Crawl.Validate()
		for _, w := range crawlWarnings {
			fmt.Fprintf(stdout, "WARN: [crawl] %s\n", w)
		}
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: [crawl] %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "OK: [crawl]")
	}

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
		log.Debugf("Setting log level to: %s", level.String())
	}

	return log
}

// loadAndValidateConfig is prepareConfig that logs warnings and exits on error.
func loadAndValidateConfig(configFile string, apply func(*config.AppConfig), withCrawl bool, log *logrus.Logger) *config.AppConfig {
	if configFile != "" {
		log.Infof("Loading configuration from %s", configFile)
	}
	appCfg, warnings, err := prepareConfig(configFile, apply, withCrawl)
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	return appCfg
}

// startMetrics registers collectors and serves them if addr is non-empty.
// Returns nil when metrics are disabled.
func startMetrics(addr string, log *logrus.Logger) *metrics.Metrics {
	if addr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	go func() {
		log.Infof("Serving metrics at http://%s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("metrics server error: %v", err)
		}
	}()
	return m
}

// setupSignalContext returns a context cancelled on SIGINT/SIGTERM.
// A second signal, or a stalled shutdown, forces exit.
func setupSignalContext(log *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("PANIC in signal handler: %v", r)
			}
		}()
		select {
		case sig := <-sigChan:
			log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		case <-done:
		}
	}()

	var stopped bool
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		signal.Stop(sigChan)
		close(done)
		cancel()
	}
	return ctx, stop
}

// exitCode maps a command's error to a process exit code. Interruption
// by signal exits cleanly, since partial output has already been written.
func exitCode(err error, what string, log *logrus.Logger) int {
	switch {
	case err == nil:
		log.Infof("%s completed successfully.", what)
		return 0
	case errors.Is(err, context.Canceled):
		log.Warnf("%s cancelled gracefully.", what)
		return 0
	case errors.Is(err, context.DeadlineExceeded):
		log.Errorf("%s timed out.", what)
		return 1
	default:
		log.Errorf("%s finished with error: %v", what, err)
		return 1
	}
}
