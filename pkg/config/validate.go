package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

const (
	DefaultUserAgent       = "sitemap-scraper/1.0"
	DefaultMaxPages        = 1000
	DefaultMinDelay        = 500 * time.Millisecond
	DefaultMaxDelay        = 1500 * time.Millisecond
	DefaultRequestTimeout  = 10 * time.Second
	DefaultMaxPageSize     = 10 * 1024 * 1024
	DefaultSitemapPath     = "sitemap.xml"
	DefaultChangeFreq      = "monthly"
	DefaultPriority        = "0.8"
	DefaultOutputDir       = "crawled_pages"
	DefaultBatchSize       = 5
	DefaultRenderTimeout   = 60 * time.Second
	DefaultContentSelector = "body"
	DefaultFileExtension   = ".md"
	DefaultMappingFilename = "url_to_file_map.tsv"
	DefaultMetadataYAML    = "metadata.yaml"
)

var validChangeFreqs = map[string]bool{
	"always": true, "hourly": true, "daily": true, "weekly": true,
	"monthly": true, "yearly": true, "never": true,
}

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
// The crawl section is validated separately by CrawlConfig.Validate, since its
// start URL may come from the command line.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.DefaultUserAgent == "" {
		c.DefaultUserAgent = DefaultUserAgent
	}

	// MaxRetries; 0 means a single attempt
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.InitialRetryDelay <= 0 {
		c.InitialRetryDelay = 1 * time.Second
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 30 * time.Second
	}
	if c.InitialRetryDelay > c.MaxRetryDelay {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	if c.SemaphoreAcquireTimeout <= 0 {
		c.SemaphoreAcquireTimeout = 30 * time.Second
	}

	c.validateHTTPClientSettings()

	pipelineWarnings, err := c.Pipeline.Validate()
	warnings = append(warnings, pipelineWarnings...)
	if err != nil {
		return warnings, err
	}

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

// Validate checks CrawlConfig fields and applies defaults.
// A missing or non-http(s) start URL is fatal, as are bad regexes and sitemap fields.
func (c *CrawlConfig) Validate() (warnings []string, err error) {
	if c.StartURL == "" {
		return nil, fmt.Errorf("%w: crawl needs start_url", utils.ErrConfigValidation)
	}
	u, parseErr := url.Parse(c.StartURL)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: invalid start_url '%s': %v", utils.ErrConfigValidation, c.StartURL, parseErr)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: start_url '%s' must be an absolute http(s) URL", utils.ErrConfigValidation, c.StartURL)
	}

	if c.AllowedDomain == "" {
		c.AllowedDomain = u.Host
	} else if c.AllowedDomain != u.Host {
		warnings = append(warnings, fmt.Sprintf(
			"allowed_domain '%s' differs from start_url host '%s'; the start page itself will still be fetched",
			c.AllowedDomain, u.Host))
	}

	if c.MaxPages <= 0 {
		warnings = append(warnings, fmt.Sprintf("max_pages should be > 0, defaulting to %d", DefaultMaxPages))
		c.MaxPages = DefaultMaxPages
	}

	if c.MaxDepth < 0 {
		warnings = append(warnings, "max_depth cannot be negative, setting to 0 (unlimited)")
		c.MaxDepth = 0
	}

	// Delay window; zero bounds mean unset, both negative are clamped
	if c.MinDelay < 0 || c.MaxDelay < 0 {
		warnings = append(warnings, "min_delay/max_delay cannot be negative, using defaults")
		c.MinDelay, c.MaxDelay = 0, 0
	}
	if c.MinDelay == 0 && c.MaxDelay == 0 {
		c.MinDelay, c.MaxDelay = DefaultMinDelay, DefaultMaxDelay
	}
	if c.MinDelay > c.MaxDelay {
		warnings = append(warnings, fmt.Sprintf(
			"min_delay (%v) > max_delay (%v), using min_delay for both", c.MinDelay, c.MaxDelay))
		c.MaxDelay = c.MinDelay
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.MaxPageSizeBytes <= 0 {
		c.MaxPageSizeBytes = DefaultMaxPageSize
	}

	if _, regexErr := utils.CompileRegexPatterns(c.DisallowedPathPatterns); regexErr != nil {
		return warnings, regexErr
	}

	switch c.VisitedStore {
	case "":
		c.VisitedStore = VisitedStoreMemory
	case VisitedStoreMemory, VisitedStoreBadger:
	default:
		return warnings, fmt.Errorf("%w: unknown visited_store '%s' (want %s or %s)",
			utils.ErrConfigValidation, c.VisitedStore, VisitedStoreMemory, VisitedStoreBadger)
	}
	if c.StateDir != "" && c.VisitedStore != VisitedStoreBadger {
		warnings = append(warnings, "state_dir is only used by the badger visited_store, ignoring")
	}

	if c.SitemapPath == "" {
		c.SitemapPath = DefaultSitemapPath
	}

	if c.ChangeFreq == "" {
		c.ChangeFreq = DefaultChangeFreq
	}
	c.ChangeFreq = strings.ToLower(c.ChangeFreq)
	if !validChangeFreqs[c.ChangeFreq] {
		return warnings, fmt.Errorf("%w: invalid changefreq '%s'", utils.ErrConfigValidation, c.ChangeFreq)
	}

	if c.Priority == "" {
		c.Priority = DefaultPriority
	}
	p, pErr := strconv.ParseFloat(c.Priority, 64)
	if pErr != nil || p < 0 || p > 1 {
		return warnings, fmt.Errorf("%w: priority '%s' must be a number between 0.0 and 1.0",
			utils.ErrConfigValidation, c.Priority)
	}

	return warnings, nil
}

// Validate checks PipelineConfig fields and applies defaults.
// Only an unknown renderer is fatal.
func (c *PipelineConfig) Validate() (warnings []string, err error) {
	if c.SitemapPath == "" {
		c.SitemapPath = DefaultSitemapPath
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}

	if c.BatchSize < 0 {
		warnings = append(warnings, fmt.Sprintf("batch_size cannot be negative, defaulting to %d", DefaultBatchSize))
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}

	switch strings.ToLower(c.Renderer) {
	case "":
		c.Renderer = RendererChrome
	case RendererChrome, RendererHTTP:
		c.Renderer = strings.ToLower(c.Renderer)
	default:
		return warnings, fmt.Errorf("%w: unknown renderer '%s' (want %s or %s)",
			utils.ErrConfigValidation, c.Renderer, RendererChrome, RendererHTTP)
	}
	if c.ChromePath != "" && c.Renderer != RendererChrome {
		warnings = append(warnings, "chrome_path is set but renderer is not chrome, ignoring")
	}

	if c.RenderTimeout <= 0 {
		c.RenderTimeout = DefaultRenderTimeout
	}
	if c.ContentSelector == "" {
		c.ContentSelector = DefaultContentSelector
	}
	if c.MaxFilenameLength <= 0 {
		c.MaxFilenameLength = utils.DefaultMaxFilenameLength
	}
	if c.FileExtension == "" {
		c.FileExtension = DefaultFileExtension
	}

	if c.MaxRequestsPerHost < 0 {
		warnings = append(warnings, "max_requests_per_host cannot be negative, using batch_size")
		c.MaxRequestsPerHost = 0
	}
	if c.MaxRequestsPerHost > c.BatchSize {
		warnings = append(warnings, fmt.Sprintf(
			"max_requests_per_host (%d) exceeds batch_size (%d); batch_size remains the effective limit",
			c.MaxRequestsPerHost, c.BatchSize))
	}

	if c.EnableOutputMapping && c.OutputMappingFilename == "" {
		warnings = append(warnings,
			"'enable_output_mapping' is true but 'output_mapping_filename' is empty. "+
				"Defaulting to '"+DefaultMappingFilename+"'")
		c.OutputMappingFilename = DefaultMappingFilename
	}
	if c.EnableMetadataYAML && c.MetadataYAMLFilename == "" {
		warnings = append(warnings,
			"'enable_metadata_yaml' is true but 'metadata_yaml_filename' is empty. "+
				"Defaulting to '"+DefaultMetadataYAML+"'")
		c.MetadataYAMLFilename = DefaultMetadataYAML
	}

	return warnings, nil
}
