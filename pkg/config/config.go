package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultIgnoredExtensions are path suffixes the crawler never follows
var DefaultIgnoredExtensions = []string{
	".pdf", ".doc", ".docx", ".ppt", ".pptx", ".xls", ".xlsx",
	".png", ".jpg", ".jpeg", ".gif", ".zip", ".tar", ".gz",
}

// DefaultIgnoredPatterns are lowercase URL substrings the crawler never follows
var DefaultIgnoredPatterns = []string{"logout", "login", "sign-in", "sign-out", "search", "print"}

// Renderer names accepted by pipeline.renderer
const (
	RendererChrome = "chrome"
	RendererHTTP   = "http"
)

// Visited store backends accepted by crawl.visited_store
const (
	VisitedStoreMemory = "memory"
	VisitedStoreBadger = "badger"
)

// AppConfig holds the global application configuration
type AppConfig struct {
	DefaultUserAgent        string           `yaml:"default_user_agent"`
	MaxRetries              int              `yaml:"max_retries,omitempty"`
	InitialRetryDelay       time.Duration    `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay           time.Duration    `yaml:"max_retry_delay,omitempty"`
	SemaphoreAcquireTimeout time.Duration    `yaml:"semaphore_acquire_timeout,omitempty"`
	HTTPClientSettings      HTTPClientConfig `yaml:"http_client_settings,omitempty"`
	Crawl                   CrawlConfig      `yaml:"crawl"`
	Pipeline                PipelineConfig   `yaml:"pipeline"`
}

// CrawlConfig configures the sitemap generator (frontier + writer)
type CrawlConfig struct {
	StartURL               string        `yaml:"start_url"`
	AllowedDomain          string        `yaml:"allowed_domain,omitempty"` // host[:port]; defaults to the start URL's
	MaxPages               int           `yaml:"max_pages"`
	MaxDepth               int           `yaml:"max_depth,omitempty"` // 0 = unlimited
	MinDelay               time.Duration `yaml:"min_delay,omitempty"`
	MaxDelay               time.Duration `yaml:"max_delay,omitempty"`
	RequestTimeout         time.Duration `yaml:"request_timeout,omitempty"`
	MaxPageSizeBytes       int64         `yaml:"max_page_size_bytes,omitempty"`
	IgnoredExtensions      []string      `yaml:"ignored_extensions,omitempty"`
	IgnoredPatterns        []string      `yaml:"ignored_patterns,omitempty"`
	DisallowedPathPatterns []string      `yaml:"disallowed_path_patterns,omitempty"` // Regex patterns for paths to exclude
	CanonicalizeURLs       bool          `yaml:"canonicalize_urls,omitempty"`
	FailOnHTTPError        bool          `yaml:"fail_on_http_error,omitempty"` // 4xx HTML pages count as failed, not fetched
	VisitedStore           string        `yaml:"visited_store,omitempty"`
	StateDir               string        `yaml:"state_dir,omitempty"` // Parent of a per-run Badger subdir; empty = in-memory
	SitemapPath            string        `yaml:"sitemap_path,omitempty"`
	ChangeFreq             string        `yaml:"changefreq,omitempty"`
	Priority               string        `yaml:"priority,omitempty"`
}

// PipelineConfig configures the sitemap -> render -> file pipeline
type PipelineConfig struct {
	SitemapPath           string        `yaml:"sitemap_path,omitempty"` // Local path or http(s) URL
	OutputDir             string        `yaml:"output_dir,omitempty"`
	BatchSize             int           `yaml:"batch_size,omitempty"`
	Renderer              string        `yaml:"renderer,omitempty"`
	RenderTimeout         time.Duration `yaml:"render_timeout,omitempty"`
	ChromePath            string        `yaml:"chrome_path,omitempty"`
	ContentSelector       string        `yaml:"content_selector,omitempty"`
	MaxFilenameLength     int           `yaml:"max_filename_length,omitempty"`
	FileExtension         string        `yaml:"file_extension,omitempty"`
	MaxRequestsPerHost    int           `yaml:"max_requests_per_host,omitempty"` // 0 = batch_size
	EnableOutputMapping   bool          `yaml:"enable_output_mapping,omitempty"`
	OutputMappingFilename string        `yaml:"output_mapping_filename,omitempty"`
	EnableMetadataYAML    bool          `yaml:"enable_metadata_yaml,omitempty"`
	MetadataYAMLFilename  string        `yaml:"metadata_yaml_filename,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// Load reads and parses a YAML config file. Defaults are not applied; call Validate.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// EffectiveIgnoredExtensions returns the configured extension denylist, or the default one
func (c CrawlConfig) EffectiveIgnoredExtensions() []string {
	if len(c.IgnoredExtensions) > 0 {
		return c.IgnoredExtensions
	}
	return DefaultIgnoredExtensions
}

// EffectiveIgnoredPatterns returns the configured substring denylist, or the default one
func (c CrawlConfig) EffectiveIgnoredPatterns() []string {
	if len(c.IgnoredPatterns) > 0 {
		return c.IgnoredPatterns
	}
	return DefaultIgnoredPatterns
}

// EffectiveMaxRequestsPerHost falls back to the batch size when no per-host cap is set
func (c PipelineConfig) EffectiveMaxRequestsPerHost() int {
	if c.MaxRequestsPerHost > 0 {
		return c.MaxRequestsPerHost
	}
	return c.BatchSize
}
