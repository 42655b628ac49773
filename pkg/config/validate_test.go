package config

import (
	"strings"
	"testing"
	"time"

	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_Validate_Defaults(t *testing.T) {
	cfg := AppConfig{} // Zero value
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, DefaultUserAgent, cfg.DefaultUserAgent)
	assert.Equal(t, 0, cfg.MaxRetries) // single attempt
	assert.Equal(t, 1*time.Second, cfg.InitialRetryDelay)
	assert.Equal(t, 30*time.Second, cfg.MaxRetryDelay)
	assert.Equal(t, 30*time.Second, cfg.SemaphoreAcquireTimeout)

	// Check HTTP client defaults
	assert.Equal(t, 45*time.Second, cfg.HTTPClientSettings.Timeout)
	assert.Equal(t, 100, cfg.HTTPClientSettings.MaxIdleConns)
	assert.Equal(t, 2, cfg.HTTPClientSettings.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, cfg.HTTPClientSettings.IdleConnTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTPClientSettings.TLSHandshakeTimeout)
	assert.Equal(t, 1*time.Second, cfg.HTTPClientSettings.ExpectContinueTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTPClientSettings.DialerTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientSettings.DialerKeepAlive)

	// Pipeline defaults applied through AppConfig
	assert.Equal(t, DefaultSitemapPath, cfg.Pipeline.SitemapPath)
	assert.Equal(t, DefaultOutputDir, cfg.Pipeline.OutputDir)
	assert.Equal(t, DefaultBatchSize, cfg.Pipeline.BatchSize)
	assert.Equal(t, RendererChrome, cfg.Pipeline.Renderer)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.RenderTimeout)
	assert.Equal(t, "body", cfg.Pipeline.ContentSelector)
	assert.Equal(t, 100, cfg.Pipeline.MaxFilenameLength)
	assert.Equal(t, ".md", cfg.Pipeline.FileExtension)
	assert.Equal(t, DefaultBatchSize, cfg.Pipeline.EffectiveMaxRequestsPerHost())
}

func TestAppConfig_Validate_NegativeMaxRetries(t *testing.T) {
	cfg := AppConfig{MaxRetries: -1}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.True(t, containsWarning(warnings, "max_retries cannot be negative"))
	assert.Equal(t, 0, cfg.MaxRetries)
}

func TestAppConfig_Validate_RetryDelayInversion(t *testing.T) {
	cfg := AppConfig{
		MaxRetries:        2,
		InitialRetryDelay: 10 * time.Second,
		MaxRetryDelay:     5 * time.Second,
	}

	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.True(t, containsWarning(warnings, "initial_retry_delay"))
	assert.Equal(t, 5*time.Second, cfg.InitialRetryDelay)
}

func TestAppConfig_Validate_PreservesValues(t *testing.T) {
	cfg := AppConfig{
		DefaultUserAgent: "custom/2.0",
		MaxRetries:       3,
		HTTPClientSettings: HTTPClientConfig{
			Timeout:      30 * time.Second,
			MaxIdleConns: 50,
		},
		Pipeline: PipelineConfig{BatchSize: 8, Renderer: "HTTP", MaxRequestsPerHost: 2},
	}

	_, err := cfg.Validate()
	require.NoError(t, err)

	assert.Equal(t, "custom/2.0", cfg.DefaultUserAgent)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientSettings.Timeout)
	assert.Equal(t, 50, cfg.HTTPClientSettings.MaxIdleConns)
	assert.Equal(t, 8, cfg.Pipeline.BatchSize)
	assert.Equal(t, RendererHTTP, cfg.Pipeline.Renderer)
	assert.Equal(t, 2, cfg.Pipeline.EffectiveMaxRequestsPerHost())
}

func TestAppConfig_Validate_PipelineErrorPropagates(t *testing.T) {
	cfg := AppConfig{Pipeline: PipelineConfig{Renderer: "webkit"}}
	_, err := cfg.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrConfigValidation)
	assert.Contains(t, err.Error(), "webkit")
}

func TestPipelineConfig_Validate_Warnings(t *testing.T) {
	tests := []struct {
		name        string
		cfg         PipelineConfig
		wantWarning string
		check       func(*testing.T, *PipelineConfig)
	}{
		{
			name:        "negative batch size",
			cfg:         PipelineConfig{BatchSize: -3},
			wantWarning: "batch_size cannot be negative",
			check: func(t *testing.T, c *PipelineConfig) {
				assert.Equal(t, DefaultBatchSize, c.BatchSize)
			},
		},
		{
			name:        "mapping enabled without filename",
			cfg:         PipelineConfig{EnableOutputMapping: true},
			wantWarning: "enable_output_mapping",
			check: func(t *testing.T, c *PipelineConfig) {
				assert.Equal(t, "url_to_file_map.tsv", c.OutputMappingFilename)
			},
		},
		{
			name:        "metadata enabled without filename",
			cfg:         PipelineConfig{EnableMetadataYAML: true},
			wantWarning: "enable_metadata_yaml",
			check: func(t *testing.T, c *PipelineConfig) {
				assert.Equal(t, "metadata.yaml", c.MetadataYAMLFilename)
			},
		},
		{
			name:        "chrome path with http renderer",
			cfg:         PipelineConfig{Renderer: RendererHTTP, ChromePath: "/usr/bin/chromium"},
			wantWarning: "chrome_path",
		},
		{
			name:        "per host cap above batch size",
			cfg:         PipelineConfig{BatchSize: 2, MaxRequestsPerHost: 10},
			wantWarning: "exceeds batch_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			warnings, err := cfg.Validate()
			require.NoError(t, err)
			assert.True(t, containsWarning(warnings, tt.wantWarning),
				"expected warning containing %q, got %v", tt.wantWarning, warnings)
			if tt.check != nil {
				tt.check(t, &cfg)
			}
		})
	}
}

func TestCrawlConfig_Validate_RequiredStartURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"missing", ""},
		{"relative", "/docs"},
		{"non http scheme", "ftp://example.com/"},
		{"no host", "http://"},
		{"unparsable", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := CrawlConfig{StartURL: tt.url}
			_, err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, utils.ErrConfigValidation)
		})
	}
}

func TestCrawlConfig_Validate_Defaults(t *testing.T) {
	cfg := CrawlConfig{StartURL: "http://127.0.0.1:8080/docs/"}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "max_pages should be > 0")
	assert.Equal(t, "127.0.0.1:8080", cfg.AllowedDomain)
	assert.Equal(t, DefaultMaxPages, cfg.MaxPages)
	assert.Equal(t, 500*time.Millisecond, cfg.MinDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.MaxDelay)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(DefaultMaxPageSize), cfg.MaxPageSizeBytes)
	assert.Equal(t, VisitedStoreMemory, cfg.VisitedStore)
	assert.Equal(t, "sitemap.xml", cfg.SitemapPath)
	assert.Equal(t, "monthly", cfg.ChangeFreq)
	assert.Equal(t, "0.8", cfg.Priority)
	assert.Equal(t, DefaultIgnoredExtensions, cfg.EffectiveIgnoredExtensions())
	assert.Equal(t, DefaultIgnoredPatterns, cfg.EffectiveIgnoredPatterns())
}

func TestCrawlConfig_Validate_Warnings(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*CrawlConfig)
		wantWarning string
		check       func(*testing.T, *CrawlConfig)
	}{
		{
			name:        "negative max depth",
			setup:       func(c *CrawlConfig) { c.MaxDepth = -1 },
			wantWarning: "max_depth cannot be negative",
			check: func(t *testing.T, c *CrawlConfig) {
				assert.Equal(t, 0, c.MaxDepth)
			},
		},
		{
			name:        "zero max pages",
			setup:       func(c *CrawlConfig) { c.MaxPages = 0 },
			wantWarning: "max_pages should be > 0",
		},
		{
			name: "inverted delay window",
			setup: func(c *CrawlConfig) {
				c.MinDelay = 2 * time.Second
				c.MaxDelay = time.Second
			},
			wantWarning: "min_delay",
			check: func(t *testing.T, c *CrawlConfig) {
				assert.Equal(t, 2*time.Second, c.MaxDelay)
			},
		},
		{
			name:        "negative delay",
			setup:       func(c *CrawlConfig) { c.MinDelay = -time.Second },
			wantWarning: "cannot be negative",
			check: func(t *testing.T, c *CrawlConfig) {
				assert.Equal(t, DefaultMinDelay, c.MinDelay)
				assert.Equal(t, DefaultMaxDelay, c.MaxDelay)
			},
		},
		{
			name:        "foreign allowed domain",
			setup:       func(c *CrawlConfig) { c.AllowedDomain = "other.com" },
			wantWarning: "differs from start_url host",
		},
		{
			name:        "state dir without badger",
			setup:       func(c *CrawlConfig) { c.StateDir = "/tmp/state" },
			wantWarning: "state_dir is only used",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := CrawlConfig{StartURL: "https://example.com/", MaxPages: 10}
			tt.setup(&cfg)
			warnings, err := cfg.Validate()
			require.NoError(t, err)
			assert.True(t, containsWarning(warnings, tt.wantWarning),
				"expected warning containing %q, got %v", tt.wantWarning, warnings)
			if tt.check != nil {
				tt.check(t, &cfg)
			}
		})
	}
}

func TestCrawlConfig_Validate_FatalFields(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*CrawlConfig)
	}{
		{"bad regex", func(c *CrawlConfig) { c.DisallowedPathPatterns = []string{"([bad"} }},
		{"unknown store", func(c *CrawlConfig) { c.VisitedStore = "redis" }},
		{"bad changefreq", func(c *CrawlConfig) { c.ChangeFreq = "fortnightly" }},
		{"priority out of range", func(c *CrawlConfig) { c.Priority = "1.5" }},
		{"priority not a number", func(c *CrawlConfig) { c.Priority = "high" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := CrawlConfig{StartURL: "https://example.com/"}
			tt.setup(&cfg)
			_, err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, utils.ErrConfigValidation)
		})
	}
}

func TestCrawlConfig_Validate_ChangeFreqCaseInsensitive(t *testing.T) {
	cfg := CrawlConfig{StartURL: "https://example.com/", ChangeFreq: "Weekly", VisitedStore: VisitedStoreBadger}
	_, err := cfg.Validate()
	require.NoError(t, err)
	assert.Equal(t, "weekly", cfg.ChangeFreq)
	assert.Equal(t, VisitedStoreBadger, cfg.VisitedStore)
}

func TestCrawlConfig_EffectiveDenylists(t *testing.T) {
	cfg := CrawlConfig{IgnoredExtensions: []string{".svg"}, IgnoredPatterns: []string{"admin"}}
	assert.Equal(t, []string{".svg"}, cfg.EffectiveIgnoredExtensions())
	assert.Equal(t, []string{"admin"}, cfg.EffectiveIgnoredPatterns())
}

// containsWarning checks if any warning contains the substring.
func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
