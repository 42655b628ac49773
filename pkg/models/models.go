package models

import "time"

// WorkItem represents a URL and its depth in the crawl frontier
type WorkItem struct {
	URL   string
	Depth int
}

// PageOutcome records what happened to one URL the frontier dequeued and attempted
type PageOutcome struct {
	URL         string        `yaml:"url"`
	FinalURL    string        `yaml:"final_url,omitempty"` // After redirects, when it differs
	Status      OutcomeStatus `yaml:"status"`
	Reason      string        `yaml:"reason,omitempty"`     // Human readable skip/failure reason
	ErrorType   string        `yaml:"error_type,omitempty"` // utils.CategorizeError output
	HTTPStatus  int           `yaml:"http_status,omitempty"`
	ContentType string        `yaml:"content_type,omitempty"`
	Depth       int           `yaml:"depth"`
	FetchedAt   time.Time     `yaml:"fetched_at"`
}

// FetchOutcome records the result of rendering and persisting one sitemap URL
type FetchOutcome struct {
	URL         string        `yaml:"url"`
	Status      OutcomeStatus `yaml:"status"`
	Filename    string        `yaml:"filename,omitempty"`
	Path        string        `yaml:"path,omitempty"`
	Bytes       int           `yaml:"bytes,omitempty"`
	ContentHash string        `yaml:"content_hash,omitempty"` // SHA256 hex of the written document
	ErrorType   string        `yaml:"error_type,omitempty"`
	Error       string        `yaml:"error,omitempty"`
	Batch       int           `yaml:"batch"`
	Collision   bool          `yaml:"collision,omitempty"` // Another URL in this run mapped to the same file
	Duration    time.Duration `yaml:"duration"`
}

// FetchMetadata is the YAML summary written at the end of a pipeline run
type FetchMetadata struct {
	SitemapSource string         `yaml:"sitemap_source,omitempty"`
	OutputDir     string         `yaml:"output_dir"`
	Renderer      string         `yaml:"renderer,omitempty"`
	BatchSize     int            `yaml:"batch_size"`
	StartTime     time.Time      `yaml:"start_time"`
	EndTime       time.Time      `yaml:"end_time"`
	TotalURLs     int            `yaml:"total_urls"`
	Saved         int            `yaml:"saved"`
	Failed        int            `yaml:"failed"`
	Skipped       int            `yaml:"skipped"`
	Collisions    int            `yaml:"collisions,omitempty"`
	Outcomes      []FetchOutcome `yaml:"outcomes"`
}
