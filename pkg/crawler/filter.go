package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Sriram-PR/sitemap-scraper/pkg/config"
	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// ScopeFilter decides which discovered links the frontier may follow
type ScopeFilter struct {
	domain     string // host[:port], matched exactly
	extensions []string
	patterns   []string
	disallowed []*regexp.Regexp
}

// NewScopeFilter creates a filter for domain. Nil or empty extension and pattern
// lists fall back to config.DefaultIgnoredExtensions / DefaultIgnoredPatterns.
// Both lists are matched case-insensitively.
func NewScopeFilter(domain string, extensions, patterns []string, disallowed []*regexp.Regexp) *ScopeFilter {
	if len(extensions) == 0 {
		extensions = config.DefaultIgnoredExtensions
	}
	if len(patterns) == 0 {
		patterns = config.DefaultIgnoredPatterns
	}
	return &ScopeFilter{
		domain:     domain,
		extensions: lowerAll(extensions),
		patterns:   lowerAll(patterns),
		disallowed: disallowed,
	}
}

// IsInScope reports whether rawURL is on domain and passes the default denylists
func IsInScope(rawURL, domain string) bool {
	return NewScopeFilter(domain, nil, nil, nil).InScope(rawURL)
}

// Domain returns the host[:port] the filter accepts
func (f *ScopeFilter) Domain() string {
	return f.domain
}

// InScope reports whether rawURL may be crawled
func (f *ScopeFilter) InScope(rawURL string) bool {
	return f.Check(rawURL) == nil
}

// Check returns nil for a crawlable URL, or an error wrapping utils.ErrScopeViolation
// (utils.ErrParsing for unparsable input) that names the rule it broke
func (f *ScopeFilter) Check(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty URL", utils.ErrScopeViolation)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: URL '%s': %w", utils.ErrParsing, rawURL, err)
	}
	if parsed.Host == "" || parsed.Host != f.domain {
		return fmt.Errorf("%w: '%s' is not on '%s'", utils.ErrScopeViolation, rawURL, f.domain)
	}

	lowerPath := strings.ToLower(parsed.Path)
	for _, ext := range f.extensions {
		if strings.HasSuffix(lowerPath, ext) {
			return fmt.Errorf("%w: '%s' has ignored extension '%s'", utils.ErrScopeViolation, rawURL, ext)
		}
	}

	lowerURL := strings.ToLower(rawURL)
	for _, pattern := range f.patterns {
		if strings.Contains(lowerURL, pattern) {
			return fmt.Errorf("%w: '%s' contains ignored pattern '%s'", utils.ErrScopeViolation, rawURL, pattern)
		}
	}

	for _, re := range f.disallowed {
		if re.MatchString(parsed.Path) {
			return fmt.Errorf("%w: '%s' matches disallowed pattern '%s'", utils.ErrScopeViolation, rawURL, re.String())
		}
	}
	return nil
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
