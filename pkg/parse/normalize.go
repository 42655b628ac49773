package parse

import (
	"net"
	"net/url"
	"strings"
)

// skippedPrefixes mark hrefs that never lead to a crawlable page
var skippedPrefixes = []string{"mailto:", "tel:", "javascript:", "#"}

// ResolveLink turns an href found on parentURL into an absolute URL.
// Empty hrefs, pure anchors and mailto:/tel:/javascript: links are rejected.
// Absolute http(s) hrefs are returned unchanged; anything else is resolved
// against parentURL per RFC 3986. Malformed input on either side, or a result
// whose scheme is not http(s), yields ("", false).
func ResolveLink(href, parentURL string) (string, bool) {
	if href == "" {
		return "", false
	}
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(href, prefix) {
			return "", false
		}
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href, true
	}

	base, err := url.Parse(parentURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)

	switch strings.ToLower(resolved.Scheme) {
	case "http", "https":
		return resolved.String(), true
	}
	return "", false
}

// NormalizeURL standardizes a URL for comparison: lowercase scheme and host,
// no default port, no trailing slash (except root), no fragment, no query.
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	if host, port, err := net.SplitHostPort(normalized.Host); err == nil {
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	switch {
	case normalized.Path == "":
		normalized.Path = "/"
	case len(normalized.Path) > 1 && strings.HasSuffix(normalized.Path, "/"):
		normalized.Path = strings.TrimSuffix(normalized.Path, "/")
	}
	normalized.RawPath = ""
	normalized.Fragment = ""
	normalized.RawFragment = ""
	normalized.RawQuery = ""
	normalized.ForceQuery = false

	return normalized.String()
}

// CanonicalKey returns the normalized form of rawURL for use as a visited-set key.
// URLs that do not parse are returned as-is so they still dedupe exactly.
func CanonicalKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return NormalizeURL(parsed)
}
