package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrRetryFailed        = errors.New("request failed after all retries") // Wraps the last underlying error
	ErrClientHTTPError    = errors.New("client HTTP error (4xx)")
	ErrServerHTTPError    = errors.New("server HTTP error (5xx)")
	ErrOtherHTTPError     = errors.New("other HTTP error (non-2xx)")
	ErrNotHTML            = errors.New("response is not an HTML document")
	ErrScopeViolation     = errors.New("URL out of scope (domain/extension/pattern)")
	ErrParsing            = errors.New("parsing error")    // HTML, URL, XML
	ErrFilesystem         = errors.New("filesystem error") // Wraps os errors
	ErrDatabase           = errors.New("database error")   // Wraps badger errors
	ErrRequestCreation    = errors.New("failed to create HTTP request")
	ErrResponseBodyRead   = errors.New("failed to read response body")
	ErrRender             = errors.New("page render failed")
	ErrMarkdownConversion = errors.New("failed to convert HTML to markdown")
	ErrSemaphoreTimeout   = errors.New("timeout acquiring semaphore")
	ErrConfigValidation   = errors.New("configuration validation error")
)

// WrapErrorf prefixes err with a formatted message, keeping it in the chain.
// Returns nil when err is nil.
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// sentinelCategories is checked in order; the first match wins
var sentinelCategories = []struct {
	err      error
	category string
}{
	{ErrNotHTML, "Content_NotHTML"},
	{ErrScopeViolation, "Policy_Scope"},
	{ErrMarkdownConversion, "Render_Markdown"},
	{ErrRender, "Render_Failed"},
	{ErrDatabase, "Database_Other"},
	{ErrSemaphoreTimeout, "Resource_SemaphoreTimeout"},
	{ErrRequestCreation, "Internal_RequestCreation"},
	{ErrResponseBodyRead, "Network_BodyRead"},
	{ErrConfigValidation, "Config_Validation"},
	{ErrServerHTTPError, "HTTP_5xx"},
	{ErrOtherHTTPError, "HTTP_OtherStatus"},
}

// networkSubstrings maps lowercase error text fragments to network categories
var networkSubstrings = []struct {
	fragment string
	category string
}{
	{"timeout", "Network_Timeout"},
	{"deadline exceeded", "Network_Timeout"},
	{"connection refused", "Network_ConnectionRefused"},
	{"no such host", "Network_DNSLookup"},
	{"tls", "Network_TLS"},
	{"certificate", "Network_TLS"},
	{"reset by peer", "Network_ConnectionReset"},
	{"broken pipe", "Network_BrokenPipe"},
}

// CategorizeError maps an error to a category string stored on page and fetch outcomes.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrRetryFailed):
		if cause := retryCause(err); cause != nil {
			return "RetryFailed_" + strings.TrimPrefix(CategorizeError(cause), "Network_")
		}
		return "RetryFailed_Unknown"
	case errors.Is(err, ErrClientHTTPError):
		return categorizeClientStatus(err.Error())
	case errors.Is(err, ErrParsing):
		return categorizeParsing(err.Error())
	case errors.Is(err, ErrFilesystem):
		return categorizeFilesystem(err)
	}

	for _, sc := range sentinelCategories {
		if errors.Is(err, sc.err) {
			return sc.category
		}
	}

	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	return categorizeNetworkText(err.Error())
}

// retryCause finds the error joined with ErrRetryFailed by the fetcher ("%w: %w"),
// looking through any wrappers added by callers
func retryCause(err error) error {
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		inner := e.Unwrap()
		for i, child := range inner {
			if child == ErrRetryFailed {
				for j, other := range inner {
					if j != i {
						return other
					}
				}
				return nil
			}
		}
		for _, child := range inner {
			if cause := retryCause(child); cause != nil {
				return cause
			}
		}
	case interface{ Unwrap() error }:
		return retryCause(e.Unwrap())
	}
	return nil
}

func categorizeClientStatus(msg string) string {
	for _, code := range []string{"401", "403", "404", "429"} {
		if strings.Contains(msg, " "+code+" ") {
			return "HTTP_" + code
		}
	}
	return "HTTP_4xx"
}

func categorizeParsing(msg string) string {
	for _, kind := range []string{"URL", "HTML", "XML"} {
		if strings.Contains(msg, kind) {
			return "Parse_" + kind
		}
	}
	return "Parse_Other"
}

func categorizeFilesystem(err error) string {
	switch {
	case errors.Is(err, os.ErrPermission):
		return "Filesystem_Permission"
	case errors.Is(err, os.ErrNotExist):
		return "Filesystem_NotExist"
	case errors.Is(err, os.ErrExist):
		return "Filesystem_Exist"
	}
	return "Filesystem_Other"
}

func categorizeNetworkText(msg string) string {
	lower := strings.ToLower(msg)
	for _, ns := range networkSubstrings {
		if strings.Contains(lower, ns.fragment) {
			return ns.category
		}
	}
	return "Unknown"
}
