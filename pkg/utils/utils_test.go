package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- CategorizeError Tests ---

func TestCategorizeError_NilError(t *testing.T) {
	assert.Equal(t, "None", CategorizeError(nil))
}

func TestCategorizeError_SentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"NotHTML", ErrNotHTML, "Content_NotHTML"},
		{"ScopeViolation", ErrScopeViolation, "Policy_Scope"},
		{"MarkdownConversion", ErrMarkdownConversion, "Render_Markdown"},
		{"Render", ErrRender, "Render_Failed"},
		{"SemaphoreTimeout", ErrSemaphoreTimeout, "Resource_SemaphoreTimeout"},
		{"RequestCreation", ErrRequestCreation, "Internal_RequestCreation"},
		{"ResponseBodyRead", ErrResponseBodyRead, "Network_BodyRead"},
		{"ConfigValidation", ErrConfigValidation, "Config_Validation"},
		{"ServerHTTPError", ErrServerHTTPError, "HTTP_5xx"},
		{"OtherHTTPError", ErrOtherHTTPError, "HTTP_OtherStatus"},
		{"Database", ErrDatabase, "Database_Other"},
		{"Filesystem", ErrFilesystem, "Filesystem_Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CategorizeError(tt.err))
		})
	}
}

func TestCategorizeError_WrappedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"WrappedNotHTML", fmt.Errorf("page skipped: %w", ErrNotHTML), "Content_NotHTML"},
		{"DoubleWrapped", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrRender)), "Render_Failed"},
		{"ParsingXML", fmt.Errorf("%w: sitemap XML unreadable", ErrParsing), "Parse_XML"},
		{"ParsingHTML", fmt.Errorf("%w: HTML tokenizer", ErrParsing), "Parse_HTML"},
		{"ParsingOther", fmt.Errorf("%w: something", ErrParsing), "Parse_Other"},
		{"FilesystemPermission", fmt.Errorf("%w: %w", ErrFilesystem, os.ErrPermission), "Filesystem_Permission"},
		{"FilesystemNotExist", fmt.Errorf("%w: %w", ErrFilesystem, os.ErrNotExist), "Filesystem_NotExist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CategorizeError(tt.err))
		})
	}
}

func TestCategorizeError_ClientHTTPCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"404", fmt.Errorf("%w: status 404 404 Not Found", ErrClientHTTPError), "HTTP_404"},
		{"403", fmt.Errorf("%w: status 403 403 Forbidden", ErrClientHTTPError), "HTTP_403"},
		{"401", fmt.Errorf("%w: status 401 401 Unauthorized", ErrClientHTTPError), "HTTP_401"},
		{"429", fmt.Errorf("%w: status 429 429 Too Many Requests", ErrClientHTTPError), "HTTP_429"},
		{"Generic4xx", fmt.Errorf("%w: status 418", ErrClientHTTPError), "HTTP_4xx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CategorizeError(tt.err))
		})
	}
}

func TestCategorizeError_RetryFailed(t *testing.T) {
	t.Run("server error cause", func(t *testing.T) {
		cause := fmt.Errorf("%w: status 503", ErrServerHTTPError)
		err := fmt.Errorf("%w: %w", ErrRetryFailed, cause)
		assert.Equal(t, "RetryFailed_HTTP_5xx", CategorizeError(err))
	})

	t.Run("network cause", func(t *testing.T) {
		err := fmt.Errorf("%w: %w", ErrRetryFailed, errors.New("dial tcp: connection refused"))
		assert.Equal(t, "RetryFailed_ConnectionRefused", CategorizeError(err))
	})

	t.Run("wrapped again by caller", func(t *testing.T) {
		inner := fmt.Errorf("%w: %w", ErrRetryFailed, errors.New("lookup x: no such host"))
		err := fmt.Errorf("fetching page: %w", inner)
		assert.Equal(t, "RetryFailed_DNSLookup", CategorizeError(err))
	})

	t.Run("joined with another sentinel", func(t *testing.T) {
		inner := fmt.Errorf("%w: %w", ErrRetryFailed, fmt.Errorf("%w: status 502", ErrServerHTTPError))
		err := fmt.Errorf("%w: %w", ErrRender, inner)
		assert.Equal(t, "RetryFailed_HTTP_5xx", CategorizeError(err))
	})

	t.Run("bare sentinel", func(t *testing.T) {
		assert.Equal(t, "RetryFailed_Unknown", CategorizeError(ErrRetryFailed))
	})
}

func TestCategorizeError_ContextAndNetwork(t *testing.T) {
	assert.Equal(t, "System_ContextCanceled", CategorizeError(context.Canceled))
	assert.Equal(t, "System_ContextDeadlineExceeded", CategorizeError(fmt.Errorf("get: %w", context.DeadlineExceeded)))
	assert.Equal(t, "Network_ConnectionReset", CategorizeError(errors.New("read: connection reset by peer")))
	assert.Equal(t, "Network_TLS", CategorizeError(errors.New("x509: certificate signed by unknown authority")))
	assert.Equal(t, "Unknown", CategorizeError(errors.New("something odd")))
}

// --- URLFilename Tests ---

func TestURLFilename(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		maxLen   int
		ext      string
		expected string
	}{
		{"simple path", "https://example.com/docs/intro", 100, ".md", "https_example.com_docs_intro.md"},
		{"query and ampersand", "http://a.com/p?x=1&y=2", 100, ".md", "http_a.com_p_x=1_y=2.md"},
		{"trailing slash", "http://a.com/", 100, ".md", "http_a.com_.md"},
		{"extension without dot", "http://a.com/x", 100, "txt", "http_a.com_x.txt"},
		{"default length when zero", "http://a.com/x", 0, ".md", "http_a.com_x.md"},
		{"empty url", "", 100, ".md", "untitled.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, URLFilename(tt.url, tt.maxLen, tt.ext))
		})
	}
}

func TestURLFilename_Truncates(t *testing.T) {
	long := "https://example.com/" + strings.Repeat("segment/", 30)
	name := URLFilename(long, 100, ".md")
	assert.Equal(t, 103, len(name))
	assert.True(t, strings.HasSuffix(name, ".md"))
	assert.NotContains(t, name, "/")
}

func TestURLFilename_TruncatesByCharacter(t *testing.T) {
	name := URLFilename("http://a.com/"+strings.Repeat("é", 200), 20, "")
	assert.Equal(t, 20, len([]rune(name)))
}

func TestURLFilename_CollisionAfterTruncation(t *testing.T) {
	prefix := "https://example.com/" + strings.Repeat("a", 100)
	assert.Equal(t, URLFilename(prefix+"/one", 100, ".md"), URLFilename(prefix+"/two", 100, ".md"))
}

// --- CompileRegexPatterns Tests ---

func TestCompileRegexPatterns(t *testing.T) {
	t.Run("valid patterns skip empty", func(t *testing.T) {
		compiled, err := CompileRegexPatterns([]string{`^/private/`, "", `\.bak$`})
		require.NoError(t, err)
		require.Len(t, compiled, 2)
		assert.True(t, compiled[0].MatchString("/private/x"))
		assert.True(t, compiled[1].MatchString("/file.bak"))
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := CompileRegexPatterns([]string{`ok`, `([unclosed`})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfigValidation)
		assert.Contains(t, err.Error(), "#2")
	})
}

// --- Hash Tests ---

func TestCalculateStringSHA256(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", CalculateStringSHA256(""))
	assert.Equal(t, CalculateStringSHA256("abc"), CalculateStringSHA256("abc"))
	assert.NotEqual(t, CalculateStringSHA256("abc"), CalculateStringSHA256("abd"))
}

// --- WrapErrorf Tests ---

func TestWrapErrorf_NilError(t *testing.T) {
	assert.NoError(t, WrapErrorf(nil, "some context"))
}

func TestWrapErrorf_WrapsError(t *testing.T) {
	original := errors.New("original error")
	wrapped := WrapErrorf(original, "context %s", "value")

	require.Error(t, wrapped)
	assert.ErrorIs(t, wrapped, original)
	assert.Equal(t, "context value: original error", wrapped.Error())
}
