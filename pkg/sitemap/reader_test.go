package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/sitemap-scraper/pkg/fetch"
	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// mockFetcher serves canned bodies by URL and records requests
type mockFetcher struct {
	bodies   map[string]string
	requests []string
}

func (m *mockFetcher) Get(_ context.Context, rawURL string) (*fetch.Page, error) {
	m.requests = append(m.requests, rawURL)
	body, ok := m.bodies[rawURL]
	if !ok {
		page := &fetch.Page{URL: rawURL, FinalURL: rawURL, StatusCode: http.StatusNotFound}
		return page, fmt.Errorf("%w: status 404 404 Not Found", utils.ErrClientHTTPError)
	}
	return &fetch.Page{URL: rawURL, FinalURL: rawURL, StatusCode: http.StatusOK, ContentType: "application/xml", Body: []byte(body)}, nil
}

func urlset(locs ...string) string {
	s := `<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`
	for _, loc := range locs {
		s += "<url><loc>" + loc + "</loc></url>"
	}
	return s + "</urlset>"
}

func index(locs ...string) string {
	s := `<?xml version="1.0" encoding="UTF-8"?><sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`
	for _, loc := range locs {
		s += "<sitemap><loc>" + loc + "</loc></sitemap>"
	}
	return s + "</sitemapindex>"
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sitemap.xml", urlset("https://example.com/", "  https://example.com/a  ", "", "https://example.com/b"))

	urls, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/", "https://example.com/a", "https://example.com/b"}, urls)
}

func TestReadFile_NoNamespace(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sitemap.xml", `<urlset><url><loc>https://example.com/x</loc></url></urlset>`)

	urls, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/x"}, urls)
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		urls, err := ReadFile(filepath.Join(dir, "nope.xml"))
		assert.ErrorIs(t, err, utils.ErrFilesystem)
		assert.Equal(t, "Filesystem_NotExist", utils.CategorizeError(err))
		assert.NotNil(t, urls)
		assert.Empty(t, urls)
	})

	t.Run("malformed", func(t *testing.T) {
		path := writeFile(t, dir, "bad.xml", `<urlset><url><loc>https://example.com/</loc></url>`)
		urls, err := ReadFile(path)
		assert.ErrorIs(t, err, utils.ErrParsing)
		assert.Equal(t, "Parse_XML", utils.CategorizeError(err))
		assert.Empty(t, urls)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, dir, "empty.xml", "")
		urls, err := ReadFile(path)
		assert.ErrorIs(t, err, utils.ErrParsing)
		assert.Empty(t, urls)
	})

	t.Run("wrong root", func(t *testing.T) {
		path := writeFile(t, dir, "rss.xml", `<rss><channel></channel></rss>`)
		_, err := ReadFile(path)
		assert.ErrorIs(t, err, utils.ErrParsing)
	})
}

func TestReadFile_TextList(t *testing.T) {
	path := writeFile(t, t.TempDir(), "urls.txt", "# seed list\nhttps://example.com/a\n\n  https://example.com/b \n")

	urls, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestReader_LocalIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pages.xml", urlset("https://example.com/p1", "https://example.com/p2"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	writeFile(t, filepath.Join(dir, "sub"), "posts.xml", urlset("https://example.com/post"))
	path := writeFile(t, dir, "index.xml", index("pages.xml", "sub/posts.xml", "pages.xml", "missing.xml"))

	urls, err := NewReader(nil, testLogger()).Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/p1", "https://example.com/p2", "https://example.com/post"}, urls,
		"children in index order, duplicates and failures skipped")
}

func TestReader_Remote(t *testing.T) {
	m := &mockFetcher{bodies: map[string]string{
		"https://example.com/sitemap.xml":     index("https://example.com/sitemap-a.xml", "/sitemap-b.xml", "https://example.com/sitemap.xml"),
		"https://example.com/sitemap-a.xml":   urlset("https://example.com/a1", "https://example.com/a2"),
		"https://example.com/sitemap-b.xml":   index("https://example.com/sitemap-b-1.xml"),
		"https://example.com/sitemap-b-1.xml": urlset("https://example.com/b1"),
	}}

	urls, err := NewReader(m, testLogger()).Read(context.Background(), "https://example.com/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a1", "https://example.com/a2", "https://example.com/b1"}, urls)
	assert.Len(t, m.requests, 4, "the self-referencing index is not fetched again")
}

func TestReader_MaxIndexDepth(t *testing.T) {
	m := &mockFetcher{bodies: map[string]string{
		"https://example.com/root.xml":   index("https://example.com/level1.xml"),
		"https://example.com/level1.xml": index("https://example.com/leaf.xml"),
		"https://example.com/leaf.xml":   urlset("https://example.com/deep"),
	}}

	urls, err := NewReader(m, testLogger()).WithMaxIndexDepth(1).Read(context.Background(), "https://example.com/root.xml")
	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.NotContains(t, m.requests, "https://example.com/leaf.xml")
}

func TestReader_RemoteErrors(t *testing.T) {
	_, err := NewReader(nil, testLogger()).Read(context.Background(), "https://example.com/sitemap.xml")
	assert.ErrorIs(t, err, utils.ErrRequestCreation)

	m := &mockFetcher{bodies: map[string]string{}}
	urls, err := NewReader(m, testLogger()).Read(context.Background(), "https://example.com/sitemap.xml")
	assert.ErrorIs(t, err, utils.ErrClientHTTPError)
	assert.Empty(t, urls)
}
