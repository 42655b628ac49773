package render

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// AutoSelector as content_selector picks the content region per host:
// a known docs framework's selector, else readability extraction
const AutoSelector = "auto"

// IsAutoSelector reports whether selector requests auto-detection
func IsAutoSelector(selector string) bool {
	return strings.EqualFold(strings.TrimSpace(selector), AutoSelector)
}

// Framework names a documentation generator recognised by its markup
type Framework string

const (
	FrameworkUnknown     Framework = "unknown"
	FrameworkDocusaurus  Framework = "docusaurus"
	FrameworkMkDocs      Framework = "mkdocs"
	FrameworkReadTheDocs Framework = "readthedocs"
	FrameworkSphinx      Framework = "sphinx"
	FrameworkGitBook     Framework = "gitbook"
)

// signature is the markup a framework leaves behind plus where it puts content
type signature struct {
	framework   Framework
	selector    string
	attributes  []string // present on any element
	classes     []string // "prefix*" matches a class prefix
	scripts     []string // substrings of script src
	htmlMarkers []string // lowercase substrings of the raw document
}

// Order matters: ReadTheDocs pages are usually Sphinx too
var signatures = []signature{
	{
		framework:   FrameworkDocusaurus,
		selector:    "article[class*='theme-doc'], .theme-doc-markdown, article.markdown, main article",
		attributes:  []string{"data-docusaurus", "data-docusaurus-root-container"},
		classes:     []string{"docusaurus-wrapper", "theme-doc-markdown"},
		htmlMarkers: []string{"__docusaurus", "docusaurus.io"},
	},
	{
		framework:   FrameworkMkDocs,
		selector:    "article.md-content__inner, .md-content article, .md-content",
		attributes:  []string{"data-md-component", "data-md-color-scheme"},
		classes:     []string{"md-content", "md-main"},
		htmlMarkers: []string{"mkdocs", "material for mkdocs"},
	},
	{
		framework:   FrameworkReadTheDocs,
		selector:    ".rst-content, div[role='main'], .document",
		classes:     []string{"rst-content", "wy-nav-content"},
		scripts:     []string{"readthedocs", "rtd"},
		htmlMarkers: []string{"readthedocs.org", "readthedocs.io", "sphinx-rtd-theme"},
	},
	{
		framework:   FrameworkSphinx,
		selector:    "div.document, div.body, article.bd-article, main.bd-main",
		classes:     []string{"sphinxsidebar", "sphinx-tabs"},
		scripts:     []string{"searchindex.js", "_static/sphinx"},
		htmlMarkers: []string{"created using sphinx", "sphinx-doc.org", "_static/alabaster", "_static/pygments"},
	},
	{
		framework:   FrameworkGitBook,
		selector:    "section.normal.markdown-section, .page-inner section, main[class*='gitbook']",
		classes:     []string{"gitbook*", "markdown-section"},
		htmlMarkers: []string{"gitbook", "gb-page"},
	},
}

func (s signature) matches(doc *goquery.Document, lowerHTML string) bool {
	for _, attr := range s.attributes {
		if doc.Find("["+attr+"]").Length() > 0 {
			return true
		}
	}
	for _, class := range s.classes {
		if prefix, ok := strings.CutSuffix(class, "*"); ok {
			if hasClassPrefix(doc, prefix) {
				return true
			}
		} else if doc.Find("."+class).Length() > 0 {
			return true
		}
	}
	for _, pattern := range s.scripts {
		matched := doc.Find("script[src]").FilterFunction(func(_ int, sel *goquery.Selection) bool {
			src, _ := sel.Attr("src")
			return strings.Contains(src, pattern)
		})
		if matched.Length() > 0 {
			return true
		}
	}
	for _, marker := range s.htmlMarkers {
		if strings.Contains(lowerHTML, marker) {
			return true
		}
	}
	return false
}

func hasClassPrefix(doc *goquery.Document, prefix string) bool {
	found := false
	doc.Find("[class]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		for _, c := range strings.Fields(sel.AttrOr("class", "")) {
			if strings.HasPrefix(c, prefix) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// detection is the cached verdict for one host
type detection struct {
	framework Framework
	selector  string // empty = use readability
}

// frameworkDetector classifies pages once per host. Safe for concurrent use.
type frameworkDetector struct {
	mu     sync.RWMutex
	byHost map[string]detection
}

func newFrameworkDetector() *frameworkDetector {
	return &frameworkDetector{byHost: make(map[string]detection)}
}

// detect returns the host's cached verdict, or classifies doc and caches it.
// The second result is false when the verdict came from the cache.
func (d *frameworkDetector) detect(host string, doc *goquery.Document) (detection, bool) {
	d.mu.RLock()
	cached, ok := d.byHost[host]
	d.mu.RUnlock()
	if ok {
		return cached, false
	}

	result := detection{framework: FrameworkUnknown}
	html, _ := doc.Html()
	lowerHTML := strings.ToLower(html)
	for _, sig := range signatures {
		if sig.matches(doc, lowerHTML) {
			result = detection{framework: sig.framework, selector: sig.selector}
			break
		}
	}

	d.mu.Lock()
	d.byHost[host] = result
	d.mu.Unlock()
	return result, true
}
