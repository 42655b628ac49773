package sitemap

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-scraper/pkg/fetch"
	"github.com/Sriram-PR/sitemap-scraper/pkg/parse"
	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// DefaultMaxIndexDepth bounds how many <sitemapindex> levels are followed
const DefaultMaxIndexDepth = 3

// Reader loads the URL list of a sitemap from a local file or an http(s) URL
type Reader struct {
	fetcher       fetch.Fetcher // nil = local files only
	maxIndexDepth int
	log           *logrus.Entry
}

// NewReader creates a Reader. fetcher may be nil when only local sources are read.
func NewReader(fetcher fetch.Fetcher, log *logrus.Entry) *Reader {
	return &Reader{
		fetcher:       fetcher,
		maxIndexDepth: DefaultMaxIndexDepth,
		log:           log.WithField("component", "sitemap_reader"),
	}
}

// WithMaxIndexDepth overrides DefaultMaxIndexDepth
func (r *Reader) WithMaxIndexDepth(depth int) *Reader {
	if depth >= 0 {
		r.maxIndexDepth = depth
	}
	return r
}

// ReadFile returns the <loc> entries of the local sitemap at path
func ReadFile(path string) ([]string, error) {
	return NewReader(nil, logrus.NewEntry(logrus.StandardLogger())).Read(context.Background(), path)
}

// Read returns every <loc> of source in document order. A <sitemapindex> is
// followed recursively: child sitemaps are read once each, in index order, and
// a child that fails is logged and skipped. A ".txt" source is read as a plain
// list with one URL per line.
// When source itself cannot be read or parsed the result is an empty slice and
// an error wrapping utils.ErrFilesystem, utils.ErrParsing or a fetch error.
func (r *Reader) Read(ctx context.Context, source string) ([]string, error) {
	visited := map[string]bool{source: true}
	urls, err := r.read(ctx, source, 0, visited)
	if err != nil {
		return []string{}, err
	}
	r.log.WithFields(logrus.Fields{"source": source, "urls": len(urls), "sitemaps": len(visited)}).Info("Sitemap read")
	return urls, nil
}

func (r *Reader) read(ctx context.Context, source string, depth int, visited map[string]bool) ([]string, error) {
	data, err := r.load(ctx, source)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(pathOf(source)), ".txt") {
		return parseTextList(data), nil
	}

	root, err := rootElement(data)
	if err != nil {
		return nil, fmt.Errorf("%w: XML of sitemap '%s': %w", utils.ErrParsing, source, err)
	}

	switch root {
	case "urlset":
		var set parse.XMLURLSet
		if err := xml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("%w: XML urlset '%s': %w", utils.ErrParsing, source, err)
		}
		return set.Locs(), nil

	case "sitemapindex":
		var index parse.XMLSitemapIndex
		if err := xml.Unmarshal(data, &index); err != nil {
			return nil, fmt.Errorf("%w: XML sitemapindex '%s': %w", utils.ErrParsing, source, err)
		}
		return r.readIndex(ctx, source, index, depth, visited), nil
	}
	return nil, fmt.Errorf("%w: XML root <%s> of '%s' is neither urlset nor sitemapindex", utils.ErrParsing, root, source)
}

func (r *Reader) readIndex(ctx context.Context, source string, index parse.XMLSitemapIndex, depth int, visited map[string]bool) []string {
	indexLog := r.log.WithFields(logrus.Fields{"sitemap_index": source, "depth": depth})
	if depth >= r.maxIndexDepth {
		indexLog.Warnf("Sitemap index nesting exceeds %d levels, ignoring %d children", r.maxIndexDepth, len(index.Sitemaps))
		return []string{}
	}
	indexLog.Infof("Parsed as Sitemap Index, found %d references", len(index.Sitemaps))

	urls := []string{}
	for _, entry := range index.Sitemaps {
		child := resolveChild(source, strings.TrimSpace(entry.Loc))
		if child == "" {
			continue
		}
		childLog := indexLog.WithField("nested_sitemap", child)
		if visited[child] {
			childLog.Debug("Nested sitemap already read")
			continue
		}
		visited[child] = true

		if ctx.Err() != nil {
			childLog.Warnf("Context done, not reading nested sitemap: %v", ctx.Err())
			break
		}
		childURLs, err := r.read(ctx, child, depth+1, visited)
		if err != nil {
			childLog.WithField("category", utils.CategorizeError(err)).Warnf("Skipping nested sitemap: %v", err)
			continue
		}
		urls = append(urls, childURLs...)
	}
	return urls
}

func (r *Reader) load(ctx context.Context, source string) ([]byte, error) {
	if isRemote(source) {
		if r.fetcher == nil {
			return nil, fmt.Errorf("%w: no fetcher configured for remote sitemap '%s'", utils.ErrRequestCreation, source)
		}
		page, err := r.fetcher.Get(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("fetching sitemap '%s': %w", source, err)
		}
		return page.Body, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: reading sitemap '%s': %w", utils.ErrFilesystem, source, err)
	}
	return data, nil
}

// rootElement returns the local name of the first element in data
func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no root element")
			}
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// resolveChild makes a nested sitemap location absolute: URLs against a remote
// index, file paths against a local index's directory
func resolveChild(parent, loc string) string {
	if loc == "" {
		return ""
	}
	if isRemote(parent) {
		if resolved, ok := parse.ResolveLink(loc, parent); ok {
			return resolved
		}
		return ""
	}
	if isRemote(loc) || filepath.IsAbs(loc) {
		return loc
	}
	return filepath.Join(filepath.Dir(parent), loc)
}

func parseTextList(data []byte) []string {
	urls := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// pathOf returns the path component of a URL source, or source itself for files
func pathOf(source string) string {
	if isRemote(source) {
		if u, err := url.Parse(source); err == nil {
			return u.Path
		}
	}
	return source
}
