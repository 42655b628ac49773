package sitemap

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-scraper/pkg/config"
	"github.com/Sriram-PR/sitemap-scraper/pkg/parse"
	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// Writer serializes crawled URLs as a sitemaps.org 0.9 <urlset>
type Writer struct {
	changeFreq string
	priority   string
	now        func() time.Time
	log        *logrus.Entry
}

// NewWriter creates a Writer. Empty changeFreq / priority use the defaults
// ("monthly", "0.8").
func NewWriter(changeFreq, priority string, log *logrus.Entry) *Writer {
	if changeFreq == "" {
		changeFreq = config.DefaultChangeFreq
	}
	if priority == "" {
		priority = config.DefaultPriority
	}
	return &Writer{
		changeFreq: changeFreq,
		priority:   priority,
		now:        time.Now,
		log:        log.WithField("component", "sitemap_writer"),
	}
}

// Document builds the <urlset> for urls, one <url> each, in order.
// Every entry carries today's date as lastmod.
func (w *Writer) Document(urls []string) parse.XMLURLSet {
	lastMod := w.now().Format(parse.LastModLayout)
	doc := parse.XMLURLSet{
		Xmlns: parse.SitemapNamespace,
		URLs:  make([]parse.XMLURL, 0, len(urls)),
	}
	for _, loc := range urls {
		doc.URLs = append(doc.URLs, parse.XMLURL{
			Loc:        loc,
			LastMod:    lastMod,
			ChangeFreq: w.changeFreq,
			Priority:   w.priority,
		})
	}
	return doc
}

// Encode writes the XML declaration and the indented <urlset> for urls to out
func (w *Writer) Encode(out io.Writer, urls []string) error {
	if _, err := io.WriteString(out, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	if err := enc.Encode(w.Document(urls)); err != nil {
		return fmt.Errorf("encoding sitemap: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding sitemap: %w", err)
	}
	_, err := io.WriteString(out, "\n")
	return err
}

// Write saves the sitemap for urls to path, creating parent directories as needed
func (w *Writer) Write(urls []string, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: creating sitemap directory '%s': %w", utils.ErrFilesystem, dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating sitemap '%s': %w", utils.ErrFilesystem, path, err)
	}
	if err := w.Encode(file, urls); err != nil {
		file.Close()
		return fmt.Errorf("%w: writing sitemap '%s': %w", utils.ErrFilesystem, path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: closing sitemap '%s': %w", utils.ErrFilesystem, path, err)
	}

	w.log.WithFields(logrus.Fields{"path": path, "urls": len(urls)}).Info("Sitemap written")
	return nil
}
