package parse

import (
	"encoding/xml"
	"strings"
)

// SitemapNamespace is the sitemaps.org 0.9 schema namespace
const SitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// LastModLayout is the W3C date format used for <lastmod>
const LastModLayout = "2006-01-02"

// --- XML Structs for Sitemap Encoding and Parsing ---

// XMLURL represents a <url> element in a sitemap
type XMLURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// XMLURLSet represents a <urlset> element in a sitemap.
// Xmlns is written on encode; decoding accepts any or no namespace.
type XMLURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr,omitempty"`
	URLs    []XMLURL `xml:"url"`
}

// XMLSitemap represents a <sitemap> element in a sitemap index file
type XMLSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLSitemapIndex represents a <sitemapindex> element
type XMLSitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Xmlns    string       `xml:"xmlns,attr,omitempty"`
	Sitemaps []XMLSitemap `xml:"sitemap"`
}

// Locs returns the trimmed <loc> of every <url> in document order, skipping empty ones
func (s XMLURLSet) Locs() []string {
	locs := make([]string, 0, len(s.URLs))
	for _, u := range s.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs
}
