package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/sitemap-scraper/pkg/models"
	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// writeMapping writes one "url<TAB>absolute path" line per saved document
func (p *Pipeline) writeMapping(outputDir string, outcomes []models.FetchOutcome) error {
	mappingPath := filepath.Join(outputDir, p.opts.OutputMappingFilename)
	file, err := os.Create(mappingPath)
	if err != nil {
		return fmt.Errorf("%w: creating mapping file '%s': %w", utils.ErrFilesystem, mappingPath, err)
	}

	w := bufio.NewWriter(file)
	lines := 0
	for _, o := range outcomes {
		if o.Status != models.StatusSuccess {
			continue
		}
		absPath, absErr := filepath.Abs(o.Path)
		if absErr != nil {
			absPath = o.Path
		}
		fmt.Fprintf(w, "%s\t%s\n", o.URL, absPath)
		lines++
	}

	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("%w: writing mapping file '%s': %w", utils.ErrFilesystem, mappingPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: closing mapping file '%s': %w", utils.ErrFilesystem, mappingPath, err)
	}
	p.log.Infof("Wrote URL-to-file mapping (%d entries) to %s", lines, mappingPath)
	return nil
}

// writeMetadata writes the run summary as YAML
func (p *Pipeline) writeMetadata(outputDir string, batchSize int, report *Report) error {
	metadataPath := filepath.Join(outputDir, p.opts.MetadataYAMLFilename)

	metadata := models.FetchMetadata{
		SitemapSource: p.opts.SitemapSource,
		OutputDir:     outputDir,
		Renderer:      p.opts.RendererName,
		BatchSize:     batchSize,
		StartTime:     report.Start,
		EndTime:       report.End,
		TotalURLs:     len(report.Outcomes),
		Saved:         report.Saved,
		Failed:        report.Failed,
		Skipped:       report.Skipped,
		Collisions:    report.Collisions,
		Outcomes:      report.Outcomes,
	}

	data, err := yaml.Marshal(&metadata)
	if err != nil {
		return fmt.Errorf("marshal run metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath, data, 0644); err != nil {
		return fmt.Errorf("%w: writing metadata file '%s': %w", utils.ErrFilesystem, metadataPath, err)
	}
	p.log.Infof("Wrote run metadata (%d URLs) to %s", metadata.TotalURLs, metadataPath)
	return nil
}
