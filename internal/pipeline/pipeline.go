package pipeline

import (
	"context"

	"events-calendar/internal/merge"
	"events-calendar/internal/scraper"

	log "github.com/sirupsen/logrus"
)

// ExitStatus is the process exit code reported for a run.
type ExitStatus int

const (
	ExitOK ExitStatus = 0
	// ExitFatal means the events page could not be fetched or the output
	// could not be written.
	ExitFatal ExitStatus = 1
	// ExitNoLinks means the page had no calendar links; its markup has
	// probably changed.
	ExitNoLinks ExitStatus = 2
)

// Extractor finds the feed links on an events page.
type Extractor func(markup string, pageURL string) (scraper.Links, error)

// Merger combines feeds into one calendar.
type Merger interface {
	Merge(ctx context.Context, feedURLs []string) merge.Result
}

type Pipeline struct {
	PageURL    string
	OutputPath string

	Fetcher scraper.Fetcher
	Extract Extractor
	Merger  Merger
	Logger  log.FieldLogger
}

// Run fetches the events page, merges every linked feed and writes the
// result to OutputPath. Nothing is written unless the run gets as far as
// having a merged calendar.
func (p *Pipeline) Run(ctx context.Context) ExitStatus {
	logger := p.logger()

	logger.WithField("url", p.PageURL).Info("Fetching events page")
	markup, err := p.Fetcher.Fetch(ctx, p.PageURL)
	if err != nil {
		logger.WithField("url", p.PageURL).WithError(err).Error("Could not fetch events page")
		return ExitFatal
	}

	extract := p.Extract
	if extract == nil {
		extract = scraper.ExtractFeedLinks
	}
	found, err := extract(markup, p.PageURL)
	if err != nil {
		logger.WithField("url", p.PageURL).WithError(err).Error("Could not read events page")
		return ExitFatal
	}
	for _, href := range found.Rejected {
		logger.WithField("href", href).Warn("Skipping unparsable ICS link")
	}
	links := found.URLs

	logger.Infof("Found %d ICS links", len(links))
	for _, link := range links {
		logger.Infof("  - %s", link)
	}
	if len(links) == 0 {
		logger.Error("No ICS links found. The page markup may have changed.")
		return ExitNoLinks
	}

	result := p.Merger.Merge(ctx, links)

	if err := result.Calendar.Save(p.OutputPath); err != nil {
		logger.WithField("path", p.OutputPath).WithError(err).Error("Could not write calendar")
		return ExitFatal
	}

	logger.Infof("Wrote %d events to %s", result.Calendar.Len(), p.OutputPath)
	return ExitOK
}

func (p *Pipeline) logger() log.FieldLogger {
	if p.Logger == nil {
		return log.StandardLogger()
	}
	return p.Logger
}
