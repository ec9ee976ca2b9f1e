package merge

import (
	"context"
	"fmt"
	"time"

	"events-calendar/internal/calendar"
	"events-calendar/internal/scraper"
	"events-calendar/internal/utils"

	log "github.com/sirupsen/logrus"
)

// FeedReport is the outcome of merging a single feed.
type FeedReport struct {
	URL   string
	Added int
	Err   error
}

type Result struct {
	Calendar *calendar.Calendar
	Feeds    []FeedReport
}

// Merger downloads calendar feeds one after another and merges their
// upcoming events into a single calendar.
type Merger struct {
	Fetcher   scraper.Fetcher
	Clock     utils.Clock
	Logger    log.FieldLogger
	ProductID string
	Name      string
}

// Merge processes the feeds in the given order. A feed that cannot be
// fetched or parsed is logged and skipped; Merge itself never fails.
//
// The current time is read once so every event in the run is judged against
// the same instant. Events whose date cannot be evaluated are kept.
func (m *Merger) Merge(ctx context.Context, feedURLs []string) Result {
	now := m.clock().Now().UTC()
	logger := m.logger()

	result := Result{
		Calendar: calendar.New(m.ProductID, m.Name),
		Feeds:    make([]FeedReport, 0, len(feedURLs)),
	}

	for _, url := range feedURLs {
		report := FeedReport{URL: url}
		report.Added, report.Err = m.mergeFeed(ctx, result.Calendar, url, now)
		if report.Err != nil {
			logger.WithField("url", url).WithError(report.Err).Warn("Skipping feed")
		} else {
			logger.WithField("url", url).Infof("Added %d events", report.Added)
		}
		result.Feeds = append(result.Feeds, report)
	}

	logger.Infof("Total merged events: %d", result.Calendar.Len())
	return result
}

func (m *Merger) mergeFeed(ctx context.Context, cal *calendar.Calendar, url string, now time.Time) (int, error) {
	logger := m.logger().WithField("url", url)
	logger.Info("Downloading feed")

	body, err := m.Fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}

	feed, err := calendar.ParseFeed(body)
	if err != nil {
		return 0, fmt.Errorf("error parsing feed: %w", err)
	}

	added := 0
	for _, event := range feed.Events {
		if cal.Has(event.Key()) {
			continue
		}

		past, err := event.EndsBefore(now)
		if err != nil {
			logger.WithField("event", event.String()).WithError(err).Warn("Date compare issue, keeping event")
		} else if past {
			continue
		}

		if cal.AddEvent(event) {
			added++
		}
	}

	if added > 0 {
		for _, tz := range feed.Timezones {
			cal.AddTimezone(tz)
		}
	}

	return added, nil
}

func (m *Merger) clock() utils.Clock {
	if m.Clock == nil {
		return utils.SystemClock{}
	}
	return m.Clock
}

func (m *Merger) logger() log.FieldLogger {
	if m.Logger == nil {
		return log.StandardLogger()
	}
	return m.Logger
}
