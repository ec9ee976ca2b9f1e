package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

const (
	icalTimestampFormatUTC   = "20060102T150405Z"
	icalTimestampFormatLocal = "20060102T150405"
	icalDateFormat           = "20060102"

	// keySeparator joins the fields of a derived identity key.
	keySeparator = "\x1f"
)

var (
	ErrEmptyFeed    = errors.New("empty calendar feed")
	ErrMissingStart = errors.New("event has neither DTEND nor DTSTART")
)

// Event is a single VEVENT read from a feed. The parsed component is kept
// so the merged output carries every property the feed published.
type Event struct {
	UID      string
	Name     string
	Location string

	// Begin and End are absolute instants. Floating and date-only values
	// carry their wall clock in UTC.
	Begin    time.Time
	End      time.Time
	HasBegin bool
	HasEnd   bool

	beginRaw  string
	dateErr   error
	component *ical.VEvent
}

// Feed is the content of one parsed calendar document.
type Feed struct {
	Events    []Event
	Timezones []*ical.VTimezone
}

// ParseFeed parses an iCalendar document. Events come back in document order.
func ParseFeed(body string) (*Feed, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyFeed
	}

	cal, err := ical.ParseCalendar(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error parsing calendar: %w", err)
	}

	feed := &Feed{}
	for _, component := range cal.Components {
		switch c := component.(type) {
		case *ical.VEvent:
			feed.Events = append(feed.Events, newEvent(c))
		case *ical.VTimezone:
			feed.Timezones = append(feed.Timezones, c)
		}
	}

	return feed, nil
}

func newEvent(ve *ical.VEvent) Event {
	event := Event{component: ve}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		event.UID = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		event.Name = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		event.Location = p.Value
	}

	allDay := false
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		event.beginRaw = p.Value
		allDay = isDate(p)
		begin, err := parseInstant(p, func() (time.Time, error) { return ve.GetStartAt() })
		if err != nil {
			event.dateErr = fmt.Errorf("DTSTART %q: %w", p.Value, err)
		} else {
			event.Begin, event.HasBegin = begin, true
		}
	}

	// DTEND wins over DURATION; an all-day event without either lasts one day.
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		end, err := parseInstant(p, func() (time.Time, error) { return ve.GetEndAt() })
		if err != nil {
			event.setDateErr(fmt.Errorf("DTEND %q: %w", p.Value, err))
		} else {
			event.End, event.HasEnd = end, true
		}
	} else if p := ve.GetProperty(ical.ComponentPropertyDuration); p != nil {
		d, err := parseDuration(p.Value)
		if err != nil {
			event.setDateErr(fmt.Errorf("DURATION: %w", err))
		} else if event.HasBegin {
			event.End, event.HasEnd = d.addTo(event.Begin), true
		}
	} else if event.HasBegin && allDay {
		event.End, event.HasEnd = event.Begin.AddDate(0, 0, 1), true
	}

	return event
}

func (e *Event) setDateErr(err error) {
	if e.dateErr == nil {
		e.dateErr = err
	}
}

// isDate reports whether a DTSTART holds a DATE rather than a DATE-TIME.
func isDate(p *ical.IANAProperty) bool {
	if values, ok := p.ICalParameters["VALUE"]; ok && len(values) > 0 && strings.EqualFold(values[0], "DATE") {
		return true
	}
	return !strings.Contains(strings.ToUpper(p.Value), "T")
}

// parseInstant reads a DATE or DATE-TIME property. Values bound to a TZID are
// left to the library, which resolves the zone; UTC values are parsed as
// such, and anything else is naive and gets UTC attached without shifting.
func parseInstant(p *ical.IANAProperty, zoned func() (time.Time, error)) (time.Time, error) {
	value := strings.TrimSpace(p.Value)
	if value == "" {
		return time.Time{}, errors.New("empty value")
	}

	if tzids, ok := p.ICalParameters["TZID"]; ok && len(tzids) > 0 && tzids[0] != "" {
		return zoned()
	}

	if strings.HasSuffix(value, "Z") {
		return time.Parse(icalTimestampFormatUTC, value)
	}
	if strings.Contains(value, "T") {
		return time.ParseInLocation(icalTimestampFormatLocal, value, time.UTC)
	}
	return time.ParseInLocation(icalDateFormat, value, time.UTC)
}

// Key identifies the event across feeds: the UID when present, otherwise
// name, begin and location joined together.
func (e Event) Key() string {
	if e.UID != "" {
		return e.UID
	}
	begin := e.beginRaw
	if e.HasBegin {
		begin = e.Begin.UTC().Format(time.RFC3339Nano)
	}
	return strings.Join([]string{e.Name, begin, e.Location}, keySeparator)
}

// EffectiveEnd is the end of the event, or DTSTART when the event has no end.
func (e Event) EffectiveEnd() (time.Time, error) {
	if e.dateErr != nil {
		return time.Time{}, e.dateErr
	}
	if e.HasEnd {
		return e.End, nil
	}
	if e.HasBegin {
		return e.Begin, nil
	}
	return time.Time{}, ErrMissingStart
}

// EndsBefore reports whether the event is over at the given instant.
func (e Event) EndsBefore(now time.Time) (bool, error) {
	end, err := e.EffectiveEnd()
	if err != nil {
		return false, err
	}
	return end.Before(now), nil
}

func (e Event) String() string {
	if e.Name != "" {
		return e.Name
	}
	if e.UID != "" {
		return e.UID
	}
	return "(untitled event)"
}
