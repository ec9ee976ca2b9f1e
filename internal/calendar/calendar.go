package calendar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	ical "github.com/arran4/golang-ical"
)

// Calendar is the merged output: events keyed by identity, first one wins.
type Calendar struct {
	productID string
	name      string

	events    map[string]Event
	order     []string
	timezones map[string]*ical.VTimezone
	tzOrder   []string
}

func New(productID, name string) *Calendar {
	return &Calendar{
		productID: productID,
		name:      name,
		events:    map[string]Event{},
		timezones: map[string]*ical.VTimezone{},
	}
}

func (c *Calendar) Has(key string) bool {
	_, ok := c.events[key]
	return ok
}

// AddEvent stores the event under its key. It returns false and leaves the
// calendar untouched when the key is already present.
func (c *Calendar) AddEvent(event Event) bool {
	key := event.Key()
	if c.Has(key) {
		return false
	}
	c.events[key] = event
	c.order = append(c.order, key)
	return true
}

// AddTimezone keeps the first definition seen for each TZID.
func (c *Calendar) AddTimezone(tz *ical.VTimezone) bool {
	p := tz.GetProperty(ical.ComponentPropertyTzid)
	if p == nil || p.Value == "" {
		return false
	}
	if _, ok := c.timezones[p.Value]; ok {
		return false
	}
	c.timezones[p.Value] = tz
	c.tzOrder = append(c.tzOrder, p.Value)
	return true
}

func (c *Calendar) Event(key string) (Event, bool) {
	event, ok := c.events[key]
	return event, ok
}

func (c *Calendar) Len() int {
	return len(c.events)
}

// Keys returns the identity keys in sorted order.
func (c *Calendar) Keys() []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.Strings(keys)
	return keys
}

func (c *Calendar) build() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(c.productID)
	cal.SetCalscale("GREGORIAN")
	if c.name != "" {
		cal.SetXWRCalName(c.name)
	}

	for _, tzid := range c.tzOrder {
		cal.Components = append(cal.Components, c.timezones[tzid])
	}
	for _, key := range c.order {
		cal.AddVEvent(c.events[key].component)
	}
	return cal
}

func (c *Calendar) Serialize() string {
	return c.build().Serialize()
}

func (c *Calendar) SerializeTo(w io.Writer) error {
	return c.build().SerializeTo(w)
}

// Save writes the serialized calendar to path, creating the parent directory
// if needed. The file is replaced atomically.
func (c *Calendar) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".calendar-*.ics.tmp")
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := c.SerializeTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
