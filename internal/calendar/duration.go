package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var errInvalidDuration = errors.New("invalid duration")

// duration is an iCalendar DURATION value. Days and weeks are nominal and
// follow the calendar, the time part is exact.
type duration struct {
	days  int
	clock time.Duration
}

func (d duration) addTo(t time.Time) time.Time {
	return t.AddDate(0, 0, d.days).Add(d.clock)
}

// parseDuration reads values such as P1W, P2DT3H, PT90M or -PT15M.
func parseDuration(value string) (duration, error) {
	s := strings.ToUpper(strings.TrimSpace(value))
	sign := 1
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") {
		return duration{}, fmt.Errorf("%w: %q", errInvalidDuration, value)
	}

	var d duration
	var digits strings.Builder
	inTime, parts, timeParts := false, 0, 0
	for _, r := range s[1:] {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		if r == 'T' {
			if inTime || digits.Len() > 0 {
				return duration{}, fmt.Errorf("%w: %q", errInvalidDuration, value)
			}
			inTime = true
			continue
		}
		if digits.Len() == 0 {
			return duration{}, fmt.Errorf("%w: %q", errInvalidDuration, value)
		}
		n, err := strconv.Atoi(digits.String())
		if err != nil {
			return duration{}, fmt.Errorf("%w: %q", errInvalidDuration, value)
		}
		digits.Reset()
		parts++
		if inTime {
			timeParts++
		}

		switch {
		case r == 'W' && !inTime:
			d.days += 7 * n
		case r == 'D' && !inTime:
			d.days += n
		case r == 'H' && inTime:
			d.clock += time.Duration(n) * time.Hour
		case r == 'M' && inTime:
			d.clock += time.Duration(n) * time.Minute
		case r == 'S' && inTime:
			d.clock += time.Duration(n) * time.Second
		default:
			return duration{}, fmt.Errorf("%w: %q", errInvalidDuration, value)
		}
	}
	if digits.Len() > 0 || parts == 0 || (inTime && timeParts == 0) {
		return duration{}, fmt.Errorf("%w: %q", errInvalidDuration, value)
	}

	d.days *= sign
	d.clock *= time.Duration(sign)
	return d, nil
}
