package calendar

import "strings"

// ics wraps VEVENT lines into a CRLF-terminated VCALENDAR document.
func ics(lines ...string) string {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//feed//EN"}, lines...)
	all = append(all, "END:VCALENDAR")
	return strings.Join(all, "\r\n") + "\r\n"
}

func vevent(props ...string) []string {
	out := append([]string{"BEGIN:VEVENT"}, props...)
	return append(out, "END:VEVENT")
}

func join(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
