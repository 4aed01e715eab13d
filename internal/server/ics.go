package server

import (
	"fmt"
	"strings"
	"time"

	"atlas/internal/model"
)

// buildCalendarEvent renders an iCalendar payload for a visit. The
// event runs for one hour from the visit time; clients treat the bytes
// as opaque and write them straight to disk.
func buildCalendarEvent(p model.Place, v model.Visit, now time.Time) []byte {
	stamp := func(t time.Time) string {
		return t.UTC().Format("20060102T150405Z")
	}

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//atlas//visit calendar//EN\r\n")
	b.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(&b, "UID:visit-%d@atlas\r\n", v.ID)
	fmt.Fprintf(&b, "DTSTAMP:%s\r\n", stamp(now))
	fmt.Fprintf(&b, "DTSTART:%s\r\n", stamp(v.When))
	fmt.Fprintf(&b, "DTEND:%s\r\n", stamp(v.When.Add(time.Hour)))
	fmt.Fprintf(&b, "SUMMARY:%s\r\n", icsEscape("Visit "+p.Name))

	var locParts []string
	for _, part := range []string{p.Address, p.City, p.Country} {
		if part != "" {
			locParts = append(locParts, part)
		}
	}
	if len(locParts) > 0 {
		fmt.Fprintf(&b, "LOCATION:%s\r\n", icsEscape(strings.Join(locParts, ", ")))
	}
	if coord, ok := p.Coord(); ok {
		fmt.Fprintf(&b, "GEO:%.6f;%.6f\r\n", coord.Lat, coord.Lon)
	}

	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}

// icsEscape escapes text per RFC 5545 section 3.3.11.
func icsEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
