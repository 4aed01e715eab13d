package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatDateTime formats a visit datetime for detail display.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("Jan 02, 2006 15:04")
}

// FormatDateTimeHuman formats a datetime with humanized relative display.
// "Today 18:30", "Yesterday", "Tomorrow 12:00", "3d ago", "in 5d",
// "Jan 15", "Jan 15 '24"
func FormatDateTimeHuman(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())

	days := int(today.Sub(day).Hours() / 24)

	switch {
	case days == 0:
		return "Today " + t.Format("15:04")
	case days == 1:
		return "Yesterday"
	case days == -1:
		return "Tomorrow " + t.Format("15:04")
	case days > 1 && days < 7:
		return fmt.Sprintf("%dd ago", days)
	case days < -1 && days > -7:
		return fmt.Sprintf("in %dd", -days)
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("Jan 02 '06")
	}
}

// FormatRating formats a 1-5 rating as stars (e.g., "★★★★☆"), or "—" if nil.
func FormatRating(rating *int) string {
	if rating == nil {
		return "—"
	}
	stars := *rating
	if stars < 0 {
		stars = 0
	}
	if stars > 5 {
		stars = 5
	}
	result := ""
	for i := 0; i < 5; i++ {
		if i < stars {
			result += "★"
		} else {
			result += "☆"
		}
	}
	return result
}

// FormatCoord formats an optional coordinate pair as "40.7128, -74.0060"
// or "—" when either half is missing.
func FormatCoord(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return "—"
	}
	return fmt.Sprintf("%.4f, %.4f", *lat, *lon)
}

// ParseDateTimeInput parses flexible user input into a local time.
func ParseDateTimeInput(input string) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, fmt.Errorf("date/time is required")
	}

	layouts := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		time.RFC3339,
		"2006-01-02",
		"Jan 2, 2006 15:04",
		"Jan 2, 2006",
		"1/2/2006 15:04",
		"1/2/2006",
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date/time format")
}

// ParseOptionalFloat parses a numeric field that may be left blank.
// Empty input returns nil without error.
func ParseOptionalFloat(input string) (*float64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number")
	}
	return &v, nil
}

// ParseTags splits comma-separated tag input, trimming whitespace and
// dropping empties and duplicates while preserving order.
func ParseTags(input string) []string {
	parts := strings.Split(input, ",")
	seen := make(map[string]bool, len(parts))
	var tags []string
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

// TruncateString truncates a string to maxLen and adds "..." if needed.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
