package util

import (
	"strings"
	"testing"
	"time"
)

func TestParseDateTimeInputLayouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  time.Time
	}{
		{"2026-09-12 19:30", time.Date(2026, 9, 12, 19, 30, 0, 0, time.Local)},
		{"2026-09-12T19:30", time.Date(2026, 9, 12, 19, 30, 0, 0, time.Local)},
		{"2026-09-12T19:30:00Z", time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC)},
		{"2026-09-12", time.Date(2026, 9, 12, 0, 0, 0, 0, time.Local)},
		{"Sep 12, 2026 19:30", time.Date(2026, 9, 12, 19, 30, 0, 0, time.Local)},
		{"Sep 12, 2026", time.Date(2026, 9, 12, 0, 0, 0, 0, time.Local)},
		{"9/12/2026 19:30", time.Date(2026, 9, 12, 19, 30, 0, 0, time.Local)},
		{"9/12/2026", time.Date(2026, 9, 12, 0, 0, 0, 0, time.Local)},
		{"  2026-09-12 19:30  ", time.Date(2026, 9, 12, 19, 30, 0, 0, time.Local)},
	}

	for _, tc := range cases {
		got, err := ParseDateTimeInput(tc.input)
		if err != nil {
			t.Errorf("ParseDateTimeInput(%q): %v", tc.input, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseDateTimeInput(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestParseDateTimeInputRejectsJunk(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "soonish", "tomorrow", "12 Sep", "2026-13-40"} {
		if _, err := ParseDateTimeInput(input); err == nil {
			t.Errorf("ParseDateTimeInput(%q) accepted, want error", input)
		}
	}
}

func TestFormatDateTime(t *testing.T) {
	t.Parallel()

	if got := FormatDateTime(time.Time{}); got != "Unknown" {
		t.Errorf("FormatDateTime(zero) = %q, want Unknown", got)
	}
	when := time.Date(2026, 9, 12, 19, 30, 0, 0, time.Local)
	if got := FormatDateTime(when); got != "Sep 12, 2026 19:30" {
		t.Errorf("FormatDateTime = %q", got)
	}
}

func TestFormatDateTimeHumanRelativeDays(t *testing.T) {
	t.Parallel()

	now := time.Now()
	if got := FormatDateTimeHuman(now); !strings.HasPrefix(got, "Today ") {
		t.Errorf("FormatDateTimeHuman(now) = %q, want Today prefix", got)
	}
	if got := FormatDateTimeHuman(now.AddDate(0, 0, -1)); got != "Yesterday" {
		t.Errorf("FormatDateTimeHuman(-1d) = %q, want Yesterday", got)
	}
	if got := FormatDateTimeHuman(now.AddDate(0, 0, 1)); !strings.HasPrefix(got, "Tomorrow ") {
		t.Errorf("FormatDateTimeHuman(+1d) = %q, want Tomorrow prefix", got)
	}
	if got := FormatDateTimeHuman(now.AddDate(0, 0, -3)); got != "3d ago" {
		t.Errorf("FormatDateTimeHuman(-3d) = %q, want 3d ago", got)
	}
	if got := FormatDateTimeHuman(now.AddDate(0, 0, 3)); got != "in 3d" {
		t.Errorf("FormatDateTimeHuman(+3d) = %q, want in 3d", got)
	}
	old := time.Date(2019, 3, 5, 12, 0, 0, 0, time.Local)
	if got := FormatDateTimeHuman(old); got != "Mar 05 '19" {
		t.Errorf("FormatDateTimeHuman(2019) = %q, want Mar 05 '19", got)
	}
}

func TestFormatRating(t *testing.T) {
	t.Parallel()

	if got := FormatRating(nil); got != "—" {
		t.Errorf("FormatRating(nil) = %q", got)
	}
	four := 4
	if got := FormatRating(&four); got != "★★★★☆" {
		t.Errorf("FormatRating(4) = %q", got)
	}
	nine := 9
	if got := FormatRating(&nine); got != "★★★★★" {
		t.Errorf("FormatRating(9) = %q, want clamped to five stars", got)
	}
}

func TestFormatCoord(t *testing.T) {
	t.Parallel()

	if got := FormatCoord(nil, nil); got != "—" {
		t.Errorf("FormatCoord(nil, nil) = %q", got)
	}
	lat, lon := 40.7128, -74.006
	if got := FormatCoord(&lat, &lon); got != "40.7128, -74.0060" {
		t.Errorf("FormatCoord = %q", got)
	}
	if got := FormatCoord(&lat, nil); got != "—" {
		t.Errorf("FormatCoord(lat, nil) = %q, want —", got)
	}
}

func TestParseOptionalFloat(t *testing.T) {
	t.Parallel()

	if v, err := ParseOptionalFloat("  "); err != nil || v != nil {
		t.Errorf("ParseOptionalFloat(blank) = %v, %v, want nil, nil", v, err)
	}
	v, err := ParseOptionalFloat(" 42.5 ")
	if err != nil || v == nil || *v != 42.5 {
		t.Errorf("ParseOptionalFloat(42.5) = %v, %v", v, err)
	}
	if _, err := ParseOptionalFloat("north"); err == nil {
		t.Error("ParseOptionalFloat(north) accepted, want error")
	}
}

func TestParseTagsDedupesPreservingOrder(t *testing.T) {
	t.Parallel()

	got := ParseTags("food, park,food , ,cafe")
	want := []string{"food", "park", "cafe"}
	if len(got) != len(want) {
		t.Fatalf("ParseTags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ParseTags = %v, want %v", got, want)
		}
	}
	if tags := ParseTags("   "); tags != nil {
		t.Errorf("ParseTags(blank) = %v, want nil", tags)
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("TruncateString(short) = %q", got)
	}
	if got := TruncateString("a very long string", 10); got != "a very ..." {
		t.Errorf("TruncateString = %q", got)
	}
	if got := TruncateString("héllo wörld", 8); got != "héllo..." {
		t.Errorf("TruncateString(unicode) = %q", got)
	}
	if got := TruncateString("abcdef", 2); got != "ab" {
		t.Errorf("TruncateString(maxLen 2) = %q", got)
	}
}
