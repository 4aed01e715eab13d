package ui

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"atlas/internal/api"
	"atlas/internal/model"
)

func TestIcsExportSuggestsPath(t *testing.T) {
	t.Parallel()

	form := NewIcsExportModel(api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33), testVisit(7), "")
	if got := form.path.Value(); got != "visit-7.ics" {
		t.Fatalf("suggested path = %q", got)
	}

	form = NewIcsExportModel(api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33), testVisit(7), "/home/u/calendar")
	if got := form.path.Value(); got != filepath.Join("/home/u/calendar", "visit-7.ics") {
		t.Fatalf("suggested path = %q", got)
	}
}

func TestIcsExportRequiresPath(t *testing.T) {
	t.Parallel()
	form := NewIcsExportModel(api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33), testVisit(7), "")

	form.path.SetValue("   ")
	if cmd := form.Update(keyMsg("enter")); cmd != nil {
		t.Fatal("blank path must not dispatch")
	}
	if form.errorText != "a file path is required" {
		t.Fatalf("errorText = %q", form.errorText)
	}
}

func TestIcsExportWritesCalendarFile(t *testing.T) {
	t.Parallel()

	payload := []byte("BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nSUMMARY:Visit: Louvre\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/visits/7/calendar_event" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "louvre.ics")
	form := NewIcsExportModel(api.NewClient(ts.URL), testPlace(1, "Louvre", 48.86, 2.33), testVisit(7), "")
	form.path.SetValue(dest)

	cmd := form.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatalf("form should dispatch, errorText = %q", form.errorText)
	}
	saved, ok := cmd().(model.CalendarSavedMsg)
	if !ok {
		t.Fatalf("msg = %T", cmd())
	}
	if saved.Path != dest {
		t.Fatalf("path = %q, want %q", saved.Path, dest)
	}

	written, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if !bytes.Equal(written, payload) {
		t.Fatalf("file content = %q", written)
	}
}

func TestIcsExportServerErrorSurfaces(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	form := NewIcsExportModel(api.NewClient(ts.URL), testPlace(1, "Louvre", 48.86, 2.33), testVisit(7), "")
	form.path.SetValue(filepath.Join(t.TempDir(), "out.ics"))

	msg := form.Update(keyMsg("enter"))()
	errMsg, ok := msg.(model.ErrorMsg)
	if !ok {
		t.Fatalf("msg = %T", msg)
	}
	if errMsg.Kind != model.ErrMutation {
		t.Fatalf("kind = %v", errMsg.Kind)
	}
}
