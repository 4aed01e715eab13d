package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atlas/internal/api"
	"atlas/internal/model"
	"atlas/internal/util"
)

func TestVisitFormRejectsBadInput(t *testing.T) {
	t.Parallel()
	form := NewVisitFormModel(api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33))

	if cmd := form.Update(keyMsg("enter")); cmd != nil {
		t.Fatal("empty form must not dispatch")
	}
	if form.errorText != "a date and time is required" {
		t.Fatalf("errorText = %q", form.errorText)
	}

	form.when.SetValue("next tuesday maybe")
	if cmd := form.Update(keyMsg("ctrl+s")); cmd != nil {
		t.Fatal("junk input must not dispatch")
	}
	if form.errorText != "invalid date/time format" {
		t.Fatalf("errorText = %q", form.errorText)
	}
}

func TestVisitFormPlansVisit(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 9, 12, 19, 30, 0, 0, time.Local)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/places/1/visits" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var payload model.NewVisit
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if !payload.When.Equal(want) {
			t.Errorf("when = %v, want %v", payload.When, want)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(model.Visit{ID: 7, PlaceID: 1, When: payload.When})
	}))
	defer ts.Close()

	form := NewVisitFormModel(api.NewClient(ts.URL), testPlace(1, "Louvre", 48.86, 2.33))
	if form.Title() != "Plan Visit" {
		t.Fatalf("Title = %q", form.Title())
	}
	form.when.SetValue("2026-09-12 19:30")

	cmd := form.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatalf("valid form should dispatch, errorText = %q", form.errorText)
	}
	saved, ok := cmd().(model.VisitSavedMsg)
	if !ok {
		t.Fatalf("msg = %T", cmd())
	}
	if saved.Visit.ID != 7 || saved.Visit.PlaceID != 1 {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestVisitFormReschedulePrefillsAndUpdates(t *testing.T) {
	t.Parallel()

	existing := model.Visit{ID: 7, PlaceID: 1, When: time.Date(2026, 9, 12, 19, 30, 0, 0, time.Local)}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/visits/7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var payload model.VisitUpdate
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(model.Visit{ID: 7, PlaceID: 1, When: payload.When})
	}))
	defer ts.Close()

	form := NewVisitFormModel(api.NewClient(ts.URL), testPlace(1, "Louvre", 48.86, 2.33))
	form.LoadVisit(existing)

	if form.Title() != "Reschedule Visit" {
		t.Fatalf("Title = %q", form.Title())
	}
	if got := form.when.Value(); got != util.FormatDateTime(existing.When) {
		t.Fatalf("prefill = %q", got)
	}

	// The prefilled rendering parses back unchanged.
	cmd := form.Update(keyMsg("ctrl+s"))
	if cmd == nil {
		t.Fatalf("prefilled form should dispatch, errorText = %q", form.errorText)
	}
	saved, ok := cmd().(model.VisitSavedMsg)
	if !ok {
		t.Fatalf("msg = %T", cmd())
	}
	if !saved.Visit.When.Equal(existing.When) {
		t.Fatalf("when = %v, want %v", saved.Visit.When, existing.When)
	}
}

func TestVisitFormEscCancels(t *testing.T) {
	t.Parallel()
	form := NewVisitFormModel(api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33))

	cmd := form.Update(keyMsg("esc"))
	if cmd == nil {
		t.Fatal("esc should emit a cancel")
	}
	if _, ok := cmd().(model.FormCancelledMsg); !ok {
		t.Fatal("esc should cancel the form")
	}
}
