package model

// Bubble Tea message types

// ErrKind classifies an error so the presentation layer can choose how
// to show it. The engine itself never formats user-facing text.
type ErrKind int

const (
	// ErrValidation is a local input problem; shown inline by the form.
	ErrValidation ErrKind = iota
	// ErrMutation is a rejected or failed create/update/delete call.
	ErrMutation
	// ErrReconcile means a mutation succeeded but the follow-up
	// re-fetch of the parent entity failed; the view may be stale.
	ErrReconcile
	// ErrCapability means a map feature is unavailable; data
	// operations are unaffected.
	ErrCapability
)

// ErrorMsg represents an error surfaced to the user.
type ErrorMsg struct {
	Kind ErrKind
	Err  error
}

// PlaceSavedMsg is sent when a place create or update call resolves.
// Place is the raw server entity, including the derived status.
type PlaceSavedMsg struct {
	Place   Place
	Created bool
}

// PlaceDeletedMsg is sent when a place delete call resolves.
type PlaceDeletedMsg struct {
	ID int64
}

// VisitSavedMsg is sent when a visit create or update call resolves.
// It triggers a re-fetch of the parent place; the embedded visit is
// never patched into local state directly.
type VisitSavedMsg struct {
	Visit Visit
}

// VisitDeletedMsg is sent when a visit delete call resolves.
type VisitDeletedMsg struct {
	ID      int64
	PlaceID int64
}

// PlaceRefetchedMsg carries the authoritative parent place fetched
// after a visit mutation.
type PlaceRefetchedMsg struct {
	Place Place
}

// ReconcileFailedMsg is sent when the post-mutation re-fetch fails.
// The mutation itself succeeded.
type ReconcileFailedMsg struct {
	PlaceID int64
	Err     error
}

// PlacesReloadedMsg carries a full collection refresh.
type PlacesReloadedMsg struct {
	Places        []Place
	TagVocabulary []string
}

// GeocodedMsg carries a geocode lookup result back to the form that
// requested it. Seq guards against stale responses.
type GeocodedMsg struct {
	Seq    int
	Result GeocodeResult
	Err    error
}

// CalendarSavedMsg is sent when a calendar event file has been written.
type CalendarSavedMsg struct {
	Path string
}

// FormCancelledMsg is sent when a form is cancelled.
type FormCancelledMsg struct{}

// UIMode identifies the active editing surface. At most one mode other
// than ModeIdle is ever active.
type UIMode int

const (
	ModeIdle UIMode = iota
	ModeAddPlace
	ModeEditPlace
	ModePlanVisit
	ModeReviewVisit
	ModeVisitsList
	ModeSeeReview
	ModeIcsExport
)

// String returns the mode name used in breadcrumbs and logs.
func (m UIMode) String() string {
	switch m {
	case ModeIdle:
		return "map"
	case ModeAddPlace:
		return "add place"
	case ModeEditPlace:
		return "edit place"
	case ModePlanVisit:
		return "plan visit"
	case ModeReviewVisit:
		return "review visit"
	case ModeVisitsList:
		return "visits"
	case ModeSeeReview:
		return "review"
	case ModeIcsExport:
		return "export"
	default:
		return "unknown"
	}
}
