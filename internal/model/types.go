package model

import (
	"math"
	"time"
)

// Place lifecycle status, derived by the server from visit dates.
// The client renders these and never computes them locally.
const (
	StatusPending = "pending"
	StatusPlanned = "planned"
	StatusVisited = "visited"
)

// Place represents a saved place with its embedded visits.
type Place struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Status    string    `json:"status"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country,omitempty"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Tags      []string  `json:"tags"`
	Visits    []Visit   `json:"visits"`
	CreatedAt time.Time `json:"created_at"`
}

// Coord returns the place's map position. ok is false when either half
// of the pair is missing or out of range.
func (p Place) Coord() (Coordinate, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return Coordinate{}, false
	}
	c := Coordinate{Lat: *p.Latitude, Lon: *p.Longitude}
	return c, c.Valid()
}

// Visit represents a planned or past visit to a place.
type Visit struct {
	ID          int64     `json:"id"`
	PlaceID     int64     `json:"place_id"`
	When        time.Time `json:"visit_datetime"`
	Rating      *int      `json:"rating,omitempty"` // 1-5
	ReviewTitle string    `json:"review_title,omitempty"`
	ReviewText  string    `json:"review_text,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Reviewed reports whether the visit carries review content.
func (v Visit) Reviewed() bool {
	return v.Rating != nil || v.ReviewTitle != "" || v.ReviewText != ""
}

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the pair is a usable map position: both values
// finite, latitude within [-90, 90], longitude within [-180, 180].
// Every coordinate check in the app goes through this.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) {
		return false
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Bootstrap is the initial application state served at GET / and handed
// to the UI at construction. The UI never fetches it on its own.
type Bootstrap struct {
	Places        []Place  `json:"places"`
	TagVocabulary []string `json:"tag_vocabulary"`
}

// GeocodeResult is a resolved address from the geocode endpoint.
type GeocodeResult struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
	Address     string  `json:"address,omitempty"`
	City        string  `json:"city,omitempty"`
	Country     string  `json:"country,omitempty"`
}

// NewPlace represents data for creating a place.
type NewPlace struct {
	Name      string   `json:"name"`
	Category  string   `json:"category,omitempty"`
	Address   string   `json:"address,omitempty"`
	City      string   `json:"city,omitempty"`
	Country   string   `json:"country,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Tags      []string `json:"tags,omitempty"`
}

// PlaceUpdate represents data for updating a place. The target id
// travels in the request path, not the body.
type PlaceUpdate struct {
	Name      string   `json:"name"`
	Category  string   `json:"category,omitempty"`
	Address   string   `json:"address,omitempty"`
	City      string   `json:"city,omitempty"`
	Country   string   `json:"country,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Tags      []string `json:"tags,omitempty"`
}

// NewVisit represents data for planning a visit.
type NewVisit struct {
	When time.Time `json:"visit_datetime"`
}

// VisitUpdate represents data for rescheduling a visit.
type VisitUpdate struct {
	When time.Time `json:"visit_datetime"`
}

// ReviewUpdate represents review content attached to a visit. It is
// sent as a multipart form because of the optional image upload.
type ReviewUpdate struct {
	Rating      *int
	Title       string
	Text        string
	ImagePath   string // local file to upload, empty for none
	RemoveImage bool
}
