package mapview

import (
	"math"
	"testing"

	"atlas/internal/model"
)

func TestPixelRoundTrip(t *testing.T) {
	coords := []model.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 40.7128, Lon: -74.0060},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 78.2232, Lon: 15.6267},
	}

	for _, c := range coords {
		for _, zoom := range []int{2, 8, 14, 18} {
			px, py := pixelAt(c.Lat, c.Lon, zoom)
			lat, lon := latLonAt(px, py, zoom)
			if math.Abs(lat-c.Lat) > 1e-6 || math.Abs(lon-c.Lon) > 1e-6 {
				t.Errorf("round trip at z%d: got %.7f,%.7f want %.7f,%.7f", zoom, lat, lon, c.Lat, c.Lon)
			}
		}
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// New York to Los Angeles, roughly 3936 km.
	d := haversineMeters(40.7128, -74.0060, 34.0522, -118.2437)
	if d < 3.9e6 || d > 4.0e6 {
		t.Errorf("NYC-LA distance = %.0f m, want ~3.94e6", d)
	}
}

func TestClampView(t *testing.T) {
	c := clampView(model.Coordinate{Lat: 89.9, Lon: 200})
	if c.Lat > maxLatitude || c.Lon > 180 {
		t.Errorf("clampView returned out-of-range %+v", c)
	}
}

func TestFitViewContainsAll(t *testing.T) {
	coords := []model.Coordinate{
		{Lat: 40.7128, Lon: -74.0060},
		{Lat: 40.6892, Lon: -74.0445},
		{Lat: 40.7484, Lon: -73.9857},
	}

	center, zoom := fitView(coords, 80, 48)
	cx, cy := pixelAt(center.Lat, center.Lon, zoom)
	for _, c := range coords {
		px, py := pixelAt(c.Lat, c.Lon, zoom)
		if math.Abs(px-cx) > 40 || math.Abs(py-cy) > 24 {
			t.Errorf("coordinate %+v falls outside the fitted viewport (z%d)", c, zoom)
		}
	}
}

func TestFitViewSingleCoordinate(t *testing.T) {
	center, zoom := fitView([]model.Coordinate{{Lat: 51.5, Lon: -0.12}}, 80, 48)
	if math.Abs(center.Lat-51.5) > 1e-9 || math.Abs(center.Lon+0.12) > 1e-9 {
		t.Errorf("single-coordinate fit center = %+v", center)
	}
	if zoom < minZoom || zoom > maxZoom {
		t.Errorf("single-coordinate fit zoom = %d", zoom)
	}
}
