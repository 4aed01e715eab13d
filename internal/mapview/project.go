package mapview

import (
	"math"

	"atlas/internal/model"
)

// Web Mercator projection at integer zoom levels with 256px tiles.
// Standard formulas; cell aspect correction happens in the canvas.

const (
	earthRadius = 6378137.0
	originShift = math.Pi * earthRadius // half the projected world width in meters
	tileSize    = 256.0

	// The projection blows up toward the poles.
	maxLatitude = 85.05112878

	minZoom = 2
	maxZoom = 18
)

// project converts lat/lon to Web Mercator meters.
func project(lat, lon float64) (x, y float64) {
	x = lon * originShift / 180.0
	y = math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) / (math.Pi / 180.0)
	y = y * originShift / 180.0
	return x, y
}

// unproject converts Web Mercator meters back to lat/lon.
func unproject(x, y float64) (lat, lon float64) {
	lon = x / originShift * 180.0
	lat = y / originShift * 180.0
	lat = 180.0 / math.Pi * (2.0*math.Atan(math.Exp(lat*math.Pi/180.0)) - math.Pi/2.0)
	return lat, lon
}

// pixelAt converts lat/lon to global pixel coordinates at a zoom level.
func pixelAt(lat, lon float64, zoom int) (px, py float64) {
	x, y := project(lat, lon)
	scale := math.Exp2(float64(zoom))
	px = (x + originShift) / (2.0 * originShift) * tileSize * scale
	py = (originShift - y) / (2.0 * originShift) * tileSize * scale
	return px, py
}

// latLonAt converts global pixel coordinates at a zoom level back to lat/lon.
func latLonAt(px, py float64, zoom int) (lat, lon float64) {
	scale := math.Exp2(float64(zoom))
	x := px/(tileSize*scale)*(2.0*originShift) - originShift
	y := originShift - py/(tileSize*scale)*(2.0*originShift)
	return unproject(x, y)
}

// haversineMeters returns the great-circle distance between two points.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371000
	phi1, phi2 := lat1*math.Pi/180, lat2*math.Pi/180
	dPhi, dLambda := (lat2-lat1)*math.Pi/180, (lon2-lon1)*math.Pi/180
	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * r * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// clampView keeps a view center inside the projectable world.
func clampView(c model.Coordinate) model.Coordinate {
	c.Lat = math.Max(-maxLatitude, math.Min(maxLatitude, c.Lat))
	c.Lon = math.Max(-180, math.Min(180, c.Lon))
	return c
}

func clampZoom(zoom int) int {
	if zoom < minZoom {
		return minZoom
	}
	if zoom > maxZoom {
		return maxZoom
	}
	return zoom
}

// fitView picks a center and zoom so every coordinate fits inside a
// viewport of pxW x pxH pixels, with a small margin.
func fitView(coords []model.Coordinate, pxW, pxH float64) (model.Coordinate, int) {
	if len(coords) == 0 {
		return model.Coordinate{}, minZoom
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range coords {
		x, y := project(c.Lat, c.Lon)
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}

	lat, lon := unproject((minX+maxX)/2, (minY+maxY)/2)
	center := clampView(model.Coordinate{Lat: lat, Lon: lon})

	if len(coords) == 1 {
		return center, 12
	}

	spanX := maxX - minX
	spanY := maxY - minY
	for zoom := maxZoom; zoom > minZoom; zoom-- {
		scale := math.Exp2(float64(zoom)) * tileSize / (2.0 * originShift)
		if spanX*scale <= pxW*0.85 && spanY*scale <= pxH*0.85 {
			return center, zoom
		}
	}
	return center, minZoom
}
