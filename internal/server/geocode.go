package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"atlas/internal/model"
)

const (
	defaultNominatimServer = "https://nominatim.openstreetmap.org"
	geocodeMinInterval     = time.Second
	geocodeCacheTTL        = 15 * time.Minute
)

// geocoder resolves free-form addresses against a Nominatim server.
// Successful lookups are cached, and upstream calls are spaced out to
// stay within the public server's usage policy.
type geocoder struct {
	upstream   string
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]geocodeEntry
	last  time.Time
}

type geocodeEntry struct {
	result  model.GeocodeResult
	fetched time.Time
}

func newGeocoder(upstream string) *geocoder {
	if upstream == "" {
		upstream = defaultNominatimServer
	}
	return &geocoder{
		upstream: strings.TrimRight(upstream, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: make(map[string]geocodeEntry),
	}
}

// nominatimResult is the subset of the Nominatim search response we
// use. Latitude and longitude come back as strings.
type nominatimResult struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     *nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Country     string `json:"country"`
}

// lookup resolves an address to a coordinate and structured fields.
func (g *geocoder) lookup(ctx context.Context, address string) (model.GeocodeResult, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	if key == "" {
		return model.GeocodeResult{}, fmt.Errorf("address is required")
	}

	g.mu.Lock()
	if entry, ok := g.cache[key]; ok && time.Since(entry.fetched) < geocodeCacheTTL {
		g.mu.Unlock()
		return entry.result, nil
	}
	wait := geocodeMinInterval - time.Since(g.last)
	if wait < 0 {
		wait = 0
	}
	g.last = time.Now().Add(wait)
	g.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return model.GeocodeResult{}, ctx.Err()
		}
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/search?%s", g.upstream, params.Encode()), nil)
	if err != nil {
		return model.GeocodeResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "atlas/1.0 (terminal places tracker)")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return model.GeocodeResult{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.GeocodeResult{}, fmt.Errorf("geocoding server returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return model.GeocodeResult{}, fmt.Errorf("failed to decode geocoding response: %w", err)
	}
	if len(results) == 0 {
		return model.GeocodeResult{}, fmt.Errorf("no results for %q", address)
	}

	res, err := results[0].toResult()
	if err != nil {
		return model.GeocodeResult{}, err
	}

	g.mu.Lock()
	g.cache[key] = geocodeEntry{result: res, fetched: time.Now()}
	g.mu.Unlock()

	return res, nil
}

func (r nominatimResult) toResult() (model.GeocodeResult, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return model.GeocodeResult{}, fmt.Errorf("invalid latitude %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return model.GeocodeResult{}, fmt.Errorf("invalid longitude %q: %w", r.Lon, err)
	}

	res := model.GeocodeResult{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: r.DisplayName,
	}
	if a := r.Address; a != nil {
		res.Address = a.Road
		if a.HouseNumber != "" && a.Road != "" {
			res.Address = a.HouseNumber + " " + a.Road
		}
		switch {
		case a.City != "":
			res.City = a.City
		case a.Town != "":
			res.City = a.Town
		case a.Village != "":
			res.City = a.Village
		}
		res.Country = a.Country
	}
	return res, nil
}
