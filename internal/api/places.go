package api

import (
	"context"
	"fmt"
	"net/http"

	"atlas/internal/model"
)

// ListPlaces retrieves all places with embedded visits and tags.
func (c *Client) ListPlaces(ctx context.Context) ([]model.Place, error) {
	var places []model.Place
	if err := c.do(ctx, http.MethodGet, apiBase+"/places", nil, "", &places); err != nil {
		return nil, err
	}
	return places, nil
}

// GetPlace retrieves a single place by ID. This is the reconciliation
// fetch: the returned object carries the server-derived status.
func (c *Client) GetPlace(ctx context.Context, id int64) (model.Place, error) {
	var p model.Place
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/places/%d", apiBase, id), nil, "", &p); err != nil {
		return model.Place{}, err
	}
	return p, nil
}

// CreatePlace creates a place and returns the server representation.
func (c *Client) CreatePlace(ctx context.Context, p model.NewPlace) (model.Place, error) {
	var created model.Place
	if err := c.doJSON(ctx, http.MethodPost, apiBase+"/places", p, &created); err != nil {
		return model.Place{}, err
	}
	return created, nil
}

// UpdatePlace updates a place and returns the server representation.
func (c *Client) UpdatePlace(ctx context.Context, id int64, p model.PlaceUpdate) (model.Place, error) {
	var updated model.Place
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/places/%d", apiBase, id), p, &updated); err != nil {
		return model.Place{}, err
	}
	return updated, nil
}

// DeletePlace deletes a place and all its visits.
func (c *Client) DeletePlace(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/places/%d", apiBase, id), nil, "", nil)
}
