package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"atlas/internal/model"
)

// ListVisits retrieves the visits of one place, newest first.
func (c *Client) ListVisits(ctx context.Context, placeID int64) ([]model.Visit, error) {
	var visits []model.Visit
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/places/%d/visits", apiBase, placeID), nil, "", &visits); err != nil {
		return nil, err
	}
	return visits, nil
}

// CreateVisit plans a visit for a place.
func (c *Client) CreateVisit(ctx context.Context, placeID int64, v model.NewVisit) (model.Visit, error) {
	var created model.Visit
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/places/%d/visits", apiBase, placeID), v, &created); err != nil {
		return model.Visit{}, err
	}
	return created, nil
}

// UpdateVisit reschedules a visit.
func (c *Client) UpdateVisit(ctx context.Context, id int64, v model.VisitUpdate) (model.Visit, error) {
	var updated model.Visit
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/visits/%d", apiBase, id), v, &updated); err != nil {
		return model.Visit{}, err
	}
	return updated, nil
}

// DeleteVisit deletes a visit.
func (c *Client) DeleteVisit(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/visits/%d", apiBase, id), nil, "", nil)
}

// AttachReview uploads review content for a visit as a multipart form:
// text fields, an optional image file, and an explicit remove_image
// flag. It hits the same PUT endpoint as UpdateVisit; the server
// distinguishes the two by content type.
func (c *Client) AttachReview(ctx context.Context, visitID int64, r model.ReviewUpdate) (model.Visit, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if r.Rating != nil {
		if err := w.WriteField("rating", strconv.Itoa(*r.Rating)); err != nil {
			return model.Visit{}, fmt.Errorf("multipart encode error: %w", err)
		}
	}
	if err := w.WriteField("review_title", r.Title); err != nil {
		return model.Visit{}, fmt.Errorf("multipart encode error: %w", err)
	}
	if err := w.WriteField("review_text", r.Text); err != nil {
		return model.Visit{}, fmt.Errorf("multipart encode error: %w", err)
	}
	if r.RemoveImage {
		if err := w.WriteField("remove_image", "true"); err != nil {
			return model.Visit{}, fmt.Errorf("multipart encode error: %w", err)
		}
	}

	if r.ImagePath != "" {
		f, err := os.Open(r.ImagePath)
		if err != nil {
			return model.Visit{}, fmt.Errorf("opening image: %w", err)
		}
		defer f.Close()

		part, err := w.CreateFormFile("image", filepath.Base(r.ImagePath))
		if err != nil {
			return model.Visit{}, fmt.Errorf("multipart encode error: %w", err)
		}
		if _, err := io.Copy(part, f); err != nil {
			return model.Visit{}, fmt.Errorf("reading image: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return model.Visit{}, fmt.Errorf("multipart encode error: %w", err)
	}

	var updated model.Visit
	path := fmt.Sprintf("%s/visits/%d", apiBase, visitID)
	if err := c.do(ctx, http.MethodPut, path, &buf, w.FormDataContentType(), &updated); err != nil {
		return model.Visit{}, err
	}
	return updated, nil
}

// CalendarEvent downloads the calendar file for a visit. The payload
// is opaque bytes; callers write it to disk as-is.
func (c *Client) CalendarEvent(ctx context.Context, visitID int64) ([]byte, error) {
	path := fmt.Sprintf("%s/visits/%d/calendar_event", apiBase, visitID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading calendar payload: %w", err)
	}
	return payload, nil
}

// FetchImage downloads a hosted review image. Relative paths like
// /uploads/xyz.jpg are resolved against the server base URL.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	u := imageURL
	if strings.HasPrefix(u, "/") {
		u = c.baseURL + u
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("image fetch failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return data, nil
}
