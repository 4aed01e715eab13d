package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"atlas/internal/model"
)

const maxUploadSize = 10 << 20 // 10 MB

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBootstrap returns everything the client needs to start: the
// full place collection with embedded visits, plus tag suggestions.
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	places, err := listPlaces(s.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load places")
		return
	}
	vocab, err := tagVocabulary(s.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load tags")
		return
	}
	writeJSON(w, http.StatusOK, model.Bootstrap{Places: places, TagVocabulary: vocab})
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if strings.TrimSpace(address) == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}
	result, err := s.geo.lookup(r.Context(), address)
	if err != nil {
		writeError(w, http.StatusBadGateway, "geocoding failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListPlaces(w http.ResponseWriter, r *http.Request) {
	places, err := listPlaces(s.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load places")
		return
	}
	writeJSON(w, http.StatusOK, places)
}

func (s *Server) handleGetPlace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid place id")
		return
	}
	place, err := loadPlace(s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load place")
		return
	}
	writeJSON(w, http.StatusOK, place)
}

func (s *Server) handleCreatePlace(w http.ResponseWriter, r *http.Request) {
	var np model.NewPlace
	if err := json.NewDecoder(r.Body).Decode(&np); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validatePlaceFields(np.Name, np.Latitude, np.Longitude); msg != "" {
		writeError(w, http.StatusBadRequest, "%s", msg)
		return
	}

	id, err := insertPlace(s.db, np)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create place")
		return
	}
	place, err := loadPlace(s.db, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load place")
		return
	}
	writeJSON(w, http.StatusCreated, place)
}

func (s *Server) handleUpdatePlace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid place id")
		return
	}
	var up model.PlaceUpdate
	if err := json.NewDecoder(r.Body).Decode(&up); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validatePlaceFields(up.Name, up.Latitude, up.Longitude); msg != "" {
		writeError(w, http.StatusBadRequest, "%s", msg)
		return
	}

	err = updatePlace(s.db, id, up)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update place")
		return
	}
	place, err := loadPlace(s.db, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load place")
		return
	}
	writeJSON(w, http.StatusOK, place)
}

func (s *Server) handleDeletePlace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid place id")
		return
	}
	images, err := deletePlace(s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete place")
		return
	}
	for _, name := range images {
		s.removeUpload(name)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListVisits(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid place id")
		return
	}
	ok, err := placeExists(s.db, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check place")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}
	visits, err := placeVisits(s.db, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load visits")
		return
	}
	writeJSON(w, http.StatusOK, visits)
}

func (s *Server) handleCreateVisit(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid place id")
		return
	}
	var nv model.NewVisit
	if err := json.NewDecoder(r.Body).Decode(&nv); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if nv.When.IsZero() {
		writeError(w, http.StatusBadRequest, "visit_datetime is required")
		return
	}

	ok, err := placeExists(s.db, placeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check place")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}

	id, err := insertVisit(s.db, placeID, nv.When)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create visit")
		return
	}
	visit, err := getVisit(s.db, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load visit")
		return
	}
	writeJSON(w, http.StatusCreated, visit)
}

// handleUpdateVisit serves both visit mutations on PUT /visits/{id}:
// a JSON body reschedules the visit, a multipart body attaches review
// content and an optional image.
func (s *Server) handleUpdateVisit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid visit id")
		return
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.updateVisitReview(w, r, id)
		return
	}
	s.rescheduleVisit(w, r, id)
}

func (s *Server) rescheduleVisit(w http.ResponseWriter, r *http.Request, id int64) {
	var vu model.VisitUpdate
	if err := json.NewDecoder(r.Body).Decode(&vu); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if vu.When.IsZero() {
		writeError(w, http.StatusBadRequest, "visit_datetime is required")
		return
	}

	err := updateVisitWhen(s.db, id, vu.When)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "visit not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update visit")
		return
	}
	visit, err := getVisit(s.db, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load visit")
		return
	}
	writeJSON(w, http.StatusOK, visit)
}

func (s *Server) updateVisitReview(w http.ResponseWriter, r *http.Request, id int64) {
	existing, err := getVisit(s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "visit not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load visit")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	patch := reviewPatch{
		title: r.FormValue("review_title"),
		text:  r.FormValue("review_text"),
	}
	if raw := r.FormValue("rating"); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil || rating < 1 || rating > 5 {
			writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
			return
		}
		patch.rating = &rating
	}

	oldImage := strings.TrimPrefix(existing.ImageURL, "/uploads/")

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		name, err := s.saveUpload(file, header.Filename)
		if err != nil {
			writeError(w, http.StatusBadRequest, "%v", err)
			return
		}
		patch.imageName = &name
	case errors.Is(err, http.ErrMissingFile):
		// An uploaded image always wins over the remove flag, so the
		// flag is only honored here.
		if r.FormValue("remove_image") == "true" {
			empty := ""
			patch.imageName = &empty
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return
	}

	err = updateVisitReview(s.db, id, patch)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "visit not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update review")
		return
	}

	if patch.imageName != nil && oldImage != "" && oldImage != *patch.imageName {
		s.removeUpload(oldImage)
	}

	visit, err := getVisit(s.db, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load visit")
		return
	}
	writeJSON(w, http.StatusOK, visit)
}

func (s *Server) handleDeleteVisit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid visit id")
		return
	}
	image, err := deleteVisit(s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "visit not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete visit")
		return
	}
	if image != "" {
		s.removeUpload(image)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalendarEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid visit id")
		return
	}
	visit, err := getVisit(s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "visit not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load visit")
		return
	}
	place, err := loadPlace(s.db, visit.PlaceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load place")
		return
	}

	payload := buildCalendarEvent(place, visit, time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=visit-%d.ics", visit.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (s *Server) handleUploadedImage(w http.ResponseWriter, r *http.Request) {
	// filepath.Base guards against traversal in the stored name.
	name := filepath.Base(mux.Vars(r)["name"])
	path := filepath.Join(s.uploadsDir, name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	http.ServeFile(w, r, path)
}

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// saveUpload writes an uploaded image under a generated name and
// returns that name.
func (s *Server) saveUpload(file io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExts[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}

	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.uploadsDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return name, nil
}

func (s *Server) removeUpload(name string) {
	if name == "" {
		return
	}
	os.Remove(filepath.Join(s.uploadsDir, filepath.Base(name)))
}

// validatePlaceFields enforces the same rules the client form applies:
// a name is required, and a coordinate must be either absent or a
// complete valid pair.
func validatePlaceFields(name string, lat, lon *float64) string {
	if strings.TrimSpace(name) == "" {
		return "name is required"
	}
	if (lat == nil) != (lon == nil) {
		return "latitude and longitude must both be set"
	}
	if lat != nil {
		coord := model.Coordinate{Lat: *lat, Lon: *lon}
		if !coord.Valid() {
			return "coordinate out of range"
		}
	}
	return ""
}
