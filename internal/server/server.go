package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/mux"
)

// Config holds server settings.
type Config struct {
	// DataDir is where uploaded review images are stored, under an
	// uploads/ subdirectory.
	DataDir string
	// GeocodeServer overrides the Nominatim upstream. Empty uses the
	// public server.
	GeocodeServer string
	// Logger receives request logs. Nil discards them.
	Logger *log.Logger
}

// Server is the places HTTP API.
type Server struct {
	db         *sql.DB
	uploadsDir string
	geo        *geocoder
	logger     *log.Logger
}

// New creates a Server over an open database.
func New(db *sql.DB, cfg Config) (*Server, error) {
	uploadsDir := filepath.Join(cfg.DataDir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Server{
		db:         db,
		uploadsDir: uploadsDir,
		geo:        newGeocoder(cfg.GeocodeServer),
		logger:     logger,
	}, nil
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/", s.handleBootstrap).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/geocode", s.handleGeocode).Methods("GET")
	api.HandleFunc("/places", s.handleListPlaces).Methods("GET")
	api.HandleFunc("/places", s.handleCreatePlace).Methods("POST")
	api.HandleFunc("/places/{id:[0-9]+}", s.handleGetPlace).Methods("GET")
	api.HandleFunc("/places/{id:[0-9]+}", s.handleUpdatePlace).Methods("PUT")
	api.HandleFunc("/places/{id:[0-9]+}", s.handleDeletePlace).Methods("DELETE")
	api.HandleFunc("/places/{id:[0-9]+}/visits", s.handleListVisits).Methods("GET")
	api.HandleFunc("/places/{id:[0-9]+}/visits", s.handleCreateVisit).Methods("POST")
	api.HandleFunc("/visits/{id:[0-9]+}", s.handleUpdateVisit).Methods("PUT")
	api.HandleFunc("/visits/{id:[0-9]+}", s.handleDeleteVisit).Methods("DELETE")
	api.HandleFunc("/visits/{id:[0-9]+}/calendar_event", s.handleCalendarEvent).Methods("POST")

	r.HandleFunc("/uploads/{name}", s.handleUploadedImage).Methods("GET")

	return r
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Printf("%s %s %s %s",
			colorStatus(rec.status), r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func colorStatus(code int) string {
	text := strconv.Itoa(code)
	switch {
	case code >= 500:
		return color.RedString(text)
	case code >= 400:
		return color.YellowString(text)
	case code >= 300:
		return color.CyanString(text)
	default:
		return color.GreenString(text)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}
