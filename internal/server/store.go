package server

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"atlas/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS places (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    category   TEXT,
    address    TEXT,
    city       TEXT,
    country    TEXT,
    latitude   REAL,
    longitude  REAL,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE TABLE IF NOT EXISTS place_tags (
    place_id INTEGER NOT NULL REFERENCES places(id),
    tag      TEXT NOT NULL,
    PRIMARY KEY (place_id, tag)
);

CREATE TABLE IF NOT EXISTS visits (
    id             INTEGER PRIMARY KEY,
    place_id       INTEGER NOT NULL REFERENCES places(id),
    visit_datetime TEXT NOT NULL,
    rating         INTEGER CHECK(rating BETWEEN 1 AND 5 OR rating IS NULL),
    review_title   TEXT,
    review_text    TEXT,
    image_path     TEXT,
    created_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_place_tags_place_id ON place_tags(place_id);
CREATE INDEX IF NOT EXISTS idx_visits_place_id ON visits(place_id);
CREATE INDEX IF NOT EXISTS idx_visits_datetime ON visits(visit_datetime DESC);
`

// Open opens or creates the SQLite database and initializes the schema.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// loadPlace retrieves a place with its tags, visits and derived status.
// This is the single JSON-assembly path: every place representation a
// handler returns goes through here.
func loadPlace(db *sql.DB, id int64) (model.Place, error) {
	query := `
		SELECT id, name, category, address, city, country, latitude, longitude, created_at
		FROM places
		WHERE id = ?
	`

	var p model.Place
	var category, address, city, country sql.NullString
	var latitude, longitude sql.NullFloat64
	var createdAt string

	err := db.QueryRow(query, id).Scan(
		&p.ID, &p.Name, &category, &address, &city, &country, &latitude, &longitude, &createdAt,
	)
	if err != nil {
		return model.Place{}, fmt.Errorf("failed to get place: %w", err)
	}

	p.Category = category.String
	p.Address = address.String
	p.City = city.String
	p.Country = country.String
	if latitude.Valid {
		p.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		p.Longitude = &longitude.Float64
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = t
	}

	tags, err := placeTags(db, id)
	if err != nil {
		return model.Place{}, err
	}
	p.Tags = tags

	visits, err := placeVisits(db, id)
	if err != nil {
		return model.Place{}, err
	}
	p.Visits = visits

	p.Status = computeStatus(p.Visits, time.Now())
	return p, nil
}

// listPlaces retrieves all places, newest first.
func listPlaces(db *sql.DB) ([]model.Place, error) {
	rows, err := db.Query(`SELECT id FROM places ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan place id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating places: %w", err)
	}

	places := make([]model.Place, 0, len(ids))
	for _, id := range ids {
		p, err := loadPlace(db, id)
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, nil
}

func placeTags(db *sql.DB, placeID int64) ([]string, error) {
	rows, err := db.Query(`SELECT tag FROM place_tags WHERE place_id = ? ORDER BY tag`, placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func placeVisits(db *sql.DB, placeID int64) ([]model.Visit, error) {
	query := `
		SELECT id, place_id, visit_datetime, rating, review_title, review_text, image_path, created_at
		FROM visits
		WHERE place_id = ?
		ORDER BY visit_datetime DESC
	`

	rows, err := db.Query(query, placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get visits: %w", err)
	}
	defer rows.Close()

	visits := []model.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVisit(row rowScanner) (model.Visit, error) {
	var v model.Visit
	var when string
	var rating sql.NullInt64
	var title, text, imagePath sql.NullString
	var createdAt string

	if err := row.Scan(&v.ID, &v.PlaceID, &when, &rating, &title, &text, &imagePath, &createdAt); err != nil {
		return model.Visit{}, fmt.Errorf("failed to scan visit: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, when); err == nil {
		v.When = t
	}
	if rating.Valid {
		r := int(rating.Int64)
		v.Rating = &r
	}
	v.ReviewTitle = title.String
	v.ReviewText = text.String
	if imagePath.Valid && imagePath.String != "" {
		v.ImageURL = "/uploads/" + imagePath.String
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		v.CreatedAt = t
	}
	return v, nil
}

// getVisit retrieves a single visit by ID.
func getVisit(db *sql.DB, id int64) (model.Visit, error) {
	query := `
		SELECT id, place_id, visit_datetime, rating, review_title, review_text, image_path, created_at
		FROM visits
		WHERE id = ?
	`
	return scanVisit(db.QueryRow(query, id))
}

// placeExists reports whether a place row is present.
func placeExists(db *sql.DB, id int64) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM places WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check place: %w", err)
	}
	return true, nil
}

// insertPlace creates a place with its tags.
func insertPlace(db *sql.DB, np model.NewPlace) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var category, address, city, country interface{}
	var latitude, longitude interface{}
	if np.Category != "" {
		category = np.Category
	}
	if np.Address != "" {
		address = np.Address
	}
	if np.City != "" {
		city = np.City
	}
	if np.Country != "" {
		country = np.Country
	}
	if np.Latitude != nil {
		latitude = *np.Latitude
	}
	if np.Longitude != nil {
		longitude = *np.Longitude
	}

	result, err := tx.Exec(
		`INSERT INTO places (name, category, address, city, country, latitude, longitude) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		np.Name, category, address, city, country, latitude, longitude,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert place: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := replaceTags(tx, id, np.Tags); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// updatePlace updates a place and replaces its tags.
func updatePlace(db *sql.DB, id int64, up model.PlaceUpdate) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var category, address, city, country interface{}
	var latitude, longitude interface{}
	if up.Category != "" {
		category = up.Category
	}
	if up.Address != "" {
		address = up.Address
	}
	if up.City != "" {
		city = up.City
	}
	if up.Country != "" {
		country = up.Country
	}
	if up.Latitude != nil {
		latitude = *up.Latitude
	}
	if up.Longitude != nil {
		longitude = *up.Longitude
	}

	result, err := tx.Exec(
		`UPDATE places SET name = ?, category = ?, address = ?, city = ?, country = ?, latitude = ?, longitude = ? WHERE id = ?`,
		up.Name, category, address, city, country, latitude, longitude, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update place: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.Exec(`DELETE FROM place_tags WHERE place_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	if err := replaceTags(tx, id, up.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func replaceTags(tx *sql.Tx, placeID int64, tags []string) error {
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO place_tags (place_id, tag) VALUES (?, ?)`, placeID, t); err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}
	}
	return nil
}

// deletePlace deletes a place, its tags and its visits. It returns the
// stored image file names of the deleted visits so the caller can
// remove them from disk.
func deletePlace(db *sql.DB, id int64) ([]string, error) {
	rows, err := db.Query(`SELECT image_path FROM visits WHERE place_id = ? AND image_path IS NOT NULL AND image_path != ''`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to collect images: %w", err)
	}
	var images []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM visits WHERE place_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete visits: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM place_tags WHERE place_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete tags: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM places WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete place: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check delete: %w", err)
	}
	if n == 0 {
		return nil, sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return images, nil
}

// insertVisit plans a visit.
func insertVisit(db *sql.DB, placeID int64, when time.Time) (int64, error) {
	result, err := db.Exec(
		`INSERT INTO visits (place_id, visit_datetime) VALUES (?, ?)`,
		placeID, when.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert visit: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// updateVisitWhen reschedules a visit.
func updateVisitWhen(db *sql.DB, id int64, when time.Time) error {
	result, err := db.Exec(
		`UPDATE visits SET visit_datetime = ? WHERE id = ?`,
		when.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update visit: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// reviewPatch carries review fields for updateVisitReview. imageName
// semantics: nil keeps the stored image, pointer to "" clears it,
// anything else replaces it.
type reviewPatch struct {
	rating    *int
	title     string
	text      string
	imageName *string
}

// updateVisitReview attaches review content to a visit.
func updateVisitReview(db *sql.DB, id int64, patch reviewPatch) error {
	var rating, title, text interface{}
	if patch.rating != nil {
		rating = *patch.rating
	}
	if patch.title != "" {
		title = patch.title
	}
	if patch.text != "" {
		text = patch.text
	}

	var result sql.Result
	var err error
	if patch.imageName != nil {
		var image interface{}
		if *patch.imageName != "" {
			image = *patch.imageName
		}
		result, err = db.Exec(
			`UPDATE visits SET rating = ?, review_title = ?, review_text = ?, image_path = ? WHERE id = ?`,
			rating, title, text, image, id,
		)
	} else {
		result, err = db.Exec(
			`UPDATE visits SET rating = ?, review_title = ?, review_text = ? WHERE id = ?`,
			rating, title, text, id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// deleteVisit deletes a visit and returns its stored image file name,
// if any, so the caller can remove it from disk.
func deleteVisit(db *sql.DB, id int64) (string, error) {
	var image sql.NullString
	err := db.QueryRow(`SELECT image_path FROM visits WHERE id = ?`, id).Scan(&image)
	if err == sql.ErrNoRows {
		return "", sql.ErrNoRows
	}
	if err != nil {
		return "", fmt.Errorf("failed to get visit image: %w", err)
	}

	if _, err := db.Exec(`DELETE FROM visits WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("failed to delete visit: %w", err)
	}
	return image.String, nil
}

// distinctTags returns every tag in use, sorted.
func distinctTags(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT tag FROM place_tags ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
