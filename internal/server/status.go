package server

import (
	"database/sql"
	"sort"
	"time"

	"atlas/internal/model"
)

// defaultTagVocabulary seeds the tag suggestions offered by the client.
// Tags already stored on places are merged in on top.
var defaultTagVocabulary = []string{
	"beach",
	"brunch",
	"coffee",
	"date night",
	"family",
	"hike",
	"museum",
	"nightlife",
	"park",
	"road trip",
	"street food",
	"viewpoint",
}

// computeStatus derives a place's status from its visits. A place with
// no visits is pending, a place whose visits are all in the future is
// planned, and a place with any visit at or before now is visited.
func computeStatus(visits []model.Visit, now time.Time) string {
	if len(visits) == 0 {
		return model.StatusPending
	}
	for _, v := range visits {
		if !v.When.After(now) {
			return model.StatusVisited
		}
	}
	return model.StatusPlanned
}

// tagVocabulary merges the default suggestions with every tag stored
// in the database, deduplicated and sorted.
func tagVocabulary(db *sql.DB) ([]string, error) {
	stored, err := distinctTags(db)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(defaultTagVocabulary)+len(stored))
	merged := make([]string, 0, len(defaultTagVocabulary)+len(stored))
	for _, t := range defaultTagVocabulary {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	for _, t := range stored {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	sort.Strings(merged)
	return merged, nil
}
