package models

import "time"

// MatchMethodNameLocation tags links produced by the name + location scorer
const MatchMethodNameLocation = "name_location_similarity"

// ParkLink links a federal park to its knowledge-base counterpart
type ParkLink struct {
	FederalParkID      string     `json:"federal_park_id" yaml:"federal_park_id" db:"federal_park_id"`
	WikidataParkID     string     `json:"wikidata_park_id" yaml:"wikidata_park_id" db:"wikidata_park_id"`
	WikidataExternalID string     `json:"wikidata_external_id" yaml:"wikidata_external_id" db:"wikidata_external_id"`
	ConfidenceScore    float64    `json:"confidence_score" yaml:"confidence_score" db:"confidence_score"`
	NameSimilarity     float64    `json:"name_similarity" yaml:"name_similarity" db:"name_similarity"`
	LocationSimilarity float64    `json:"location_similarity" yaml:"location_similarity" db:"location_similarity"`
	MatchMethod        string     `json:"match_method" yaml:"match_method" db:"match_method"`
	RunID              *string    `json:"run_id,omitempty" yaml:"run_id,omitempty" db:"run_id"`
	CreatedAt          *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty" db:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty" db:"updated_at"`
}

// MatchCandidate pairs one federal park with one wikidata park and the scores
// that produced the pairing. It only lives for the duration of a single scan.
type MatchCandidate struct {
	FederalPark        FederalPark  `json:"federal_park"`
	WikidataPark       WikidataPark `json:"wikidata_park"`
	NameSimilarity     float64      `json:"name_similarity"`
	LocationSimilarity float64      `json:"location_similarity"`
	OverallScore       float64      `json:"overall_score"`
}

// ToLink converts the candidate into the persisted link shape
func (c *MatchCandidate) ToLink() ParkLink {
	return ParkLink{
		FederalParkID:      c.FederalPark.ID,
		WikidataParkID:     c.WikidataPark.ID,
		WikidataExternalID: c.WikidataPark.ExternalID,
		ConfidenceScore:    c.OverallScore,
		NameSimilarity:     c.NameSimilarity,
		LocationSimilarity: c.LocationSimilarity,
		MatchMethod:        MatchMethodNameLocation,
	}
}

// LinkProgress is reported after every federal park is evaluated
type LinkProgress struct {
	RunID      string `json:"run_id,omitempty"`
	Current    int    `json:"current"` // 1-based index of the park just evaluated
	Total      int    `json:"total"`
	Matched    int    `json:"matched"`
	RecordName string `json:"record_name"`
}

// PersistResult reports the outcome of a persistence handoff
type PersistResult struct {
	RowsAffected int64 `json:"rows_affected"`
}
