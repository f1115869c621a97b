package models

import "time"

// LinkRunStatus constants
const (
	LinkRunStatusRunning   = "running"
	LinkRunStatusCompleted = "completed"
	LinkRunStatusFailed    = "failed"
)

// LinkRun records one linking pass
type LinkRun struct {
	ID               string     `json:"id" db:"id"`
	Status           string     `json:"status" db:"status"`
	Threshold        float64    `json:"threshold" db:"threshold"`
	MaxDistanceKm    float64    `json:"max_distance_km" db:"max_distance_km"`
	NameWeight       float64    `json:"name_weight" db:"name_weight"`
	LocationWeight   float64    `json:"location_weight" db:"location_weight"`
	InputFingerprint string     `json:"input_fingerprint" db:"input_fingerprint"`
	FederalCount     int        `json:"federal_count" db:"federal_count"`
	WikidataCount    int        `json:"wikidata_count" db:"wikidata_count"`
	LinkedCount      int        `json:"linked_count" db:"linked_count"`
	RowsAffected     int64      `json:"rows_affected" db:"rows_affected"`
	Error            *string    `json:"error,omitempty" db:"error"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// StartLinkRunRequest overrides the configured linking options for one run
type StartLinkRunRequest struct {
	Threshold      *float64 `json:"threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxDistanceKm  *float64 `json:"max_distance_km,omitempty" validate:"omitempty,gt=0"`
	NameWeight     *float64 `json:"name_weight,omitempty" validate:"omitempty,gte=0,lte=1"`
	LocationWeight *float64 `json:"location_weight,omitempty" validate:"omitempty,gte=0,lte=1"`
}
