package models

import "time"

// Coordinates is a point in decimal degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FederalPark is a park from the federal park registry.
// It is the left-hand side of every link and is never mutated by the linker.
type FederalPark struct {
	ID        string     `json:"id" yaml:"id" db:"id"`
	Name      string     `json:"name" yaml:"name" db:"name"`
	Latitude  *float64   `json:"latitude,omitempty" yaml:"latitude,omitempty" db:"latitude"`
	Longitude *float64   `json:"longitude,omitempty" yaml:"longitude,omitempty" db:"longitude"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty" db:"updated_at"`
}

// Coordinates returns the park location, or nil if either component is missing
func (p FederalPark) Coordinates() *Coordinates {
	return coordinates(p.Latitude, p.Longitude)
}

// WikidataPark is a park from the crowd-sourced knowledge base
type WikidataPark struct {
	ID         string     `json:"id" yaml:"id" db:"id"`
	ExternalID string     `json:"external_id" yaml:"external_id" db:"external_id"` // Wikidata QID, e.g. Q180120
	Label      string     `json:"label" yaml:"label" db:"label"`
	Latitude   *float64   `json:"latitude,omitempty" yaml:"latitude,omitempty" db:"latitude"`
	Longitude  *float64   `json:"longitude,omitempty" yaml:"longitude,omitempty" db:"longitude"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty" db:"updated_at"`
}

// Coordinates returns the park location, or nil if either component is missing
func (p WikidataPark) Coordinates() *Coordinates {
	return coordinates(p.Latitude, p.Longitude)
}

func coordinates(lat, lng *float64) *Coordinates {
	if lat == nil || lng == nil {
		return nil
	}
	return &Coordinates{Latitude: *lat, Longitude: *lng}
}
