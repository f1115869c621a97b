package matching

import (
	"math"

	"github.com/pkg/errors"
)

// Defaults for a linking pass
const (
	DefaultThreshold     = 0.6
	DefaultMaxDistanceKm = 100.0
)

var (
	ErrInvalidThreshold   = errors.New("threshold must be within [0, 1]")
	ErrInvalidMaxDistance = errors.New("max distance must be a positive number of kilometers")
	ErrInvalidWeights     = errors.New("weights must be non-negative and sum to 1")
)

// weightTolerance absorbs float error in configured weights such as 0.7 + 0.3
const weightTolerance = 1e-9

// Config contains configuration for the candidate matcher
type Config struct {
	Threshold     float64 // Minimum overall score to accept a candidate, inclusive (default: 0.6)
	MaxDistanceKm float64 // Distance at which location similarity reaches 0 (default: 100)
	Weights       Weights // Composite weights (default: 0.7 name, 0.3 location)
}

// DefaultConfig returns default matcher configuration
func DefaultConfig() Config {
	return Config{
		Threshold:     DefaultThreshold,
		MaxDistanceKm: DefaultMaxDistanceKm,
		Weights:       DefaultWeights(),
	}
}

// Validate fails fast on values that would silently corrupt a whole run
func (c Config) Validate() error {
	if math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1 {
		return errors.Wrapf(ErrInvalidThreshold, "got %v", c.Threshold)
	}
	if math.IsNaN(c.MaxDistanceKm) || math.IsInf(c.MaxDistanceKm, 0) || c.MaxDistanceKm <= 0 {
		return errors.Wrapf(ErrInvalidMaxDistance, "got %v", c.MaxDistanceKm)
	}
	w := c.Weights
	if math.IsNaN(w.Name) || math.IsNaN(w.Location) || w.Name < 0 || w.Location < 0 ||
		math.Abs(w.Name+w.Location-1) > weightTolerance {
		return errors.Wrapf(ErrInvalidWeights, "got name=%v location=%v", w.Name, w.Location)
	}
	return nil
}
