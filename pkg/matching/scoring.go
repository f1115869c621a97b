// Package matching scores federal parks against knowledge-base parks and
// picks the best candidate for a single park.
package matching

import (
	"math"

	"github.com/antzucaro/matchr"

	"github.com/Ramsey-B/parklink/pkg/models"
	"github.com/Ramsey-B/parklink/pkg/normalizers"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula
const EarthRadiusKm = 6371.0

// NameMetric selects the edit-based similarity used for park names
type NameMetric string

const (
	NameMetricLevenshtein NameMetric = "levenshtein"
	NameMetricJaroWinkler NameMetric = "jaro_winkler"
)

// Weights for the composite score. Name + Location must sum to 1.0 for the
// composite to stay within [0, 1]; the scorer does not enforce it.
type Weights struct {
	Name     float64 `json:"name"`
	Location float64 `json:"location"`
}

// DefaultWeights favours the name: coordinates are often imprecise or
// missing on one side, so location only boosts confidence.
func DefaultWeights() Weights {
	return Weights{Name: 0.7, Location: 0.3}
}

// Scorer provides the name, location and composite similarity functions.
// A Scorer holds no mutable state and is safe for concurrent use.
type Scorer struct {
	preNormalize normalizers.Normalizer
	metric       NameMetric
}

// ScorerOption configures a Scorer
type ScorerOption func(*Scorer)

// WithPreNormalizer runs fn on each name before the canonical normalizer
func WithPreNormalizer(fn normalizers.Normalizer) ScorerOption {
	return func(s *Scorer) {
		s.preNormalize = fn
	}
}

// WithNameMetric overrides the default Levenshtein name metric
func WithNameMetric(metric NameMetric) ScorerOption {
	return func(s *Scorer) {
		if metric != "" {
			s.metric = metric
		}
	}
}

// NewScorer creates a new Scorer
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{metric: NameMetricLevenshtein}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize returns the comparison form of a park name
func (s *Scorer) Normalize(name string) string {
	if s.preNormalize != nil {
		name = s.preNormalize(name)
	}
	return normalizers.Canonical(name)
}

// NameSimilarity returns 1 - d/max(len(a), len(b)) over the normalized names,
// where d is the Levenshtein distance. Empty names score 0 and identical
// names score exactly 1.0.
func (s *Scorer) NameSimilarity(nameA, nameB string) float64 {
	a := s.Normalize(nameA)
	b := s.Normalize(nameB)

	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	if s.metric == NameMetricJaroWinkler {
		return s.JaroWinkler(a, b)
	}

	distance := s.LevenshteinDistance(a, b)
	return 1.0 - float64(distance)/float64(max(len(a), len(b)))
}

// LevenshteinDistance calculates the edit distance between two strings with
// the full dynamic programming table. Park names are tens of characters, so
// the O(n*m) table is fine.
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
		dp[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		dp[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			dp[i][j] = min(
				dp[i-1][j]+1,      // deletion
				dp[i][j-1]+1,      // insertion
				dp[i-1][j-1]+cost, // substitution
			)
		}
	}

	return dp[len(a)][len(b)]
}

// JaroWinkler calculates the Jaro-Winkler similarity between two strings
func (s *Scorer) JaroWinkler(a, b string) float64 {
	score := matchr.JaroWinkler(a, b, false)
	return math.Max(0, math.Min(1, score))
}

// HaversineDistanceKm returns the great-circle distance between two points
func (s *Scorer) HaversineDistanceKm(a, b models.Coordinates) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLng := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h just past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// LocationSimilarity decays linearly from 1.0 at distance 0 to 0 at
// maxDistanceKm. A missing location on either side scores 0.
func (s *Scorer) LocationSimilarity(a, b *models.Coordinates, maxDistanceKm float64) float64 {
	if a == nil || b == nil {
		return 0.0
	}

	distance := s.HaversineDistanceKm(*a, *b)
	if distance == 0 {
		return 1.0
	}
	if distance >= maxDistanceKm {
		return 0.0
	}

	return 1.0 - distance/maxDistanceKm
}

// OverallScore is the weighted sum of the name and location similarities
func (s *Scorer) OverallScore(nameSimilarity, locationSimilarity float64, weights Weights) float64 {
	return nameSimilarity*weights.Name + locationSimilarity*weights.Location
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
