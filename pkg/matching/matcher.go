package matching

import (
	"github.com/Ramsey-B/parklink/pkg/models"
)

// Matcher finds the best knowledge-base candidate for a federal park
type Matcher struct {
	scorer *Scorer
	cfg    Config
}

// NewMatcher creates a new matcher. cfg is expected to be validated.
func NewMatcher(scorer *Scorer, cfg Config) *Matcher {
	if scorer == nil {
		scorer = NewScorer()
	}
	return &Matcher{
		scorer: scorer,
		cfg:    cfg,
	}
}

// Config returns the matcher configuration
func (m *Matcher) Config() Config {
	return m.cfg
}

// Score computes the full score breakdown for one pairing
func (m *Matcher) Score(park models.FederalPark, candidate models.WikidataPark) models.MatchCandidate {
	nameSim := m.scorer.NameSimilarity(park.Name, candidate.Label)
	locSim := m.scorer.LocationSimilarity(park.Coordinates(), candidate.Coordinates(), m.cfg.MaxDistanceKm)

	return models.MatchCandidate{
		FederalPark:        park,
		WikidataPark:       candidate,
		NameSimilarity:     nameSim,
		LocationSimilarity: locSim,
		OverallScore:       m.scorer.OverallScore(nameSim, locSim, m.cfg.Weights),
	}
}

// Accepts reports whether a score clears the (inclusive) threshold
func (m *Matcher) Accepts(score float64) bool {
	return score >= m.cfg.Threshold
}

// FindBestMatch scans the pool and returns the highest scoring candidate, or
// nil if nothing reaches the threshold. Ties keep the first candidate seen,
// so the result depends on pool order.
func (m *Matcher) FindBestMatch(park models.FederalPark, pool []models.WikidataPark) *models.MatchCandidate {
	var best *models.MatchCandidate

	for _, candidate := range pool {
		scored := m.Score(park, candidate)
		if best == nil || scored.OverallScore > best.OverallScore {
			best = &scored
		}
	}

	if best == nil || !m.Accepts(best.OverallScore) {
		return nil
	}
	return best
}
