package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/parklink/pkg/models"
)

func TestLinkParams(t *testing.T) {
	params := linkParams("run-1", []models.ParkLink{
		{FederalParkID: "yell", WikidataParkID: "wd-1", WikidataExternalID: "Q180120", ConfidenceScore: 0.96, NameSimilarity: 0.94, LocationSimilarity: 1, MatchMethod: models.MatchMethodNameLocation},
	})

	require.Len(t, params, 1)
	assert.Equal(t, map[string]any{
		"federal_park_id":      "yell",
		"wikidata_park_id":     "wd-1",
		"wikidata_external_id": "Q180120",
		"confidence_score":     0.96,
		"name_similarity":      0.94,
		"location_similarity":  1.0,
		"match_method":         models.MatchMethodNameLocation,
		"run_id":               "run-1",
	}, params[0])

	assert.Empty(t, linkParams("run-1", nil))
}
