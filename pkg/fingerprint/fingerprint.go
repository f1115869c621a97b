// Package fingerprint hashes the inputs of a link run so identical runs can be recognised.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"

	"github.com/Ramsey-B/parklink/pkg/matching"
	"github.com/Ramsey-B/parklink/pkg/models"
)

// Generate returns a SHA256 fingerprint over both park lists and the scoring
// configuration. Input order is part of the fingerprint because the greedy pass
// depends on it. UpdatedAt is excluded so a refresh with unchanged data keeps
// the same fingerprint.
func Generate(federal []models.FederalPark, wikidata []models.WikidataPark, cfg matching.Config) string {
	h := sha256.New()

	writeField(h, "config")
	writeFloat(h, cfg.Threshold)
	writeFloat(h, cfg.MaxDistanceKm)
	writeFloat(h, cfg.Weights.Name)
	writeFloat(h, cfg.Weights.Location)

	writeField(h, "federal")
	for _, park := range federal {
		writeField(h, park.ID)
		writeField(h, park.Name)
		writeCoordinate(h, park.Latitude)
		writeCoordinate(h, park.Longitude)
	}

	writeField(h, "wikidata")
	for _, park := range wikidata {
		writeField(h, park.ID)
		writeField(h, park.ExternalID)
		writeField(h, park.Label)
		writeCoordinate(h, park.Latitude)
		writeCoordinate(h, park.Longitude)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// fields are length prefixed so "ab"+"c" and "a"+"bc" hash differently
func writeField(h hash.Hash, s string) {
	h.Write([]byte(strconv.Itoa(len(s))))
	h.Write([]byte{':'})
	h.Write([]byte(s))
}

func writeFloat(h hash.Hash, f float64) {
	writeField(h, strconv.FormatFloat(f, 'g', -1, 64))
}

func writeCoordinate(h hash.Hash, f *float64) {
	if f == nil {
		writeField(h, "null")
		return
	}
	writeFloat(h, *f)
}
