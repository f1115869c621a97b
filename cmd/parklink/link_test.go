package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/parklink/pkg/models"
)

const federalJSON = `[
  {"id": "yell", "name": "Yellowstone National Park", "latitude": 44.428, "longitude": -110.5885},
  {"id": "zion", "name": "Zion National Park", "latitude": 37.2982, "longitude": -113.0263}
]`

const wikidataYAML = `
- id: wd-1
  external_id: Q180120
  label: Yellowstone National Park
  latitude: 44.6
  longitude: -110.5
- id: wd-2
  external_id: Q1
  label: Grand Canyon National Park
  latitude: 36.0544
  longitude: -112.1401
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadRecords(t *testing.T) {
	dir := t.TempDir()

	federal, err := readRecords[models.FederalPark](writeFile(t, dir, "federal.json", federalJSON))
	require.NoError(t, err)
	require.Len(t, federal, 2)
	assert.Equal(t, "Zion National Park", federal[1].Name)
	require.NotNil(t, federal[0].Latitude)
	assert.Equal(t, 44.428, *federal[0].Latitude)

	wikidata, err := readRecords[models.WikidataPark](writeFile(t, dir, "wikidata.yml", wikidataYAML))
	require.NoError(t, err)
	require.Len(t, wikidata, 2)
	assert.Equal(t, "Q180120", wikidata[0].ExternalID)

	_, err = readRecords[models.FederalPark](filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	_, err = readRecords[models.FederalPark](writeFile(t, dir, "broken.json", `[{"id":`))
	assert.Error(t, err)
}

func TestLinkCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "parklink.db"))

	out := filepath.Join(dir, "links.json")
	rootCmd.SetArgs([]string{
		"link",
		"--federal", writeFile(t, dir, "federal.json", federalJSON),
		"--wikidata", writeFile(t, dir, "wikidata.yaml", wikidataYAML),
		"--out", out,
		"--threshold", "0.6",
		"--persist",
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var links []models.ParkLink
	require.NoError(t, json.Unmarshal(data, &links))
	require.Len(t, links, 1)
	assert.Equal(t, "yell", links[0].FederalParkID)
	assert.Equal(t, "wd-1", links[0].WikidataParkID)
	assert.Equal(t, models.MatchMethodNameLocation, links[0].MatchMethod)
	assert.Greater(t, links[0].ConfidenceScore, 0.9)
}
