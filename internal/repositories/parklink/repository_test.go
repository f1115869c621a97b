package parklink

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/parklink/internal/testutil"
	"github.com/Ramsey-B/parklink/pkg/models"
)

func newRepository(t *testing.T) *Repository {
	return NewRepository(testutil.NewSQLiteDB(t), testutil.NopLogger())
}

func sampleLinks() []models.ParkLink {
	return []models.ParkLink{
		{
			FederalParkID:      "yell",
			WikidataParkID:     "wd-1",
			WikidataExternalID: "Q180120",
			ConfidenceScore:    0.96,
			NameSimilarity:     0.94,
			LocationSimilarity: 1,
			MatchMethod:        models.MatchMethodNameLocation,
		},
		{
			FederalParkID:      "zion",
			WikidataParkID:     "wd-2",
			WikidataExternalID: "Q206237",
			ConfidenceScore:    0.7,
			NameSimilarity:     1,
			LocationSimilarity: 0,
			MatchMethod:        models.MatchMethodNameLocation,
		},
	}
}

func TestPersist(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input writes nothing", func(t *testing.T) {
		repo := newRepository(t)
		result, err := repo.Persist(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.RowsAffected)
	})

	t.Run("inserts links", func(t *testing.T) {
		repo := newRepository(t)
		result, err := repo.Persist(ctx, sampleLinks())
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.RowsAffected)

		links, err := repo.List(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "yell", links[0].FederalParkID)
		assert.Equal(t, "Q180120", links[0].WikidataExternalID)
		assert.Equal(t, models.MatchMethodNameLocation, links[0].MatchMethod)
		assert.NotNil(t, links[0].CreatedAt)
	})

	t.Run("persisting twice is idempotent", func(t *testing.T) {
		repo := newRepository(t)
		_, err := repo.Persist(ctx, sampleLinks())
		require.NoError(t, err)

		updated := sampleLinks()
		updated[1].ConfidenceScore = 0.75
		result, err := repo.Persist(ctx, updated)
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.RowsAffected)

		links, err := repo.List(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, links, 2)

		link, err := repo.GetByFederalPark(ctx, "zion")
		require.NoError(t, err)
		assert.Equal(t, 0.75, link.ConfidenceScore)
	})

	t.Run("duplicate keys in one batch keep the last", func(t *testing.T) {
		repo := newRepository(t)
		links := sampleLinks()
		dup := links[0]
		dup.ConfidenceScore = 0.99
		links = append(links, dup)

		result, err := repo.Persist(ctx, links)
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.RowsAffected)

		link, err := repo.GetByFederalPark(ctx, "yell")
		require.NoError(t, err)
		assert.Equal(t, 0.99, link.ConfidenceScore)
	})

	t.Run("large batches are chunked", func(t *testing.T) {
		repo := newRepository(t)
		links := make([]models.ParkLink, 0, persistChunkSize+10)
		for i := range persistChunkSize + 10 {
			links = append(links, models.ParkLink{
				FederalParkID:      "f" + strconv.Itoa(i),
				WikidataParkID:     "w" + strconv.Itoa(i),
				WikidataExternalID: "Q" + strconv.Itoa(i),
				ConfidenceScore:    0.8,
				NameSimilarity:     0.8,
				LocationSimilarity: 0.8,
			})
		}

		result, err := repo.Persist(ctx, links)
		require.NoError(t, err)
		assert.Equal(t, int64(len(links)), result.RowsAffected)
	})

	t.Run("storage errors are wrapped", func(t *testing.T) {
		repo := newRepository(t)
		links := sampleLinks()
		missingRun := "does-not-exist"
		links[0].RunID = &missingRun

		_, err := repo.Persist(ctx, links)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to persist park links")

		// the failed batch rolled back
		all, err := repo.List(ctx, ListFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)
	_, err := repo.Persist(ctx, sampleLinks())
	require.NoError(t, err)

	t.Run("min confidence", func(t *testing.T) {
		links, err := repo.List(ctx, ListFilter{MinConfidence: 0.9})
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "yell", links[0].FederalParkID)
	})

	t.Run("by wikidata park", func(t *testing.T) {
		links, err := repo.List(ctx, ListFilter{WikidataParkID: "wd-2"})
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "zion", links[0].FederalParkID)
	})

	t.Run("limit and offset", func(t *testing.T) {
		links, err := repo.List(ctx, ListFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "zion", links[0].FederalParkID)
	})
}

func TestGetByFederalPark_NotFound(t *testing.T) {
	repo := newRepository(t)

	_, err := repo.GetByFederalPark(context.Background(), "missing")
	require.Error(t, err)

	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}
