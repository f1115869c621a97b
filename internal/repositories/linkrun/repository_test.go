package linkrun

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/parklink/internal/testutil"
	"github.com/Ramsey-B/parklink/pkg/models"
)

func newRun() *models.LinkRun {
	return &models.LinkRun{
		Threshold:        0.6,
		MaxDistanceKm:    100,
		NameWeight:       0.7,
		LocationWeight:   0.3,
		InputFingerprint: "abc123",
		FederalCount:     3,
		WikidataCount:    5,
	}
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testutil.NewSQLiteDB(t), testutil.NopLogger())

	t.Run("create then complete", func(t *testing.T) {
		run, err := repo.Create(ctx, newRun())
		require.NoError(t, err)
		require.NotEmpty(t, run.ID)
		assert.Equal(t, models.LinkRunStatusRunning, run.Status)

		require.NoError(t, repo.Complete(ctx, run.ID, 2, 2))

		stored, err := repo.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LinkRunStatusCompleted, stored.Status)
		assert.Equal(t, 2, stored.LinkedCount)
		assert.Equal(t, int64(2), stored.RowsAffected)
		assert.Equal(t, "abc123", stored.InputFingerprint)
		assert.NotNil(t, stored.FinishedAt)
		assert.Nil(t, stored.Error)

		// a finished run cannot be finished again
		err = repo.Fail(ctx, run.ID, "late failure")
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})

	t.Run("create then fail", func(t *testing.T) {
		run, err := repo.Create(ctx, newRun())
		require.NoError(t, err)

		require.NoError(t, repo.Fail(ctx, run.ID, "boom"))

		stored, err := repo.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LinkRunStatusFailed, stored.Status)
		require.NotNil(t, stored.Error)
		assert.Equal(t, "boom", *stored.Error)
	})

	t.Run("list recent", func(t *testing.T) {
		runs, err := repo.ListRecent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})

	t.Run("missing run", func(t *testing.T) {
		_, err := repo.Get(ctx, "00000000-0000-0000-0000-000000000000")
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}
