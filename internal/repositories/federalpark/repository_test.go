package federalpark

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/parklink/internal/testutil"
	"github.com/Ramsey-B/parklink/pkg/models"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testutil.NewSQLiteDB(t), testutil.NopLogger())

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	affected, err := repo.Upsert(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, affected)

	parks := []models.FederalPark{
		{ID: "zion", Name: "Zion National Park", Latitude: testutil.Ptr(37.3), Longitude: testutil.Ptr(-113.05)},
		{ID: "arch", Name: "Arches National Park"},
	}
	affected, err = repo.Upsert(ctx, parks)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	parks[1].Latitude = testutil.Ptr(38.68)
	parks[1].Longitude = testutil.Ptr(-109.57)
	_, err = repo.Upsert(ctx, parks)
	require.NoError(t, err)

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "arch", listed[0].ID)
	require.NotNil(t, listed[0].Coordinates())
	assert.Equal(t, models.Coordinates{Latitude: 38.68, Longitude: -109.57}, *listed[0].Coordinates())
	assert.NotNil(t, listed[0].UpdatedAt)
}
