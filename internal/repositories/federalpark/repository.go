package federalpark

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/parklink/pkg/database"
	"github.com/Ramsey-B/parklink/pkg/models"
	"github.com/Ramsey-B/parklink/pkg/tracing"
)

const table = "federal_parks"

var columns = []string{"id", "name", "latitude", "longitude", "updated_at"}

// Repository handles federal park persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new federal park repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// List returns every federal park ordered by id, the order a linking pass consumes them in
func (r *Repository) List(ctx context.Context) ([]models.FederalPark, error) {
	ctx, span := tracing.StartSpan(ctx, "federalpark.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...)
	sb.From(table)
	sb.OrderBy("id ASC")

	query, args := sb.Build()
	parks := make([]models.FederalPark, 0)
	if err := r.db.SelectContext(ctx, &parks, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list federal parks")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list federal parks")
	}

	return parks, nil
}

// Upsert inserts or refreshes parks by id
func (r *Repository) Upsert(ctx context.Context, parks []models.FederalPark) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "federalpark.Repository.Upsert")
	defer span.End()

	if len(parks) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder(r.db.Flavor())
	ib.InsertInto(table)
	ib.Cols(columns...)
	for _, park := range parks {
		ib.Values(park.ID, park.Name, park.Latitude, park.Longitude, now)
	}
	ib.OnConflict([]string{"id"}, "name", "latitude", "longitude", "updated_at")

	query, args := ib.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(parks)}).Error("Failed to upsert federal parks")
		return 0, errors.Wrap(err, "failed to upsert federal parks")
	}

	return result.RowsAffected()
}
