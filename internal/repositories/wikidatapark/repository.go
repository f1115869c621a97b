package wikidatapark

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/parklink/pkg/database"
	"github.com/Ramsey-B/parklink/pkg/models"
	"github.com/Ramsey-B/parklink/pkg/tracing"
)

const table = "wikidata_parks"

var columns = []string{"id", "external_id", "label", "latitude", "longitude", "updated_at"}

// Repository handles wikidata park persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new wikidata park repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// List returns every wikidata park ordered by id
func (r *Repository) List(ctx context.Context) ([]models.WikidataPark, error) {
	ctx, span := tracing.StartSpan(ctx, "wikidatapark.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...)
	sb.From(table)
	sb.OrderBy("id ASC")

	query, args := sb.Build()
	parks := make([]models.WikidataPark, 0)
	if err := r.db.SelectContext(ctx, &parks, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list wikidata parks")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list wikidata parks")
	}

	return parks, nil
}

// Upsert inserts or refreshes parks by id
func (r *Repository) Upsert(ctx context.Context, parks []models.WikidataPark) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "wikidatapark.Repository.Upsert")
	defer span.End()

	if len(parks) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder(r.db.Flavor())
	ib.InsertInto(table)
	ib.Cols(columns...)
	for _, park := range parks {
		ib.Values(park.ID, park.ExternalID, park.Label, park.Latitude, park.Longitude, now)
	}
	ib.OnConflict([]string{"id"}, "external_id", "label", "latitude", "longitude", "updated_at")

	query, args := ib.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(parks)}).Error("Failed to upsert wikidata parks")
		return 0, errors.Wrap(err, "failed to upsert wikidata parks")
	}

	return result.RowsAffected()
}

// GetByExternalID returns the park with the given Wikidata QID
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*models.WikidataPark, error) {
	ctx, span := tracing.StartSpan(ctx, "wikidatapark.Repository.GetByExternalID")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("external_id", externalID))
	sb.Limit(1)

	query, args := sb.Build()
	var park models.WikidataPark
	if err := r.db.GetContext(ctx, &park, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("wikidata park %s not found", externalID))
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"external_id": externalID}).Error("Failed to get wikidata park")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get wikidata park")
	}

	return &park, nil
}
