package parklink

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

const (
	table = "park_links"

	// keeps a single statement well under the bind parameter limits of both drivers
	persistChunkSize = 500
)

var columns = []string{
	"federal_park_id", "wikidata_park_id", "wikidata_external_id", "confidence_score",
	"name_similarity", "location_similarity", "match_method", "run_id", "created_at", "updated_at",
}

// refreshed on conflict; created_at keeps the first write
var updateColumns = []string{
	"wikidata_external_id", "confidence_score", "name_similarity", "location_similarity",
	"match_method", "run_id", "updated_at",
}

// ListFilter narrows a link listing
type ListFilter struct {
	FederalParkID  string
	WikidataParkID string
	RunID          string
	MinConfidence  float64
	Limit          int
	Offset         int
}

// Repository handles park link persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new park link repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Persist upserts links keyed by (federal_park_id, wikidata_park_id) in a single
// transaction and returns the number of rows written.
func (r *Repository) Persist(ctx context.Context, links []models.ParkLink) (models.PersistResult, error) {
	ctx, span := tracing.StartSpan(ctx, "parklink.Repository.Persist")
	defer span.End()

	if len(links) == 0 {
		return models.PersistResult{}, nil
	}

	links = dedupe(links)
	now := time.Now().UTC()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return models.PersistResult{}, errors.Wrap(err, "failed to persist park links")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var affected int64
	for start := 0; start < len(links); start += persistChunkSize {
		end := min(start+persistChunkSize, len(links))

		ib := database.NewInsertBuilder(r.db.Flavor())
		ib.InsertInto(table)
		ib.Cols(columns...)
		for _, link := range links[start:end] {
			if link.MatchMethod == "" {
				link.MatchMethod = models.MatchMethodNameLocation
			}
			ib.Values(link.FederalParkID, link.WikidataParkID, link.WikidataExternalID, link.ConfidenceScore,
				link.NameSimilarity, link.LocationSimilarity, link.MatchMethod, link.RunID, now, now)
		}
		ib.OnConflict([]string{"federal_park_id", "wikidata_park_id"}, updateColumns...)

		query, args := ib.Build()
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": end - start}).Error("Failed to upsert park links")
			return models.PersistResult{}, errors.Wrapf(err, "failed to persist park links %d-%d of %d", start, end, len(links))
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return models.PersistResult{}, errors.Wrap(err, "failed to read affected rows for park links")
		}
		affected += rows
	}

	if err := tx.Commit(ctx); err != nil {
		return models.PersistResult{}, errors.Wrap(err, "failed to persist park links")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"count":         len(links),
		"rows_affected": affected,
	}).Debug("Persisted park links")

	return models.PersistResult{RowsAffected: affected}, nil
}

// List returns links ordered by confidence, highest first
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.ParkLink, error) {
	ctx, span := tracing.StartSpan(ctx, "parklink.Repository.List")
	defer span.End()

	if filter.Limit < 1 || filter.Limit > 1000 {
		filter.Limit = 100
	}

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...)
	sb.From(table)
	if filter.FederalParkID != "" {
		sb.Where(sb.Equal("federal_park_id", filter.FederalParkID))
	}
	if filter.WikidataParkID != "" {
		sb.Where(sb.Equal("wikidata_park_id", filter.WikidataParkID))
	}
	if filter.RunID != "" {
		sb.Where(sb.Equal("run_id", filter.RunID))
	}
	if filter.MinConfidence > 0 {
		sb.Where(sb.GreaterEqualThan("confidence_score", filter.MinConfidence))
	}
	sb.OrderBy("confidence_score DESC", "federal_park_id ASC")
	sb.Limit(filter.Limit)
	if filter.Offset > 0 {
		sb.Offset(filter.Offset)
	}

	query, args := sb.Build()
	links := make([]models.ParkLink, 0)
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list park links")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list park links")
	}

	return links, nil
}

// GetByFederalPark returns the link for a federal park
func (r *Repository) GetByFederalPark(ctx context.Context, federalParkID string) (*models.ParkLink, error) {
	ctx, span := tracing.StartSpan(ctx, "parklink.Repository.GetByFederalPark")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("federal_park_id", federalParkID))
	sb.OrderBy("confidence_score DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var link models.ParkLink
	if err := r.db.GetContext(ctx, &link, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no link for federal park %s", federalParkID))
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"federal_park_id": federalParkID}).Error("Failed to get park link")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get park link")
	}

	return &link, nil
}

// dedupe keeps the last link for each key so one statement never touches a row twice
func dedupe(links []models.ParkLink) []models.ParkLink {
	type key struct{ federal, wikidata string }

	index := make(map[key]int, len(links))
	out := make([]models.ParkLink, 0, len(links))
	for _, link := range links {
		k := key{link.FederalParkID, link.WikidataParkID}
		if i, ok := index[k]; ok {
			out[i] = link
			continue
		}
		index[k] = len(out)
		out = append(out, link)
	}
	return out
}
