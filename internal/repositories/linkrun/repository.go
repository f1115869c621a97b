package linkrun

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/parklink/pkg/database"
	"github.com/Ramsey-B/parklink/pkg/models"
	"github.com/Ramsey-B/parklink/pkg/tracing"
)

const table = "link_runs"

var columns = []string{
	"id", "status", "threshold", "max_distance_km", "name_weight", "location_weight", "input_fingerprint",
	"federal_count", "wikidata_count", "linked_count", "rows_affected", "error", "started_at", "finished_at",
}

// Repository handles link run persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new link run repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create records a new running link run
func (r *Repository) Create(ctx context.Context, run *models.LinkRun) (*models.LinkRun, error) {
	ctx, span := tracing.StartSpan(ctx, "linkrun.Repository.Create")
	defer span.End()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.Status = models.LinkRunStatusRunning
	run.StartedAt = time.Now().UTC()

	ib := database.NewInsertBuilder(r.db.Flavor())
	ib.InsertInto(table)
	ib.Cols("id", "status", "threshold", "max_distance_km", "name_weight", "location_weight", "input_fingerprint", "federal_count", "wikidata_count", "started_at")
	ib.Values(run.ID, run.Status, run.Threshold, run.MaxDistanceKm, run.NameWeight, run.LocationWeight, run.InputFingerprint, run.FederalCount, run.WikidataCount, run.StartedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"run_id": run.ID}).Error("Failed to create link run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create link run")
	}

	return run, nil
}

// Complete marks a run as completed with its results
func (r *Repository) Complete(ctx context.Context, id string, linkedCount int, rowsAffected int64) error {
	ctx, span := tracing.StartSpan(ctx, "linkrun.Repository.Complete")
	defer span.End()

	return r.finish(ctx, id, models.LinkRunStatusCompleted, map[string]any{
		"linked_count":  linkedCount,
		"rows_affected": rowsAffected,
	})
}

// Fail marks a run as failed with the error message
func (r *Repository) Fail(ctx context.Context, id string, message string) error {
	ctx, span := tracing.StartSpan(ctx, "linkrun.Repository.Fail")
	defer span.End()

	return r.finish(ctx, id, models.LinkRunStatusFailed, map[string]any{
		"error": message,
	})
}

func (r *Repository) finish(ctx context.Context, id, status string, values map[string]any) error {
	ub := database.NewUpdateBuilder(r.db.Flavor())
	ub.Update(table)
	assignments := []string{
		ub.Assign("status", status),
		ub.Assign("finished_at", time.Now().UTC()),
	}
	for _, col := range []string{"linked_count", "rows_affected", "error"} {
		if v, ok := values[col]; ok {
			assignments = append(assignments, ub.Assign(col, v))
		}
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id), ub.Equal("status", models.LinkRunStatusRunning))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"run_id": id, "status": status}).Error("Failed to finish link run")
		return errors.Wrapf(err, "failed to mark link run %s %s", id, status)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("link run %s is not running", id))
	}
	return nil
}

// Get retrieves a link run by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.LinkRun, error) {
	ctx, span := tracing.StartSpan(ctx, "linkrun.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var run models.LinkRun
	if err := r.db.GetContext(ctx, &run, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("link run %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"run_id": id}).Error("Failed to get link run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get link run")
	}

	return &run, nil
}

// ListRecent returns the most recently started runs
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.LinkRun, error) {
	ctx, span := tracing.StartSpan(ctx, "linkrun.Repository.ListRecent")
	defer span.End()

	if limit < 1 || limit > 100 {
		limit = 20
	}

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...)
	sb.From(table)
	sb.OrderBy("started_at DESC", "id DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	runs := make([]models.LinkRun, 0)
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list link runs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list link runs")
	}

	return runs, nil
}
