package runs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/parklink/internal/testutil"
	"github.com/Ramsey-B/parklink/pkg/middleware"
	"github.com/Ramsey-B/parklink/pkg/models"
)

type fakeService struct {
	lastRequest models.StartLinkRunRequest
	runErr      error
	runStatus   string
	lastLimit   int
}

func (f *fakeService) Run(_ context.Context, req models.StartLinkRunRequest) (*models.LinkRun, error) {
	f.lastRequest = req
	status := f.runStatus
	if status == "" {
		status = models.LinkRunStatusCompleted
	}
	if f.runErr != nil && status != models.LinkRunStatusFailed {
		return nil, f.runErr
	}
	return &models.LinkRun{ID: "run-1", Status: status, LinkedCount: 2}, f.runErr
}

func (f *fakeService) Get(_ context.Context, id string) (*models.LinkRun, error) {
	if id != "run-1" {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "link run "+id+" not found")
	}
	return &models.LinkRun{ID: id, Status: models.LinkRunStatusCompleted}, nil
}

func (f *fakeService) ListRecent(_ context.Context, limit int) ([]models.LinkRun, error) {
	f.lastLimit = limit
	return []models.LinkRun{{ID: "run-1"}}, nil
}

func (f *fakeService) Progress(_ context.Context, runID string) (*models.LinkProgress, error) {
	return &models.LinkProgress{RunID: runID, Current: 3, Total: 10, Matched: 1}, nil
}

func newServer(service RunService) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testutil.NopLogger())
	NewHandler(service, testutil.NopLogger()).Register(e.Group("/api/v1/link-runs"))
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestStartLinkRun(t *testing.T) {
	t.Run("passes overrides to the service", func(t *testing.T) {
		service := &fakeService{}
		rec := do(newServer(service), http.MethodPost, "/api/v1/link-runs", `{"threshold":0.75,"max_distance_km":50}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, service.lastRequest.Threshold)
		assert.Equal(t, 0.75, *service.lastRequest.Threshold)
		assert.Equal(t, 50.0, *service.lastRequest.MaxDistanceKm)
		assert.Nil(t, service.lastRequest.NameWeight)

		var run models.LinkRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.Equal(t, 2, run.LinkedCount)
	})

	t.Run("empty body uses configured options", func(t *testing.T) {
		service := &fakeService{}
		rec := do(newServer(service), http.MethodPost, "/api/v1/link-runs", `{}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Nil(t, service.lastRequest.Threshold)
	})

	t.Run("rejects out of range values", func(t *testing.T) {
		for _, body := range []string{`{"threshold":1.5}`, `{"max_distance_km":0}`, `{"name_weight":-0.1}`} {
			rec := do(newServer(&fakeService{}), http.MethodPost, "/api/v1/link-runs", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		rec := do(newServer(&fakeService{}), http.MethodPost, "/api/v1/link-runs", `{"threshold":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("run in progress", func(t *testing.T) {
		service := &fakeService{runErr: httperror.NewHTTPError(http.StatusConflict, "a link run is already in progress")}
		rec := do(newServer(service), http.MethodPost, "/api/v1/link-runs", `{}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("failed run is returned with its record", func(t *testing.T) {
		service := &fakeService{runErr: errors.New("disk full"), runStatus: models.LinkRunStatusFailed}
		rec := do(newServer(service), http.MethodPost, "/api/v1/link-runs", `{}`)
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var run models.LinkRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.Equal(t, models.LinkRunStatusFailed, run.Status)
	})
}

func TestGetLinkRun(t *testing.T) {
	e := newServer(&fakeService{})

	rec := do(e, http.MethodGet, "/api/v1/link-runs/run-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/link-runs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListLinkRuns(t *testing.T) {
	service := &fakeService{}
	e := newServer(service)

	rec := do(e, http.MethodGet, "/api/v1/link-runs", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, service.lastLimit)

	rec = do(e, http.MethodGet, "/api/v1/link-runs?limit=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, service.lastLimit)

	rec = do(e, http.MethodGet, "/api/v1/link-runs?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLinkRunProgress(t *testing.T) {
	rec := do(newServer(&fakeService{}), http.MethodGet, "/api/v1/link-runs/run-1/progress", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var progress models.LinkProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	assert.Equal(t, "run-1", progress.RunID)
	assert.Equal(t, 3, progress.Current)
}
