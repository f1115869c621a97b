package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/parklink/internal/testutil"
)

func serve(t *testing.T, checker *Checker, path string) (*httptest.ResponseRecorder, HealthStatus) {
	t.Helper()
	e := echo.New()
	checker.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var status HealthStatus
	if path == "/api/v1/health" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	}
	return rec, status
}

func TestHealth(t *testing.T) {
	t.Run("healthy with a live database", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		checker := NewChecker("test").AddCheck("database", db.PingContext)

		rec, status := serve(t, checker, "/api/v1/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "test", status.Version)
		assert.Equal(t, "healthy", status.Checks["database"].Status)
	})

	t.Run("failing dependency", func(t *testing.T) {
		checker := NewChecker("test").
			AddCheck("database", func(context.Context) error { return nil }).
			AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })

		rec, status := serve(t, checker, "/api/v1/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unhealthy", status.Status)
		assert.Equal(t, "healthy", status.Checks["database"].Status)
		assert.Equal(t, "connection refused", status.Checks["redis"].Message)
	})

	t.Run("unconfigured dependency", func(t *testing.T) {
		checker := NewChecker("test").AddCheck("database", nil)

		rec, status := serve(t, checker, "/api/v1/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "database not configured", status.Checks["database"].Message)
	})
}

func TestReady(t *testing.T) {
	checker := NewChecker("test")

	rec, _ := serve(t, checker, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	checker.SetReady(true)
	rec, _ = serve(t, checker, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = serve(t, checker, "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}
