package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "hello")
	})
	e.POST("/api/v1/redact", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/test"},
		{http.MethodGet, "/test"},
		{http.MethodPost, "/api/v1/redact"},
		{http.MethodGet, "/boom"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/test", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "/api/v1/redact", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/boom", "500")))
	assert.Zero(t, testutil.ToFloat64(m.activeRequests))

	count, err := testutil.GatherAndCount(reg, "ctxpack_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestHTTPMetrics_ErrorWrittenOnce(t *testing.T) {
	m := NewHTTPMetrics(nil)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/teapot", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"message":"short and stout"}`, rec.Body.String())
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "unmatched", normalizePath(""))
	assert.Equal(t, "/api/v1/bundle", normalizePath("/api/v1/bundle"))
}
