package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentCountsByRoutePattern(t *testing.T) {
	e := echo.New()
	e.Use(Instrument())
	e.GET("/v1/performers/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/performers/:id", "204"))
	for _, p := range []string{"/v1/performers/1", "/v1/performers/2"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/performers/:id", "204")))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/boom", "418")))
}

func TestDomainCounters(t *testing.T) {
	RecordTransition("accept", "pending_vetting")
	assert.Equal(t, float64(1), testutil.ToFloat64(bookingTransitions.WithLabelValues("accept", "pending_vetting")))

	RecordNotification("SMS", "SENT")
	assert.Equal(t, float64(1), testutil.ToFloat64(notifications.WithLabelValues("SMS", "SENT")))

	RecordExpired(0)
	RecordExpired(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(bookingsExpired))
}

func TestHandlerServesRegistry(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking_platform_http_inflight_requests")
}
