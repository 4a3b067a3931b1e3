package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/toy/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", Handler())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/toy/:id", "200"))
	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/toy/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/toy/:id", "200"))
	assert.Equal(t, 2.0, after-before)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestRecordCheckout(t *testing.T) {
	before := testutil.ToFloat64(checkoutsTotal.WithLabelValues(OutcomeConfirmed))
	RecordCheckout(OutcomeConfirmed)
	assert.Equal(t, 1.0, testutil.ToFloat64(checkoutsTotal.WithLabelValues(OutcomeConfirmed))-before)

	before = testutil.ToFloat64(stockDecrementFailuresTotal)
	RecordDecrementFailure()
	assert.Equal(t, 1.0, testutil.ToFloat64(stockDecrementFailuresTotal)-before)
}
