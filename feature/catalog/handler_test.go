package catalog

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"files-kraken/core/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T) (*fiber.App, *countingStore) {
	app := fiber.New()
	store := seededStore(t)
	svc := NewService(store, testRegistry(t), time.Minute, zap.NewNop())
	NewHandler(svc, metrics.New()).RegisterRoutes(app)
	return app, store
}

func decode(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestHandleSchemas(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/catalog", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []any{"Sample"}, decode(t, resp.Body)["schemas"])
}

func TestHandleList(t *testing.T) {
	app, store := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/catalog/Sample", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["records"], 2)

	t.Run("limit", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/catalog/Sample?limit=1", nil))
		require.NoError(t, err)
		body := decode(t, resp.Body)
		assert.Equal(t, float64(2), body["total"])
		assert.Len(t, body["records"], 1)
	})

	t.Run("fresh", func(t *testing.T) {
		before := store.calls()
		resp, err := app.Test(httptest.NewRequest("GET", "/catalog/Sample?fresh=true", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, before+1, store.calls())
	})

	t.Run("unknown schema", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/catalog/Nope", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("store failure", func(t *testing.T) {
		store.err = errors.New("store down")
		defer func() { store.err = nil }()
		resp, err := app.Test(httptest.NewRequest("GET", "/catalog/Sample?fresh=1", nil))
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
	})
}

func TestHandleGet(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/catalog/Sample/run_1", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, "run_1", body["id"])
	assert.Equal(t, "/d/run_1.vcf", body["vcf"])

	resp, err = app.Test(httptest.NewRequest("GET", "/catalog/Sample/run_9", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestHandleMetrics(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
