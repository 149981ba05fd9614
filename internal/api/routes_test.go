package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/RMahshie/pulsesim/internal/processing"
	"github.com/RMahshie/pulsesim/internal/repository/memory"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, engine *processing.Engine) humatest.TestAPI {
	t.Helper()
	router := chi.NewRouter()
	api := humachi.New(router, NewConfig())
	RegisterRoutes(router, api, engine, nil)
	return humatest.Wrap(t, api)
}

func newEngine(duration float64, source processing.SampleSource) *processing.Engine {
	cfg := processing.DefaultConfig()
	cfg.Duration = duration
	cfg.SampleInterval = 0
	return processing.NewEngine(cfg, source, memory.NewResultRepository(0), nil)
}

var flat = processing.SampleFunc(func(float64) (float64, float64) { return 50000, 50000 })

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestRoutes_Health(t *testing.T) {
	api := newTestAPI(t, newEngine(1, flat))

	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	body := decode(t, resp.Body.Bytes())
	assert.Equal(t, "UP", body["status"])
	assert.Contains(t, body, "timestamp")
	assert.Contains(t, body, "message")
}

func TestRoutes_ReadingsThenResults(t *testing.T) {
	api := newTestAPI(t, newEngine(2, flat))

	before := decode(t, api.Get("/results").Body.Bytes())
	assert.Equal(t, "not_ready", before["status"])

	resp := api.Get("/readings")
	require.Equal(t, http.StatusOK, resp.Code)

	body := decode(t, resp.Body.Bytes())
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, 0.0, body["heartRate"])
	assert.Equal(t, 85.0, body["spo2"])
	assert.Equal(t, 0.0, body["beatsDetected"])

	beat := decode(t, api.Get("/beat").Body.Bytes())
	assert.Nil(t, beat["lastBeatTime"])
	assert.Equal(t, false, beat["measurementActive"])

	results := decode(t, api.Get("/results").Body.Bytes())
	assert.Equal(t, "success", results["status"])
	assert.Equal(t, 85.0, results["spo2"])

	cleared := api.Get("/clear_results")
	require.Equal(t, http.StatusOK, cleared.Code)
	assert.Equal(t, "success", decode(t, cleared.Body.Bytes())["status"])

	after := decode(t, api.Get("/results").Body.Bytes())
	assert.Equal(t, "not_ready", after["status"])
}

func TestRoutes_ReadingsWhileActive(t *testing.T) {
	engine := newEngine(30, flat)
	api := newTestAPI(t, engine)

	_, err := engine.Start()
	require.NoError(t, err)

	resp := api.Get("/readings")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	body := decode(t, resp.Body.Bytes())
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Measurement in progress. Please wait.", body["message"])
	assert.NotContains(t, body, "$schema")

	beat := decode(t, api.Get("/beat").Body.Bytes())
	assert.Equal(t, true, beat["measurementActive"])
}

func TestRoutes_ReadingsFingerRemoved(t *testing.T) {
	source := processing.SampleFunc(func(ts float64) (float64, float64) {
		if ts >= 1.5 {
			return 1000, 1000
		}
		return 50000, 50000
	})
	api := newTestAPI(t, newEngine(30, source))

	resp := api.Get("/readings")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "error", decode(t, resp.Body.Bytes())["status"])

	beat := decode(t, api.Get("/beat").Body.Bytes())
	assert.Equal(t, false, beat["measurementActive"])
	assert.Equal(t, 0.0, beat["beatsDetected"])
}
