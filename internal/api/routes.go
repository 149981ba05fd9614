package api

import (
	"net/http"

	"github.com/RMahshie/pulsesim/internal/api/handlers"
	"github.com/RMahshie/pulsesim/internal/processing"
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes sets up all API routes. stream may be nil to disable /ws.
func RegisterRoutes(router chi.Router, api huma.API, svc processing.MeasurementService, stream http.Handler) {
	// Initialize handlers
	measurementHandler := handlers.NewMeasurementHandler(svc)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the simulator",
		Tags:        []string{"Status"},
	}, measurementHandler.Health)

	huma.Register(api, huma.Operation{
		OperationID: "getReadings",
		Method:      http.MethodGet,
		Path:        "/readings",
		Summary:     "Take a measurement",
		Description: "Starts a measurement session and blocks until it completes (about 30 seconds)",
		Tags:        []string{"Measurement"},
		Errors:      []int{http.StatusBadRequest},
	}, measurementHandler.GetReadings)

	huma.Register(api, huma.Operation{
		OperationID: "getBeat",
		Method:      http.MethodGet,
		Path:        "/beat",
		Summary:     "Live beat status",
		Description: "Returns the last beat time and progress of the running measurement",
		Tags:        []string{"Measurement"},
	}, measurementHandler.GetBeat)

	huma.Register(api, huma.Operation{
		OperationID: "getResults",
		Method:      http.MethodGet,
		Path:        "/results",
		Summary:     "Last measurement result",
		Description: "Returns the most recent completed measurement until it is cleared",
		Tags:        []string{"Measurement"},
	}, measurementHandler.GetResults)

	huma.Register(api, huma.Operation{
		OperationID: "clearResults",
		Method:      http.MethodGet,
		Path:        "/clear_results",
		Summary:     "Clear measurement result",
		Description: "Discards the stored measurement result",
		Tags:        []string{"Measurement"},
	}, measurementHandler.ClearResults)

	if stream != nil {
		router.Handle("/ws", stream)
	}
}

// NewConfig returns the huma configuration for the simulator API.
// Bodies are kept free of the $schema link so the wire format stays plain JSON.
func NewConfig() huma.Config {
	config := huma.DefaultConfig("Pulse Oximeter Simulator API", "1.0.0")
	config.OpenAPIPath = "/api/openapi"
	config.DocsPath = "/api/docs"
	config.CreateHooks = nil
	return config
}
