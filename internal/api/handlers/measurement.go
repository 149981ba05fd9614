package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/RMahshie/pulsesim/internal/processing"
	"github.com/RMahshie/pulsesim/internal/repository"
	"github.com/RMahshie/pulsesim/pkg/models"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the error body returned by every endpoint.
// It implements huma.StatusError so huma writes it as-is.
type ErrorResponse struct {
	status  int
	Status  string `json:"status" example:"error" doc:"Always \"error\""`
	Message string `json:"message" doc:"Human-readable error message"`
}

// Error implements error
func (e *ErrorResponse) Error() string {
	return e.Message
}

// GetStatus returns the HTTP status code
func (e *ErrorResponse) GetStatus() int {
	return e.status
}

func newError(status int, message string) *ErrorResponse {
	return &ErrorResponse{status: status, Status: "error", Message: message}
}

// MeasurementHandler handles simulator HTTP requests
type MeasurementHandler struct {
	svc processing.MeasurementService
	now func() time.Time
}

// NewMeasurementHandler creates a new measurement handler
func NewMeasurementHandler(svc processing.MeasurementService) *MeasurementHandler {
	return &MeasurementHandler{
		svc: svc,
		now: time.Now,
	}
}

// Health reports that the simulator is up
func (h *MeasurementHandler) Health(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
	resp := &models.HealthResponse{}
	resp.Body.Status = "UP"
	resp.Body.Timestamp = models.FormatTimestamp(h.now())
	resp.Body.Message = "ESP Sensor Simulator is running"
	return resp, nil
}

// GetReadings runs a full measurement and returns its result once it completes
func (h *MeasurementHandler) GetReadings(ctx context.Context, input *struct{}) (*models.ReadingsResponse, error) {
	log.Info().Msg("Readings request received, starting measurement")

	result, err := h.svc.Measure(ctx)
	if err != nil {
		switch {
		case errors.Is(err, processing.ErrMeasurementActive):
			log.Warn().Msg("Rejected readings request, measurement already active")
			return nil, newError(http.StatusBadRequest, "Measurement in progress. Please wait.")
		case errors.Is(err, processing.ErrSensorRemoved):
			log.Warn().Err(err).Msg("Measurement aborted")
			return nil, newError(http.StatusBadRequest, "No finger detected. Measurement canceled.")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			log.Warn().Err(err).Msg("Client stopped waiting for measurement")
			return nil, newError(http.StatusServiceUnavailable, "Measurement interrupted before completion.")
		default:
			log.Error().Err(err).Msg("Measurement failed")
			return nil, newError(http.StatusInternalServerError, "Measurement failed.")
		}
	}

	log.Info().Str("sessionID", result.SessionID).Float64("heartRate", result.HeartRate).Int("beats", result.BeatsDetected).Msg("Returning measurement result")
	return &models.ReadingsResponse{
		Body: models.ReadingsResponseBody{
			Status:        "success",
			HeartRate:     round1(result.HeartRate),
			SpO2:          round1(result.SpO2),
			BeatsDetected: result.BeatsDetected,
			Timestamp:     models.FormatTimestamp(h.now()),
		},
	}, nil
}

// GetBeat returns the live beat status without blocking
func (h *MeasurementHandler) GetBeat(ctx context.Context, input *struct{}) (*models.BeatResponse, error) {
	snap := h.svc.Snapshot()

	body := models.BeatResponseBody{
		MeasurementActive: snap.MeasurementActive,
		BeatsDetected:     snap.BeatsDetected,
	}
	if snap.LastBeatTime != nil {
		ts := models.FormatTimestamp(*snap.LastBeatTime)
		body.LastBeatTime = &ts
	}
	return &models.BeatResponse{Body: body}, nil
}

// GetResults returns the last completed measurement, if any
func (h *MeasurementHandler) GetResults(ctx context.Context, input *struct{}) (*models.ResultsResponse, error) {
	active := h.svc.Snapshot().MeasurementActive

	result, err := h.svc.LastResult(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.ResultsResponse{
			Body: models.ResultsResponseBody{
				Status:            "not_ready",
				Message:           "No completed measurement available",
				MeasurementActive: active,
			},
		}, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load last result")
		return nil, newError(http.StatusInternalServerError, "Failed to load results.")
	}

	heartRate, spo2, beats := round1(result.HeartRate), round1(result.SpO2), result.BeatsDetected
	return &models.ResultsResponse{
		Body: models.ResultsResponseBody{
			Status:            "success",
			HeartRate:         &heartRate,
			SpO2:              &spo2,
			BeatsDetected:     &beats,
			SessionID:         result.SessionID,
			Timestamp:         models.FormatTimestamp(result.CompletedAt),
			MeasurementActive: active,
		},
	}, nil
}

// ClearResults discards the stored result
func (h *MeasurementHandler) ClearResults(ctx context.Context, input *struct{}) (*models.ClearResultsResponse, error) {
	if err := h.svc.ClearResult(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to clear results")
		return nil, newError(http.StatusInternalServerError, "Failed to clear results.")
	}
	log.Info().Msg("Measurement results cleared")

	resp := &models.ClearResultsResponse{}
	resp.Body.Status = "success"
	resp.Body.Message = "Measurement results cleared"
	return resp, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
