package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/RMahshie/pulsesim/internal/processing"
	"github.com/RMahshie/pulsesim/internal/repository"
	"github.com/RMahshie/pulsesim/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMeasurementService implements processing.MeasurementService for testing
type MockMeasurementService struct {
	mock.Mock
}

func (m *MockMeasurementService) Measure(ctx context.Context) (*models.MeasurementResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*models.MeasurementResult)
	return result, args.Error(1)
}

func (m *MockMeasurementService) Snapshot() models.BeatSnapshot {
	args := m.Called()
	return args.Get(0).(models.BeatSnapshot)
}

func (m *MockMeasurementService) LastResult(ctx context.Context) (*models.MeasurementResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*models.MeasurementResult)
	return result, args.Error(1)
}

func (m *MockMeasurementService) ClearResult(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)

func newTestHandler(svc processing.MeasurementService) *MeasurementHandler {
	h := NewMeasurementHandler(svc)
	h.now = func() time.Time { return fixedNow }
	return h
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&MockMeasurementService{})

	resp, err := h.Health(context.Background(), &struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "UP", resp.Body.Status)
	assert.Equal(t, "2025-03-14T09:26:53.589Z", resp.Body.Timestamp)
	assert.NotEmpty(t, resp.Body.Message)
}

func TestGetReadings(t *testing.T) {
	tests := []struct {
		name       string
		result     *models.MeasurementResult
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name: "completed measurement",
			result: &models.MeasurementResult{
				SessionID:     "s-1",
				HeartRate:     72.349,
				SpO2:          96.96,
				BeatsDetected: 36,
			},
		},
		{
			name:       "measurement already active",
			err:        processing.ErrMeasurementActive,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Measurement in progress. Please wait.",
		},
		{
			name:       "finger removed",
			err:        fmt.Errorf("measurement s-2: %w", processing.ErrSensorRemoved),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "No finger detected. Measurement canceled.",
		},
		{
			name:       "client went away",
			err:        context.Canceled,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unexpected failure",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockMeasurementService{}
			svc.On("Measure", mock.Anything).Return(tt.result, tt.err)

			h := newTestHandler(svc)
			resp, err := h.GetReadings(context.Background(), &struct{}{})

			if tt.err != nil {
				require.Error(t, err)
				var errResp *ErrorResponse
				require.ErrorAs(t, err, &errResp)
				assert.Equal(t, tt.wantStatus, errResp.GetStatus())
				assert.Equal(t, "error", errResp.Status)
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, errResp.Message)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, "success", resp.Body.Status)
				assert.Equal(t, 72.3, resp.Body.HeartRate)
				assert.Equal(t, 97.0, resp.Body.SpO2)
				assert.Equal(t, 36, resp.Body.BeatsDetected)
				assert.Equal(t, "2025-03-14T09:26:53.589Z", resp.Body.Timestamp)
			}

			svc.AssertExpectations(t)
		})
	}
}

func TestGetBeat(t *testing.T) {
	beatAt := time.Date(2025, 3, 14, 9, 26, 50, 120000000, time.UTC)

	tests := []struct {
		name     string
		snap     models.BeatSnapshot
		wantTime *string
	}{
		{
			name: "no beats yet",
			snap: models.BeatSnapshot{MeasurementActive: true},
		},
		{
			name:     "beats in progress",
			snap:     models.BeatSnapshot{MeasurementActive: true, BeatsDetected: 4, LastBeatTime: &beatAt},
			wantTime: ptr("2025-03-14T09:26:50.120Z"),
		},
		{
			name:     "aborted session keeps its count",
			snap:     models.BeatSnapshot{State: models.StateAborted, BeatsDetected: 4, LastBeatTime: &beatAt},
			wantTime: ptr("2025-03-14T09:26:50.120Z"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockMeasurementService{}
			svc.On("Snapshot").Return(tt.snap)

			resp, err := newTestHandler(svc).GetBeat(context.Background(), &struct{}{})
			require.NoError(t, err)

			assert.Equal(t, tt.snap.MeasurementActive, resp.Body.MeasurementActive)
			assert.Equal(t, tt.snap.BeatsDetected, resp.Body.BeatsDetected)
			assert.Equal(t, tt.wantTime, resp.Body.LastBeatTime)
		})
	}
}

func TestGetResults(t *testing.T) {
	t.Run("no result", func(t *testing.T) {
		svc := &MockMeasurementService{}
		svc.On("Snapshot").Return(models.BeatSnapshot{MeasurementActive: true})
		svc.On("LastResult", mock.Anything).Return(nil, repository.ErrNotFound)

		resp, err := newTestHandler(svc).GetResults(context.Background(), &struct{}{})
		require.NoError(t, err)
		assert.Equal(t, "not_ready", resp.Body.Status)
		assert.True(t, resp.Body.MeasurementActive)
		assert.Nil(t, resp.Body.HeartRate)
	})

	t.Run("stored result", func(t *testing.T) {
		svc := &MockMeasurementService{}
		svc.On("Snapshot").Return(models.BeatSnapshot{})
		svc.On("LastResult", mock.Anything).Return(&models.MeasurementResult{
			SessionID:     "s-9",
			HeartRate:     64.04,
			SpO2:          85.26,
			BeatsDetected: 31,
			CompletedAt:   fixedNow,
		}, nil)

		resp, err := newTestHandler(svc).GetResults(context.Background(), &struct{}{})
		require.NoError(t, err)
		assert.Equal(t, "success", resp.Body.Status)
		assert.Equal(t, 64.0, *resp.Body.HeartRate)
		assert.Equal(t, 85.3, *resp.Body.SpO2)
		assert.Equal(t, 31, *resp.Body.BeatsDetected)
		assert.Equal(t, "s-9", resp.Body.SessionID)
		assert.Equal(t, "2025-03-14T09:26:53.589Z", resp.Body.Timestamp)
	})

	t.Run("repository failure", func(t *testing.T) {
		svc := &MockMeasurementService{}
		svc.On("Snapshot").Return(models.BeatSnapshot{})
		svc.On("LastResult", mock.Anything).Return(nil, assert.AnError)

		_, err := newTestHandler(svc).GetResults(context.Background(), &struct{}{})
		var errResp *ErrorResponse
		require.ErrorAs(t, err, &errResp)
		assert.Equal(t, http.StatusInternalServerError, errResp.GetStatus())
	})
}

func TestClearResults(t *testing.T) {
	svc := &MockMeasurementService{}
	svc.On("ClearResult", mock.Anything).Return(nil).Once()

	resp, err := newTestHandler(svc).ClearResults(context.Background(), &struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Body.Status)
	assert.Equal(t, "Measurement results cleared", resp.Body.Message)
	svc.AssertExpectations(t)
}

func ptr(s string) *string {
	return &s
}
