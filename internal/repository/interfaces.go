package repository

import (
	"context"
	"errors"

	"github.com/RMahshie/pulsesim/pkg/models"
)

// ErrNotFound is returned when no completed measurement is stored
var ErrNotFound = errors.New("measurement result not found")

// ResultRepository defines the interface for completed measurement results
type ResultRepository interface {
	Save(ctx context.Context, result *models.MeasurementResult) error
	Latest(ctx context.Context) (*models.MeasurementResult, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.MeasurementResult, error)
	Clear(ctx context.Context) error
}
