package memory

import (
	"context"
	"sync"

	"github.com/RMahshie/pulsesim/internal/repository"
	"github.com/RMahshie/pulsesim/pkg/models"
)

// DefaultHistory is how many completed results are kept for lookup by session
const DefaultHistory = 32

// ResultRepository implements repository.ResultRepository in process memory.
// Results live as long as the process; the oldest are evicted past the history limit.
type ResultRepository struct {
	mu      sync.RWMutex
	history int
	results []*models.MeasurementResult
	cleared bool
}

// NewResultRepository creates a new in-memory result repository
func NewResultRepository(history int) repository.ResultRepository {
	if history <= 0 {
		history = DefaultHistory
	}
	return &ResultRepository{history: history}
}

// Save stores a copy of a completed result
func (r *ResultRepository) Save(ctx context.Context, result *models.MeasurementResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := *result

	r.mu.Lock()
	defer r.mu.Unlock()

	r.results = append(r.results, &stored)
	if len(r.results) > r.history {
		r.results = r.results[len(r.results)-r.history:]
	}
	r.cleared = false
	return nil
}

// Latest returns the most recent result unless it was cleared
func (r *ResultRepository) Latest(ctx context.Context) (*models.MeasurementResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.cleared || len(r.results) == 0 {
		return nil, repository.ErrNotFound
	}
	latest := *r.results[len(r.results)-1]
	return &latest, nil
}

// GetBySessionID looks a result up by its session
func (r *ResultRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.MeasurementResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.results) - 1; i >= 0; i-- {
		if r.results[i].SessionID == sessionID {
			found := *r.results[i]
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Clear hides the latest result from Latest. History stays addressable by session.
func (r *ResultRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = true
	return nil
}
