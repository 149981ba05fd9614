package processing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/RMahshie/pulsesim/internal/repository"
	"github.com/RMahshie/pulsesim/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMeasurementActive is returned when a session is requested while one is running
	ErrMeasurementActive = errors.New("measurement in progress")
	// ErrSensorRemoved is returned to callers waiting on a session aborted by finger removal
	ErrSensorRemoved = errors.New("no finger detected")
)

// MeasurementService is what the HTTP layer needs from the engine
type MeasurementService interface {
	Measure(ctx context.Context) (*models.MeasurementResult, error)
	Snapshot() models.BeatSnapshot
	LastResult(ctx context.Context) (*models.MeasurementResult, error)
	ClearResult(ctx context.Context) error
}

// SampleSource yields an (ir, red) reading for simulated time t in seconds
type SampleSource interface {
	Sample(t float64) (ir, red float64)
}

// SampleFunc adapts a plain function to SampleSource
type SampleFunc func(t float64) (ir, red float64)

// Sample calls f(t)
func (f SampleFunc) Sample(t float64) (float64, float64) {
	return f(t)
}

// resetter is implemented by sources that keep per-session state
type resetter interface {
	Reset()
}

// Publisher receives live events. Implementations must not block for long.
type Publisher interface {
	Publish(event models.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(models.Event) {}

// Config holds the timing of a measurement session
type Config struct {
	// Duration is the simulated length of a session in seconds
	Duration float64
	// SampleRate is the number of samples per simulated second
	SampleRate int
	// SampleInterval is the real delay between samples
	SampleInterval time.Duration
	// ProgressEvery is how often, in simulated seconds, progress is logged
	ProgressEvery float64
	// BroadcastEvery is how often, in simulated seconds, sensor_data is published
	BroadcastEvery float64
}

// DefaultConfig matches a 30 second session sampled at 100 Hz in real time
func DefaultConfig() Config {
	return Config{
		Duration:       30,
		SampleRate:     100,
		SampleInterval: 10 * time.Millisecond,
		ProgressEvery:  3,
		BroadcastEvery: 0.5,
	}
}

// Engine owns every piece of measurement state behind a single mutex.
// Start, Step, Snapshot and finish are the only places that mutate it.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	source    SampleSource
	repo      repository.ResultRepository
	publisher Publisher
	now       func() time.Time

	detector  *BeatDetector
	state     models.MeasurementState
	sessionID string
	startedAt time.Time
	tick      int
	elapsed   float64
	done      chan struct{}
	result    *models.MeasurementResult

	// display state, kept across sessions
	displayedBPM  float64
	displayedSpO2 float64
	lastBeatAt    *time.Time
}

// NewEngine creates an idle engine. A nil publisher discards events.
func NewEngine(cfg Config, source SampleSource, repo repository.ResultRepository, publisher Publisher) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &Engine{
		cfg:       cfg,
		source:    source,
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		detector:  NewBeatDetector(),
		state:     models.StateIdle,
	}
}

// Start begins a new session and returns its id.
// It fails with ErrMeasurementActive without touching the running session.
func (e *Engine) Start() (string, error) {
	id, _, err := e.start()
	return id, err
}

func (e *Engine) start() (string, <-chan struct{}, error) {
	e.mu.Lock()
	if e.state == models.StateActive {
		e.mu.Unlock()
		return "", nil, ErrMeasurementActive
	}

	e.detector.Reset()
	e.tick = 0
	e.elapsed = 0
	e.lastBeatAt = nil
	e.result = nil
	e.sessionID = uuid.New().String()
	e.startedAt = e.now()
	e.done = make(chan struct{})
	e.state = models.StateActive
	if r, ok := e.source.(resetter); ok {
		r.Reset()
	}

	id, done := e.sessionID, e.done
	event := e.eventLocked(models.EventMeasurementStarted)
	e.mu.Unlock()

	log.Info().Str("sessionID", id).Float64("duration", e.cfg.Duration).Msg("Starting new measurement")
	e.publisher.Publish(event)
	return id, done, nil
}

// Step processes one sample of the active session.
// It returns true once the session is no longer active.
func (e *Engine) Step() bool {
	e.mu.Lock()
	if e.state != models.StateActive {
		e.mu.Unlock()
		return true
	}

	t := float64(e.tick) / float64(e.cfg.SampleRate)
	ir, red := e.source.Sample(t)
	e.elapsed = t

	var events []models.Event

	if ir < FingerThreshold {
		e.abortLocked()
		event := e.eventLocked(models.EventFingerRemoved)
		event.Message = "Finger removed from sensor. Measurement canceled."
		events = append(events, event)
		e.mu.Unlock()

		log.Warn().Str("sessionID", event.SessionID).Float64("ir", ir).Float64("elapsed", t).Msg("No finger detected, measurement aborted")
		e.publish(events)
		return true
	}

	det := e.detector.Process(ir, t)
	if det.Recorded {
		beatAt := e.now()
		e.lastBeatAt = &beatAt
		if e.detector.BeatCount() >= 2 {
			e.displayedBPM = det.BPM
		}
		log.Debug().Str("sessionID", e.sessionID).Float64("t", t).Float64("bpm", det.BPM).Msg("Beat detected")
		events = append(events, e.eventLocked(models.EventBeatDetected))
	}

	if spo2, ok := EstimateSpO2(ir, red); ok {
		e.displayedSpO2 = spo2
	}

	if e.every(e.cfg.ProgressEvery) {
		log.Info().
			Str("sessionID", e.sessionID).
			Float64("progress", t*100/e.cfg.Duration).
			Int("beats", e.detector.BeatCount()).
			Float64("bpm", e.displayedBPM).
			Float64("spo2", e.displayedSpO2).
			Msg("Measurement progress")
	}
	if e.every(e.cfg.BroadcastEvery) {
		event := e.eventLocked(models.EventSensorData)
		present := true
		event.IRValue = &ir
		event.RedValue = &red
		event.FingerPresent = &present
		events = append(events, event)
	}

	terminal := false
	if t >= e.cfg.Duration {
		e.finishLocked()
		events = append(events, e.eventLocked(models.EventMeasurementComplete))
		terminal = true
	}

	e.tick++
	e.mu.Unlock()

	e.publish(events)
	return terminal
}

// every reports whether the current tick falls on a period boundary
func (e *Engine) every(period float64) bool {
	if period <= 0 {
		return false
	}
	ticks := int(math.Round(period * float64(e.cfg.SampleRate)))
	return ticks > 0 && e.tick%ticks == 0
}

// finishLocked computes the session result from the first and last beats
func (e *Engine) finishLocked() {
	result := &models.MeasurementResult{
		SessionID:     e.sessionID,
		HeartRate:     e.detector.AverageBPM(),
		SpO2:          e.displayedSpO2,
		BeatsDetected: e.detector.BeatCount(),
		StartedAt:     e.startedAt,
		CompletedAt:   e.now(),
	}
	e.result = result
	e.state = models.StateComplete

	if e.repo != nil {
		if err := e.repo.Save(context.Background(), result); err != nil {
			log.Error().Err(err).Str("sessionID", e.sessionID).Msg("Failed to store measurement result")
		}
	}
	close(e.done)

	log.Info().
		Str("sessionID", e.sessionID).
		Float64("heartRate", result.HeartRate).
		Float64("spo2", result.SpO2).
		Int("beats", result.BeatsDetected).
		Msg("Measurement complete")
}

// abortLocked ends the session without a result; the beat count stays frozen
func (e *Engine) abortLocked() {
	e.state = models.StateAborted
	close(e.done)
}

// Run drives the active session until it completes or aborts, pausing
// SampleInterval between samples. Canceling ctx stops sampling but leaves the
// session active.
func (e *Engine) Run(ctx context.Context) error {
	var timer *time.Timer
	if e.cfg.SampleInterval > 0 {
		timer = time.NewTimer(e.cfg.SampleInterval)
		defer timer.Stop()
	}

	for {
		if e.Step() {
			return nil
		}

		if timer == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}

		timer.Reset(e.cfg.SampleInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// StartAsync starts a session and runs it in the background without waiting
func (e *Engine) StartAsync() (string, error) {
	id, _, err := e.start()
	if err != nil {
		return "", err
	}
	go e.work(id)
	return id, nil
}

func (e *Engine) work(id string) {
	if err := e.Run(context.Background()); err != nil {
		log.Error().Err(err).Str("sessionID", id).Msg("Measurement worker stopped")
	}
}

// Measure starts a session, runs it in the background and waits for it to end.
// If ctx is canceled the caller gets ctx.Err() while the session keeps running.
func (e *Engine) Measure(ctx context.Context) (*models.MeasurementResult, error) {
	id, done, err := e.start()
	if err != nil {
		return nil, err
	}

	go e.work(id)

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Str("sessionID", id).Msg("Caller stopped waiting, measurement continues")
		return nil, ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// A newer session may already have started; report this one's outcome
	if e.sessionID == id && e.state == models.StateComplete && e.result != nil {
		result := *e.result
		return &result, nil
	}
	if e.repo != nil {
		if result, err := e.repo.GetBySessionID(ctx, id); err == nil {
			return result, nil
		}
	}
	return nil, fmt.Errorf("measurement %s: %w", id, ErrSensorRemoved)
}

// Snapshot returns the live view used by the beat endpoint
func (e *Engine) Snapshot() models.BeatSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := models.BeatSnapshot{
		SessionID:         e.sessionID,
		State:             e.state,
		MeasurementActive: e.state == models.StateActive,
		BeatsDetected:     e.detector.BeatCount(),
		CurrentBPM:        e.displayedBPM,
		SpO2:              e.displayedSpO2,
		Elapsed:           e.elapsed,
	}
	if e.lastBeatAt != nil {
		at := *e.lastBeatAt
		snap.LastBeatTime = &at
	}
	return snap
}

// LastResult returns the most recent completed measurement that was not cleared
func (e *Engine) LastResult(ctx context.Context) (*models.MeasurementResult, error) {
	if e.repo == nil {
		return nil, repository.ErrNotFound
	}
	return e.repo.Latest(ctx)
}

// ClearResult hides the stored result until the next session completes
func (e *Engine) ClearResult(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}
	return e.repo.Clear(ctx)
}

func (e *Engine) eventLocked(name string) models.Event {
	event := models.Event{
		Event:         name,
		SessionID:     e.sessionID,
		Timestamp:     models.FormatTimestamp(e.now()),
		BeatsDetected: e.detector.BeatCount(),
		Active:        e.state == models.StateActive,
	}
	bpm, spo2 := e.displayedBPM, e.displayedSpO2
	event.HeartRate = &bpm
	event.SpO2 = &spo2
	if name == models.EventMeasurementComplete && e.result != nil {
		final := math.Round(e.result.HeartRate*10) / 10
		event.FinalBPM = &final
	}
	return event
}

func (e *Engine) publish(events []models.Event) {
	for _, event := range events {
		e.publisher.Publish(event)
	}
}
