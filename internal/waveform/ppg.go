package waveform

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	// DCOffset is the baseline level of both optical channels
	DCOffset = 50000.0
	// IRAmplitude is the pulsatile amplitude of the infrared channel
	IRAmplitude = 5000.0
	// RedAmplitude is the pulsatile amplitude of the red channel
	RedAmplitude = 4800.0
	// DefaultNoise is the half-width of the uniform noise added to each channel
	DefaultNoise = 1000.0

	minBPM = 60.0
	maxBPM = 100.0
)

// Config tunes the synthetic PPG source
type Config struct {
	// Noise is the half-width of the uniform noise band
	Noise float64
	// HoldRate draws the heart rate once per session (on Reset) instead of on every sample
	HoldRate bool
	// Seed fixes the random source; zero seeds from the clock
	Seed int64
}

// PPGSim produces plausible IR/red readings for a finger on a pulse oximeter.
// It is not physiologically accurate: each channel is a sinusoid at 60-100 BPM
// over a fixed DC offset plus uniform noise.
type PPGSim struct {
	mu   sync.Mutex
	rand *rand.Rand
	cfg  Config
	bpm  float64
}

// NewPPGSim creates a generator
func NewPPGSim(cfg Config) *PPGSim {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &PPGSim{
		rand: rand.New(rand.NewSource(seed)),
		cfg:  cfg,
	}
	s.bpm = s.drawBPM()
	return s
}

// Reset starts a new session. In HoldRate mode it picks the session's heart rate.
func (s *PPGSim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bpm = s.drawBPM()
}

// Sample returns the IR and red readings at simulated time t (seconds)
func (s *PPGSim) Sample(t float64) (ir, red float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bpm := s.bpm
	if !s.cfg.HoldRate {
		// rerolled per sample, so the instantaneous frequency jitters
		bpm = s.drawBPM()
	}
	phase := math.Sin(2 * math.Pi * (bpm / 60.0) * t)

	ir = DCOffset + IRAmplitude*phase + s.noise()
	red = DCOffset + RedAmplitude*phase + s.noise()
	return ir, red
}

// HeartRate returns the rate used in HoldRate mode
func (s *PPGSim) HeartRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

func (s *PPGSim) drawBPM() float64 {
	return minBPM + s.rand.Float64()*(maxBPM-minBPM)
}

func (s *PPGSim) noise() float64 {
	if s.cfg.Noise <= 0 {
		return 0
	}
	return (2*s.rand.Float64() - 1) * s.cfg.Noise
}
