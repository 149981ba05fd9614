package models

import (
	"time"
)

// TimestampFormat is the UTC layout used for every timestamp the simulator returns
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampFormat
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// MeasurementState is the lifecycle state of a measurement session
type MeasurementState string

const (
	StateIdle     MeasurementState = "idle"
	StateActive   MeasurementState = "active"
	StateComplete MeasurementState = "complete"
	StateAborted  MeasurementState = "aborted"
)

// MeasurementResult is the outcome of a completed measurement session (for internal use)
type MeasurementResult struct {
	SessionID     string    `json:"session_id"`
	HeartRate     float64   `json:"heart_rate"`
	SpO2          float64   `json:"spo2"`
	BeatsDetected int       `json:"beats_detected"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
}

// BeatSnapshot is a consistent view of the live detector state
type BeatSnapshot struct {
	SessionID         string
	State             MeasurementState
	LastBeatTime      *time.Time
	MeasurementActive bool
	BeatsDetected     int
	CurrentBPM        float64
	SpO2              float64
	Elapsed           float64
}

// Event is a message published to live subscribers while a measurement runs
type Event struct {
	Event         string   `json:"event"`
	SessionID     string   `json:"session_id,omitempty"`
	Timestamp     string   `json:"timestamp"`
	Message       string   `json:"message,omitempty"`
	HeartRate     *float64 `json:"heart_rate,omitempty"`
	SpO2          *float64 `json:"spo2,omitempty"`
	FinalBPM      *float64 `json:"final_heart_rate,omitempty"`
	BeatsDetected int      `json:"beats_detected"`
	Active        bool     `json:"measurement_active"`
	IRValue       *float64 `json:"ir_value,omitempty"`
	RedValue      *float64 `json:"red_value,omitempty"`
	FingerPresent *bool    `json:"finger_present,omitempty"`
}

// Event names published on the live stream
const (
	EventMeasurementStarted  = "measurement_started"
	EventBeatDetected        = "beat_detected"
	EventSensorData          = "sensor_data"
	EventFingerRemoved       = "finger_removed"
	EventMeasurementComplete = "measurement_complete"
)
