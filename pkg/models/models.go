package models

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status    string `json:"status" example:"UP" doc:"Service health status"`
		Timestamp string `json:"timestamp" doc:"Current server time (UTC)"`
		Message   string `json:"message" doc:"Human-readable status message"`
	}
}

// ReadingsResponseBody is the body of a completed measurement response
type ReadingsResponseBody struct {
	Status        string  `json:"status" example:"success" doc:"Measurement status"`
	HeartRate     float64 `json:"heartRate" doc:"Average heart rate over the session in BPM"`
	SpO2          float64 `json:"spo2" doc:"Estimated blood oxygen saturation in percent"`
	BeatsDetected int     `json:"beatsDetected" doc:"Number of beats detected during the session"`
	Timestamp     string  `json:"timestamp" doc:"Time the response was produced (UTC)"`
}

// ReadingsResponse represents the response from a blocking measurement
type ReadingsResponse struct {
	Body ReadingsResponseBody
}

// BeatResponseBody is the body of the live beat status response
type BeatResponseBody struct {
	LastBeatTime      *string `json:"lastBeatTime" doc:"Wall-clock time of the last detected beat, null if none"`
	MeasurementActive bool    `json:"measurementActive" doc:"Whether a measurement is running"`
	BeatsDetected     int     `json:"beatsDetected" doc:"Beats detected in the current or last session"`
}

// BeatResponse represents the live beat status
type BeatResponse struct {
	Body BeatResponseBody
}

// ResultsResponseBody is the body of the last-result response
type ResultsResponseBody struct {
	Status            string   `json:"status" enum:"success,not_ready" doc:"Whether a completed result is available"`
	Message           string   `json:"message,omitempty" doc:"Human-readable status message"`
	HeartRate         *float64 `json:"heartRate,omitempty" doc:"Average heart rate in BPM"`
	SpO2              *float64 `json:"spo2,omitempty" doc:"Estimated SpO2 in percent"`
	BeatsDetected     *int     `json:"beatsDetected,omitempty" doc:"Beats detected during the session"`
	SessionID         string   `json:"sessionId,omitempty" doc:"Measurement session identifier"`
	Timestamp         string   `json:"timestamp,omitempty" doc:"Completion time of the measurement (UTC)"`
	MeasurementActive bool     `json:"measurementActive" doc:"Whether a measurement is running"`
}

// ResultsResponse represents the last completed measurement
type ResultsResponse struct {
	Body ResultsResponseBody
}

// ClearResultsResponse represents the response from clearing the stored result
type ClearResultsResponse struct {
	Body struct {
		Status  string `json:"status" doc:"Operation status"`
		Message string `json:"message" doc:"Confirmation message"`
	}
}
