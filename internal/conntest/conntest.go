// Package conntest checks a running simulator (or device) endpoint by endpoint
// and prints a human-readable report.
package conntest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultURL             = "http://192.168.1.100"
	DefaultHealthTimeout   = 5 * time.Second
	DefaultReadingsTimeout = 40 * time.Second
)

// Result is the outcome of a run
type Result struct {
	Health          bool
	Beat            bool
	Readings        bool
	ReadingsSkipped bool
}

// OK reports whether every executed check passed
func (r Result) OK() bool {
	return r.Health && r.Beat && (r.Readings || r.ReadingsSkipped)
}

// Tester runs the endpoint checks sequentially
type Tester struct {
	baseURL string
	client  *resty.Client
	out     io.Writer
	in      *bufio.Reader

	// Prompt waits for Enter before the readings check starts
	Prompt          bool
	HealthTimeout   time.Duration
	ReadingsTimeout time.Duration
}

// New creates a tester for baseURL that writes its report to out and reads
// the readings prompt answer from in
func New(baseURL string, out io.Writer, in io.Reader) *Tester {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	return &Tester{
		baseURL:         baseURL,
		client:          client,
		out:             out,
		in:              bufio.NewReader(in),
		Prompt:          true,
		HealthTimeout:   DefaultHealthTimeout,
		ReadingsTimeout: DefaultReadingsTimeout,
	}
}

// Run checks /health, /beat and, unless skipped, /readings, then prints a summary.
// A failing endpoint never stops the run.
func (t *Tester) Run(ctx context.Context, skipReadings bool) Result {
	t.printf("Testing connection to %s\n", t.baseURL)

	res := Result{ReadingsSkipped: skipReadings}
	res.Health = t.CheckHealth(ctx)
	res.Beat = t.CheckBeat(ctx)
	if skipReadings {
		t.printf("\n3. Skipping /readings test as requested\n")
	} else {
		res.Readings = t.CheckReadings(ctx)
	}

	t.printf("\n=== TEST SUMMARY ===\n")
	t.printf("Health endpoint: %s\n", verdict(res.Health))
	t.printf("Beat endpoint: %s\n", verdict(res.Beat))
	if skipReadings {
		t.printf("Readings endpoint: SKIPPED\n")
	} else {
		t.printf("Readings endpoint: %s\n", verdict(res.Readings))
	}

	if res.OK() {
		t.printf("\nAll tests passed! The sensor endpoint is working correctly.\n")
	} else {
		t.printf("\nSome tests failed. Please check the sensor setup.\n")
	}
	return res
}

// CheckHealth expects 200 with status "UP"
func (t *Tester) CheckHealth(ctx context.Context) bool {
	t.printf("\n1. Testing /health endpoint...\n")

	body, ok := t.get(ctx, "/health", t.HealthTimeout, "Health check")
	if !ok {
		return false
	}
	if body["status"] != "UP" {
		t.printf("FAILED: Health check status is not 'UP'\n")
		return false
	}
	t.printf("Health check successful!\n")
	return true
}

// CheckBeat expects 200
func (t *Tester) CheckBeat(ctx context.Context) bool {
	t.printf("\n2. Testing /beat endpoint...\n")

	if _, ok := t.get(ctx, "/beat", t.HealthTimeout, "Beat endpoint test"); !ok {
		return false
	}
	t.printf("Beat endpoint test successful!\n")
	return true
}

// CheckReadings runs a full measurement and expects status "success"
func (t *Tester) CheckReadings(ctx context.Context) bool {
	t.printf("\n3. Testing /readings endpoint...\n")
	t.printf("Note: This will start a 30-second measurement. Please place your finger on the sensor.\n")
	if t.Prompt {
		t.printf("Press Enter to continue...")
		if _, err := t.in.ReadString('\n'); err != nil && err != io.EOF {
			log.Debug().Err(err).Msg("Failed to read prompt answer")
		}
	}

	t.printf("Starting measurement...\n")
	start := time.Now()
	body, ok := t.get(ctx, "/readings", t.ReadingsTimeout, "Readings test")
	t.printf("Measurement finished in %.1f seconds\n", time.Since(start).Seconds())
	if !ok {
		return false
	}
	if body["status"] != "success" {
		t.printf("FAILED: Readings status is not 'success'\n")
		return false
	}

	t.printf("Readings test successful!\n")
	t.printf("Heart Rate: %v BPM\n", body["heartRate"])
	t.printf("SpO2: %v%%\n", body["spo2"])
	return true
}

// get performs one GET and prints its status and body. ok is false on
// transport errors, non-200 statuses and non-JSON bodies.
func (t *Tester) get(ctx context.Context, path string, timeout time.Duration, label string) (map[string]any, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := t.client.R().SetContext(ctx).Get(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Request failed")
		t.printf("FAILED: %s: %v\n", label, err)
		return nil, false
	}

	t.printf("Status code: %d\n", resp.StatusCode())
	if resp.StatusCode() != http.StatusOK {
		t.printf("FAILED: %s: unexpected status code %d\n", label, resp.StatusCode())
		return nil, false
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		t.printf("FAILED: %s: invalid JSON response: %v\n", label, err)
		return nil, false
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Body(), "", "  "); err == nil {
		t.printf("Response: %s\n", pretty.String())
	}
	return body, true
}

func (t *Tester) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

func verdict(ok bool) string {
	if ok {
		return "PASSED"
	}
	return "FAILED"
}
