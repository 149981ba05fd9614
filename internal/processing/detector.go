package processing

const (
	// BufferSize is the number of IR samples averaged for the DC baseline
	BufferSize = 100
	// MaxBeats caps the beat log of a single session
	MaxBeats = 120
	// MinBeatInterval is the refractory period in seconds (240 BPM ceiling)
	MinBeatInterval = 0.25
	// MinPulseAmplitude is the AC level a peak must exceed to count as a beat
	MinPulseAmplitude = 50.0
	// MinValidBPM and MaxValidBPM bound the instantaneous rate; anything outside reads as 0
	MinValidBPM = 40.0
	MaxValidBPM = 220.0
	// FingerThreshold is the reading below which the sensor is considered uncovered
	FingerThreshold = 30000.0
)

// dcBuffer is a fixed-size ring of the most recent IR readings.
// Slots never written count as zero.
type dcBuffer struct {
	values  [BufferSize]float64
	index   int
	written int
	sum     float64
}

func (b *dcBuffer) push(v float64) {
	b.sum += v - b.values[b.index]
	b.values[b.index] = v
	b.index = (b.index + 1) % BufferSize
	if b.written < BufferSize {
		b.written++
	}
}

func (b *dcBuffer) mean() float64 {
	return b.sum / BufferSize
}

func (b *dcBuffer) full() bool {
	return b.written == BufferSize
}

func (b *dcBuffer) reset() {
	*b = dcBuffer{}
}

// Detection is the outcome of feeding one sample to the detector
type Detection struct {
	DC float64
	AC float64
	// Beat is set when a peak passed every gate
	Beat bool
	// Recorded is false when the beat was accepted but the log was already full
	Recorded bool
	// BPM is the instantaneous rate for a recorded beat, 0 when unknown or out of range
	BPM float64
}

// BeatDetector finds heartbeats in a PPG stream with a slope detector over the AC
// component. A beat is the falling edge right after a rise, above MinPulseAmplitude,
// at least MinBeatInterval after the previous one.
type BeatDetector struct {
	buf      dcBuffer
	acPrev   float64
	rising   bool
	lastBeat float64
	beats    []float64
}

// NewBeatDetector creates a detector with an empty buffer and beat log
func NewBeatDetector() *BeatDetector {
	return &BeatDetector{beats: make([]float64, 0, MaxBeats)}
}

// Reset clears the buffer, beat log and slope state
func (d *BeatDetector) Reset() {
	d.buf.reset()
	d.acPrev = 0
	d.rising = false
	d.lastBeat = 0
	d.beats = d.beats[:0]
}

// Process feeds one IR reading taken at simulated time t (seconds)
func (d *BeatDetector) Process(ir, t float64) Detection {
	d.buf.push(ir)
	dc := d.buf.mean()
	ac := ir - dc
	res := Detection{DC: dc, AC: ac}

	// Slope transitions are only meaningful once the baseline covers a full window
	if !d.buf.full() {
		d.acPrev = ac
		return res
	}

	validTiming := t-d.lastBeat > MinBeatInterval

	if ac > d.acPrev && !d.rising {
		d.rising = true
	} else if ac < d.acPrev && d.rising && validTiming && ac > MinPulseAmplitude {
		d.rising = false
		d.lastBeat = t
		res.Beat = true

		if len(d.beats) < MaxBeats {
			d.beats = append(d.beats, t)
			res.Recorded = true

			if n := len(d.beats); n >= 2 {
				res.BPM = instantBPM(d.beats[n-1] - d.beats[n-2])
			}
		}
	}

	d.acPrev = ac
	return res
}

// DC returns the current baseline
func (d *BeatDetector) DC() float64 {
	return d.buf.mean()
}

// BeatCount returns the number of logged beats
func (d *BeatDetector) BeatCount() int {
	return len(d.beats)
}

// Beats returns a copy of the beat log
func (d *BeatDetector) Beats() []float64 {
	out := make([]float64, len(d.beats))
	copy(out, d.beats)
	return out
}

// AverageBPM derives the session rate from the first and last logged beats:
// (n-1) beats over the span between them. Fewer than two beats yields 0.
func (d *BeatDetector) AverageBPM() float64 {
	return averageBPM(d.beats)
}

func averageBPM(beats []float64) float64 {
	n := len(beats)
	if n < 2 {
		return 0
	}
	span := beats[n-1] - beats[0]
	if span <= 0 {
		return 0
	}
	return float64(n-1) / (span / 60.0)
}

func instantBPM(delta float64) float64 {
	if delta <= 0 {
		return 0
	}
	bpm := 60.0 / delta
	if bpm < MinValidBPM || bpm > MaxValidBPM {
		return 0
	}
	return bpm
}

// EstimateSpO2 approximates saturation from the red/IR ratio, clamped to [80,100].
// ok is false when either channel is below FingerThreshold.
func EstimateSpO2(ir, red float64) (spo2 float64, ok bool) {
	if ir <= FingerThreshold || red <= FingerThreshold {
		return 0, false
	}
	spo2 = 110 - 25*(red/ir)
	if spo2 > 100 {
		spo2 = 100
	}
	if spo2 < 80 {
		spo2 = 80
	}
	return spo2, true
}
