package audio

import (
	"fmt"
	"math"
)

var supportedSampleRates = map[int]bool{8000: true, 16000: true, 32000: true, 48000: true}
var supportedFrameDurations = map[int]bool{10: true, 20: true, 30: true}

// rmsThresholds maps aggressiveness 0-3 to the RMS energy level above which
// a frame counts as speech. Higher aggressiveness demands louder input.
var rmsThresholds = [4]float64{0.008, 0.012, 0.015, 0.02}

// VAD classifies fixed-size audio frames as speech or silence and asserts a
// stop signal once speech has been heard and a configured run of trailing
// silence follows it. State is per recording session; Reset reuses the
// detector across sessions.
type VAD struct {
	frameSize    int
	frameMs      int
	threshold    float64
	silenceLimit int

	hasSpeech  bool
	silenceRun int
}

// NewVAD fails fast on any unsupported parameter combination. Supported
// sample rates are 8000/16000/32000/48000 Hz, frame durations 10/20/30 ms,
// aggressiveness 0-3.
func NewVAD(sampleRate, frameDurationMs, aggressiveness, trailingSilenceMs int) (*VAD, error) {
	if !supportedSampleRates[sampleRate] {
		return nil, fmt.Errorf("unsupported sample rate %d", sampleRate)
	}
	if !supportedFrameDurations[frameDurationMs] {
		return nil, fmt.Errorf("unsupported frame duration %dms", frameDurationMs)
	}
	if aggressiveness < 0 || aggressiveness > 3 {
		return nil, fmt.Errorf("aggressiveness %d out of range [0, 3]", aggressiveness)
	}
	if trailingSilenceMs <= 0 {
		return nil, fmt.Errorf("trailing silence %dms must be positive", trailingSilenceMs)
	}
	return &VAD{
		frameSize:    sampleRate * frameDurationMs / 1000,
		frameMs:      frameDurationMs,
		threshold:    rmsThresholds[aggressiveness],
		silenceLimit: trailingSilenceMs / frameDurationMs,
	}, nil
}

// FrameSize returns the exact sample count ProcessFrame expects.
func (v *VAD) FrameSize() int { return v.frameSize }

// ProcessFrame classifies one frame. shouldStop turns true exactly when
// speech has previously been seen and the consecutive-silence run has
// reached the configured trailing-silence length. Frames must arrive in
// capture order or the silence run loses its meaning.
func (v *VAD) ProcessFrame(frame []float32) (isSpeech, shouldStop bool, err error) {
	if len(frame) != v.frameSize {
		return false, false, &FrameSizeError{Got: len(frame), Want: v.frameSize}
	}
	isSpeech = rms(frame) >= v.threshold
	if isSpeech {
		v.hasSpeech = true
		v.silenceRun = 0
	} else {
		v.silenceRun++
	}
	shouldStop = v.hasSpeech && v.silenceRun >= v.silenceLimit
	return isSpeech, shouldStop, nil
}

// Reset clears per-session state for reuse without reconstruction.
func (v *VAD) Reset() {
	v.hasSpeech = false
	v.silenceRun = 0
}

func rms(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}
