package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lsj5031/Hoppy-Whisper/internal/audio"
	"github.com/lsj5031/Hoppy-Whisper/internal/config"
	"github.com/lsj5031/Hoppy-Whisper/pkg/logger"
)

type fakeRecorder struct {
	mu        sync.Mutex
	recording bool
	starts    int
	stops     int
	startErr  error
	samples   []float32
	listener  func([]float32)
}

func (f *fakeRecorder) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.recording = true
	return nil
}

func (f *fakeRecorder) Stop() []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if !f.recording {
		return []float32{}
	}
	f.recording = false
	return f.samples
}

func (f *fakeRecorder) SetFrameListener(fn func([]float32)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = fn
}

func (f *fakeRecorder) Recording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recording
}

func (f *fakeRecorder) frameListener() func([]float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener
}

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wavPath string) (string, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", nil, f.err
	}
	return f.text, []byte(`{"text": "` + f.text + `"}`), nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig(t *testing.T) config.Config {
	cfg := config.DefaultConfig()
	cfg.CacheDir = t.TempDir()
	cfg.FrameDurationMS = 20
	cfg.TrailingSilenceMS = 200 // 10 frames
	return cfg
}

func newTestRuntime(t *testing.T, cfg config.Config, rec *fakeRecorder, tr *fakeTranscriber) (*Runtime, chan string) {
	t.Helper()
	r := NewRuntime(cfg, rec, tr, logger.Nop())
	pasted := make(chan string, 4)
	r.paste = func(text string) error {
		pasted <- text
		return nil
	}
	return r, pasted
}

func longSamples(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = 0.3
	}
	return s
}

func waitPaste(t *testing.T, pasted chan string) string {
	t.Helper()
	select {
	case text := <-pasted:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for paste")
		return ""
	}
}

func TestStartStopTranscribePaste(t *testing.T) {
	rec := &fakeRecorder{samples: longSamples(16000)}
	tr := &fakeTranscriber{text: "hello there"}
	r, pasted := newTestRuntime(t, testConfig(t), rec, tr)
	cb := r.Callbacks()

	cb.OnRecordStart()
	if !rec.Recording() {
		t.Fatal("recorder not started")
	}
	if rec.frameListener() == nil {
		t.Fatal("frame listener not attached for auto-stop")
	}

	cb.OnRecordStop()
	if got := waitPaste(t, pasted); got != "hello there" {
		t.Fatalf("pasted %q", got)
	}
	r.Close()
	if tr.callCount() != 1 {
		t.Fatalf("transcriber called %d times, want 1", tr.callCount())
	}
}

func TestAutoStopOnTrailingSilence(t *testing.T) {
	rec := &fakeRecorder{samples: longSamples(16000)}
	tr := &fakeTranscriber{text: "auto stopped"}
	r, pasted := newTestRuntime(t, testConfig(t), rec, tr)

	r.Callbacks().OnRecordStart()
	listener := rec.frameListener()
	if listener == nil {
		t.Fatal("frame listener not attached")
	}

	frame := 320 // 16000 Hz * 20 ms
	speech := make([]float32, frame)
	for i := range speech {
		speech[i] = 0.5
	}
	listener(speech)
	for i := 0; i < 10; i++ {
		listener(make([]float32, frame))
	}

	// The stop is dispatched off the audio callback path; wait for the
	// resulting paste.
	if got := waitPaste(t, pasted); got != "auto stopped" {
		t.Fatalf("pasted %q", got)
	}
	r.Close()
	if rec.Recording() {
		t.Fatal("recorder still running after auto-stop")
	}

	// Further frames after the stop fired must not trigger another stop.
	stops := rec.stops
	listener(make([]float32, frame))
	if rec.stops != stops {
		t.Fatal("extra stop after auto-stop")
	}
}

func TestToggleModeNeverAutoStops(t *testing.T) {
	cfg := testConfig(t)
	cfg.ToggleMode = true
	rec := &fakeRecorder{samples: longSamples(16000)}
	tr := &fakeTranscriber{text: "still going"}
	r, pasted := newTestRuntime(t, cfg, rec, tr)
	cb := r.Callbacks()

	cb.OnRecordStart()
	if !rec.Recording() {
		t.Fatal("recorder not started")
	}
	// The user controls the stop in toggle mode; silence must not.
	if rec.frameListener() != nil {
		t.Fatal("voice detector attached in toggle mode")
	}
	cb.OnRecordStop()
	if got := waitPaste(t, pasted); got != "still going" {
		t.Fatalf("pasted %q", got)
	}
	r.Close()
}

func TestShortRecordingDiscarded(t *testing.T) {
	rec := &fakeRecorder{samples: longSamples(100)} // well under 100ms
	tr := &fakeTranscriber{text: "should not appear"}
	r, _ := newTestRuntime(t, testConfig(t), rec, tr)
	cb := r.Callbacks()

	cb.OnRecordStart()
	cb.OnRecordStop()
	r.Close()
	if tr.callCount() != 0 {
		t.Fatalf("short recording was transcribed %d times", tr.callCount())
	}
}

func TestVADDegradedOnBadParameters(t *testing.T) {
	cfg := testConfig(t)
	cfg.SamplingRate = 44100 // unsupported by the detector
	rec := &fakeRecorder{samples: longSamples(16000)}
	r, _ := newTestRuntime(t, cfg, rec, &fakeTranscriber{text: "x"})

	r.Callbacks().OnRecordStart()
	if !r.VADDegraded() {
		t.Fatal("degraded flag not set for unsupported detector parameters")
	}
	// Capture itself keeps working.
	if !rec.Recording() {
		t.Fatal("recording did not start in degraded mode")
	}
	if rec.frameListener() != nil {
		t.Fatal("frame listener attached without a working detector")
	}
}

func TestReplayPastesLastText(t *testing.T) {
	rec := &fakeRecorder{samples: longSamples(16000)}
	tr := &fakeTranscriber{text: "again please"}
	r, pasted := newTestRuntime(t, testConfig(t), rec, tr)
	cb := r.Callbacks()

	// Replay before any transcription does nothing.
	cb.OnRequestReplay()
	select {
	case text := <-pasted:
		t.Fatalf("unexpected paste %q with no previous text", text)
	case <-time.After(50 * time.Millisecond):
	}

	cb.OnRecordStart()
	cb.OnRecordStop()
	if got := waitPaste(t, pasted); got != "again please" {
		t.Fatalf("pasted %q", got)
	}
	r.Close()

	cb.OnRequestReplay()
	if got := waitPaste(t, pasted); got != "again please" {
		t.Fatalf("replay pasted %q", got)
	}
}

func TestTranscriptionFailureDoesNotPaste(t *testing.T) {
	rec := &fakeRecorder{samples: longSamples(16000)}
	tr := &fakeTranscriber{err: errors.New("server down")}
	r, pasted := newTestRuntime(t, testConfig(t), rec, tr)
	cb := r.Callbacks()

	cb.OnRecordStart()
	cb.OnRecordStop()
	r.Close()
	select {
	case text := <-pasted:
		t.Fatalf("pasted %q despite transcription failure", text)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartFailureWithMissingDevice(t *testing.T) {
	rec := &fakeRecorder{startErr: &audio.DeviceError{Reason: "no microphone configured"}}
	r, _ := newTestRuntime(t, testConfig(t), rec, &fakeTranscriber{})

	// Must not panic; the error is logged and surfaced via notification.
	r.Callbacks().OnRecordStart()
	if rec.Recording() {
		t.Fatal("recording marked active despite device error")
	}
}
