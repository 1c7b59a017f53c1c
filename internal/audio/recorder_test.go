package audio

import (
	"errors"
	"sync"
	"testing"

	"github.com/lsj5031/Hoppy-Whisper/pkg/logger"
)

type okProbe struct{}

func (okProbe) CheckInput(int) error { return nil }

type failProbe struct{ err error }

func (p failProbe) CheckInput(int) error { return p.err }

type fakeStream struct {
	mu      sync.Mutex
	started bool
	closed  bool
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeOpener records every opened stream and its callback so tests can
// inject frames as the hardware thread would.
type fakeOpener struct {
	mu      sync.Mutex
	opens   int
	streams []*fakeStream
	cbs     []func([]float32)
	err     error
}

func (o *fakeOpener) open(channels int, rate float64, blockSize int, cb func([]float32)) (inputStream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	if o.err != nil {
		return nil, o.err
	}
	s := &fakeStream{}
	o.streams = append(o.streams, s)
	o.cbs = append(o.cbs, cb)
	return s, nil
}

func newTestRecorder(opener *fakeOpener) *Recorder {
	r := NewRecorder(Settings{SampleRate: 16000, Channels: 1, BlockSize: 512}, logger.Nop())
	r.probe = okProbe{}
	r.open = opener.open
	return r
}

func TestStopBeforeStart(t *testing.T) {
	r := newTestRecorder(&fakeOpener{})
	out := r.Stop()
	if out == nil {
		t.Fatal("Stop before Start returned nil, want empty slice")
	}
	if len(out) != 0 {
		t.Fatalf("Stop before Start returned %d samples", len(out))
	}
}

func TestDoubleStartSingleAcquisition(t *testing.T) {
	opener := &fakeOpener{}
	r := newTestRecorder(opener)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if opener.opens != 1 {
		t.Fatalf("stream opened %d times, want 1", opener.opens)
	}
	r.Stop()
}

func TestFramesConcatenatedInOrder(t *testing.T) {
	opener := &fakeOpener{}
	r := newTestRecorder(opener)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cb := opener.cbs[0]
	cb([]float32{1, 2, 3})
	cb([]float32{4, 5})
	cb([]float32{6})

	out := r.Stop()
	want := []float32{1, 2, 3, 4, 5, 6}
	if len(out) != len(want) {
		t.Fatalf("got %d samples, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, out[i], want[i])
		}
	}
	if !opener.streams[0].closed {
		t.Fatal("stream not closed on stop")
	}
}

func TestStaleSessionFramesDiscarded(t *testing.T) {
	opener := &fakeOpener{}
	r := newTestRecorder(opener)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	staleCb := opener.cbs[0]
	staleCb([]float32{1, 1})
	r.Stop()

	if err := r.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	// A late callback from the torn-down stream must not leak into the
	// new session's buffer.
	staleCb([]float32{9, 9, 9})
	opener.cbs[1]([]float32{2, 2})

	out := r.Stop()
	if len(out) != 2 || out[0] != 2 || out[1] != 2 {
		t.Fatalf("second session buffer = %v, want [2 2]", out)
	}
}

func TestStartDeviceUnavailable(t *testing.T) {
	opener := &fakeOpener{}
	r := newTestRecorder(opener)
	r.probe = failProbe{err: &DeviceError{Reason: "no microphone configured"}}

	err := r.Start()
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DeviceError, got %v", err)
	}
	if opener.opens != 0 {
		t.Fatal("stream opened despite failed device probe")
	}
	if r.Recording() {
		t.Fatal("recorder marked recording after failed start")
	}
	// A later start with a working device succeeds.
	r.probe = okProbe{}
	if err := r.Start(); err != nil {
		t.Fatalf("Start after recovery: %v", err)
	}
	r.Stop()
}

func TestStartCaptureFailure(t *testing.T) {
	opener := &fakeOpener{err: errors.New("backend exploded")}
	r := newTestRecorder(opener)

	err := r.Start()
	var ce *CaptureError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CaptureError, got %v", err)
	}
	var de *DeviceError
	if errors.As(err, &de) {
		t.Fatal("capture failure misclassified as device error")
	}
	if r.Recording() {
		t.Fatal("recorder marked recording after failed open")
	}
}

func TestFrameListenerReceivesCopies(t *testing.T) {
	opener := &fakeOpener{}
	r := newTestRecorder(opener)

	var got [][]float32
	r.SetFrameListener(func(frame []float32) {
		got = append(got, frame)
	})
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src := []float32{7, 8}
	opener.cbs[0](src)
	src[0] = 99 // mutate the hardware buffer after delivery

	if len(got) != 1 {
		t.Fatalf("listener called %d times, want 1", len(got))
	}
	if got[0][0] != 7 {
		t.Fatal("listener frame shares memory with the hardware buffer")
	}

	// Detach stops delivery but not buffering.
	r.SetFrameListener(nil)
	opener.cbs[0]([]float32{1})
	if len(got) != 1 {
		t.Fatal("detached listener still invoked")
	}
	if out := r.Stop(); len(out) != 3 {
		t.Fatalf("buffer has %d samples, want 3", len(out))
	}
}

func TestStopDuringStartReleasesStream(t *testing.T) {
	opening := make(chan struct{})
	release := make(chan struct{})
	stream := &fakeStream{}
	r := NewRecorder(Settings{SampleRate: 16000, Channels: 1, BlockSize: 512}, logger.Nop())
	r.probe = okProbe{}
	r.open = func(channels int, rate float64, blockSize int, cb func([]float32)) (inputStream, error) {
		close(opening)
		<-release
		return stream, nil
	}

	startErr := make(chan error, 1)
	go func() { startErr <- r.Start() }()

	// Stop lands while Start is still blocked opening the stream.
	<-opening
	if out := r.Stop(); len(out) != 0 {
		t.Fatalf("concurrent stop returned %d samples", len(out))
	}
	close(release)

	err := <-startErr
	var ce *CaptureError
	if !errors.As(err, &ce) {
		t.Fatalf("Start after concurrent Stop returned %v, want *CaptureError", err)
	}
	if r.Recording() {
		t.Fatal("recorder marked recording for a dead session")
	}
	// The orphaned stream must not keep the device.
	stream.mu.Lock()
	started, closed := stream.started, stream.closed
	stream.mu.Unlock()
	if started || !closed {
		t.Fatalf("stream started=%v closed=%v after racing stop, want stopped and closed", started, closed)
	}
	// A fresh session still works.
	if out := r.Stop(); len(out) != 0 {
		t.Fatalf("follow-up stop returned %d samples", len(out))
	}
}

func TestPanickingListenerDoesNotBreakCapture(t *testing.T) {
	opener := &fakeOpener{}
	r := newTestRecorder(opener)
	r.SetFrameListener(func([]float32) { panic("listener exploded") })

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	opener.cbs[0]([]float32{1, 2})
	opener.cbs[0]([]float32{3})

	out := r.Stop()
	if len(out) != 3 {
		t.Fatalf("buffer has %d samples after listener panics, want 3", len(out))
	}
}
