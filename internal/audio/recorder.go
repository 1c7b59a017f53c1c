package audio

import (
	"errors"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/lsj5031/Hoppy-Whisper/pkg/logger"
)

// inputStream is the minimal surface of a running capture stream.
type inputStream interface {
	Start() error
	Stop() error
	Close() error
}

// streamOpener opens a hardware input stream that invokes cb once per
// hardware buffer. Injectable so recorder tests run without a sound card.
type streamOpener func(channels int, rate float64, blockSize int, cb func([]float32)) (inputStream, error)

type paStream struct {
	s *portaudio.Stream
}

func (p *paStream) Start() error { return p.s.Start() }
func (p *paStream) Stop() error  { return p.s.Stop() }

func (p *paStream) Close() error {
	err := p.s.Close()
	portaudio.Terminate()
	return err
}

func portaudioOpener(channels int, rate float64, blockSize int, cb func([]float32)) (inputStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	stream, err := portaudio.OpenDefaultStream(channels, 0, rate, blockSize, func(in []float32) {
		cb(in)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return &paStream{s: stream}, nil
}

// Settings fix the capture format for a Recorder.
type Settings struct {
	SampleRate int
	Channels   int
	// BlockSize is the frames-per-buffer hint passed to the hardware
	// stream. Callback chunks are not guaranteed to align with detector
	// frames; see FrameSplitter.
	BlockSize int
}

// Recorder accumulates hardware callback frames between Start and Stop.
//
// The callback runs on an OS-managed audio thread. It takes mu only for the
// append and releases it before invoking the frame listener, so a slow
// listener cannot stall buffer writes. Frames are tagged with a session
// token; anything delivered after Stop committed is discarded rather than
// bleeding into the next session's buffer.
type Recorder struct {
	mu        sync.Mutex
	recording bool
	session   uint64
	frames    [][]float32
	listener  func([]float32)
	stream    inputStream

	settings Settings
	probe    DeviceProbe
	open     streamOpener
	log      *logger.Logger
}

// NewRecorder builds a recorder capturing from the default input device.
func NewRecorder(settings Settings, log *logger.Logger) *Recorder {
	if settings.BlockSize <= 0 {
		settings.BlockSize = 1024
	}
	return &Recorder{
		settings: settings,
		probe:    portaudioProbe{},
		open:     portaudioOpener,
		log:      log,
	}
}

// SetFrameListener attaches a real-time observer invoked once per hardware
// callback with a copy of the appended frame. Pass nil to detach. The
// listener runs outside the buffer lock, after the append; a panicking
// listener is logged and never reaches the audio thread.
func (r *Recorder) SetFrameListener(fn func([]float32)) {
	r.mu.Lock()
	r.listener = fn
	r.mu.Unlock()
}

// Start opens the input stream and begins accumulating frames. Idempotent:
// calling it while already recording logs and does nothing. Returns a
// *DeviceError when no suitable microphone exists and a *CaptureError when
// the stream fails to open for any other reason.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		r.log.Warn("recorder already running, start ignored")
		return nil
	}
	r.recording = true
	r.session++
	sess := r.session
	r.frames = nil
	r.mu.Unlock()

	fail := func(err error) error {
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
		return err
	}

	if err := r.probe.CheckInput(r.settings.Channels); err != nil {
		return fail(err)
	}

	stream, err := r.open(r.settings.Channels, float64(r.settings.SampleRate), r.settings.BlockSize, func(in []float32) {
		r.appendFrame(sess, in)
	})
	if err != nil {
		return fail(&CaptureError{Op: "open", Err: err})
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fail(&CaptureError{Op: "start", Err: err})
	}

	r.mu.Lock()
	if !r.recording || r.session != sess {
		// A Stop raced with the stream open. The stopped session owns
		// nothing, so the stream must be torn down here or the device
		// stays held forever.
		r.mu.Unlock()
		if err := stream.Stop(); err != nil {
			r.log.Warn("stream stop failed", logger.Error(err))
		}
		if err := stream.Close(); err != nil {
			r.log.Warn("stream close failed", logger.Error(err))
		}
		return &CaptureError{Op: "start", Err: errors.New("recording stopped before the stream was ready")}
	}
	r.stream = stream
	r.mu.Unlock()

	r.log.Debug("recording started",
		logger.Int("sample_rate", r.settings.SampleRate),
		logger.Int("channels", r.settings.Channels),
		logger.Uint64("session", sess))
	return nil
}

func (r *Recorder) appendFrame(sess uint64, in []float32) {
	frame := make([]float32, len(in))
	copy(frame, in)

	r.mu.Lock()
	if !r.recording || r.session != sess {
		r.mu.Unlock()
		return
	}
	r.frames = append(r.frames, frame)
	fn := r.listener
	r.mu.Unlock()

	if fn != nil {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error("frame listener panicked", logger.Any("panic", rec))
				}
			}()
			fn(frame)
		}()
	}
}

// Stop tears down the stream and returns the accumulated samples as one
// contiguous slice, ownership transferred to the caller. Always safe: when
// not recording it returns an empty, non-nil slice.
func (r *Recorder) Stop() []float32 {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		r.log.Debug("stop requested while idle")
		return []float32{}
	}
	r.recording = false
	stream := r.stream
	r.stream = nil
	r.mu.Unlock()

	if stream != nil {
		if err := stream.Stop(); err != nil {
			r.log.Warn("stream stop failed", logger.Error(err))
		}
		if err := stream.Close(); err != nil {
			r.log.Warn("stream close failed", logger.Error(err))
		}
	}

	r.mu.Lock()
	frames := r.frames
	r.frames = nil
	r.mu.Unlock()

	total := 0
	for _, f := range frames {
		total += len(f)
	}
	out := make([]float32, 0, total)
	for _, f := range frames {
		out = append(out, f...)
	}
	r.log.Debug("recording stopped", logger.Int("samples", len(out)))
	return out
}

// Recording reports whether a capture session is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Settings returns the fixed capture format.
func (r *Recorder) Settings() Settings { return r.settings }
