package hotkey

import (
	"fmt"
	"sync"
	"time"

	"github.com/lsj5031/Hoppy-Whisper/pkg/logger"
)

// Registrar reserves a chord with the OS so conflicts with other
// applications surface before the engine goes live. Probe answers "could we
// own this right now" without keeping the reservation; Register keeps it.
type Registrar interface {
	Probe(c *Chord) error
	Register(c *Chord) error
	Unregister()
}

// Callbacks are the four signal slots the engine emits into. All slots must
// be non-nil; use NopCallbacks as a starting point.
type Callbacks struct {
	OnRecordStart   func()
	OnRecordStop    func()
	OnRequestReplay func()
	OnError         func(error)
}

// NopCallbacks returns callbacks that do nothing.
func NopCallbacks() Callbacks {
	return Callbacks{
		OnRecordStart:   func() {},
		OnRecordStop:    func() {},
		OnRequestReplay: func() {},
		OnError:         func(error) {},
	}
}

// Options configure an Engine at construction.
type Options struct {
	// Chord is the hotkey text, e.g. "CTRL+SHIFT+;".
	Chord string
	// PasteWindow bounds the quick re-press replay gesture. Must lie in
	// [0, 5s]. Only meaningful in hold/release mode.
	PasteWindow time.Duration
	// ToggleMode selects press-to-toggle instead of hold-to-record.
	ToggleMode bool
}

const maxPasteWindow = 5 * time.Second

// Engine turns raw global key transitions into start/stop/replay signals.
//
// All state below mu is touched only with mu held. Signals are decided under
// the lock but dispatched after it is released, so a slow handler can never
// stall key-event processing, and the single event goroutine keeps emissions
// in order.
type Engine struct {
	mu          sync.Mutex
	chord       *Chord
	pressed     map[int]struct{}
	active      bool
	chordDown   bool
	lastRelease time.Time
	pasteWindow time.Duration
	toggleMode  bool
	running     bool

	cb        Callbacks
	listener  Listener
	registrar Registrar
	log       *logger.Logger

	// now is swappable for tests. time.Time carries a monotonic reading,
	// so window arithmetic survives wall-clock adjustments.
	now func() time.Time

	done chan struct{}
}

// NewEngine parses and probes the configured chord before committing any
// state. Returns *ParseError, *InUseError or *RegistrationError on failure.
func NewEngine(opts Options, cb Callbacks, lis Listener, reg Registrar, log *logger.Logger) (*Engine, error) {
	if cb.OnRecordStart == nil || cb.OnRecordStop == nil || cb.OnRequestReplay == nil || cb.OnError == nil {
		return nil, fmt.Errorf("all callback slots must be set")
	}
	if opts.PasteWindow < 0 || opts.PasteWindow > maxPasteWindow {
		return nil, fmt.Errorf("paste window %v out of range [0s, %v]", opts.PasteWindow, maxPasteWindow)
	}
	chord, err := Parse(opts.Chord)
	if err != nil {
		return nil, err
	}
	if err := reg.Probe(chord); err != nil {
		return nil, err
	}
	return &Engine{
		chord:       chord,
		pressed:     make(map[int]struct{}),
		pasteWindow: opts.PasteWindow,
		toggleMode:  opts.ToggleMode,
		cb:          cb,
		listener:    lis,
		registrar:   reg,
		log:         log,
		now:         time.Now,
	}, nil
}

// Start registers the chord with the OS and begins consuming key events.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	// Claim the running state before releasing the lock so a concurrent
	// Start cannot register twice or spawn a second consumer.
	e.running = true
	chord := e.chord
	e.mu.Unlock()

	fail := func(err error) error {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		return err
	}

	if err := e.registrar.Register(chord); err != nil {
		return fail(err)
	}
	events, err := e.listener.Start()
	if err != nil {
		e.registrar.Unregister()
		return fail(fmt.Errorf("start keyboard listener: %w", err))
	}

	e.mu.Lock()
	e.done = make(chan struct{})
	done := e.done
	e.mu.Unlock()

	e.log.Info("hotkey engine started",
		logger.String("chord", chord.Display()),
		logger.Bool("toggle_mode", e.toggleMode))

	go func() {
		defer close(done)
		for ev := range events {
			e.HandleKeyEvent(ev)
		}
	}()
	return nil
}

// Stop detaches the listener and releases the OS registration. Safe to call
// when not running.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	done := e.done
	e.mu.Unlock()

	e.listener.Stop()
	e.registrar.Unregister()
	if done != nil {
		<-done
	}
	e.log.Info("hotkey engine stopped")
}

// HandleKeyEvent feeds one raw key transition through the state machine.
// Exported so tests and alternative listeners can drive the engine directly;
// callers must feed events from a single goroutine to preserve signal order.
func (e *Engine) HandleKeyEvent(ev KeyEvent) {
	if ev.Down {
		e.handleKeyDown(ev.VK)
	} else {
		e.handleKeyUp(ev.VK)
	}
}

func (e *Engine) handleKeyDown(vk int) {
	e.mu.Lock()
	e.pressed[vk] = struct{}{}
	if e.chordDown || !e.chord.Matches(e.pressed) {
		e.mu.Unlock()
		return
	}
	e.chordDown = true
	name, fn := e.chordPressedLocked()
	e.mu.Unlock()
	if fn != nil {
		e.dispatch(name, fn)
	}
}

func (e *Engine) handleKeyUp(vk int) {
	e.mu.Lock()
	delete(e.pressed, vk)
	if !e.chordDown || e.chord.Matches(e.pressed) {
		e.mu.Unlock()
		return
	}
	e.chordDown = false
	var name string
	var fn func()
	if !e.toggleMode && e.active {
		e.active = false
		e.lastRelease = e.now()
		name, fn = "record stop", e.cb.OnRecordStop
	}
	e.mu.Unlock()
	if fn != nil {
		e.dispatch(name, fn)
	}
}

// chordPressedLocked decides the emission for a fresh chord edge. Caller
// holds mu.
func (e *Engine) chordPressedLocked() (string, func()) {
	if e.toggleMode {
		if e.active {
			e.active = false
			e.lastRelease = time.Time{}
			return "record stop", e.cb.OnRecordStop
		}
		e.active = true
		return "record start", e.cb.OnRecordStart
	}
	if e.active {
		return "", nil
	}
	if !e.lastRelease.IsZero() && e.now().Sub(e.lastRelease) <= e.pasteWindow {
		e.lastRelease = time.Time{}
		return "replay", e.cb.OnRequestReplay
	}
	e.active = true
	return "record start", e.cb.OnRecordStart
}

// dispatch invokes a signal handler, containing any panic. A failing handler
// is logged and forwarded to OnError; a failing OnError is logged and
// swallowed. Nothing escapes into the listener goroutine.
func (e *Engine) dispatch(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s handler panicked: %v", name, r)
			e.log.Error("hotkey handler failed", logger.String("signal", name), logger.Any("panic", r))
			func() {
				defer func() {
					if r2 := recover(); r2 != nil {
						e.log.Error("error handler failed", logger.Any("panic", r2))
					}
				}()
				e.cb.OnError(err)
			}()
		}
	}()
	fn()
}

// UpdateChord replaces the active chord at runtime. The new text is parsed
// and probed before any committed state changes; on success the pressed-key
// set is cleared and the state machine returns to idle so stale partial
// presses cannot bleed into the new chord's matching. If a recording is in
// progress it is stopped first.
func (e *Engine) UpdateChord(text string) error {
	chord, err := Parse(text)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.chord != nil && e.chord.Display() == chord.Display() {
		e.mu.Unlock()
		return nil
	}
	running := e.running
	e.mu.Unlock()

	if err := e.registrar.Probe(chord); err != nil {
		return err
	}
	if running {
		if err := e.registrar.Register(chord); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.chord = chord
	e.pressed = make(map[int]struct{})
	e.chordDown = false
	e.lastRelease = time.Time{}
	var name string
	var fn func()
	if e.active {
		e.active = false
		name, fn = "record stop", e.cb.OnRecordStop
	}
	e.mu.Unlock()

	if fn != nil {
		e.dispatch(name, fn)
	}
	e.log.Info("hotkey updated", logger.String("chord", chord.Display()))
	return nil
}

// SetPasteWindow adjusts the replay window at runtime. Values outside
// [0, 5s] are rejected and the previous value is kept.
func (e *Engine) SetPasteWindow(d time.Duration) error {
	if d < 0 || d > maxPasteWindow {
		return fmt.Errorf("paste window %v out of range [0s, %v]", d, maxPasteWindow)
	}
	e.mu.Lock()
	e.pasteWindow = d
	e.mu.Unlock()
	return nil
}

// Chord returns the display text of the active chord.
func (e *Engine) Chord() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chord.Display()
}
