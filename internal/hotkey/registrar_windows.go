//go:build windows

package hotkey

import (
	"strings"
	"sync"

	xhotkey "golang.design/x/hotkey"
)

// osRegistrar checks and holds OS-level hotkey registrations through the
// RegisterHotKey API. A successful Probe registers and immediately releases
// the chord, so it only answers whether another application owns it right now.
type osRegistrar struct {
	mu   sync.Mutex
	held *xhotkey.Hotkey
}

// NewSystemRegistrar returns the platform hotkey registrar.
func NewSystemRegistrar() Registrar {
	return &osRegistrar{}
}

func chordToXHotkey(c *Chord) *xhotkey.Hotkey {
	var mods []xhotkey.Modifier
	mask := c.ModifierMask()
	if mask&ModAlt != 0 {
		mods = append(mods, xhotkey.ModAlt)
	}
	if mask&ModCtrl != 0 {
		mods = append(mods, xhotkey.ModCtrl)
	}
	if mask&ModShift != 0 {
		mods = append(mods, xhotkey.ModShift)
	}
	if mask&ModWin != 0 {
		mods = append(mods, xhotkey.ModWin)
	}
	// On Windows xhotkey.Key values are virtual-key codes.
	return xhotkey.New(mods, xhotkey.Key(c.PrimaryKey()))
}

func classifyRegisterError(c *Chord, err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "already registered") {
		return &InUseError{Chord: c.Display()}
	}
	return &RegistrationError{Chord: c.Display(), Err: err}
}

func (r *osRegistrar) Probe(c *Chord) error {
	hk := chordToXHotkey(c)
	if err := hk.Register(); err != nil {
		return classifyRegisterError(c, err)
	}
	hk.Unregister()
	return nil
}

func (r *osRegistrar) Register(c *Chord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held != nil {
		r.held.Unregister()
		r.held = nil
	}
	hk := chordToXHotkey(c)
	if err := hk.Register(); err != nil {
		return classifyRegisterError(c, err)
	}
	r.held = hk
	return nil
}

func (r *osRegistrar) Unregister() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held != nil {
		r.held.Unregister()
		r.held = nil
	}
}
