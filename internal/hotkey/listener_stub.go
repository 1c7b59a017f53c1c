//go:build !windows

package hotkey

import "errors"

type stubListener struct {
	events chan KeyEvent
}

// NewSystemListener returns a listener that reports an unsupported platform.
// Global key interception needs the win32 low-level keyboard hook.
func NewSystemListener() Listener {
	return &stubListener{}
}

func (l *stubListener) Start() (<-chan KeyEvent, error) {
	return nil, errors.New("global keyboard listener is only supported on Windows")
}

func (l *stubListener) Stop() error { return nil }
