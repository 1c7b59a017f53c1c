//go:build !windows

package hotkey

// noopRegistrar accepts every chord. Conflict detection relies on the
// RegisterHotKey API, which only exists on Windows.
type noopRegistrar struct{}

func NewSystemRegistrar() Registrar {
	return noopRegistrar{}
}

func (noopRegistrar) Probe(*Chord) error    { return nil }
func (noopRegistrar) Register(*Chord) error { return nil }
func (noopRegistrar) Unregister()           {}
