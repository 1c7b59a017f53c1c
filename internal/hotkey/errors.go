package hotkey

import "fmt"

// InUseError indicates another process already owns the chord. The user can
// recover by picking a different chord.
type InUseError struct {
	Chord string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("hotkey %q is already registered by another application", e.Chord)
}

// RegistrationError indicates an unexpected OS failure while registering the
// chord. Distinct from InUseError: not user-actionable beyond retrying.
type RegistrationError struct {
	Chord string
	Err   error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("failed to register hotkey %q: %v", e.Chord, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }
