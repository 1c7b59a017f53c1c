package hotkey

// KeyEvent is a raw key transition observed by the global listener.
type KeyEvent struct {
	VK   int
	Down bool
}

// Listener captures global keyboard events on a dedicated OS-managed thread
// and delivers them on the returned channel. Implementations must never
// block inside the OS hook; events that cannot be delivered immediately are
// dropped.
type Listener interface {
	Start() (<-chan KeyEvent, error)
	Stop() error
}
