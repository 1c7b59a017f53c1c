package notify

import "github.com/gen2brain/beeep"

// Notify shows a desktop notification. Failures are ignored; notifications
// are best-effort.
func Notify(title, message string) {
	_ = beeep.Notify(title, message, "")
}
