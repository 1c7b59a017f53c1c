//go:build !windows

package clipboard

import "errors"

// PasteText requires simulated keystrokes, which only the Windows build
// supports.
func PasteText(text string) error {
	return errors.New("clipboard paste is only supported on Windows")
}
