//go:build windows

package clipboard

import (
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// PasteText writes text to the clipboard, sends Shift+Insert into the
// focused window, and restores the previous clipboard contents. Shift+Insert
// also pastes in terminals where Ctrl+V is bound to something else.
func PasteText(text string) error {
	orig, _ := clipboard.ReadAll()
	if err := clipboard.WriteAll(text); err != nil {
		return err
	}
	time.Sleep(80 * time.Millisecond)

	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.HasSHIFT(true)
	kb.SetKeys(keybd_event.VK_INSERT)
	if err := kb.Launching(); err != nil {
		return err
	}
	time.Sleep(120 * time.Millisecond)
	_ = clipboard.WriteAll(orig)
	return nil
}
