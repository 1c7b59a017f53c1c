//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"
)

const (
	whKeyboardLL  = 13
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmQuit        = 0x0012
	llkhfInjected = 0x10
)

type kbdLLHookStruct struct {
	VKCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DWExtraInfo uintptr
}

// hookListener installs a WH_KEYBOARD_LL hook on a locked OS thread and
// forwards raw key transitions. Injected (synthetic) events are ignored so
// simulated paste keystrokes cannot feed back into the chord matcher.
type hookListener struct {
	mu       sync.Mutex
	events   chan KeyEvent
	threadID uint32
	running  bool
}

// NewSystemListener returns the platform global keyboard listener.
func NewSystemListener() Listener {
	return &hookListener{}
}

func (l *hookListener) Start() (<-chan KeyEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return l.events, nil
	}
	l.events = make(chan KeyEvent, 128)
	errCh := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		user32 := syscall.NewLazyDLL("user32.dll")
		kernel32 := syscall.NewLazyDLL("kernel32.dll")
		procSetWindowsHookExW := user32.NewProc("SetWindowsHookExW")
		procUnhookWindowsHookEx := user32.NewProc("UnhookWindowsHookEx")
		procCallNextHookEx := user32.NewProc("CallNextHookEx")
		procGetMessageW := user32.NewProc("GetMessageW")
		procGetCurrentThreadId := kernel32.NewProc("GetCurrentThreadId")

		events := l.events
		callback := syscall.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) < 0 {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}
			k := (*kbdLLHookStruct)(unsafe.Pointer(lParam))
			if k.Flags&llkhfInjected == 0 {
				var ev KeyEvent
				switch uint32(wParam) {
				case wmKeyDown, wmSysKeyDown:
					ev = KeyEvent{VK: int(k.VKCode), Down: true}
				case wmKeyUp, wmSysKeyUp:
					ev = KeyEvent{VK: int(k.VKCode), Down: false}
				default:
					ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
					return ret
				}
				// Never block the hook thread; drop when the consumer lags.
				select {
				case events <- ev:
				default:
				}
			}
			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, _ := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), callback, 0, 0)
		if hook == 0 {
			errCh <- fmt.Errorf("SetWindowsHookExW failed")
			return
		}

		tid, _, _ := procGetCurrentThreadId.Call()
		l.mu.Lock()
		l.threadID = uint32(tid)
		l.mu.Unlock()
		errCh <- nil

		var msg struct {
			Hwnd    uintptr
			Message uint32
			WParam  uintptr
			LParam  uintptr
			Time    uint32
			PtX     int32
			PtY     int32
		}
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) == -1 || ret == 0 {
				break
			}
		}
		procUnhookWindowsHookEx.Call(hook)
		close(events)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-time.After(2 * time.Second):
		return nil, fmt.Errorf("timeout installing keyboard hook")
	}
	l.running = true
	return l.events, nil
}

func (l *hookListener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return nil
	}
	user32 := syscall.NewLazyDLL("user32.dll")
	procPostThreadMessageW := user32.NewProc("PostThreadMessageW")
	procPostThreadMessageW.Call(uintptr(l.threadID), uintptr(wmQuit), 0, 0)
	l.running = false
	l.threadID = 0
	return nil
}
