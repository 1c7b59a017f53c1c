package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifier mask bits, matching the Win32 RegisterHotKey flags.
const (
	ModAlt   = 0x0001
	ModCtrl  = 0x0002
	ModShift = 0x0004
	ModWin   = 0x0008
)

var modifierFlags = map[string]uint32{
	"alt":     ModAlt,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"win":     ModWin,
	"windows": ModWin,
	"super":   ModWin,
}

// Left/right virtual-key variants per modifier token.
var modifierKeyCodes = map[string][]int{
	"alt":     {0xA4, 0xA5},
	"ctrl":    {0xA2, 0xA3},
	"control": {0xA2, 0xA3},
	"shift":   {0xA0, 0xA1},
	"win":     {0x5B, 0x5C},
	"windows": {0x5B, 0x5C},
	"super":   {0x5B, 0x5C},
}

var punctuationKeys = map[string]int{
	";":  0xBA,
	"=":  0xBB,
	",":  0xBC,
	"-":  0xBD,
	".":  0xBE,
	"/":  0xBF,
	"`":  0xC0,
	"[":  0xDB,
	"\\": 0xDC,
	"]":  0xDD,
	"'":  0xDE,
}

var namedKeys = map[string]int{
	"space":     0x20,
	"enter":     0x0D,
	"tab":       0x09,
	"escape":    0x1B,
	"esc":       0x1B,
	"backspace": 0x08,
	"delete":    0x2E,
	"home":      0x24,
	"end":       0x23,
	"pageup":    0x21,
	"pagedown":  0x22,
	"insert":    0x2D,
	"up":        0x26,
	"down":      0x28,
	"left":      0x25,
	"right":     0x27,
}

// ParseError reports an unusable hotkey chord string.
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("invalid hotkey: %s", e.Reason)
	}
	return fmt.Sprintf("invalid hotkey %q: %s", e.Text, e.Reason)
}

// Chord is the parsed, immutable representation of a hotkey string such as
// "CTRL+SHIFT+;". Modifier groups hold the acceptable left/right virtual-key
// codes for each required modifier; the key group holds the acceptable codes
// for the single primary key.
type Chord struct {
	text           string
	modifierMask   uint32
	modifierGroups [][]int
	keyGroup       []int
}

// Parse parses a user-supplied chord string. Tokens are separated by '+' and
// case-insensitive: zero or more modifiers followed by exactly one primary
// key token.
func Parse(text string) (*Chord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Reason: "hotkey cannot be empty"}
	}
	var parts []string
	for _, p := range strings.Split(text, "+") {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil, &ParseError{Text: text, Reason: "hotkey must include a key"}
	}

	var modifiers []string
	keyToken := ""
	for _, token := range parts {
		if _, ok := modifierFlags[token]; ok {
			modifiers = append(modifiers, token)
		} else {
			keyToken = token
		}
	}
	if keyToken == "" {
		return nil, &ParseError{Text: text, Reason: "hotkey must include a non-modifier key"}
	}

	var mask uint32
	groups := make([][]int, 0, len(modifiers))
	for _, token := range modifiers {
		mask |= modifierFlags[token]
		groups = append(groups, modifierKeyCodes[token])
	}

	keyGroup := keyToVirtualKeys(keyToken)
	if len(keyGroup) == 0 {
		return nil, &ParseError{Text: text, Reason: fmt.Sprintf("unsupported key token %q", keyToken)}
	}

	display := strings.ToUpper(strings.Join(append(modifiers, keyToken), "+"))
	return &Chord{
		text:           display,
		modifierMask:   mask,
		modifierGroups: groups,
		keyGroup:       keyGroup,
	}, nil
}

// Display returns the normalized, upper-cased chord text.
func (c *Chord) Display() string { return c.text }

// ModifierMask returns the OR of the required modifier flags.
func (c *Chord) ModifierMask() uint32 { return c.modifierMask }

// PrimaryKey returns one acceptable virtual-key code for the primary key,
// used when registering the chord with the OS.
func (c *Chord) PrimaryKey() int { return c.keyGroup[0] }

// Matches reports whether the currently-pressed virtual-key codes satisfy
// the chord: at least one code from every modifier group and at least one
// code from the key group. An empty set never matches. Pure function.
func (c *Chord) Matches(pressed map[int]struct{}) bool {
	if len(pressed) == 0 {
		return false
	}
	if !anyPressed(c.keyGroup, pressed) {
		return false
	}
	for _, group := range c.modifierGroups {
		if len(group) > 0 && !anyPressed(group, pressed) {
			return false
		}
	}
	return true
}

func anyPressed(group []int, pressed map[int]struct{}) bool {
	for _, vk := range group {
		if _, ok := pressed[vk]; ok {
			return true
		}
	}
	return false
}

func keyToVirtualKeys(token string) []int {
	if vk, ok := punctuationKeys[token]; ok {
		return []int{vk}
	}
	if len(token) > 1 && token[0] == 'f' {
		if n, err := strconv.Atoi(token[1:]); err == nil && n >= 1 && n <= 24 {
			return []int{0x70 + n - 1}
		}
	}
	if vk, ok := namedKeys[token]; ok {
		return []int{vk}
	}
	if len(token) == 1 {
		return []int{int(strings.ToUpper(token)[0])}
	}
	return nil
}
