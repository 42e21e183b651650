package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultCombo is used when the config names no combination.
const DefaultCombo = "Ctrl+Shift+R"

var ErrCombo = errors.New("invalid hotkey combo")

// Combo is a ring-off key combination: optional Ctrl and Shift plus one key.
// Key is an upper-case letter, a digit, F1-F12 or Space.
type Combo struct {
	Ctrl  bool
	Shift bool
	Key   string
}

// ParseCombo reads forms like "Ctrl+Shift+R" or "ctrl+f9". At least one
// modifier is required unless the key is a function key, so a plain letter
// cannot swallow normal typing.
func ParseCombo(s string) (Combo, error) {
	var c Combo
	parts := strings.Split(s, "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		last := i == len(parts)-1
		switch strings.ToLower(p) {
		case "ctrl", "control":
			if last {
				return Combo{}, fmt.Errorf("%w %q: missing key", ErrCombo, s)
			}
			c.Ctrl = true
			continue
		case "shift":
			if last {
				return Combo{}, fmt.Errorf("%w %q: missing key", ErrCombo, s)
			}
			c.Shift = true
			continue
		}
		if !last {
			return Combo{}, fmt.Errorf("%w %q: unknown modifier %q", ErrCombo, s, p)
		}
		key := normalizeKey(p)
		if _, ok := evdevCodes[key]; !ok {
			return Combo{}, fmt.Errorf("%w %q: unsupported key %q", ErrCombo, s, p)
		}
		c.Key = key
	}
	if !c.Ctrl && !c.Shift && !isFunctionKey(c.Key) {
		return Combo{}, fmt.Errorf("%w %q: needs Ctrl or Shift", ErrCombo, s)
	}
	return c, nil
}

func isFunctionKey(k string) bool {
	return len(k) > 1 && k[0] == 'F'
}

// MustParseCombo is for package-level defaults.
func MustParseCombo(s string) Combo {
	c, err := ParseCombo(s)
	if err != nil {
		panic(err)
	}
	return c
}

func normalizeKey(k string) string {
	if strings.EqualFold(k, "space") {
		return "Space"
	}
	return strings.ToUpper(k)
}

func (c Combo) String() string {
	var b strings.Builder
	if c.Ctrl {
		b.WriteString("Ctrl+")
	}
	if c.Shift {
		b.WriteString("Shift+")
	}
	b.WriteString(c.Key)
	return b.String()
}
