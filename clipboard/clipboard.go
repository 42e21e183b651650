// Package clipboard copies signal summaries for pasting into a trading
// terminal.
package clipboard

import (
	"errors"

	cb "github.com/atotto/clipboard"
)

// ErrUnavailable is returned when no clipboard utility was found
// (xclip, xsel or wl-clipboard on Linux).
var ErrUnavailable = errors.New("clipboard: no clipboard utility found")

func Available() bool {
	return !cb.Unsupported
}

func Copy(text string) error {
	if !Available() {
		return ErrUnavailable
	}
	return cb.WriteAll(text)
}

func Read() (string, error) {
	if !Available() {
		return "", ErrUnavailable
	}
	return cb.ReadAll()
}
