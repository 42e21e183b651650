//go:build !linux

package button

import "errors"

// Open is not available off Linux.
func Open(string, int) (Line, error) {
	return nil, errors.New("button: gpio not supported on this platform (requires Linux)")
}
