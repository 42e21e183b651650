// Package hotkey reports a global ring-off key combination and classifies
// its presses into taps and holds.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
