//go:build linux

package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey          = 1
	inputEventSize = 24
	inputDir       = "/dev/input"
)

var errNoKeyboards = errors.New("no keyboard devices found (is the user in the 'input' group?)")

// evdevHotkey reads raw key events from every keyboard, so it works under
// Wayland and on a bare console where no display server grabs keys.
type evdevHotkey struct {
	combo   Combo
	keydown chan struct{}
	keyup   chan struct{}

	mu    sync.Mutex
	files []*os.File
	done  chan struct{}
}

func New(c Combo) Hotkey {
	return &evdevHotkey{
		combo:   c,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *evdevHotkey) Register() error {
	paths, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("scan %s: %w", inputDir, err)
	}
	if len(paths) == 0 {
		return errNoKeyboards
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.done = make(chan struct{})
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		// one state per device: Ctrl on one keyboard and R on another is not the combo
		go h.read(f, newComboState(h.combo), h.done)
	}
	if len(h.files) == 0 {
		return fmt.Errorf("%d keyboard(s) found but none readable (run: sudo usermod -aG input $USER, then log in again)", len(paths))
	}
	return nil
}

func (h *evdevHotkey) read(f *os.File, st *comboState, done <-chan struct{}) {
	buf := make([]byte, inputEventSize*16)
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for _, e := range scanEvents(buf[:n], st) {
			out := h.keydown
			if e == edgeUp {
				out = h.keyup
			}
			select {
			case out <- struct{}{}:
			case <-done:
				return
			default:
			}
		}
	}
}

// scanEvents feeds every key event in buf to st and returns the edges seen.
// buf holds whole struct input_event records (64-bit layout).
func scanEvents(buf []byte, st *comboState) []edge {
	var edges []edge
	le := binary.LittleEndian
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		if le.Uint16(buf[i+16:]) != evKey {
			continue
		}
		code := le.Uint16(buf[i+18:])
		value := int32(le.Uint32(buf[i+20:]))
		if e := st.feed(code, value); e != edgeNone {
			edges = append(edges, e)
		}
	}
	return edges
}

// Unregister closes the devices, which ends the readers.
func (h *evdevHotkey) Unregister() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done == nil {
		return
	}
	close(h.done)
	h.done = nil
	for _, f := range h.files {
		f.Close()
	}
	h.files = nil
}

func (h *evdevHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *evdevHotkey) Keyup() <-chan struct{}   { return h.keyup }

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") && isKeyboard(e.Name()) {
			out = append(out, filepath.Join(inputDir, e.Name()))
		}
	}
	return out, nil
}

// isKeyboard treats a device with a long key capability bitmap as a
// keyboard; mice and power buttons report only a few bits.
func isKeyboard(event string) bool {
	data, err := os.ReadFile(filepath.Join("/sys/class/input", event, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

// Diagnose explains why Register would fail, or reports what it would use.
func Diagnose(c Combo) (string, error) {
	paths, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(paths) == 0 {
		return "", errNoKeyboards
	}
	for _, path := range paths {
		if f, err := os.Open(path); err == nil {
			f.Close()
			return fmt.Sprintf("%d keyboard(s) found, opened %s, ring-off is %s", len(paths), path, c), nil
		}
	}
	return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(paths))
}
