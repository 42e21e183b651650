package hotkey

// Linux input event codes for the keys a Combo may use.
const (
	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
)

var evdevCodes = map[string]uint16{
	"Space": 57,
	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"Q": 16, "W": 17, "E": 18, "R": 19, "T": 20, "Y": 21, "U": 22, "I": 23, "O": 24, "P": 25,
	"A": 30, "S": 31, "D": 32, "F": 33, "G": 34, "H": 35, "J": 36, "K": 37, "L": 38,
	"Z": 44, "X": 45, "C": 46, "V": 47, "B": 48, "N": 49, "M": 50,
	"F1": 59, "F2": 60, "F3": 61, "F4": 62, "F5": 63, "F6": 64,
	"F7": 65, "F8": 66, "F9": 67, "F10": 68, "F11": 87, "F12": 88,
}

// Key event values; 2 is auto-repeat.
const (
	keyRelease = 0
	keyPress   = 1
)

type edge int

const (
	edgeNone edge = iota
	edgeDown
	edgeUp
)

// comboState follows modifier and key state across a stream of key events
// from one keyboard and reports when the combo goes down and comes back up.
// Auto-repeat never produces a second down edge.
type comboState struct {
	combo Combo
	code  uint16

	ctrl, shift bool
	held        bool
}

func newComboState(c Combo) *comboState {
	return &comboState{combo: c, code: evdevCodes[c.Key]}
}

func (s *comboState) feed(code uint16, value int32) edge {
	pressed := value == keyPress
	released := value == keyRelease

	switch code {
	case keyLCtrl, keyRCtrl:
		s.ctrl = pressed || (!released && s.ctrl)
	case keyLShift, keyRShift:
		s.shift = pressed || (!released && s.shift)
	case s.code:
		if pressed && !s.held && s.modsDown() {
			s.held = true
			return edgeDown
		}
		if released && s.held {
			s.held = false
			return edgeUp
		}
	}
	return edgeNone
}

func (s *comboState) modsDown() bool {
	return (!s.combo.Ctrl || s.ctrl) && (!s.combo.Shift || s.shift)
}
