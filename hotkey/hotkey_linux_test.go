//go:build linux

package hotkey

import (
	"encoding/binary"
	"testing"
)

// inputEvent encodes one 64-bit struct input_event.
func inputEvent(typ, code uint16, value int32) []byte {
	b := make([]byte, inputEventSize)
	le := binary.LittleEndian
	le.PutUint16(b[16:], typ)
	le.PutUint16(b[18:], code)
	le.PutUint32(b[20:], uint32(value))
	return b
}

func TestScanEvents(t *testing.T) {
	const evSyn, evMsc = 0, 4
	r := evdevCodes["R"]
	var buf []byte
	for _, ev := range [][]byte{
		inputEvent(evMsc, 4, 0x15),
		inputEvent(evKey, keyLCtrl, keyPress),
		inputEvent(evSyn, 0, 0),
		inputEvent(evKey, keyLShift, keyPress),
		inputEvent(evKey, r, keyPress),
		inputEvent(evSyn, 0, 0),
		inputEvent(evKey, r, keyRelease),
	} {
		buf = append(buf, ev...)
	}
	// a torn trailing record is ignored
	buf = append(buf, make([]byte, inputEventSize/2)...)

	got := scanEvents(buf, newComboState(MustParseCombo(DefaultCombo)))
	if len(got) != 2 || got[0] != edgeDown || got[1] != edgeUp {
		t.Errorf("edges = %v, want [down up]", got)
	}
}

func TestScanEventsKeepsStateAcrossReads(t *testing.T) {
	st := newComboState(MustParseCombo("Ctrl+Space"))
	space := evdevCodes["Space"]

	if got := scanEvents(inputEvent(evKey, keyRCtrl, keyPress), st); len(got) != 0 {
		t.Fatalf("modifier alone gave %v", got)
	}
	if got := scanEvents(inputEvent(evKey, space, keyPress), st); len(got) != 1 || got[0] != edgeDown {
		t.Fatalf("second read = %v, want [down]", got)
	}
}
