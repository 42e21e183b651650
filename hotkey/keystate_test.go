package hotkey

import "testing"

type keyEvent struct {
	code  uint16
	value int32
}

func down(code uint16) keyEvent   { return keyEvent{code, keyPress} }
func up(code uint16) keyEvent     { return keyEvent{code, keyRelease} }
func repeat(code uint16) keyEvent { return keyEvent{code, 2} }

func TestComboStateEdges(t *testing.T) {
	r := evdevCodes["R"]
	f9 := evdevCodes["F9"]
	ctrlShiftR := Combo{Ctrl: true, Shift: true, Key: "R"}

	tests := []struct {
		name   string
		combo  Combo
		events []keyEvent
		want   []edge
	}{
		{
			name:   "full combo",
			combo:  ctrlShiftR,
			events: []keyEvent{down(keyLCtrl), down(keyLShift), down(r), up(r), up(keyLShift), up(keyLCtrl)},
			want:   []edge{edgeDown, edgeUp},
		},
		{
			name:   "right-hand modifiers",
			combo:  ctrlShiftR,
			events: []keyEvent{down(keyRShift), down(keyRCtrl), down(r), up(r)},
			want:   []edge{edgeDown, edgeUp},
		},
		{
			name:   "missing shift",
			combo:  ctrlShiftR,
			events: []keyEvent{down(keyLCtrl), down(r), up(r)},
		},
		{
			name:   "auto-repeat is one press",
			combo:  ctrlShiftR,
			events: []keyEvent{down(keyLCtrl), down(keyLShift), down(r), repeat(r), repeat(r), up(r)},
			want:   []edge{edgeDown, edgeUp},
		},
		{
			name:   "modifiers released before key still ends the press",
			combo:  ctrlShiftR,
			events: []keyEvent{down(keyLCtrl), down(keyLShift), down(r), up(keyLCtrl), up(keyLShift), up(r)},
			want:   []edge{edgeDown, edgeUp},
		},
		{
			name:   "modifier released then key again",
			combo:  ctrlShiftR,
			events: []keyEvent{down(keyLCtrl), down(keyLShift), up(keyLShift), down(r), up(r)},
		},
		{
			name:   "plain letter typing",
			combo:  ctrlShiftR,
			events: []keyEvent{down(r), up(r), down(evdevCodes["E"]), up(evdevCodes["E"])},
		},
		{
			name:   "function key without modifiers",
			combo:  Combo{Key: "F9"},
			events: []keyEvent{down(f9), up(f9), down(f9), up(f9)},
			want:   []edge{edgeDown, edgeUp, edgeDown, edgeUp},
		},
		{
			name:   "stray release",
			combo:  ctrlShiftR,
			events: []keyEvent{up(r)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newComboState(tt.combo)
			var got []edge
			for _, ev := range tt.events {
				if e := st.feed(ev.code, ev.value); e != edgeNone {
					got = append(got, e)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("edges = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("edge %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
