package board

import "github.com/luguan/synthchain"

// KnobMin and KnobMax bound the decoded value of every knob.
const (
	KnobMin = 0
	KnobMax = 8
)

// DecodeQuadrature applies one transition of a rotary encoder's 2-bit Gray
// code to k. 00→01 and 11→10 turn forward, 01→00 and 10→11 turn backward.
// When both bits flip a step was missed, so the previous increment is
// repeated. Any other transition, including no change, clears the pending
// increment.
func DecodeQuadrature(k *synthchain.Knob, prev, cur uint8) {
	prev, cur = prev&3, cur&3
	switch {
	case prev == 0b00 && cur == 0b01, prev == 0b11 && cur == 0b10:
		k.LastIncrement = 1
		k.Value = clampKnob(k.Value + 1)
	case prev == 0b01 && cur == 0b00, prev == 0b10 && cur == 0b11:
		k.LastIncrement = -1
		k.Value = clampKnob(k.Value - 1)
	case prev^cur == 0b11:
		k.Value = clampKnob(k.Value + k.LastIncrement)
	default:
		k.LastIncrement = 0
	}
}

// decodeKnobs updates all knobs and click latches from two successive
// matrix snapshots.
func decodeKnobs(knobs *[synthchain.NumKnobs]synthchain.Knob, prev, cur synthchain.Inputs) {
	pk, ck := prev.KnobBits(), cur.KnobBits()
	for pair := 0; pair < synthchain.NumKnobs; pair++ {
		DecodeQuadrature(&knobs[synthchain.NumKnobs-1-pair], pk>>(2*pair), ck>>(2*pair))
	}
	pc, cc := prev.Clicks(), cur.Clicks()
	for i := range knobs {
		// active-low: toggle when the button goes down
		if (pc^cc)>>i&1 == 1 && cc>>i&1 == 0 {
			knobs[i].Click = !knobs[i].Click
		}
	}
}

func clampKnob(v int) int {
	return min(max(v, KnobMin), KnobMax)
}
