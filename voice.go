package synthchain

import "sync/atomic"

const activeBit = 1 << 31

// Voice is one note slot. The active flag and the pressed count share a
// single atomic word so that the sample interrupt can advance the count
// without locks and without ever observing a count on an inactive voice.
//
// Writers of the active flag (key scanner, decoder) hold the notes lock;
// the interrupt only advances counts. Loads and stores only publish the word
// itself and are not used to order any other memory.
type Voice struct {
	state atomic.Uint32
}

func (v *Voice) Active() bool { return v.state.Load()&activeBit != 0 }

// PressedCount is the number of half-buffer periods the key has been held.
// It is 0 whenever the voice is inactive.
func (v *Voice) PressedCount() int { return int(v.state.Load() &^ activeBit) }

// SetActive turns the voice on or off. Activating an already active voice
// keeps its count; deactivating always resets the count to 0.
func (v *Voice) SetActive(active bool) {
	if !active {
		v.state.Store(0)
		return
	}
	v.state.CompareAndSwap(0, activeBit)
}

// advance increments the count of an active voice and resets an inactive
// one.
func (v *Voice) advance() {
	for {
		old := v.state.Load()
		next := uint32(0)
		if old&activeBit != 0 {
			next = old + 1
			if next&^activeBit == 0 { // saturate instead of wrapping
				next = old
			}
		}
		if old == next || v.state.CompareAndSwap(old, next) {
			return
		}
	}
}

// NoteTable is the fixed voice table.
type NoteTable struct {
	Voices [NumVoices]Voice
}

// Press and Release set the voice of a key played at a tune; keys outside
// of the table are ignored.
func (n *NoteTable) Press(tune, key int)   { n.set(tune, key, true) }
func (n *NoteTable) Release(tune, key int) { n.set(tune, key, false) }

func (n *NoteTable) set(tune, key int, active bool) {
	if i, ok := VoiceIndex(tune, key); ok {
		n.Voices[i].SetActive(active)
	}
}

// ActiveCount returns the number of sounding voices.
func (n *NoteTable) ActiveCount() int {
	c := 0
	for i := range n.Voices {
		if n.Voices[i].Active() {
			c++
		}
	}
	return c
}

// AdvancePressedCounts is called from the sample interrupt at every
// half-buffer flip.
func (n *NoteTable) AdvancePressedCounts() {
	for i := range n.Voices {
		n.Voices[i].advance()
	}
}
