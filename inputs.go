package synthchain

// InputBits is the number of matrix lines read by one scan: 7 rows of 4
// columns.
const InputBits = 28

// Bit positions in the input matrix. Inputs are active-low: a pressed key, a
// pressed knob or an asserted neighbour handshake line reads as 0.
const (
	BitKey0      = 0
	BitKnobs     = 12 // two bits per knob, pair i belongs to knob 3-i
	BitClicksHi  = 20 // clicks of knobs 2 and 3
	BitJoystick  = 22
	BitWest      = 23
	BitClicksLo  = 24 // clicks of knobs 0 and 1
	BitEast      = 27
	AllKeysUp    = 1<<KeysPerBoard - 1
	AllInputsOff = 1<<InputBits - 1
)

// Inputs is a snapshot of the whole input matrix, one bit per line.
type Inputs uint32

func (in Inputs) Bit(i int) bool { return in>>i&1 == 1 }

func (in Inputs) WithBit(i int, v bool) Inputs {
	if v {
		return in | 1<<i
	}
	return in &^ (1 << i)
}

// Bits extracts length bits starting at start.
func (in Inputs) Bits(start, length int) uint32 {
	return uint32(in) >> start & (1<<length - 1)
}

// Keys returns the raw key lines; a 0 bit is a pressed key.
func (in Inputs) Keys() uint16 { return uint16(in.Bits(BitKey0, KeysPerBoard)) }

func (in Inputs) KeyPressed(key int) bool { return !in.Bit(BitKey0 + key) }

// KnobBits returns the quadrature pairs of all four knobs.
func (in Inputs) KnobBits() uint8 { return uint8(in.Bits(BitKnobs, 2*NumKnobs)) }

// Clicks returns the four knob push buttons, bit i belonging to knob i.
func (in Inputs) Clicks() uint8 {
	return uint8(in.Bits(BitClicksHi, 2)<<2 | in.Bits(BitClicksLo, 2))
}

func (in Inputs) Joystick() bool { return in.Bit(BitJoystick) }

// WestNeighbour reports whether the west neighbour asserts its handshake
// line towards this board.
func (in Inputs) WestNeighbour() bool { return !in.Bit(BitWest) }

// EastNeighbour reports whether the east neighbour asserts its handshake
// line towards this board.
func (in Inputs) EastNeighbour() bool { return !in.Bit(BitEast) }

// PressedKeys lists the pressed keys in ascending order.
func (in Inputs) PressedKeys() []int {
	var keys []int
	for k := 0; k < KeysPerBoard; k++ {
		if in.KeyPressed(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

var noteNames = [KeysPerBoard]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the name of a key within one octave.
func NoteName(key int) string {
	if key < 0 || key >= KeysPerBoard {
		return "?"
	}
	return noteNames[key]
}
