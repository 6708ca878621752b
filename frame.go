package synthchain

import "fmt"

// FrameSize is the size of a bus frame in bytes.
const FrameSize = 8

type (
	// Frame is one fixed size bus message. Byte 0 is the opcode, the rest is
	// opcode specific payload; bytes not used by an opcode are zero when sent
	// and ignored when received.
	Frame [FrameSize]byte

	// Opcode is the ASCII tag in the first byte of a Frame.
	Opcode byte
)

const (
	OpPress          Opcode = 'P' // key idx, tune, sender pos (hop)
	OpRelease        Opcode = 'R' // key idx, tune, sender pos (hop)
	OpTune           Opcode = 'T' // tune value
	OpNewBoard       Opcode = 'N' // requester board id
	OpUpdatePosition Opcode = 'U' // proposed pos, target board id
	OpPosition       Opcode = 'M' // chain position
	OpConfirmMain    Opcode = 'C' // always 0
)

func KeyFrame(pressed bool, key, tune, senderPos int) Frame {
	op := OpRelease
	if pressed {
		op = OpPress
	}
	return Frame{byte(op), byte(key), byte(tune), byte(senderPos)}
}

func TuneFrame(tune int) Frame {
	return Frame{byte(OpTune), byte(tune)}
}

func NewBoardFrame(boardID uint8) Frame {
	return Frame{byte(OpNewBoard), boardID}
}

func UpdatePositionFrame(proposed int, target uint8) Frame {
	return Frame{byte(OpUpdatePosition), byte(proposed), target}
}

func PositionFrame(pos int) Frame {
	return Frame{byte(OpPosition), byte(pos)}
}

func ConfirmMainFrame() Frame {
	return Frame{byte(OpConfirmMain), 0}
}

func (f Frame) Opcode() Opcode { return Opcode(f[0]) }

// IsKey reports whether the frame is a press or a release.
func (f Frame) IsKey() bool {
	return f.Opcode() == OpPress || f.Opcode() == OpRelease
}

func (f Frame) Key() int  { return int(f[1]) }
func (f Frame) Tune() int { return int(f[2]) }

// Hop is the chain position of the board that last put a key frame on the
// bus. Relays re-stamp it when forwarding.
func (f Frame) Hop() int { return int(f[3]) }

func (f Frame) WithHop(pos int) Frame {
	f[3] = byte(pos)
	return f
}

// Value is the single byte payload of 'T', 'N', 'M' and 'C' frames and the
// proposed position of a 'U' frame.
func (f Frame) Value() int { return int(f[1]) }

// Target is the board id a 'U' frame is addressed to.
func (f Frame) Target() uint8 { return f[2] }

func (f Frame) String() string {
	switch f.Opcode() {
	case OpPress, OpRelease:
		return fmt.Sprintf("%c key=%d tune=%d hop=%d", f[0], f.Key(), f.Tune(), f.Hop())
	case OpUpdatePosition:
		return fmt.Sprintf("U pos=%d target=%d", f.Value(), f.Target())
	case OpTune, OpNewBoard, OpPosition, OpConfirmMain:
		return fmt.Sprintf("%c %d", f[0], f.Value())
	}
	return fmt.Sprintf("?% x", f[:])
}
