package synthchain

const (
	// SampleRate is the rate of the sample interrupt, in Hz.
	SampleRate = 22000
	// KeysPerBoard is the number of piano keys scanned on one board.
	KeysPerBoard = 12
	// MaxBoards is the longest supported chain.
	MaxBoards = 8
	// NumVoices is the size of the voice table: one voice per key slot of
	// every board in the longest chain.
	NumVoices = MaxBoards * KeysPerBoard
	// SampleBufferSize is the size of the whole double buffer; each half is
	// HalfBufferSize samples.
	SampleBufferSize = 256
	HalfBufferSize   = SampleBufferSize / 2
	// NumKnobs is the number of rotary encoders on a board.
	NumKnobs = 4
	// TuneBase is added to the chain position to derive the tune of a board.
	TuneBase = 3
)

type (
	// Matrix is the scanned input matrix of one board together with the two
	// handshake lines used for adjacency detection. Implementations drive the
	// row decoder and read back the columns; see package sim for the
	// simulated version.
	Matrix interface {
		ReadInputs() Inputs
		SetHandshake(west, east bool)
	}

	// AudioSink receives finished 8-bit samples (0..255) from the sample
	// interrupt.
	AudioSink interface {
		WriteSamples(samples []uint8) error
		Close() error
	}
)

// VoiceIndex returns the voice table slot for a key played with the given
// tune. ok is false if the slot falls outside of the table.
func VoiceIndex(tune, key int) (index int, ok bool) {
	if key < 0 || key >= KeysPerBoard {
		return 0, false
	}
	index = (tune-1)*KeysPerBoard + key
	if index < 0 || index >= NumVoices {
		return 0, false
	}
	return index, true
}

// TuneForPosition derives the tune of a board from its chain position.
func TuneForPosition(posID int) int {
	return clamp(posID+TuneBase, TuneMin, TuneMax)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
