//go:build !cgo

package input

// OpenMIDI always fails: the MIDI driver needs cgo.
func OpenMIDI(prefix string, m *MIDI) (stop func(), err error) {
	return nil, ErrNoMIDI
}
