//go:build cgo

package input

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// OpenMIDI listens on the first MIDI input whose name starts with prefix
// (any input when prefix is empty) and feeds it to m. Call the returned
// function to stop listening.
func OpenMIDI(prefix string, m *MIDI) (stop func(), err error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("cannot open midi driver: %w", err)
	}
	ins, err := driver.Ins()
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("cannot list midi inputs: %w", err)
	}
	for _, in := range ins {
		if !strings.HasPrefix(in.String(), prefix) {
			continue
		}
		if err := in.Open(); err != nil {
			driver.Close()
			return nil, fmt.Errorf("cannot open midi input %v: %w", in, err)
		}
		stopListen, err := midi.ListenTo(in, m.HandleMessage)
		if err != nil {
			driver.Close()
			return nil, fmt.Errorf("cannot listen to midi input %v: %w", in, err)
		}
		if m.Logger != nil {
			m.Logger.Info("midi input open", "device", in.String())
		}
		return func() {
			stopListen()
			driver.Close()
		}, nil
	}
	driver.Close()
	return nil, fmt.Errorf("%w: no input matching %q", ErrNoMIDI, prefix)
}
