package board

import "github.com/luguan/synthchain"

// SettingsUI is the settings layer driven by the knobs. The scanner calls
// Update once per scan, after the knobs were decoded, with the system and
// settings locks held. The settings are clamped after Update returns.
type SettingsUI interface {
	Update(sys *synthchain.SystemState, settings *synthchain.Settings)
}

// Menu pages understood by KnobMapper besides synthchain.MenuMain.
const (
	MenuReverb     synthchain.Menu = "Reverb"
	MenuDistortion synthchain.Menu = "Distortion"
	MenuChorus     synthchain.Menu = "Chorus"
	MenuMetronome  synthchain.Menu = "Met"
)

// KnobMapper applies the pending knob increments to the settings of the
// current menu page. On the main page knob 3 sets the volume, knob 2 the
// tune and knob 1 the waveform. On the effect and metronome pages the click
// latch of knob 1 switches the feature and knob 2 sets its strength or
// speed.
type KnobMapper struct{}

func (KnobMapper) Update(sys *synthchain.SystemState, s *synthchain.Settings) {
	k := &sys.Knobs
	switch sys.Menu {
	case synthchain.MenuMain:
		s.Volume += k[3].LastIncrement
		s.Tune += k[2].LastIncrement
		s.Wave += synthchain.Waveform(k[1].LastIncrement)
	case MenuReverb:
		s.Reverb.On = k[1].Click
		s.Reverb.Strength += k[2].LastIncrement
	case MenuDistortion:
		s.Distortion.On = k[1].Click
		s.Distortion.Strength += k[2].LastIncrement
	case MenuChorus:
		s.Chorus.On = k[1].Click
		s.Chorus.Strength += k[2].LastIncrement
	case MenuMetronome:
		s.Metronome.On = k[1].Click
		s.Metronome.Speed += k[2].LastIncrement
	}
}
