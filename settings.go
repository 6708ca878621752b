package synthchain

import "fmt"

// Ranges of the settable fields. Every mutation of Settings goes through
// Clamp, so no field is ever observed outside of its range.
const (
	VolumeMin, VolumeMax               = 0, 8
	TuneMin, TuneMax                   = 1, 8
	WaveMin, WaveMax                   = 0, int(NumWaveforms) - 1
	StrengthMin, StrengthMax           = 0, 10
	MetronomeSpeedMin, MetronomeMax    = 1, 8
	EnvelopeMin, EnvelopeMax           = 0, 50
	FadeSustainMin, FadeSustainMax     = 1, 30
	FadeSpeedMin, FadeSpeedMax         = 1, 10
	LFOFreqMin, LFOFreqMax             = 1, 30
	LFODivisorMin, LFODivisorMax       = 1, 8
	CutoffMin, CutoffMax, CutoffStep   = 500, 2000, 100
	defaultVolume, defaultStrength     = 6, 5
	defaultCutoff, defaultLFOFrequency = 500, 5
)

type (
	// Waveform selects the oscillator used for all voices.
	Waveform int

	// Settings holds the sound parameters shared by the whole keyboard.
	Settings struct {
		Volume     int       `yaml:"volume"`
		Tune       int       `yaml:"tune"`
		Wave       Waveform  `yaml:"wave"`
		Reverb     Effect    `yaml:"reverb"`
		Distortion Effect    `yaml:"distortion"`
		Chorus     Effect    `yaml:"chorus"`
		ADSR       ADSR      `yaml:"adsr"`
		Fade       Fade      `yaml:"fade"`
		LFO        LFO       `yaml:"lfo"`
		LowPass    LowPass   `yaml:"lowpass"`
		Metronome  Metronome `yaml:"metronome"`
	}

	Effect struct {
		On       bool `yaml:"on"`
		Strength int  `yaml:"strength"`
	}

	// ADSR thresholds are counted in half-buffer periods of a held key.
	ADSR struct {
		On      bool `yaml:"on"`
		Attack  int  `yaml:"attack"`
		Decay   int  `yaml:"decay"`
		Sustain int  `yaml:"sustain"`
	}

	Fade struct {
		On          bool `yaml:"on"`
		SustainTime int  `yaml:"sustain_time"`
		FadeSpeed   int  `yaml:"fade_speed"`
	}

	LFO struct {
		On      bool `yaml:"on"`
		Freq    int  `yaml:"freq"`
		Divisor int  `yaml:"divisor"`
	}

	LowPass struct {
		On     bool `yaml:"on"`
		Cutoff int  `yaml:"cutoff"`
	}

	Metronome struct {
		On    bool `yaml:"on"`
		Speed int  `yaml:"speed"`
	}
)

const (
	Sawtooth Waveform = iota
	Sine
	Square
	Triangle
	Piano
	Saxophone
	Bell
	Alarm
	Dong
	NumWaveforms
)

var waveformNames = [NumWaveforms]string{"Saw", "Sine", "Square", "Tri", "Piano", "Sax", "Bell", "Alarm", "Dong"}

func (w Waveform) String() string {
	if w < 0 || w >= NumWaveforms {
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
	return waveformNames[w]
}

// DefaultSettings returns the power-on settings: every effect off, default
// strengths and the lowest cutoff.
func DefaultSettings() Settings {
	s := Settings{
		Volume:     defaultVolume,
		Tune:       TuneBase,
		Wave:       Sawtooth,
		Reverb:     Effect{Strength: defaultStrength},
		Distortion: Effect{Strength: defaultStrength},
		Chorus:     Effect{Strength: defaultStrength},
		ADSR:       ADSR{Attack: 4, Decay: 4, Sustain: 16},
		Fade:       Fade{SustainTime: 10, FadeSpeed: 2},
		LFO:        LFO{Freq: defaultLFOFrequency, Divisor: 4},
		LowPass:    LowPass{Cutoff: defaultCutoff},
		Metronome:  Metronome{Speed: 4},
	}
	return s
}

// Clamp forces every field into its range.
func (s *Settings) Clamp() {
	s.Volume = clamp(s.Volume, VolumeMin, VolumeMax)
	s.Tune = clamp(s.Tune, TuneMin, TuneMax)
	s.Wave = Waveform(clamp(int(s.Wave), WaveMin, WaveMax))
	for _, e := range []*Effect{&s.Reverb, &s.Distortion, &s.Chorus} {
		e.Strength = clamp(e.Strength, StrengthMin, StrengthMax)
	}
	s.ADSR.Attack = clamp(s.ADSR.Attack, EnvelopeMin, EnvelopeMax)
	s.ADSR.Decay = clamp(s.ADSR.Decay, EnvelopeMin, EnvelopeMax)
	s.ADSR.Sustain = clamp(s.ADSR.Sustain, EnvelopeMin, EnvelopeMax)
	s.Fade.SustainTime = clamp(s.Fade.SustainTime, FadeSustainMin, FadeSustainMax)
	s.Fade.FadeSpeed = clamp(s.Fade.FadeSpeed, FadeSpeedMin, FadeSpeedMax)
	s.LFO.Freq = clamp(s.LFO.Freq, LFOFreqMin, LFOFreqMax)
	s.LFO.Divisor = clamp(s.LFO.Divisor, LFODivisorMin, LFODivisorMax)
	s.LowPass.Cutoff = clamp(s.LowPass.Cutoff, CutoffMin, CutoffMax)
	s.Metronome.Speed = clamp(s.Metronome.Speed, MetronomeSpeedMin, MetronomeMax)
}

// AnyEffect reports whether at least one of reverb, distortion and chorus is
// enabled.
func (s *Settings) AnyEffect() bool {
	return s.Reverb.On || s.Distortion.On || s.Chorus.On
}
