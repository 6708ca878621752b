package synth

import (
	"math"

	"github.com/luguan/synthchain"
)

const (
	reverbLen = 256
	chorusLen = 512

	dryMix          = 0.3
	wetMix          = 0.7
	reverbWet       = 0.5
	distortionWet   = 0.3
	chorusWet       = 0.3
	strengthNorm    = 255
	chorusPhaseStep = 0.01
)

// Effects is the state of the effects chain: the reverb and chorus delay
// lines and the chorus modulation phase. Samples are in [-1, 1] nominal
// range. A disabled effect neither reads nor advances its state.
type Effects struct {
	reverb      [reverbLen]float32
	reverbPos   int
	chorus      [chorusLen]float32
	chorusPos   int
	chorusPhase float32
}

// Process runs one sample through the enabled effects. With every effect
// disabled the input is returned unchanged.
func (e *Effects) Process(x float32, s *synthchain.Settings) float32 {
	if !s.AnyEffect() {
		return x
	}
	var wet float32
	if s.Reverb.On {
		wet += e.applyReverb(x, s.Reverb.Strength) * weight(s.Reverb.Strength, reverbWet)
	}
	if s.Distortion.On {
		wet += applyDistortion(x, s.Distortion.Strength) * weight(s.Distortion.Strength, distortionWet)
	}
	if s.Chorus.On {
		wet += e.applyChorus(x, s.Chorus.Strength) * weight(s.Chorus.Strength, chorusWet)
	}
	return x*dryMix + wet*wetMix
}

// Reset clears the delay lines.
func (e *Effects) Reset() {
	*e = Effects{}
}

func weight(strength int, wet float32) float32 {
	return float32(strength) / strengthNorm * wet
}

func (e *Effects) applyReverb(x float32, strength int) float32 {
	decay := 0.2 + 0.06*float32(strength)
	out := x + e.reverb[e.reverbPos]*decay
	e.reverb[e.reverbPos] = e.reverb[e.reverbPos]*0.8 + out*0.2
	e.reverbPos = (e.reverbPos + 1) % reverbLen
	return min(max(out, -1), 1)
}

func applyDistortion(x float32, strength int) float32 {
	gain := 3 + 0.7*float32(strength)
	return float32(math.Tanh(float64(min(max(x*gain, -10), 10))))
}

func (e *Effects) applyChorus(x float32, strength int) float32 {
	lfo := float32(math.Sin(float64(e.chorusPhase)))
	e.chorusPhase += chorusPhaseStep
	if e.chorusPhase > 2*math.Pi {
		e.chorusPhase -= 2 * math.Pi
	}
	delay := chorusDelay(strength, lfo)
	delayed := e.chorus[(e.chorusPos-delay+chorusLen)%chorusLen]
	e.chorus[e.chorusPos] = x
	e.chorusPos = (e.chorusPos + 1) % chorusLen
	return x*0.7 + delayed*0.3
}

// chorusDelay is the tap distance of the chorus line for a strength in
// 0..10 and a modulation value in [-1, 1].
func chorusDelay(strength int, lfo float32) int {
	return 5 + int(float32(strength)/10*20) + int(lfo*3)
}
