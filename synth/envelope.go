package synth

import "github.com/luguan/synthchain"

// Envelopes produce a bit shift applied to the quantized voice output: a
// positive shift attenuates by a power of two per step, a negative one
// amplifies.

// SustainShift is the attenuation an ADSR envelope settles to after decay.
const SustainShift = 2

// maxShift keeps the quantizer shift below the width of the sample word.
const maxShift = 16

// Horn voicing constants: the count is taken modulo hornLoop; the first
// hornLow+1 counts of every loop ramp towards hornLowShift, the rest towards
// hornHighShift.
const (
	hornLoop      = 20
	hornLow       = 3
	hornLowShift  = 2
	hornHighShift = -2
)

// FadeShift is 0 until count reaches sustain and then grows by one every
// speed counts.
func FadeShift(count, sustain, speed int) int {
	if count < sustain {
		return 0
	}
	return (count - sustain) / speed
}

// ADSRShift maps the pressed count of a voice to a shift. The phase
// boundaries are cumulative: attack ends at a.Attack, decay at
// a.Attack+a.Decay and sustain a.Sustain counts after that.
//
//	attack   shift falls to 0, so the output never decreases
//	decay    shift rises from 0 to SustainShift
//	sustain  shift stays at SustainShift
//	release  shift rises by one per count, so the output strictly decreases
//	         until it reaches silence
func ADSRShift(count int, a synthchain.ADSR) int {
	atk := a.Attack
	dec := atk + a.Decay
	sus := dec + a.Sustain
	switch {
	case count < atk:
		return atk - count
	case count < dec:
		return (count - atk) * SustainShift / a.Decay
	case count < sus:
		return SustainShift
	default:
		return SustainShift + 1 + count - sus
	}
}

// horn is the state of the horn voicing of one voice.
type horn struct {
	low, high int
}

func (h *horn) shift(count int) int {
	if count%hornLoop <= hornLow {
		h.high = 0
		if h.low < hornLowShift {
			h.low++
		}
		return h.low
	}
	h.low = 0
	if h.high > hornHighShift {
		h.high--
	}
	return h.high
}

// Quantize converts a level (0..255 for full scale) into an output
// magnitude: the level is shifted right by 8-volume+shift, or left when that
// amount is negative.
func Quantize(level, volume, shift int) int {
	s := min(8-volume+shift, maxShift)
	if s >= 0 {
		return level >> s
	}
	return level << -s
}
