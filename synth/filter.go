package synth

import (
	"math"

	"github.com/luguan/synthchain"
)

// LowPass is a one-pole low-pass filter. The coefficient is recomputed only
// when the cutoff changes.
type LowPass struct {
	cutoff     int
	alpha      float32
	prev       float32
	recomputes int
}

// Apply filters one sample with the given cutoff frequency in Hz.
func (l *LowPass) Apply(x float32, cutoff int) float32 {
	if cutoff != l.cutoff || l.recomputes == 0 {
		const dt = 1.0 / synthchain.SampleRate
		rc := 1 / (2 * math.Pi * float64(cutoff))
		l.alpha = float32(dt / (rc + dt))
		l.cutoff = cutoff
		l.recomputes++
	}
	l.prev += l.alpha * (x - l.prev)
	return l.prev
}

// Recomputes is the number of times the coefficient has been computed.
func (l *LowPass) Recomputes() int { return l.recomputes }

// LFO is a low-frequency sine oscillator used for amplitude modulation.
type LFO struct {
	freq  int
	step  float32
	phase float32
}

// Next returns the next oscillator sample in [0, 1/divisor].
func (l *LFO) Next(freq, divisor int) float32 {
	if freq != l.freq {
		l.step = float32(freq) / synthchain.SampleRate
		l.freq = freq
	}
	return oscillate(synthchain.Sine, &l.phase, l.step) / float32(divisor)
}
