package synth

import (
	"math"

	"github.com/luguan/synthchain"
)

// TableSize is the length of one waveform cycle in the lookup tables.
const TableSize = 256

type waveTable [TableSize]float32

var (
	// tables holds one cycle of every table driven waveform, scaled to
	// [0, 1]. Sawtooth is computed from the phase and has no table.
	tables [synthchain.NumWaveforms]*waveTable

	// phaseIncrements is the per-sample phase step of every voice, in
	// cycles per sample.
	phaseIncrements [synthchain.NumVoices]float32
)

func init() {
	// partials lists the relative amplitude of harmonics 1, 2, 3, ...
	harmonic := func(partials ...float64) *waveTable {
		return normalize(func(x float64) float64 {
			v := 0.0
			for h, a := range partials {
				v += a * math.Sin(2*math.Pi*float64(h+1)*x)
			}
			return v
		})
	}
	tables[synthchain.Sine] = normalize(func(x float64) float64 { return math.Sin(2 * math.Pi * x) })
	tables[synthchain.Square] = normalize(func(x float64) float64 {
		if x < 0.5 {
			return 1
		}
		return -1
	})
	tables[synthchain.Triangle] = normalize(func(x float64) float64 { return 1 - 4*math.Abs(x-0.5) })
	tables[synthchain.Piano] = harmonic(1, 0.5, 0.33, 0.25, 0.12, 0.06)
	tables[synthchain.Saxophone] = harmonic(1, 0.8, 0.7, 0.55, 0.45, 0.3, 0.2, 0.1)
	tables[synthchain.Bell] = harmonic(1, 0, 0.6, 0, 0, 0.45, 0, 0, 0, 0.25)
	tables[synthchain.Alarm] = tables[synthchain.Square]
	tables[synthchain.Dong] = normalize(func(x float64) float64 {
		return math.Sin(2*math.Pi*x) * math.Exp(-3*x)
	})
	for i := range phaseIncrements {
		phaseIncrements[i] = float32(NoteFrequency(i) / synthchain.SampleRate)
	}
}

// NoteFrequency is the pitch of voice i, in Hz. Voice 45 is A4.
func NoteFrequency(i int) float64 {
	return 440 * math.Pow(2, float64(i-45)/12)
}

// normalize samples f over one cycle and scales the result to [0, 1].
func normalize(f func(x float64) float64) *waveTable {
	var raw [TableSize]float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range raw {
		raw[i] = f(float64(i) / TableSize)
		lo = math.Min(lo, raw[i])
		hi = math.Max(hi, raw[i])
	}
	t := new(waveTable)
	for i, v := range raw {
		t[i] = float32((v - lo) / (hi - lo))
	}
	return t
}

// oscillate advances the phase by incr and returns the sample of wave at the
// new phase.
func oscillate(wave synthchain.Waveform, phase *float32, incr float32) float32 {
	*phase += incr
	if *phase >= 1 {
		*phase -= 1
	}
	if wave == synthchain.Sawtooth {
		return *phase
	}
	return tables[wave][int(*phase*TableSize)%TableSize]
}
