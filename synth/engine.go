// Package synth is the audio side of a board: the synthesis and effects
// engine running as a background task, and the sample scheduler standing for
// the audio rate interrupt.
package synth

import (
	"context"
	"log/slog"

	"github.com/luguan/synthchain"
)

// Engine renders half-buffers of 8-bit samples from the active voices. It
// owns the per-voice oscillator phases and all filter and effect state, so
// only the engine goroutine may call its methods.
type Engine struct {
	store *synthchain.Store
	sched *Scheduler

	phases  [synthchain.NumVoices]float32
	horns   [synthchain.NumVoices]horn
	effects Effects
	lfo     LFO
	lpf     LowPass

	halves uint64
	logger *slog.Logger
}

func NewEngine(store *synthchain.Store, sched *Scheduler, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, sched: sched, logger: logger}
}

// Run waits for refill signals from the scheduler and fills the free half
// after each one.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-e.sched.Refill():
			e.FillHalf()
		case <-ctx.Done():
			e.logger.Debug("engine stopped", "halves", e.halves, "underruns", e.sched.Underruns())
			return ctx.Err()
		}
	}
}

// FillHalf renders the free half of the double buffer. The settings are
// snapshotted once for the whole half.
func (e *Engine) FillHalf() bool {
	settings := e.store.SettingsSnapshot()
	ok := e.sched.fillHalf(func(buf []uint8) {
		e.Render(buf, &settings)
	})
	if ok {
		e.halves++
	}
	return ok
}

// Render writes len(buf) samples.
func (e *Engine) Render(buf []uint8, s *synthchain.Settings) {
	for i := range buf {
		buf[i] = e.sample(s)
	}
}

func (e *Engine) sample(s *synthchain.Settings) uint8 {
	var sum float32
	active := 0
	for i := range e.phases {
		v := e.store.Voice(i)
		if !v.Active() {
			continue
		}
		active++
		amp := oscillate(s.Wave, &e.phases[i], phaseIncrements[i])
		out := float32(e.voiceOutput(i, amp, v.PressedCount(), s))
		if s.AnyEffect() {
			out = e.effects.Process(out/255, s) * 255
		}
		sum += out
	}
	if active == 0 {
		return 0
	}
	out := sum / float32(active)
	if s.LFO.On {
		lfo := e.lfo.Next(s.LFO.Freq, s.LFO.Divisor)
		out += float32(Quantize(int(lfo*255), s.Volume, 0))
	}
	if s.LowPass.On {
		out = e.lpf.Apply(out, s.LowPass.Cutoff)
	}
	return uint8(min(max(out, 0), 255))
}

// voiceOutput applies exactly one envelope to a voice, in the priority
// fade, ADSR, horn (alarm waveform only).
func (e *Engine) voiceOutput(i int, amp float32, count int, s *synthchain.Settings) int {
	switch {
	case s.Fade.On:
		return Quantize(int(amp*255), s.Volume, FadeShift(count, s.Fade.SustainTime, s.Fade.FadeSpeed))
	case s.ADSR.On:
		return Quantize(int(amp*255), s.Volume, ADSRShift(count, s.ADSR))
	case s.Wave == synthchain.Alarm:
		return Quantize(int(amp*127), s.Volume, e.horns[i].shift(count))
	default:
		return Quantize(int(amp*255), s.Volume, 0)
	}
}

// LowPassRecomputes reports how many times the low-pass coefficient has been
// computed.
func (e *Engine) LowPassRecomputes() int { return e.lpf.Recomputes() }
