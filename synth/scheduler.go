package synth

import (
	"sync/atomic"

	"github.com/luguan/synthchain"
	"github.com/luguan/synthchain/bus"
)

// MetronomePulse is the sample value emitted on a metronome tick.
const MetronomePulse = 255

type (
	// Scheduler is the sample interrupt. Tick is called once per sample
	// period by whatever drives the audio clock (the audio device callback on
	// a host, a timer in headless mode) and must never block.
	//
	// The double buffer is two fixed halves: one is drained by Tick while
	// the engine fills the other. A half is only read by Tick if the engine
	// marked it filled before the flip; otherwise the half is played as
	// silence and counted as an underrun.
	Scheduler struct {
		store   *synthchain.Store
		buffers [2][synthchain.HalfBufferSize]uint8
		filled  [2]atomic.Bool
		reading atomic.Uint32 // index of the half being drained
		refill  chan struct{}

		// interrupt-local, only touched by Tick
		readPos   int
		valid     bool
		metronome int

		underruns atomic.Uint64
		flips     atomic.Uint64
	}
)

func NewScheduler(store *synthchain.Store) *Scheduler {
	s := &Scheduler{store: store, refill: make(chan struct{}, 1)}
	s.refill <- struct{}{} // fill the first half right away
	return s
}

// Refill is signalled every time a half has been drained. The channel holds
// at most one pending signal, so the engine is never signalled twice without
// draining in between.
func (s *Scheduler) Refill() <-chan struct{} { return s.refill }

// Tick produces the next output sample.
func (s *Scheduler) Tick() uint8 {
	if s.store.PosID() != 0 {
		// relays keep the flip timing but have no audio of their own
		if s.readPos == synthchain.HalfBufferSize {
			s.readPos = 0
			s.flip()
		}
		s.readPos++
		return 0
	}
	if s.readPos == synthchain.HalfBufferSize {
		s.readPos = 0
		s.flip()
		s.store.AdvancePressedCounts()
	}
	if on, speed := s.store.MetronomeState(); on && s.metronome >= MetronomePeriod(speed) {
		// the pulse replaces the buffered sample in place
		s.metronome = 0
		s.readPos++
		return MetronomePulse
	}
	s.metronome++
	var v uint8
	if s.valid {
		v = s.buffers[s.reading.Load()][s.readPos]
	}
	s.readPos++
	return v
}

func (s *Scheduler) flip() {
	old := s.reading.Load()
	s.filled[old].Store(false)
	next := 1 - old
	s.reading.Store(next)
	s.valid = s.filled[next].Load()
	if !s.valid {
		s.underruns.Add(1)
	}
	s.flips.Add(1)
	bus.TrySend(s.refill, struct{}{})
}

// Filling is the index of the half the engine may write.
func (s *Scheduler) Filling() int { return int(1 - s.reading.Load()) }

// Half returns a copy of buffer half i.
func (s *Scheduler) Half(i int) [synthchain.HalfBufferSize]uint8 { return s.buffers[i] }

// Underruns counts the halves that were not ready when output reached them.
func (s *Scheduler) Underruns() uint64 { return s.underruns.Load() }

// Flips counts the half-buffer flips.
func (s *Scheduler) Flips() uint64 { return s.flips.Load() }

// fillHalf lets fill write the half that is currently free and marks it
// ready. It reports false if that half is still waiting to be drained.
func (s *Scheduler) fillHalf(fill func(buf []uint8)) bool {
	w := s.Filling()
	if s.filled[w].Load() {
		return false
	}
	fill(s.buffers[w][:])
	s.filled[w].Store(true)
	return true
}

// MetronomePeriod is the number of samples between two metronome ticks at
// the given speed setting.
func MetronomePeriod(speed int) int {
	return synthchain.SampleRate * 60 / (40 + 20*speed)
}
