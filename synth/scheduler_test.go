package synth_test

import (
	"testing"

	"github.com/luguan/synthchain"
	"github.com/luguan/synthchain/synth"
)

func tick(s *synth.Scheduler, n int) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = s.Tick()
	}
	return out
}

func nonSilent(samples []uint8) bool {
	for _, v := range samples {
		if v != 0 {
			return true
		}
	}
	return false
}

func TestSingleBoardKeyPlaysThroughDoubleBuffer(t *testing.T) {
	store := ownerStore(synthchain.DefaultSettings())
	sched := synth.NewScheduler(store)
	engine := synth.NewEngine(store, sched, nil)

	idx, _ := synthchain.VoiceIndex(synthchain.TuneBase, 0)
	store.Notes(func(n *synthchain.NoteTable) { n.Press(synthchain.TuneBase, 0) })

	<-sched.Refill()
	filling := sched.Filling()
	if !engine.FillHalf() {
		t.Fatal("engine did not fill the free half")
	}
	if half := sched.Half(filling); !nonSilent(half[:]) {
		t.Fatal("engine wrote silence for an active voice")
	}
	if engine.FillHalf() {
		t.Fatal("engine overwrote a half that was not drained yet")
	}

	if nonSilent(tick(sched, synthchain.HalfBufferSize)) {
		t.Fatal("the half that was never filled must play as silence")
	}
	if !nonSilent(tick(sched, synthchain.HalfBufferSize)) {
		t.Fatal("the filled half was not played")
	}
	if got := store.Voice(idx).PressedCount(); got != 1 {
		t.Fatalf("pressed count after one flip = %d, want 1", got)
	}

	store.Notes(func(n *synthchain.NoteTable) { n.Release(synthchain.TuneBase, 0) })
	if v := store.Voice(idx); v.Active() || v.PressedCount() != 0 {
		t.Fatalf("released voice: active=%v count=%d", v.Active(), v.PressedCount())
	}
}

func TestSchedulerSignalsEveryHalfWithoutPilingUp(t *testing.T) {
	store := ownerStore(synthchain.DefaultSettings())
	sched := synth.NewScheduler(store)
	tick(sched, 10*synthchain.HalfBufferSize)
	if got := len(sched.Refill()); got != 1 {
		t.Fatalf("pending refill signals = %d, want 1", got)
	}
	if got := sched.Flips(); got != 9 {
		t.Fatalf("flips = %d, want 9", got)
	}
	if sched.Underruns() == 0 {
		t.Fatal("halves never filled must be counted as underruns")
	}
}

func TestSchedulerWithEngineHasNoUnderruns(t *testing.T) {
	store := ownerStore(synthchain.DefaultSettings())
	store.Notes(func(n *synthchain.NoteTable) { n.Press(3, 7) })
	sched := synth.NewScheduler(store)
	engine := synth.NewEngine(store, sched, nil)
	engine.FillHalf()
	tick(sched, synthchain.HalfBufferSize) // initial half is silent
	start := sched.Underruns()
	for i := 0; i < 20; i++ {
		select {
		case <-sched.Refill():
			engine.FillHalf()
		default:
		}
		if !nonSilent(tick(sched, synthchain.HalfBufferSize)) {
			t.Fatalf("half %d silent", i)
		}
	}
	if got := sched.Underruns() - start; got != 0 {
		t.Fatalf("underruns = %d, want 0", got)
	}
}

func TestMetronomePulse(t *testing.T) {
	s := synthchain.DefaultSettings()
	s.Metronome = synthchain.Metronome{On: true, Speed: synthchain.MetronomeMax}
	store := ownerStore(s)
	sched := synth.NewScheduler(store)
	period := synth.MetronomePeriod(synthchain.MetronomeMax)
	pulses := 0
	for _, v := range tick(sched, 3*(period+1)) {
		if v == synth.MetronomePulse {
			pulses++
		}
	}
	if pulses != 3 {
		t.Fatalf("pulses = %d, want 3", pulses)
	}

	store.Settings(func(s *synthchain.Settings) { s.Metronome.On = false })
	for _, v := range tick(sched, 2*period) {
		if v == synth.MetronomePulse {
			t.Fatal("metronome ticked while off")
		}
	}
}

func TestMetronomeKeepsFlipCadence(t *testing.T) {
	s := synthchain.DefaultSettings()
	s.Metronome = synthchain.Metronome{On: true, Speed: synthchain.MetronomeMax}
	store := ownerStore(s)
	sched := synth.NewScheduler(store)
	pulses := 0
	for i := 0; i < 3*synth.MetronomePeriod(synthchain.MetronomeMax); i++ {
		if sched.Tick() == synth.MetronomePulse {
			pulses++
		}
		if want := uint64(i / synthchain.HalfBufferSize); sched.Flips() != want {
			t.Fatalf("after tick %d: flips = %d, want %d (%d pulses so far)", i, sched.Flips(), want, pulses)
		}
	}
	if pulses < 2 {
		t.Fatalf("pulses = %d, want at least 2", pulses)
	}
}

func TestRelayKeepsTimingWithoutAudio(t *testing.T) {
	store := synthchain.NewStore(2, synthchain.DefaultSettings())
	store.System(func(sys *synthchain.SystemState) { sys.PosID = 1 })
	store.Settings(func(s *synthchain.Settings) { s.Metronome.On = true })
	store.Notes(func(n *synthchain.NoteTable) { n.Press(4, 0) })
	sched := synth.NewScheduler(store)
	engine := synth.NewEngine(store, sched, nil)
	engine.FillHalf()
	if nonSilent(tick(sched, 4*synthchain.HalfBufferSize+1)) {
		t.Fatal("relay produced audio")
	}
	if got := sched.Flips(); got != 4 {
		t.Fatalf("relay flips = %d, want 4", got)
	}
	if got := store.Voice(36).PressedCount(); got != 0 {
		t.Fatalf("relay advanced pressed counts to %d", got)
	}
}
