package synth

import (
	"testing"

	"github.com/luguan/synthchain"
)

func TestHornShiftLoops(t *testing.T) {
	var h horn
	for count := 0; count < 3*hornLoop+7; count++ {
		want := hornHighShift
		switch r := count % hornLoop; {
		case r <= hornLow:
			want = min(r+1, hornLowShift)
		case r == hornLow+1:
			want = -1
		}
		got := h.shift(count)
		if got != want {
			t.Fatalf("count %d: shift = %d, want %d", count, got, want)
		}
		if got > hornLowShift || got < hornHighShift {
			t.Fatalf("count %d: shift %d outside [%d, %d]", count, got, hornHighShift, hornLowShift)
		}
	}
}

func TestVoiceOutputEnvelopePriority(t *testing.T) {
	const (
		voice = 40
		amp   = 0.5
		count = 12
	)
	adsr := synthchain.ADSR{Attack: 4, Decay: 4, Sustain: 2}
	fade := synthchain.Fade{SustainTime: 10, FadeSpeed: 2}
	var ref horn
	hornShift := ref.shift(count)

	for _, c := range []struct {
		name      string
		wave      synthchain.Waveform
		fade      bool
		adsr      bool
		want      int
		hornMoves bool
	}{
		{"fade over adsr", synthchain.Alarm, true, true, Quantize(127, 8, FadeShift(count, 10, 2)), false},
		{"fade over horn", synthchain.Alarm, true, false, Quantize(127, 8, FadeShift(count, 10, 2)), false},
		{"adsr over horn", synthchain.Alarm, false, true, Quantize(127, 8, ADSRShift(count, adsr)), false},
		{"horn", synthchain.Alarm, false, false, Quantize(63, 8, hornShift), true},
		{"no envelope", synthchain.Sawtooth, false, false, Quantize(127, 8, 0), false},
	} {
		t.Run(c.name, func(t *testing.T) {
			s := synthchain.DefaultSettings()
			s.Wave, s.Volume = c.wave, synthchain.VolumeMax
			s.Fade, s.ADSR = fade, adsr
			s.Fade.On, s.ADSR.On = c.fade, c.adsr
			store := synthchain.NewStore(1, s)
			e := NewEngine(store, NewScheduler(store), nil)
			if got := e.voiceOutput(voice, amp, count, &s); got != c.want {
				t.Fatalf("output = %d, want %d", got, c.want)
			}
			if moved := e.horns[voice] != (horn{}); moved != c.hornMoves {
				t.Fatalf("horn state %+v, moved = %v, want %v", e.horns[voice], moved, c.hornMoves)
			}
		})
	}
}

func TestFadeOverridesAlarmHorn(t *testing.T) {
	s := synthchain.DefaultSettings()
	s.Wave, s.Volume = synthchain.Alarm, synthchain.VolumeMax
	s.Fade.On = true
	store := synthchain.NewStore(1, s)
	store.Notes(func(n *synthchain.NoteTable) { n.Press(4, 9) })
	idx, _ := synthchain.VoiceIndex(4, 9)

	fresh := NewEngine(store, NewScheduler(store), nil)
	worn := NewEngine(store, NewScheduler(store), nil)
	worn.horns[idx] = horn{low: 2}
	a, b := make([]uint8, 1024), make([]uint8, 1024)
	fresh.Render(a, &s)
	worn.Render(b, &s)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d: %d != %d, horn state reached a faded voice", i, a[i], b[i])
		}
	}
	if fresh.horns[idx] != (horn{}) {
		t.Fatalf("horn advanced to %+v under fade", fresh.horns[idx])
	}

	s.Fade.On = false
	fresh.Render(a, &s)
	if fresh.horns[idx] == (horn{}) {
		t.Fatal("horn did not advance once fade was off")
	}
}
