// Package input turns host key events into key presses on simulated boards,
// so the simulator can be played from the terminal or a MIDI keyboard.
package input

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/luguan/synthchain"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// KeyTarget is a board whose keys can be pressed. *sim.Board implements
	// it.
	KeyTarget interface {
		SetKey(key int, pressed bool)
	}

	// Note is one key of one board in the chain.
	Note struct {
		Board, Key int
	}

	// Terminal plays the chain from the computer keyboard. A terminal only
	// reports key presses, so each press holds the key for Hold and then
	// releases it; a repeated press extends the hold.
	Terminal struct {
		Boards []KeyTarget
		Layout map[rune]Note
		Hold   time.Duration
		Logger *slog.Logger

		mu     sync.Mutex
		timers map[Note]*time.Timer
	}

	// MIDI plays the chain from note on and note off messages. Note Base is
	// key 0 of board 0; every following octave is the next board.
	MIDI struct {
		Boards []KeyTarget
		Base   uint8
		Logger *slog.Logger
	}
)

var (
	// ErrQuit is returned by Terminal.Run when the user pressed Esc or Ctrl-C.
	ErrQuit   = errors.New("input: quit")
	ErrNoMIDI = errors.New("input: no midi input available")
)

const DefaultHold = 300 * time.Millisecond

// DefaultLayout maps two piano rows of a QWERTY keyboard onto the first two
// boards.
func DefaultLayout() map[rune]Note {
	layout := map[rune]Note{}
	for b, row := range []string{"zsxdcvgbhnjm", "q2w3er5t6y7u"} {
		for k, r := range row {
			layout[r] = Note{Board: b, Key: k}
		}
	}
	return layout
}

// Run reads the terminal until ctx is done or the user quits.
func (t *Terminal) Run(ctx context.Context) error {
	events, err := keyboard.GetKeys(16)
	if err != nil {
		return err
	}
	defer keyboard.Close()
	for {
		select {
		case ev := <-events:
			if ev.Err != nil {
				return ev.Err
			}
			if ev.Key == keyboard.KeyEsc || ev.Key == keyboard.KeyCtrlC {
				return ErrQuit
			}
			t.Press(ev.Rune)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Press plays the key mapped to r and reports whether r is mapped.
func (t *Terminal) Press(r rune) bool {
	n, ok := t.Layout[r]
	if !ok || n.Board >= len(t.Boards) {
		return false
	}
	hold := t.Hold
	if hold <= 0 {
		hold = DefaultHold
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timers == nil {
		t.timers = map[Note]*time.Timer{}
	}
	t.Boards[n.Board].SetKey(n.Key, true)
	if timer, ok := t.timers[n]; ok {
		timer.Stop()
	}
	t.timers[n] = time.AfterFunc(hold, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.Boards[n.Board].SetKey(n.Key, false)
		delete(t.timers, n)
	})
	if t.Logger != nil {
		t.Logger.Debug("key", "board", n.Board, "note", synthchain.NoteName(n.Key))
	}
	return true
}

// HandleMessage is a gomidi listener.
func (m *MIDI) HandleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		m.set(key, velocity > 0)
	case msg.GetNoteOff(&channel, &key, &velocity):
		m.set(key, false)
	}
}

func (m *MIDI) set(note uint8, pressed bool) {
	if note < m.Base {
		return
	}
	rel := int(note - m.Base)
	b, k := rel/synthchain.KeysPerBoard, rel%synthchain.KeysPerBoard
	if b >= len(m.Boards) {
		return
	}
	m.Boards[b].SetKey(k, pressed)
	if m.Logger != nil {
		m.Logger.Debug("midi note", "board", b, "note", synthchain.NoteName(k), "on", pressed)
	}
}
