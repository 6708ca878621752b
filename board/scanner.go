package board

import (
	"context"
	"log/slog"
	"time"

	"github.com/luguan/synthchain"
)

type (
	// Sender queues frames for transmission. *bus.Router implements it.
	Sender interface {
		Send(ctx context.Context, f synthchain.Frame) error
	}

	// Scanner is the key scan task. Every cycle it samples the matrix,
	// decodes knobs, clicks and the joystick button, runs the settings layer,
	// and then either plays the local keys itself or turns key transitions
	// into bus frames, depending on the role of the board.
	Scanner struct {
		store  *synthchain.Store
		matrix synthchain.Matrix
		out    Sender
		ui     SettingsUI
		logger *slog.Logger

		started    bool
		prev       synthchain.Inputs
		prevEast   bool
		prevTune   int
		playedTune int
		prevPos    int
		// westKnown is set while the position was assigned relative to the
		// present west neighbour. Only losing such a neighbour is reported.
		westKnown    bool
		repositioned bool
	}
)

// NewScanner creates a scanner. A nil ui leaves the settings untouched.
func NewScanner(store *synthchain.Store, matrix synthchain.Matrix, out Sender, ui SettingsUI, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{store: store, matrix: matrix, out: out, ui: ui, logger: logger}
}

// Run scans every period until ctx is done.
func (s *Scanner) Run(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Scan performs one scan cycle. Frames produced by the cycle are sent after
// the state locks have been released, so a full outgoing queue blocks only
// the scanner.
func (s *Scanner) Scan(ctx context.Context) error {
	in := s.matrix.ReadInputs()
	var out []synthchain.Frame
	s.store.All(func(sys *synthchain.SystemState, notes *synthchain.NoteTable, set *synthchain.Settings) {
		out = s.update(in, sys, notes, set)
	})
	for _, f := range out {
		if err := s.out.Send(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) update(in synthchain.Inputs, sys *synthchain.SystemState, notes *synthchain.NoteTable, set *synthchain.Settings) []synthchain.Frame {
	if !s.started {
		s.started = true
		s.prev = sys.Inputs
		s.westKnown, s.prevEast = sys.WestDetect, sys.EastDetect
		s.prevTune, s.playedTune = set.Tune, set.Tune
		s.prevPos = sys.PosID
	}
	var out []synthchain.Frame
	west, east := in.WestNeighbour(), in.EastNeighbour()
	sys.Inputs = in
	sys.WestDetect, sys.EastDetect = west, east

	decodeKnobs(&sys.Knobs, s.prev, in)
	if s.prev.Joystick() && !in.Joystick() {
		sys.Joystick = !sys.Joystick
	}
	if s.ui != nil {
		s.ui.Update(sys, set)
		set.Clamp()
	}

	if set.Tune != s.prevTune && sys.PosID == 0 {
		out = append(out, synthchain.TuneFrame(set.Tune))
	}
	if sys.PosID != s.prevPos {
		s.repositioned = true
	}
	if s.repositioned && west {
		s.westKnown, s.repositioned = true, false
	}
	if s.westKnown && s.prevEast && !west {
		s.logger.Info("west neighbour lost, requesting a new position", "board", sys.LocalBoardID)
		out = append(out, synthchain.NewBoardFrame(sys.LocalBoardID))
	}
	if !west {
		s.westKnown = false
	}

	switch {
	case !west && !east:
		// sole keyboard: the key lines are the voices of the current tune
		sys.PosID = 0
		if set.Tune != s.playedTune {
			for k := 0; k < synthchain.KeysPerBoard; k++ {
				notes.Release(s.playedTune, k)
			}
			s.playedTune = set.Tune
		}
		for k := 0; k < synthchain.KeysPerBoard; k++ {
			if in.KeyPressed(k) {
				notes.Press(set.Tune, k)
			} else {
				notes.Release(set.Tune, k)
			}
		}
	case sys.PosID == 0:
		// owner of a chain: frames from the other boards arrive through the
		// decoder, the local keys are applied here
		if set.Tune != s.playedTune {
			for _, k := range s.prev.PressedKeys() {
				notes.Release(s.playedTune, k)
				notes.Press(set.Tune, k)
			}
			s.playedTune = set.Tune
		}
		for _, k := range changedKeys(s.prev, in) {
			if in.KeyPressed(k) {
				notes.Press(set.Tune, k)
			} else {
				notes.Release(set.Tune, k)
			}
		}
	default:
		if set.Tune != s.playedTune {
			// held keys move to the new tune on the owner as well
			for _, k := range s.prev.PressedKeys() {
				out = append(out,
					synthchain.KeyFrame(false, k, s.playedTune, sys.PosID),
					synthchain.KeyFrame(true, k, set.Tune, sys.PosID))
			}
			s.playedTune = set.Tune
		}
		for _, k := range changedKeys(s.prev, in) {
			out = append(out, synthchain.KeyFrame(in.KeyPressed(k), k, set.Tune, sys.PosID))
		}
	}

	s.prev = in
	s.prevEast = east
	s.prevTune = set.Tune
	s.prevPos = sys.PosID
	return out
}

func changedKeys(prev, cur synthchain.Inputs) []int {
	var keys []int
	diff := prev.Keys() ^ cur.Keys()
	for k := 0; k < synthchain.KeysPerBoard; k++ {
		if diff>>k&1 == 1 {
			keys = append(keys, k)
		}
	}
	return keys
}
