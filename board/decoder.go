package board

import (
	"context"
	"log/slog"

	"github.com/luguan/synthchain"
)

type (
	// Receiver blocks until a frame arrives. *bus.Router implements it.
	Receiver interface {
		Receive(ctx context.Context) (synthchain.Frame, error)
	}

	// Decoder is the decode task: it applies incoming frames to the shared
	// state and answers or forwards them.
	Decoder struct {
		store  *synthchain.Store
		out    Sender
		logger *slog.Logger
	}
)

func NewDecoder(store *synthchain.Store, out Sender, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{store: store, out: out, logger: logger}
}

// Run decodes frames from in until ctx is done or in fails.
func (d *Decoder) Run(ctx context.Context, in Receiver) error {
	for {
		f, err := in.Receive(ctx)
		if err != nil {
			return err
		}
		if err := d.Handle(ctx, f); err != nil {
			return err
		}
	}
}

// Handle applies one frame. Replies and forwarded frames are queued after the
// state locks are released.
func (d *Decoder) Handle(ctx context.Context, f synthchain.Frame) error {
	var out []synthchain.Frame
	d.store.All(func(sys *synthchain.SystemState, notes *synthchain.NoteTable, set *synthchain.Settings) {
		out = d.apply(f, sys, notes, set)
	})
	for _, r := range out {
		if err := d.out.Send(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) apply(f synthchain.Frame, sys *synthchain.SystemState, notes *synthchain.NoteTable, set *synthchain.Settings) []synthchain.Frame {
	switch f.Opcode() {
	case synthchain.OpPress, synthchain.OpRelease:
		switch {
		case sys.PosID == 0:
			if f.Opcode() == synthchain.OpPress {
				notes.Press(f.Tune(), f.Key())
			} else {
				notes.Release(f.Tune(), f.Key())
			}
		case sys.PosID > 0 && sys.EastDetect && f.Hop() == sys.PosID-1:
			// relay: pass the frame on one hop further east
			return []synthchain.Frame{f.WithHop(sys.PosID)}
		}
	case synthchain.OpTune:
		if sys.PosID >= 0 {
			set.Tune = f.Value() + sys.PosID
		}
	case synthchain.OpNewBoard:
		if sys.PosID >= 0 {
			return []synthchain.Frame{synthchain.UpdatePositionFrame(sys.PosID, uint8(f.Value()))}
		}
	case synthchain.OpPosition:
		// a board that booted late on the west claims this position: move one
		// step east and let the east neighbour do the same
		if sys.PosID >= 0 && f.Value() == sys.PosID {
			sys.PosID++
			set.Tune = synthchain.TuneForPosition(sys.PosID)
			d.logger.Info("position taken by a west board", "pos", sys.PosID, "tune", set.Tune)
			if sys.EastDetect {
				return []synthchain.Frame{synthchain.PositionFrame(sys.PosID)}
			}
		}
	case synthchain.OpUpdatePosition:
		if f.Target() == sys.LocalBoardID && f.Value() >= sys.PosID {
			sys.PosID = f.Value() + 1
			set.Tune = synthchain.TuneForPosition(sys.PosID)
			d.logger.Info("position updated", "pos", sys.PosID, "tune", set.Tune)
		}
	}
	return nil
}
