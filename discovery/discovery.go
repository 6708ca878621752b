// Package discovery assigns every board of a chain its position. The board
// without a west neighbour becomes position 0; every other board learns its
// position from the one on its west, using the handshake lines to know when
// that neighbour is done.
//
// The protocol as a sequence of states:
//
//	pulse        assert both handshake lines, sample the neighbours, clear
//	main         (no west neighbour) send 'C', send 'M' 0, assert lines
//	waitConfirm  wait for 'C'; the west line must be seen cleared meanwhile
//	waitPosition wait until the west line is asserted again; the highest 'M'
//	             received is the west neighbour's position
//	announce     send 'M' position+1 if there is an east neighbour, then
//	             assert lines
//	join         (west neighbour already placed) send 'N', the highest
//	             position in the 'U' replies is the west neighbour's
//
// A neighbour sends its 'M' frame before it asserts its east line, so once
// the line is seen asserted the highest position received is the
// neighbour's own.
//
// Boards may boot in any order. A would-be main board that sees a west
// neighbour appear while it settles pulses again and follows it. A board
// whose west line stays asserted for Settle after its pulse sits east of a
// board that finished long ago, and joins. A board that finished as main
// before its west neighbour booted is moved east by the running board, when
// the neighbour announces its 'M' 0 (see board.Decoder).
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/luguan/synthchain"
)

type (
	// Link is the part of the message router discovery needs. Transmit must
	// deliver the frame before the handshake lines change.
	Link interface {
		Transmit(ctx context.Context, f synthchain.Frame) error
		TryReceive() (synthchain.Frame, bool)
	}

	Config struct {
		PollInterval time.Duration // delay between two polls of lines and frames
		Pulse        time.Duration // length of the boot handshake pulse
		Settle       time.Duration // wait of the main board before announcing
		// MaxPolls bounds every waiting state. 0 waits forever, which is what
		// the firmware does: a missing neighbour then stalls the board.
		MaxPolls int
		// BoardID identifies the board in join requests.
		BoardID uint8
		Logger  *slog.Logger
	}

	// Result of a discovery run.
	Result struct {
		Position      int
		WestNeighbour bool
		EastNeighbour bool
	}

	state int

	discoverer struct {
		cfg    Config
		matrix synthchain.Matrix
		link   Link

		west, east  bool
		westCleared bool
		confirmed   bool
		highestPos  int
		joinPos     int
	}
)

const (
	statePulse state = iota
	stateMain
	stateWaitConfirm
	stateWaitPosition
	stateAnnounce
	stateJoin
	stateDone
)

var stateNames = [...]string{"pulse", "main", "waitConfirm", "waitPosition", "announce", "join", "done"}

func (s state) String() string { return stateNames[s] }

// ErrNoConvergence is returned when a waiting state runs out of polls.
var ErrNoConvergence = errors.New("discovery: no convergence")

func DefaultConfig() Config {
	return Config{
		PollInterval: 10 * time.Millisecond,
		Pulse:        3 * time.Second,
		Settle:       3 * time.Second,
	}
}

// Run performs discovery on one board and returns its position.
func Run(ctx context.Context, matrix synthchain.Matrix, link Link, cfg Config) (Result, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	d := &discoverer{cfg: cfg, matrix: matrix, link: link, highestPos: -1, joinPos: -1}
	res := Result{}
	st := statePulse
	for st != stateDone {
		next, err := d.step(ctx, st, &res)
		if err != nil {
			return res, fmt.Errorf("discovery in state %v: %w", st, err)
		}
		cfg.Logger.Debug("discovery", "from", st, "to", next)
		st = next
	}
	res.WestNeighbour, res.EastNeighbour = d.west, d.east
	cfg.Logger.Info("position discovered", "pos", res.Position, "west", d.west, "east", d.east)
	return res, nil
}

func (d *discoverer) step(ctx context.Context, st state, res *Result) (state, error) {
	switch st {
	case statePulse:
		d.matrix.SetHandshake(true, true)
		deadline := time.Now().Add(d.cfg.Pulse)
		for {
			in := d.matrix.ReadInputs()
			d.west = d.west || in.WestNeighbour()
			d.east = d.east || in.EastNeighbour()
			if !time.Now().Before(deadline) {
				break
			}
			if err := d.sleep(ctx, d.cfg.PollInterval); err != nil {
				return st, err
			}
		}
		d.matrix.SetHandshake(false, false)
		if !d.west {
			return stateMain, nil
		}
		return stateWaitConfirm, nil
	case stateMain:
		westSeen, err := d.settle(ctx, true)
		if err != nil {
			return st, err
		}
		if westSeen {
			// a west neighbour booted late: pulse again so it sees us too
			d.west, d.confirmed, d.highestPos = true, false, -1
			return statePulse, nil
		}
		if err := d.link.Transmit(ctx, synthchain.ConfirmMainFrame()); err != nil {
			return st, err
		}
		if err := d.link.Transmit(ctx, synthchain.PositionFrame(0)); err != nil {
			return st, err
		}
		d.matrix.SetHandshake(true, true)
		res.Position = 0
		return stateDone, nil
	case stateWaitConfirm:
		join := false
		deadline := time.Now().Add(d.cfg.Settle)
		err := d.poll(ctx, st, func(in synthchain.Inputs) bool {
			if !d.westCleared && !time.Now().Before(deadline) {
				join = true
			}
			return join || d.confirmed && d.westCleared
		})
		if join {
			return stateJoin, err
		}
		return stateWaitPosition, err
	case stateWaitPosition:
		err := d.poll(ctx, st, func(in synthchain.Inputs) bool {
			return in.WestNeighbour() && d.highestPos >= 0
		})
		res.Position = d.highestPos + 1
		return stateAnnounce, err
	case stateJoin:
		d.joinPos = -1
		if err := d.link.Transmit(ctx, synthchain.NewBoardFrame(d.cfg.BoardID)); err != nil {
			return st, err
		}
		if err := d.poll(ctx, st, func(synthchain.Inputs) bool { return d.joinPos >= 0 }); err != nil {
			return st, err
		}
		// every placed board answers; wait for the late replies
		if _, err := d.settle(ctx, false); err != nil {
			return st, err
		}
		res.Position = d.joinPos + 1
		return stateAnnounce, nil
	case stateAnnounce:
		if d.east {
			if err := d.link.Transmit(ctx, synthchain.PositionFrame(res.Position)); err != nil {
				return st, err
			}
		}
		d.matrix.SetHandshake(true, true)
		return stateDone, nil
	}
	return st, fmt.Errorf("unknown state %d", st)
}

// poll drains received frames and samples the lines until done reports true.
func (d *discoverer) poll(ctx context.Context, st state, done func(synthchain.Inputs) bool) error {
	for n := 0; d.cfg.MaxPolls == 0 || n < d.cfg.MaxPolls; n++ {
		d.drain()
		in := d.matrix.ReadInputs()
		if !in.WestNeighbour() {
			d.westCleared = true
		}
		if done(in) {
			return nil
		}
		if err := d.sleep(ctx, d.cfg.PollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: gave up after %d polls", ErrNoConvergence, d.cfg.MaxPolls)
}

func (d *discoverer) drain() {
	for {
		f, ok := d.link.TryReceive()
		if !ok {
			return
		}
		switch f.Opcode() {
		case synthchain.OpConfirmMain:
			d.confirmed = true
		case synthchain.OpPosition:
			d.highestPos = max(d.highestPos, f.Value())
		case synthchain.OpUpdatePosition:
			if f.Target() == d.cfg.BoardID {
				d.joinPos = max(d.joinPos, f.Value())
			}
		}
	}
}

// settle waits for Settle while draining frames through the poll handler.
// With watchWest it returns early, reporting true, when the west line is
// asserted.
func (d *discoverer) settle(ctx context.Context, watchWest bool) (bool, error) {
	deadline := time.Now().Add(d.cfg.Settle)
	for {
		d.drain()
		if watchWest && d.matrix.ReadInputs().WestNeighbour() {
			return true, nil
		}
		left := time.Until(deadline)
		if left <= 0 {
			return false, nil
		}
		if err := d.sleep(ctx, min(left, d.cfg.PollInterval)); err != nil {
			return false, err
		}
	}
}

func (d *discoverer) sleep(ctx context.Context, t time.Duration) error {
	select {
	case <-time.After(t):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
