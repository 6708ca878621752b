// Package board runs one keyboard board: discovery at boot, then the key
// scan, decode, transmit and synthesis tasks side by side.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/luguan/synthchain"
	"github.com/luguan/synthchain/bus"
	"github.com/luguan/synthchain/discovery"
	"github.com/luguan/synthchain/synth"
	"golang.org/x/sync/errgroup"
)

type (
	Config struct {
		BoardID    uint8
		ScanPeriod time.Duration
		// Discover runs discovery over the handshake lines. Without it the
		// board takes Position, which is what boards on a network transport
		// do since they have no handshake lines.
		Discover  bool
		Position  int
		Discovery discovery.Config
		Logger    *slog.Logger
	}

	Board struct {
		cfg     Config
		store   *synthchain.Store
		matrix  synthchain.Matrix
		router  *bus.Router
		scanner *Scanner
		decoder *Decoder
		sched   *synth.Scheduler
		engine  *synth.Engine
		ready   chan struct{}
	}
)

const DefaultScanPeriod = 20 * time.Millisecond

// New creates a board. Nothing runs until Run is called; the scheduler must
// be ticked by the caller at the sample rate.
func New(cfg Config, matrix synthchain.Matrix, router *bus.Router, settings synthchain.Settings, ui SettingsUI) *Board {
	if cfg.ScanPeriod <= 0 {
		cfg.ScanPeriod = DefaultScanPeriod
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("board", cfg.BoardID)
	cfg.Discovery.Logger = logger
	cfg.Discovery.BoardID = cfg.BoardID
	store := synthchain.NewStore(cfg.BoardID, settings)
	sched := synth.NewScheduler(store)
	return &Board{
		cfg:     cfg,
		store:   store,
		matrix:  matrix,
		router:  router,
		scanner: NewScanner(store, matrix, router, ui, logger),
		decoder: NewDecoder(store, router, logger),
		sched:   sched,
		engine:  synth.NewEngine(store, sched, logger),
		ready:   make(chan struct{}),
	}
}

func (b *Board) Store() *synthchain.Store    { return b.store }
func (b *Board) Scheduler() *synth.Scheduler { return b.sched }
func (b *Board) Router() *bus.Router         { return b.router }
func (b *Board) Matrix() synthchain.Matrix   { return b.matrix }
func (b *Board) Ready() <-chan struct{}      { return b.ready }

// Run finds the position of the board and then runs all tasks until ctx is
// done or one of them fails.
func (b *Board) Run(ctx context.Context) error {
	pos, err := b.locate(ctx)
	if err != nil {
		return fmt.Errorf("board %d: %w", b.cfg.BoardID, err)
	}
	b.store.All(func(sys *synthchain.SystemState, _ *synthchain.NoteTable, set *synthchain.Settings) {
		sys.PosID = pos.Position
		sys.WestDetect, sys.EastDetect = pos.WestNeighbour, pos.EastNeighbour
		set.Tune = synthchain.TuneForPosition(pos.Position)
	})
	close(b.ready)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.router.Run(ctx) })
	g.Go(func() error { return b.scanner.Run(ctx, b.cfg.ScanPeriod) })
	g.Go(func() error { return b.decoder.Run(ctx, b.router) })
	g.Go(func() error { return b.engine.Run(ctx) })
	return g.Wait()
}

func (b *Board) locate(ctx context.Context) (discovery.Result, error) {
	if b.cfg.Discover {
		return discovery.Run(ctx, b.matrix, b.router, b.cfg.Discovery)
	}
	b.matrix.SetHandshake(true, true)
	in := b.matrix.ReadInputs()
	return discovery.Result{
		Position:      b.cfg.Position,
		WestNeighbour: in.WestNeighbour(),
		EastNeighbour: in.EastNeighbour(),
	}, nil
}
