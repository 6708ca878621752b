package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/luguan/synthchain"
	"github.com/luguan/synthchain/board"
	"github.com/luguan/synthchain/bus"
	"github.com/luguan/synthchain/cmd"
	"github.com/luguan/synthchain/config"
	"github.com/luguan/synthchain/input"
	"github.com/luguan/synthchain/record"
	"github.com/luguan/synthchain/sim"
	"github.com/luguan/synthchain/version"
	"golang.org/x/sync/errgroup"
)

type options struct {
	boards     int
	configFile string
	pulse      time.Duration
	wavFile    string
	seconds    float64
	keys       bool
	midiIn     string
	midiBase   uint
	verbose    bool
}

func main() {
	var o options
	flag.IntVar(&o.boards, "n", 3, "Number of boards in the chain.")
	flag.StringVar(&o.configFile, "c", "", "YAML configuration applied to every board.")
	flag.DurationVar(&o.pulse, "pulse", 200*time.Millisecond, "Length of the discovery handshake pulse and settle time.")
	flag.StringVar(&o.wavFile, "wav", "", "Record the output to a .wav file instead of playing it.")
	flag.Float64Var(&o.seconds, "t", 10, "Length of the recording in seconds.")
	flag.BoolVar(&o.keys, "keys", true, "Play from the terminal: zsxdcvgbhnjm is the first board, q2w3er5t6y7u the second. Esc quits.")
	flag.StringVar(&o.midiIn, "midi", "", "Play from the first MIDI input whose name starts with this prefix; \"*\" takes any input.")
	flag.UintVar(&o.midiBase, "midibase", 48, "MIDI note played by the first key of the first board.")
	flag.BoolVar(&o.verbose, "v", false, "Log debug messages.")
	versionFlag := flag.Bool("version", false, "Print version.")
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}
	if o.boards < 1 || o.boards > synthchain.MaxBoards {
		fmt.Fprintf(os.Stderr, "the chain holds 1 to %d boards\n", synthchain.MaxBoards)
		os.Exit(2)
	}
	logger := cmd.NewLogger(o.verbose)
	if err := run(o, logger); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, input.ErrQuit) {
		logger.Error("simulation stopped", "err", err)
		os.Exit(1)
	}
}

func run(o options, logger *slog.Logger) error {
	cfg := config.Default()
	if o.configFile != "" {
		var err error
		if cfg, err = config.Load(o.configFile); err != nil {
			return fmt.Errorf("could not load configuration: %w", err)
		}
	}
	cfg.Discovery.Pulse, cfg.Discovery.Settle = o.pulse, o.pulse
	cfg.Board.Position = -1
	if o.wavFile != "" {
		cfg.Audio.Output, cfg.Audio.File = config.OutputWAV, o.wavFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chain := sim.NewChain(o.boards)
	hub := bus.NewHub()
	if o.verbose {
		hub.Tap(func(from int, f synthchain.Frame) { logger.Debug("bus", "from", from, "frame", f) })
	}
	g, ctx := errgroup.WithContext(ctx)
	targets := make([]input.KeyTarget, chain.Len())
	all := make([]*board.Board, chain.Len())
	for i := range all {
		router := bus.NewRouter(hub.Attach(), cfg.RouterConfig(logger))
		b := board.New(cfg.BoardConfig(uint8(i+1), logger), chain.Board(i), router, cfg.Settings, board.KnobMapper{})
		all[i], targets[i] = b, chain.Board(i)
		g.Go(func() error { return b.Run(ctx) })
	}

	g.Go(func() error {
		for _, b := range all {
			select {
			case <-b.Ready():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		logger.Info("chain ready", "boards", len(all))
		for _, b := range all {
			if b.Store().PosID() == 0 {
				g.Go(func() error {
					err := cmd.PlayAudio(ctx, b.Scheduler(), cfg.Audio, int(o.seconds*synthchain.SampleRate), logger)
					if err == nil {
						cancel()
					}
					return err
				})
				if cfg.Status.Interval > 0 {
					g.Go(func() error {
						return cmd.ShowStatus(ctx, os.Stderr, b.Store(), cfg.Status.Interval, cfg.Status.Template)
					})
				}
				continue
			}
			clock := record.Clock{Source: b.Scheduler(), Sink: record.Discard, Realtime: true}
			g.Go(func() error { return clock.Run(ctx, 0) })
		}
		return nil
	})

	if o.midiIn != "" {
		prefix := o.midiIn
		if prefix == "*" {
			prefix = ""
		}
		m := &input.MIDI{Boards: targets, Base: uint8(o.midiBase), Logger: logger}
		closeMIDI, err := input.OpenMIDI(prefix, m)
		if err != nil {
			cancel()
			g.Wait()
			return fmt.Errorf("could not open midi input: %w", err)
		}
		defer closeMIDI()
	}
	if o.keys {
		term := &input.Terminal{Boards: targets, Layout: input.DefaultLayout(), Logger: logger}
		g.Go(func() error { return term.Run(ctx) })
	}
	return g.Wait()
}
