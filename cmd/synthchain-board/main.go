package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/luguan/synthchain/board"
	"github.com/luguan/synthchain/bus"
	"github.com/luguan/synthchain/bus/rpcbus"
	"github.com/luguan/synthchain/cmd"
	"github.com/luguan/synthchain/config"
	"github.com/luguan/synthchain/input"
	"github.com/luguan/synthchain/sim"
	"github.com/luguan/synthchain/version"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFile := flag.String("c", "board.yaml", "YAML configuration of the board.")
	keys := flag.Bool("keys", true, "Play the board from the terminal keys zsxdcvgbhnjm. Esc quits.")
	verbose := flag.Bool("v", false, "Log debug messages.")
	versionFlag := flag.Bool("version", false, "Print version.")
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}
	logger := cmd.NewLogger(*verbose)
	if err := run(*configFile, *keys, logger); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, input.ErrQuit) {
		logger.Error("board stopped", "err", err)
		os.Exit(1)
	}
}

func run(configFile string, keys bool, logger *slog.Logger) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if cfg.Bus.Transport != config.TransportRPC {
		return fmt.Errorf("a single board needs the %q transport, got %q", config.TransportRPC, cfg.Bus.Transport)
	}
	// The neighbours' handshake lines are not wired over the network: the
	// board sits in a simulated chain as long as the peer list, and every
	// other board of that chain holds its lines asserted.
	chain := sim.NewChain(len(cfg.Bus.Peers) + 1)
	if cfg.Board.Position >= chain.Len() {
		return fmt.Errorf("position %d outside a chain of %d boards", cfg.Board.Position, chain.Len())
	}
	for i := 0; i < chain.Len(); i++ {
		if i != cfg.Board.Position {
			chain.Board(i).SetHandshake(true, true)
		}
	}
	matrix := chain.Board(cfg.Board.Position)

	transport, err := rpcbus.Listen(cfg.Bus.Listen, cfg.Bus.Peers, logger)
	if err != nil {
		return err
	}
	defer transport.Close()
	router := bus.NewRouter(transport, cfg.RouterConfig(logger))
	b := board.New(cfg.BoardConfig(cfg.Board.ID, logger), matrix, router, cfg.Settings, board.KnobMapper{})
	logger.Info("board starting", "id", cfg.Board.ID, "position", cfg.Board.Position, "listen", transport.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(ctx) })
	g.Go(func() error {
		select {
		case <-b.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
		return cmd.PlayAudio(ctx, b.Scheduler(), cfg.Audio, 0, logger)
	})
	if cfg.Status.Interval > 0 {
		g.Go(func() error {
			return cmd.ShowStatus(ctx, os.Stdout, b.Store(), cfg.Status.Interval, cfg.Status.Template)
		})
	}
	if keys {
		term := &input.Terminal{Boards: []input.KeyTarget{matrix}, Layout: input.DefaultLayout(), Logger: logger}
		g.Go(func() error { return term.Run(ctx) })
	}
	return g.Wait()
}
