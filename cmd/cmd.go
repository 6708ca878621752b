// Package cmd holds what the synthchain commands share: logging setup, the
// audio output of a board and the periodic status view.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/luguan/synthchain"
	"github.com/luguan/synthchain/config"
	"github.com/luguan/synthchain/oto"
	"github.com/luguan/synthchain/record"
	"github.com/luguan/synthchain/status"
)

// NewLogger returns a text logger on stderr, at debug level when verbose.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// PlayAudio ticks src and sends its samples to the output selected by cfg
// until ctx is done. For a wav output, n > 0 stops after n samples.
func PlayAudio(ctx context.Context, src oto.TickSource, cfg config.Audio, n int, logger *slog.Logger) error {
	switch cfg.Output {
	case config.OutputOto:
		c, err := oto.NewContext()
		if err != nil {
			return err
		}
		p := c.Play(src, cfg.Gain)
		defer p.Close()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logger.Debug("output", "level", p.Level())
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	case config.OutputWAV:
		rec, err := record.Create(cfg.File)
		if err != nil {
			return err
		}
		clock := record.Clock{Source: src, Sink: rec, Realtime: true}
		err = clock.Run(ctx, n)
		if cerr := rec.Close(); err == nil {
			err = cerr
		}
		logger.Info("recording written", "file", cfg.File, "samples", rec.Frames())
		return err
	default:
		clock := record.Clock{Source: src, Sink: record.Discard, Realtime: true}
		return clock.Run(ctx, 0)
	}
}

// ShowStatus renders the state of store to w every interval until ctx is
// done. An empty tmpl uses the default view.
func ShowStatus(ctx context.Context, w io.Writer, store *synthchain.Store, interval time.Duration, tmpl string) error {
	r := status.Default()
	if tmpl != "" {
		var err error
		if r, err = status.New(tmpl); err != nil {
			return err
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.Render(w, status.Take(store)); err != nil {
				return err
			}
			fmt.Fprintln(w)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
