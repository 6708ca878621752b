// Package record writes board output to WAV files and drives the sample
// scheduler from a software clock when there is no sound card.
package record

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
	"github.com/luguan/synthchain"
	"github.com/viterin/vek/vek32"
)

type (
	// Recorder is an AudioSink writing a mono 16-bit WAV file.
	Recorder struct {
		file    *os.File
		encoder *wav.Encoder
		buf     []float32
		frames  int
	}

	// TickSource produces one sample per call. *synth.Scheduler implements
	// it.
	TickSource interface {
		Tick() uint8
	}

	// Clock calls Tick on a source at the sample rate and hands the samples
	// to a sink in blocks. Without Realtime it runs as fast as the sink
	// accepts samples.
	Clock struct {
		Source   TickSource
		Sink     synthchain.AudioSink
		Block    int
		Realtime bool
	}
)

const DefaultBlock = synthchain.HalfBufferSize

// Discard is an AudioSink that drops every sample. A Clock writing to it
// keeps a board's scheduler running without any output.
var Discard synthchain.AudioSink = discard{}

type discard struct{}

func (discard) WriteSamples([]uint8) error { return nil }
func (discard) Close() error               { return nil }

// Create creates the file at path and returns a recorder writing to it.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create recording: %w", err)
	}
	return &Recorder{
		file:    f,
		encoder: wav.NewEncoder(f, synthchain.SampleRate, 16, 1, 1),
	}, nil
}

// WriteSamples appends 8-bit samples, full scale mapping to 1.0.
func (r *Recorder) WriteSamples(samples []uint8) error {
	if cap(r.buf) < len(samples) {
		r.buf = make([]float32, len(samples))
	}
	buf := r.buf[:len(samples)]
	for i, v := range samples {
		buf[i] = float32(v)
	}
	vek32.MulNumber_Inplace(buf, 1.0/255)
	err := r.encoder.Write(&audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  synthchain.SampleRate,
			NumChannels: 1,
		},
		Data:           buf,
		SourceBitDepth: 16,
	})
	if err != nil {
		return fmt.Errorf("cannot write recording: %w", err)
	}
	r.frames += len(samples)
	return nil
}

// Frames is the number of samples written so far.
func (r *Recorder) Frames() int { return r.frames }

// Close finishes the WAV header and closes the file.
func (r *Recorder) Close() error {
	if err := r.encoder.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("cannot finish recording: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("cannot close recording: %w", err)
	}
	return nil
}

// Run produces samples until n samples were written (n > 0) or ctx is done.
func (c *Clock) Run(ctx context.Context, n int) error {
	block := c.Block
	if block <= 0 {
		block = DefaultBlock
	}
	buf := make([]uint8, block)
	var ticker *time.Ticker
	if c.Realtime {
		ticker = time.NewTicker(time.Duration(block) * time.Second / synthchain.SampleRate)
		defer ticker.Stop()
	}
	for written := 0; n <= 0 || written < n; {
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		m := block
		if n > 0 {
			m = min(m, n-written)
		}
		for i := range buf[:m] {
			buf[i] = c.Source.Tick()
		}
		if err := c.Sink.WriteSamples(buf[:m]); err != nil {
			return err
		}
		written += m
	}
	return nil
}
