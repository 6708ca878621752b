// Package oto plays the output of a board on the host sound card. The audio
// device pulls samples, so its callback takes the place of the sample
// interrupt: every requested sample is one Tick of the scheduler.
package oto

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/luguan/synthchain"
)

type (
	// TickSource produces one 8-bit sample per call. *synth.Scheduler
	// implements it.
	TickSource interface {
		Tick() uint8
	}

	Context struct {
		ctx *oto.Context
	}

	// Player reads samples from a TickSource on the audio thread.
	Player struct {
		player *oto.Player
		src    TickSource
		gain   float32

		mu      sync.Mutex // guards the scratch buffers inside Read
		raw     []uint8
		samples []float32
		power   []float32

		level atomic.Uint32 // float32 bits of the last block's RMS level
	}
)

// bufferSize is the size of the device buffer in samples.
const bufferSize = 512

// NewContext opens the default output device at the board sample rate.
func NewContext() (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   synthchain.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize * time.Second / synthchain.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx}, nil
}

// Play starts pulling samples from src. gain scales full scale (255) to the
// float output range.
func (c *Context) Play(src TickSource, gain float32) *Player {
	p := &Player{src: src, gain: gain}
	p.player = c.ctx.NewPlayer(p)
	p.player.Play()
	return p
}

func (c *Context) Suspend() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Read implements io.Reader for the oto player.
func (p *Player) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(b) / 4
	if cap(p.raw) < n {
		p.raw = make([]uint8, n)
		p.samples = make([]float32, n)
		p.power = make([]float32, n)
	}
	raw, samples := p.raw[:n], p.samples[:n]
	for i := range raw {
		raw[i] = p.src.Tick()
	}
	SamplesToFloat(samples, raw, p.gain)
	p.level.Store(math.Float32bits(RMS(p.power[:n], samples)))
	FloatBufferToLE(b, samples)
	return n * 4, nil
}

// Level is the RMS level of the most recently played block.
func (p *Player) Level() float32 { return math.Float32frombits(p.level.Load()) }

func (p *Player) Close() error {
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
