package record_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/luguan/synthchain"
	"github.com/luguan/synthchain/record"
	"github.com/luguan/synthchain/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ramp struct{ n uint8 }

func (r *ramp) Tick() uint8 {
	r.n++
	return r.n
}

type collect struct {
	samples []uint8
	closed  bool
}

func (c *collect) WriteSamples(s []uint8) error {
	c.samples = append(c.samples, s...)
	return nil
}

func (c *collect) Close() error {
	c.closed = true
	return nil
}

func TestClockWritesExactCount(t *testing.T) {
	sink := &collect{}
	clock := record.Clock{Source: &ramp{}, Sink: sink, Block: 100}
	require.NoError(t, clock.Run(context.Background(), 250))
	require.Len(t, sink.samples, 250)
	for i, v := range sink.samples {
		assert.Equal(t, uint8(i+1), v)
	}
}

func TestClockStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	clock := record.Clock{Source: &ramp{}, Sink: &collect{}, Realtime: true}
	assert.ErrorIs(t, clock.Run(ctx, 0), context.Canceled)
}

func TestRecorderWritesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	rec, err := record.Create(path)
	require.NoError(t, err)

	store := synthchain.NewStore(1, synthchain.DefaultSettings())
	store.System(func(sys *synthchain.SystemState) { sys.PosID = 0 })
	store.Notes(func(n *synthchain.NoteTable) { n.Press(4, 9) })
	sched := synth.NewScheduler(store)
	engine := synth.NewEngine(store, sched, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	clock := record.Clock{Source: sched, Sink: rec}
	require.NoError(t, clock.Run(ctx, synthchain.SampleRate/10))
	assert.Equal(t, synthchain.SampleRate/10, rec.Frames())
	require.NoError(t, rec.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
}
