package bus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/luguan/synthchain"
	"github.com/luguan/synthchain/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowTransceiver completes transmissions only when told to.
type slowTransceiver struct {
	mu       sync.Mutex
	sent     []synthchain.Frame
	txDone   func()
	rx       func(synthchain.Frame)
	inFlight chan struct{}
}

func (s *slowTransceiver) Transmit(f synthchain.Frame) error {
	s.mu.Lock()
	s.sent = append(s.sent, f)
	s.mu.Unlock()
	s.inFlight <- struct{}{}
	return nil
}

func (s *slowTransceiver) Listen(rx func(synthchain.Frame), txDone func()) {
	s.rx, s.txDone = rx, txDone
}

func (s *slowTransceiver) complete() {
	<-s.inFlight
	s.txDone()
}

func (s *slowTransceiver) frames() []synthchain.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]synthchain.Frame(nil), s.sent...)
}

func TestRouterDeliversInOrderAcrossHub(t *testing.T) {
	hub := bus.NewHub()
	a := bus.NewRouter(hub.Attach(), bus.Config{})
	b := bus.NewRouter(hub.Attach(), bus.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	for k := 0; k < 10; k++ {
		require.NoError(t, a.Send(ctx, synthchain.KeyFrame(true, k, 3, 1)))
	}
	for k := 0; k < 10; k++ {
		f, err := b.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, k, f.Key(), "frames must arrive in FIFO order")
	}
	_, ok := a.TryReceive()
	assert.False(t, ok, "a hub does not loop frames back to the sender")
}

func TestRouterTransmitSlotsLimitInFlightFrames(t *testing.T) {
	trx := &slowTransceiver{inFlight: make(chan struct{}, 8)}
	r := bus.NewRouter(trx, bus.Config{TxSlots: 3})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	for k := 0; k < 5; k++ {
		require.NoError(t, r.Send(ctx, synthchain.TuneFrame(k)))
	}
	require.Eventually(t, func() bool { return len(trx.frames()) == 3 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, trx.frames(), 3, "no more than three frames may be in flight")

	trx.complete()
	require.Eventually(t, func() bool { return len(trx.frames()) == 4 }, time.Second, time.Millisecond)
	trx.complete()
	require.Eventually(t, func() bool { return len(trx.frames()) == 5 }, time.Second, time.Millisecond)
	for i, f := range trx.frames() {
		assert.Equal(t, i, f.Value())
	}
}

func TestRouterSendBlocksWhenQueueFull(t *testing.T) {
	trx := &slowTransceiver{inFlight: make(chan struct{}, 8)}
	r := bus.NewRouter(trx, bus.Config{OutQueueLen: 2})
	ctx := context.Background()
	require.NoError(t, r.Send(ctx, synthchain.TuneFrame(1)))
	require.NoError(t, r.Send(ctx, synthchain.TuneFrame(2)))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := r.Send(short, synthchain.TuneFrame(3))
	assert.ErrorIs(t, err, context.DeadlineExceeded, "a full queue applies backpressure instead of dropping")
}

func TestRouterReceiveHandlerNeverBlocks(t *testing.T) {
	trx := &slowTransceiver{inFlight: make(chan struct{}, 1)}
	r := bus.NewRouter(trx, bus.Config{InQueueLen: 2})
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			trx.rx(synthchain.PositionFrame(i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receive handler blocked on a full queue")
	}
	assert.Equal(t, uint64(3), r.Dropped())
	f, ok := r.TryReceive()
	require.True(t, ok)
	assert.Equal(t, 0, f.Value())
}

func TestTimeoutReceive(t *testing.T) {
	c := make(chan int, 1)
	_, ok := bus.TimeoutReceive(c, 5*time.Millisecond)
	assert.False(t, ok)
	assert.True(t, bus.TrySend(c, 7))
	assert.False(t, bus.TrySend(c, 8))
	v, ok := bus.TimeoutReceive(c, time.Second)
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}
