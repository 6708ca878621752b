package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/luguan/synthchain"
	"golang.org/x/sync/semaphore"
)

type (
	// Transceiver is the bus controller. Transmit hands a frame to a free
	// transmit slot and may return before the frame is on the wire; the
	// controller calls txDone once per transmitted frame when the slot frees
	// up. rx is called for every received frame, possibly from a goroutine
	// that stands for the receive interrupt, and must not block.
	Transceiver interface {
		Transmit(f synthchain.Frame) error
		Listen(rx func(synthchain.Frame), txDone func())
	}

	// Router is the message router of one board. Outgoing frames go through
	// a bounded queue drained by the transmit task (Run); Send blocks while
	// the queue is full. Incoming frames are put on a bounded queue by the
	// receive handler, which never blocks: a frame arriving at a full queue
	// is dropped and counted.
	Router struct {
		out   chan synthchain.Frame
		in    chan synthchain.Frame
		slots *semaphore.Weighted
		trx   Transceiver

		dropped atomic.Uint64
		sent    atomic.Uint64
		logger  *slog.Logger
	}

	Config struct {
		OutQueueLen int
		InQueueLen  int
		TxSlots     int64
		Logger      *slog.Logger
	}
)

const (
	DefaultQueueLen = 36
	DefaultTxSlots  = 3
)

var ErrClosed = errors.New("bus: router closed")

func NewRouter(trx Transceiver, cfg Config) *Router {
	if cfg.OutQueueLen <= 0 {
		cfg.OutQueueLen = DefaultQueueLen
	}
	if cfg.InQueueLen <= 0 {
		cfg.InQueueLen = DefaultQueueLen
	}
	if cfg.TxSlots <= 0 {
		cfg.TxSlots = DefaultTxSlots
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := &Router{
		out:    make(chan synthchain.Frame, cfg.OutQueueLen),
		in:     make(chan synthchain.Frame, cfg.InQueueLen),
		slots:  semaphore.NewWeighted(cfg.TxSlots),
		trx:    trx,
		logger: cfg.Logger,
	}
	trx.Listen(r.receive, r.transmitDone)
	return r
}

// Send queues a frame for transmission, blocking while the outgoing queue is
// full.
func (r *Router) Send(ctx context.Context, f synthchain.Frame) error {
	select {
	case r.out <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transmit bypasses the outgoing queue and hands the frame straight to the
// controller once a transmit slot is free. Discovery uses it before the
// transmit task runs.
func (r *Router) Transmit(ctx context.Context, f synthchain.Frame) error {
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := r.trx.Transmit(f); err != nil {
		r.slots.Release(1)
		return fmt.Errorf("bus: transmit %v: %w", f, err)
	}
	r.sent.Add(1)
	return nil
}

// Receive blocks until an incoming frame is available.
func (r *Router) Receive(ctx context.Context) (synthchain.Frame, error) {
	select {
	case f, ok := <-r.in:
		if !ok {
			return f, ErrClosed
		}
		return f, nil
	case <-ctx.Done():
		return synthchain.Frame{}, ctx.Err()
	}
}

// TryReceive returns the next incoming frame without blocking.
func (r *Router) TryReceive() (synthchain.Frame, bool) {
	select {
	case f := <-r.in:
		return f, true
	default:
		return synthchain.Frame{}, false
	}
}

// Run is the transmit task: it drains the outgoing queue in FIFO order,
// waiting for a free transmit slot before each frame.
func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case f := <-r.out:
			if err := r.Transmit(ctx, f); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("frame lost", "frame", f, "err", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Dropped is the number of received frames lost to a full incoming queue.
func (r *Router) Dropped() uint64 { return r.dropped.Load() }

// Sent is the number of frames handed to the controller.
func (r *Router) Sent() uint64 { return r.sent.Load() }

func (r *Router) receive(f synthchain.Frame) {
	if !TrySend(r.in, f) {
		r.dropped.Add(1)
	}
}

func (r *Router) transmitDone() {
	r.slots.Release(1)
}

// TrySend sends a value to a channel if it is not full. It never blocks and
// reports whether the value was sent.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value is received from a channel or t has
// passed. ok is false on timeout or if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
