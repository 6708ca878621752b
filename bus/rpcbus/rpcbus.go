// Package rpcbus carries bus frames between boards running as separate
// processes. Every board serves a net/rpc endpoint over HTTP and dials all
// its peers; a transmitted frame is delivered to every peer in turn by a
// single sender goroutine, so frames from one board keep their order.
package rpcbus

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/rpc"
	"sync"
	"time"

	"github.com/luguan/synthchain"
	"github.com/luguan/synthchain/bus"
)

type (
	// Endpoint is the RPC service receiving frames from peers.
	Endpoint struct {
		t *Transport
	}

	Transport struct {
		listener net.Listener
		peers    []string
		clients  []*rpc.Client
		out      chan synthchain.Frame
		done     chan struct{}

		mu     sync.Mutex
		rx     func(synthchain.Frame)
		txDone func()

		dialRetry time.Duration
		logger    *slog.Logger
	}
)

const outQueueLen = 16

// Deliver is called by peers for every frame they transmit.
func (e *Endpoint) Deliver(f synthchain.Frame, reply *int) error {
	e.t.mu.Lock()
	rx := e.t.rx
	e.t.mu.Unlock()
	if rx != nil {
		rx(f)
	}
	return nil
}

// Listen starts serving on addr and prepares connections to the peers. The
// peers are dialled lazily, so boards can be started in any order.
func Listen(addr string, peers []string, logger *slog.Logger) (*Transport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpcbus: listen on %v: %w", addr, err)
	}
	t := &Transport{
		listener:  l,
		peers:     peers,
		clients:   make([]*rpc.Client, len(peers)),
		out:       make(chan synthchain.Frame, outQueueLen),
		done:      make(chan struct{}),
		dialRetry: 100 * time.Millisecond,
		logger:    logger,
	}
	server := rpc.NewServer()
	if err := server.RegisterName("Bus", &Endpoint{t: t}); err != nil {
		l.Close()
		return nil, fmt.Errorf("rpcbus: register endpoint: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, server)
	go http.Serve(l, mux)
	go t.sender()
	return t, nil
}

// Addr is the address the transport listens on.
func (t *Transport) Addr() string { return t.listener.Addr().String() }

func (t *Transport) Listen(rx func(synthchain.Frame), txDone func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rx = rx
	t.txDone = txDone
}

func (t *Transport) Transmit(f synthchain.Frame) error {
	select {
	case <-t.done:
		return bus.ErrClosed
	default:
	}
	select {
	case t.out <- f:
		return nil
	case <-t.done:
		return bus.ErrClosed
	}
}

func (t *Transport) Close() error {
	close(t.done)
	return t.listener.Close()
}

func (t *Transport) sender() {
	for {
		select {
		case f := <-t.out:
			for i := range t.peers {
				if err := t.deliver(i, f); err != nil {
					t.logger.Warn("frame not delivered", "peer", t.peers[i], "frame", f, "err", err)
				}
			}
			t.mu.Lock()
			done := t.txDone
			t.mu.Unlock()
			if done != nil {
				done()
			}
		case <-t.done:
			for _, c := range t.clients {
				if c != nil {
					c.Close()
				}
			}
			return
		}
	}
}

func (t *Transport) deliver(i int, f synthchain.Frame) error {
	if t.clients[i] == nil {
		c, err := t.dial(t.peers[i])
		if err != nil {
			return err
		}
		t.clients[i] = c
	}
	var reply int
	if err := t.clients[i].Call("Bus.Deliver", f, &reply); err != nil {
		t.clients[i].Close()
		t.clients[i] = nil
		return fmt.Errorf("rpcbus: Bus.Deliver: %w", err)
	}
	return nil
}

func (t *Transport) dial(addr string) (*rpc.Client, error) {
	for attempt := 0; ; attempt++ {
		c, err := rpc.DialHTTP("tcp", addr)
		if err == nil {
			return c, nil
		}
		if attempt == 10 {
			return nil, fmt.Errorf("rpcbus: dial %v: %w", addr, err)
		}
		select {
		case <-time.After(t.dialRetry):
		case <-t.done:
			return nil, bus.ErrClosed
		}
	}
}
