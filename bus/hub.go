package bus

import (
	"sync"

	"github.com/luguan/synthchain"
)

type (
	// Hub is an in-memory shared bus. Every frame transmitted on a port is
	// delivered to all other ports before Transmit returns, like a CAN bus
	// without loopback.
	Hub struct {
		mu    sync.RWMutex
		ports []*Port
		taps  []func(from int, f synthchain.Frame)
	}

	// Port is one board's attachment to a Hub.
	Port struct {
		hub    *Hub
		id     int
		rx     func(synthchain.Frame)
		txDone func()
	}
)

func NewHub() *Hub {
	return &Hub{}
}

// Attach returns a new port on the hub.
func (h *Hub) Attach() *Port {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := &Port{hub: h, id: len(h.ports)}
	h.ports = append(h.ports, p)
	return p
}

// Tap registers fn to observe every frame on the bus, with the index of the
// sending port.
func (h *Hub) Tap(fn func(from int, f synthchain.Frame)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.taps = append(h.taps, fn)
}

func (p *Port) Listen(rx func(synthchain.Frame), txDone func()) {
	p.hub.mu.Lock()
	defer p.hub.mu.Unlock()
	p.rx = rx
	p.txDone = txDone
}

func (p *Port) Transmit(f synthchain.Frame) error {
	p.hub.mu.RLock()
	for _, q := range p.hub.ports {
		if q != p && q.rx != nil {
			q.rx(f)
		}
	}
	for _, tap := range p.hub.taps {
		tap(p.id, f)
	}
	done := p.txDone
	p.hub.mu.RUnlock()
	if done != nil {
		done()
	}
	return nil
}

// ID is the index of the port on its hub.
func (p *Port) ID() int { return p.id }
