// Package sim simulates the input matrix hardware of a chain of boards. The
// handshake lines a board drives show up on the adjacency bits of its
// neighbours, so discovery can run against it unchanged.
package sim

import (
	"sync"

	"github.com/luguan/synthchain"
)

type (
	// Chain is a row of physically adjacent boards, west to east.
	Chain struct {
		mu     sync.Mutex
		boards []*Board
	}

	// Board is the simulated matrix of one board. It implements
	// synthchain.Matrix.
	Board struct {
		chain *Chain
		index int

		// guarded by chain.mu
		inputs     synthchain.Inputs // keys, knobs, clicks, joystick
		west, east bool              // handshake outputs
		unplugged  bool
	}
)

// NewChain creates n boards with all keys released.
func NewChain(n int) *Chain {
	c := &Chain{}
	for i := 0; i < n; i++ {
		c.boards = append(c.boards, &Board{chain: c, index: i, inputs: synthchain.AllInputsOff})
	}
	return c
}

// Board returns the board at physical index i (0 is the west end).
func (c *Chain) Board(i int) *Board { return c.boards[i] }

func (c *Chain) Len() int { return len(c.boards) }

func (b *Board) ReadInputs() synthchain.Inputs {
	c := b.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	in := b.inputs
	in = in.WithBit(synthchain.BitWest, !c.asserts(b.index-1, true))
	in = in.WithBit(synthchain.BitEast, !c.asserts(b.index+1, false))
	return in
}

// asserts reports whether board i drives its handshake line towards the
// neighbour on its east (towardsEast) or west side.
func (c *Chain) asserts(i int, towardsEast bool) bool {
	if i < 0 || i >= len(c.boards) || c.boards[i].unplugged {
		return false
	}
	if towardsEast {
		return c.boards[i].east
	}
	return c.boards[i].west
}

func (b *Board) SetHandshake(west, east bool) {
	b.chain.mu.Lock()
	defer b.chain.mu.Unlock()
	b.west, b.east = west, east
}

// Handshake returns the current handshake outputs.
func (b *Board) Handshake() (west, east bool) {
	b.chain.mu.Lock()
	defer b.chain.mu.Unlock()
	return b.west, b.east
}

// Unplug removes the board from the chain electrically: its neighbours stop
// seeing its handshake lines.
func (b *Board) Unplug() {
	b.chain.mu.Lock()
	defer b.chain.mu.Unlock()
	b.unplugged = true
}

// SetKey presses or releases one key.
func (b *Board) SetKey(key int, pressed bool) {
	b.set(synthchain.BitKey0+key, !pressed)
}

// SetKeys sets the raw key lines; a 0 bit is a pressed key.
func (b *Board) SetKeys(raw uint16) {
	for k := 0; k < synthchain.KeysPerBoard; k++ {
		b.set(synthchain.BitKey0+k, raw>>k&1 == 1)
	}
}

// SetKnobBits sets the quadrature pair of matrix pair i (which belongs to
// knob 3-i).
func (b *Board) SetKnobBits(pair int, bits uint8) {
	b.set(synthchain.BitKnobs+2*pair, bits&1 == 1)
	b.set(synthchain.BitKnobs+2*pair+1, bits&2 == 2)
}

// SetClick presses or releases the push button of knob i.
func (b *Board) SetClick(knob int, pressed bool) {
	bit := synthchain.BitClicksLo + knob
	if knob >= 2 {
		bit = synthchain.BitClicksHi + knob - 2
	}
	b.set(bit, !pressed)
}

func (b *Board) SetJoystick(pressed bool) {
	b.set(synthchain.BitJoystick, !pressed)
}

func (b *Board) set(bit int, v bool) {
	b.chain.mu.Lock()
	defer b.chain.mu.Unlock()
	b.inputs = b.inputs.WithBit(bit, v)
}
