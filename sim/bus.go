package sim

import (
	"errors"
	"sync"
)

// ErrClosed is returned by a Bus after Close
var ErrClosed = errors.New("sim: bus closed")

// Bus carries host transactions to a simulated board. Each call is one
// chip-select window: the request bytes are clocked in, the firmware main
// loop runs, and rxLen bytes are clocked out.
type Bus struct {
	mu     sync.Mutex
	board  *Board
	closed bool

	corrupt int
	drop    int
}

// NewBus attaches a bus to board
func NewBus(board *Board) *Bus {
	return &Bus{board: board}
}

// Open builds a fresh simulated board and returns a bus to it
func Open() (*Bus, error) {
	board, err := NewBoard()
	if err != nil {
		return nil, err
	}
	return NewBus(board), nil
}

// Board returns the simulated board behind the bus
func (b *Bus) Board() *Board {
	return b.board
}

// CorruptRequests flips a bit in the next n requests on their way to the
// board, so the firmware sees a CRC error and stays silent
func (b *Bus) CorruptRequests(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.corrupt = n
}

// DropResponses loses the next n responses on their way back, after the
// firmware has executed the request. The host sees only filler.
func (b *Bus) DropResponses(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drop = n
}

// Transfer runs a single-phase transaction
func (b *Bus) Transfer(tx []byte, rxLen int) ([]byte, error) {
	return b.exchange(tx, nil, rxLen)
}

// LongTransfer runs a two-phase long write: the header, a main loop pass
// that arms the payload phase, then the payload
func (b *Bus) LongTransfer(header, payload []byte, rxLen int) ([]byte, error) {
	return b.exchange(header, payload, rxLen)
}

// Close stops the bus
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Bus) exchange(header, payload []byte, rxLen int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	p := b.board.Peripheral
	header = append([]byte(nil), header...)
	if b.corrupt > 0 && len(header) > 1 {
		b.corrupt--
		header[1] ^= 0x01
	}

	p.Select(true)
	for _, c := range header {
		p.Clock(c)
	}
	b.board.Poll()
	if payload != nil {
		for _, c := range payload {
			p.Clock(c)
		}
		b.board.Poll()
	}

	rx := make([]byte, rxLen)
	for i := range rx {
		rx[i] = p.Clock(0x00)
	}
	p.Select(false)
	b.board.Poll()

	if b.drop > 0 {
		b.drop--
		for i := range rx {
			rx[i] = 0x00
		}
	}
	return rx, nil
}
