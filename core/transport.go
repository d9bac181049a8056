package core

import (
	"errors"
	"sync/atomic"

	"gobmc/protocol"
)

// Transport errors
var (
	ErrRxOverflow    = errors.New("receive length exceeds buffer")
	ErrTxOverflow    = errors.New("transmit length exceeds buffer")
	ErrBusy          = errors.New("previous frame not released")
	ErrNoTransaction = errors.New("no transaction in progress")
)

// TransportState is where the transport is within a chip-select window
type TransportState uint32

const (
	StateIdle TransportState = iota
	StateReceiving
	StateFrameReady
	StateTransmitting
)

func (s TransportState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateReceiving:
		return "Receiving"
	case StateFrameReady:
		return "FrameReady"
	case StateTransmitting:
		return "Transmitting"
	}
	return "Unknown"
}

// Transport moves frames between the SPI peripheral and fixed buffers.
//
// Select, Deselect and HandleInterrupt run in interrupt context. The main
// loop picks up a completed frame with Acquire, reads it with Received and
// finishes it with SetTransmit, Rearm or Release.
type Transport struct {
	spi     SPIPeripheral
	handoff Handoff
	state   atomic.Uint32
	txn     atomic.Uint32

	rx    [RxCapacity]byte
	rxLen int
	rxPos int
	crc   protocol.CRCCalc

	tx    [TxCapacity]byte
	txLen int
	txPos int

	// Dropped counts transactions ignored because the main loop still held
	// the previous frame
	Dropped uint32
}

// NewTransport creates a transport on top of a peripheral
func NewTransport(spi SPIPeripheral) *Transport {
	return &Transport{
		spi: spi,
		crc: protocol.NewCRCCalc(),
	}
}

// State returns the current transport state
func (t *Transport) State() TransportState {
	return TransportState(t.state.Load())
}

// Transaction returns a counter that advances on every chip-select assertion
func (t *Transport) Transaction() uint32 {
	return t.txn.Load()
}

func (t *Transport) setState(s TransportState) {
	t.state.Store(uint32(s))
}

// Start arms the transport to receive n bytes
func (t *Transport) Start(n int) error {
	if n > RxCapacity {
		return ErrRxOverflow
	}
	if t.handoff.Busy() {
		return ErrBusy
	}
	t.arm(n)
	return nil
}

func (t *Transport) arm(n int) {
	t.rxLen = n
	t.rxPos = 0
	t.crc.Reset()
	t.setState(StateReceiving)
	t.spi.SetRxInterrupt(true)
}

// Select is called from the chip-select interrupt when the host asserts CS
func (t *Transport) Select() {
	t.txn.Add(1)
	t.txLen = 0
	t.txPos = 0
	t.spi.Enable()
	if err := t.Start(protocol.RequestLen); err != nil {
		if errors.Is(err, ErrBusy) {
			t.Dropped++
			RecordEvent(EvtBusyDrop, 0, t.Dropped)
			return
		}
		Halt("transport: " + err.Error())
	}
}

// Deselect is called from the chip-select interrupt when the host releases
// CS. A partial frame is discarded and an unclaimed frame is withdrawn.
func (t *Transport) Deselect() {
	t.spi.SetRxInterrupt(false)
	t.spi.SetTxInterrupt(false)
	t.spi.Disable()
	if t.handoff.Retract() {
		RecordEvent(EvtRetract, 0, uint32(t.rxPos))
	}
	t.setState(StateIdle)
}

// HandleInterrupt services the SPI interrupt. It returns true exactly once
// per armed transaction, when the last expected byte has been stored.
func (t *Transport) HandleInterrupt() bool {
	done := false
	status := t.spi.Status()

	if status&SPIRxNotEmpty != 0 {
		b := t.spi.ReadData()
		if t.State() == StateReceiving && t.rxPos < t.rxLen {
			t.rx[t.rxPos] = b
			t.rxPos++
			t.crc.Add(b)
			if t.rxPos == t.rxLen {
				t.spi.SetRxInterrupt(false)
				t.setState(StateFrameReady)
				t.handoff.Publish()
				done = true
			}
		}
	}

	if status&SPITxEmpty != 0 && t.State() == StateTransmitting {
		b := TxFiller
		if t.txPos < t.txLen {
			b = t.tx[t.txPos]
			t.txPos++
		}
		t.spi.WriteData(b)
	}

	return done
}

// Acquire claims the frame published by the interrupt handler
func (t *Transport) Acquire() bool {
	return t.handoff.Acquire()
}

// Release ends the main loop's hold on the current frame without replying
func (t *Transport) Release() {
	t.handoff.Release()
}

// Received returns the bytes of the acquired frame and the CRC accumulated
// over them. The slice aliases the receive buffer and is only valid until
// the frame is released.
func (t *Transport) Received() ([]byte, uint8) {
	return t.rx[:t.rxPos], t.crc.Get()
}

// Rearm starts the second receive phase of the current transaction, such as
// a long-write payload, and releases the acquired frame.
func (t *Transport) Rearm(n int) error {
	if n > RxCapacity {
		return ErrRxOverflow
	}

	state := disableInterrupts()
	defer restoreInterrupts(state)

	if t.State() != StateFrameReady {
		t.handoff.Release()
		return ErrNoTransaction
	}
	t.handoff.Release()
	t.arm(n)
	return nil
}

// SetTransmit stages data to be clocked out and releases the acquired frame
func (t *Transport) SetTransmit(data []byte) error {
	if len(data) > TxCapacity {
		t.Release()
		return ErrTxOverflow
	}

	state := disableInterrupts()
	defer restoreInterrupts(state)

	t.handoff.Release()
	if t.State() != StateFrameReady {
		return ErrNoTransaction
	}
	t.txLen = copy(t.tx[:], data)
	t.txPos = 0
	t.setState(StateTransmitting)
	t.spi.SetTxInterrupt(true)
	return nil
}

// SetTransmitSendable renders s straight into the transmit buffer
func (t *Transport) SetTransmitSendable(s protocol.Sendable) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	t.handoff.Release()
	if t.State() != StateFrameReady {
		return ErrNoTransaction
	}
	n, err := s.RenderToBuffer(t.tx[:])
	if err != nil {
		return ErrTxOverflow
	}
	t.txLen = n
	t.txPos = 0
	t.setState(StateTransmitting)
	t.spi.SetTxInterrupt(true)
	return nil
}

// Reset puts the peripheral and the transport back to their initial state,
// dropping any frame in flight
func (t *Transport) Reset() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	t.spi.Reset()
	t.handoff.Release()
	t.rxLen = 0
	t.rxPos = 0
	t.txLen = 0
	t.txPos = 0
	t.crc.Reset()
	t.setState(StateIdle)
}

// Selected reports whether the host is asserting chip select
func (t *Transport) Selected() bool {
	return t.spi.Selected()
}
