package bridge

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Bridge commands. Every command is answered with one status byte. Only an
// OK status is followed by the rlen bytes clocked in from the BMC; a refused
// command gets the status byte alone.
//
//	'T' wlen rlen [w...]             one chip-select window
//	'L' hlen plen rlen [h...] [p...] long write: header, settle, payload
const (
	cmdTransfer     = 'T'
	cmdLongTransfer = 'L'
)

// Status codes sent by the adapter
const (
	statusOK      = 0x00
	statusBadCmd  = 0x01
	statusTooLong = 0x02
	statusBusy    = 0x03
)

// MaxTransfer is the most bytes a single bridge command can move
// in one direction
const MaxTransfer = 255

var (
	// ErrTooLong means a transfer does not fit a bridge command
	ErrTooLong = errors.New("transfer too long for bridge")
	// ErrBridgeStatus means the adapter refused a command
	ErrBridgeStatus = errors.New("bridge reported an error")
)

// Bridge drives a SPI bridge adapter and implements client.Bus
type Bridge struct {
	mu   sync.Mutex
	port Port
	log  *zap.SugaredLogger
}

// New wraps port
func New(port Port, log *zap.SugaredLogger) *Bridge {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Bridge{port: port, log: log}
}

// Transfer clocks tx out under one chip-select window, then rxLen bytes in
func (b *Bridge) Transfer(tx []byte, rxLen int) ([]byte, error) {
	if len(tx) > MaxTransfer || rxLen > MaxTransfer {
		return nil, ErrTooLong
	}
	cmd := make([]byte, 0, 3+len(tx))
	cmd = append(cmd, cmdTransfer, byte(len(tx)), byte(rxLen))
	cmd = append(cmd, tx...)
	return b.roundTrip(cmd, rxLen)
}

// LongTransfer runs a two-phase long write in one chip-select window. The
// adapter pauses between header and payload so the BMC can arm for the
// payload.
func (b *Bridge) LongTransfer(header, payload []byte, rxLen int) ([]byte, error) {
	if len(header) > MaxTransfer || len(payload) > MaxTransfer || rxLen > MaxTransfer {
		return nil, ErrTooLong
	}
	cmd := make([]byte, 0, 4+len(header)+len(payload))
	cmd = append(cmd, cmdLongTransfer, byte(len(header)), byte(len(payload)), byte(rxLen))
	cmd = append(cmd, header...)
	cmd = append(cmd, payload...)
	return b.roundTrip(cmd, rxLen)
}

// Close closes the underlying port
func (b *Bridge) Close() error {
	return b.port.Close()
}

func (b *Bridge) roundTrip(cmd []byte, rxLen int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.port.Write(cmd); err != nil {
		return nil, fmt.Errorf("bridge write: %w", err)
	}

	var status [1]byte
	if _, err := io.ReadFull(b.port, status[:]); err != nil {
		b.flush()
		return nil, fmt.Errorf("bridge read: %w", err)
	}
	if status[0] != statusOK {
		b.log.Debugw("bridge refused command", "cmd", string(cmd[0]), "status", status[0])
		return nil, fmt.Errorf("%w: %s", ErrBridgeStatus, statusText(status[0]))
	}

	reply := make([]byte, rxLen)
	if _, err := io.ReadFull(b.port, reply); err != nil {
		b.flush()
		return nil, fmt.Errorf("bridge read: %w", err)
	}
	return reply, nil
}

// flush drops whatever is left of a short reply so it cannot desync the
// next command
func (b *Bridge) flush() {
	if err := b.port.Flush(); err != nil {
		b.log.Warnw("flush after short read failed", "error", err)
	}
}

func statusText(s byte) string {
	switch s {
	case statusBadCmd:
		return "unknown command"
	case statusTooLong:
		return "transfer too long"
	case statusBusy:
		return "bus busy"
	default:
		return fmt.Sprintf("status 0x%02X", s)
	}
}
