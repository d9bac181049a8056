// Package client talks the BMC register protocol from the host side.
package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"gobmc/protocol"
)

// Bus carries one transaction per call. Each call is a complete chip-select
// window.
type Bus interface {
	// Transfer clocks tx out, then clocks rxLen bytes back in
	Transfer(tx []byte, rxLen int) ([]byte, error)

	// LongTransfer clocks out a long-write header, gives the BMC time to
	// arm the payload phase, clocks out the payload, then reads rxLen bytes
	LongTransfer(header, payload []byte, rxLen int) ([]byte, error)
}

var (
	// ErrNoResponse means nothing that decodes as a response came back
	ErrNoResponse = errors.New("no response from BMC")
	// ErrShortResponse means a fixed-width read returned the wrong length
	ErrShortResponse = errors.New("response data has the wrong length")
	// ErrIncompatible means the BMC speaks an incompatible protocol version
	ErrIncompatible = errors.New("incompatible protocol version")
)

// ResultError is a well-formed response whose result was not Ok
type ResultError struct {
	Register uint8
	Result   protocol.ResponseResult
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("register 0x%02X: %s", e.Register, e.Result)
}

// Request kinds each keep their own Alt bit
const (
	kindRead = iota
	kindShortWrite
	kindLongWrite
	numKinds
)

// turnaround is the number of extra bytes clocked in after a response, so a
// BMC that is a little slow to stage its reply is still heard in full
const turnaround = 2

// Client issues register operations over a Bus
type Client struct {
	bus     Bus
	log     *zap.SugaredLogger
	retries uint64
	minWait time.Duration
	maxWait time.Duration

	alt [numKinds]bool
}

// Option configures a Client
type Option func(*Client)

// WithRetries sets how many times a failed exchange is resent
func WithRetries(n int) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.retries = uint64(n)
	}
}

// WithBackoff sets the first and the largest delay between retries
func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		c.minWait = min
		c.maxWait = max
	}
}

// WithLogger sets the logger used for retry diagnostics
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a client on bus
func New(bus Bus, opts ...Option) *Client {
	c := &Client{
		bus:     bus,
		log:     zap.NewNop().Sugar(),
		retries: 3,
		minWait: 2 * time.Millisecond,
		maxWait: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read reads a fixed-width register. n must equal the register width.
func (c *Client) Read(reg uint8, n uint8) ([]byte, error) {
	resp, err := c.exchange(kindRead, reg, func(alt bool) protocol.Request {
		return protocol.NewReadRequest(alt, reg, n)
	}, nil, int(n), int(n))
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != int(n) {
		return nil, fmt.Errorf("register 0x%02X: %w", reg, ErrShortResponse)
	}
	return resp.Data, nil
}

// ReadFIFO drains up to max bytes from a FIFO register. It may return fewer.
func (c *Client) ReadFIFO(reg uint8, max uint8) ([]byte, error) {
	resp, err := c.exchange(kindRead, reg, func(alt bool) protocol.Request {
		return protocol.NewReadRequest(alt, reg, max)
	}, nil, int(max), -1)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ShortWrite writes a single byte carried in the request itself
func (c *Client) ShortWrite(reg uint8, data uint8) error {
	_, err := c.exchange(kindShortWrite, reg, func(alt bool) protocol.Request {
		return protocol.NewShortWriteRequest(alt, reg, data)
	}, nil, 0, 0)
	return err
}

// LongWrite writes data in a two-phase transaction
func (c *Client) LongWrite(reg uint8, data []byte) error {
	if len(data) == 0 || len(data) > protocol.MaxRegisterLen {
		return fmt.Errorf("register 0x%02X: %w", reg, protocol.ErrBadLength)
	}
	_, err := c.exchange(kindLongWrite, reg, func(alt bool) protocol.Request {
		return protocol.NewLongWriteRequest(alt, reg, uint8(len(data)))
	}, data, 0, 0)
	return err
}

// Write picks a short write for single bytes and a long write otherwise
func (c *Client) Write(reg uint8, data []byte) error {
	if len(data) == 1 {
		return c.ShortWrite(reg, data[0])
	}
	return c.LongWrite(reg, data)
}

// ProtocolVersion reads the protocol version the BMC implements
func (c *Client) ProtocolVersion() (protocol.ProtocolVersion, error) {
	data, err := c.Read(protocol.RegProtocolVersion, 3)
	if err != nil {
		return protocol.ProtocolVersion{}, err
	}
	return protocol.ParseProtocolVersion(data)
}

// FirmwareVersion reads the firmware version string
func (c *Client) FirmwareVersion() (string, error) {
	data, err := c.Read(protocol.RegFirmwareVersion, protocol.FirmwareStringLen)
	if err != nil {
		return "", err
	}
	n := 0
	for n < len(data) && data[n] != 0 {
		n++
	}
	return string(data[:n]), nil
}

// CheckCompatible fails unless the BMC can serve a host built for required
func (c *Client) CheckCompatible(required protocol.ProtocolVersion) error {
	v, err := c.ProtocolVersion()
	if err != nil {
		return err
	}
	if !v.IsCompatibleWith(required) {
		return fmt.Errorf("%w: BMC has %s, need %s", ErrIncompatible, v, required)
	}
	return nil
}

// exchange sends one request, retrying with identical bytes until a response
// decodes. The Alt bit for the kind only flips once the BMC has answered, so
// a retry of a request that did execute is replayed instead of run twice.
func (c *Client) exchange(kind int, reg uint8, build func(alt bool) protocol.Request, payload []byte, maxLen, want int) (protocol.Response, error) {
	req := build(c.alt[kind])
	wire := req.Bytes()
	rxLen := maxLen + protocol.ResponseOverhead + turnaround

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.minWait
	b.MaxInterval = c.maxWait
	b.MaxElapsedTime = 0

	var resp protocol.Response
	attempt := 0
	op := func() error {
		attempt++
		var rx []byte
		var err error
		if payload != nil {
			rx, err = c.bus.LongTransfer(wire[:], payload, rxLen)
		} else {
			rx, err = c.bus.Transfer(wire[:], rxLen)
		}
		if err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
		resp, err = decode(rx, want)
		if err != nil {
			return err
		}
		if resp.Result == protocol.ResultCrcFailure {
			return &ResultError{Register: reg, Result: resp.Result}
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.Debugw("retrying request",
			"request", fmt.Sprintf("% X", wire[:]),
			"attempt", attempt,
			"wait", wait,
			"error", err)
	}

	if err := backoff.RetryNotify(op, backoff.WithMaxRetries(b, c.retries), notify); err != nil {
		return protocol.Response{}, fmt.Errorf("register 0x%02X: %w", reg, err)
	}

	c.alt[kind] = !c.alt[kind]
	if resp.Result != protocol.ResultOk {
		return resp, &ResultError{Register: reg, Result: resp.Result}
	}
	return resp, nil
}

// decode finds the response in the bytes clocked back. Leading filler from
// a slow turnaround is skipped. An Ok reply to a fixed-width request has a
// known length; otherwise the frame ends where the CRC checks and only 0x00
// filler follows. want is the expected data length, or -1 when it is not
// known.
func decode(rx []byte, want int) (protocol.Response, error) {
	start := 0
	for start < len(rx) && (rx[start] == 0x00 || rx[start] == 0xFF) {
		start++
	}
	if start == len(rx) {
		return protocol.Response{}, ErrNoResponse
	}
	var n int
	if want >= 0 && rx[start] == uint8(protocol.ResultOk) {
		n = want + protocol.ResponseOverhead
		if start+n > len(rx) {
			return protocol.Response{}, ErrNoResponse
		}
	} else {
		var ok bool
		n, ok = protocol.FindResponseEnd(rx[start:])
		if !ok {
			return protocol.Response{}, ErrNoResponse
		}
	}
	resp, err := protocol.ResponseFromBytes(rx[start : start+n])
	if err != nil {
		return protocol.Response{}, err
	}
	// Copy out of the bus buffer
	resp.Data = append([]byte(nil), resp.Data...)
	return resp, nil
}
