// Package protocol implements the Host-BMC register protocol
package protocol

import "errors"

// Version is the firmware release string reported in the FirmwareVersion register
const Version = "gobmc v0.1.0"

// Protocol constants
const (
	RequestLen        = 4 // type + register + length/data + CRC
	ResponseMin       = 2 // result + CRC
	ResponseOverhead  = 2 // bytes a Response adds around its data
	RequestCRCOffset  = 3
	FirmwareStringLen = 32

	// FillerByte is clocked out by the BMC when it has nothing to send
	FillerByte byte = 0x00
)

// Errors returned by the codec
var (
	ErrBadCrc            = errors.New("bad CRC")
	ErrBadLength         = errors.New("bad length")
	ErrBadRequestType    = errors.New("bad request type")
	ErrBufferTooSmall    = errors.New("buffer too small")
	ErrBadResponseResult = errors.New("bad response result")
)

// Sendable is anything that can be rendered onto the wire
type Sendable interface {
	// RenderToBuffer copies the wire bytes into buffer and returns how many
	// were written. It fails with ErrBufferTooSmall if they do not fit.
	RenderToBuffer(buffer []byte) (int, error)
}

// RequestType is the first byte of every Request
type RequestType uint8

const (
	RequestRead          RequestType = 0xC0
	RequestReadAlt       RequestType = 0xC1
	RequestShortWrite    RequestType = 0xC2
	RequestShortWriteAlt RequestType = 0xC3
	RequestLongWrite     RequestType = 0xC4
	RequestLongWriteAlt  RequestType = 0xC5
)

// ParseRequestType converts a wire byte into a RequestType
func ParseRequestType(b byte) (RequestType, error) {
	switch t := RequestType(b); t {
	case RequestRead, RequestReadAlt,
		RequestShortWrite, RequestShortWriteAlt,
		RequestLongWrite, RequestLongWriteAlt:
		return t, nil
	}
	return 0, ErrBadRequestType
}

// IsRead reports whether t is either Read variant
func (t RequestType) IsRead() bool {
	return t == RequestRead || t == RequestReadAlt
}

// IsShortWrite reports whether t is either Short Write variant
func (t RequestType) IsShortWrite() bool {
	return t == RequestShortWrite || t == RequestShortWriteAlt
}

// IsLongWrite reports whether t is either Long Write variant
func (t RequestType) IsLongWrite() bool {
	return t == RequestLongWrite || t == RequestLongWriteAlt
}

// IsAlt reports whether t is the alternate form of its kind
func (t RequestType) IsAlt() bool {
	return t&0x01 != 0
}

// Base returns the plain (non-Alt) form of t
func (t RequestType) Base() RequestType {
	return t &^ 0x01
}

func (t RequestType) String() string {
	switch t {
	case RequestRead:
		return "Read"
	case RequestReadAlt:
		return "ReadAlt"
	case RequestShortWrite:
		return "ShortWrite"
	case RequestShortWriteAlt:
		return "ShortWriteAlt"
	case RequestLongWrite:
		return "LongWrite"
	case RequestLongWriteAlt:
		return "LongWriteAlt"
	}
	return "RequestType(0x" + hexByte(uint8(t)) + ")"
}

// ResponseResult is the first byte of every Response
type ResponseResult uint8

const (
	// ResultOk means the Request was understood and actioned.
	ResultOk ResponseResult = 0xA0
	// ResultCrcFailure means the Request failed its CRC check.
	ResultCrcFailure ResponseResult = 0xA1
	// ResultBadRequestType means the Request Type was not known, or is not
	// allowed on the addressed register.
	ResultBadRequestType ResponseResult = 0xA2
	// ResultBadRegister means the addressed register does not exist.
	ResultBadRegister ResponseResult = 0xA3
	// ResultBadLength means the given number of bytes cannot be read from or
	// written to the addressed register.
	ResultBadLength ResponseResult = 0xA4
)

// ParseResponseResult converts a wire byte into a ResponseResult
func ParseResponseResult(b byte) (ResponseResult, error) {
	switch r := ResponseResult(b); r {
	case ResultOk, ResultCrcFailure, ResultBadRequestType, ResultBadRegister, ResultBadLength:
		return r, nil
	}
	return 0, ErrBadResponseResult
}

func (r ResponseResult) String() string {
	switch r {
	case ResultOk:
		return "Ok"
	case ResultCrcFailure:
		return "CrcFailure"
	case ResultBadRequestType:
		return "BadRequestType"
	case ResultBadRegister:
		return "BadRegister"
	case ResultBadLength:
		return "BadLength"
	}
	return "ResponseResult(0x" + hexByte(uint8(r)) + ")"
}

// ResultForError maps a codec error onto the result reported to the host.
// ErrBadCrc has no mapping because a corrupted frame is never answered.
func ResultForError(err error) (ResponseResult, bool) {
	switch {
	case errors.Is(err, ErrBadRequestType):
		return ResultBadRequestType, true
	case errors.Is(err, ErrBadLength), errors.Is(err, ErrBufferTooSmall):
		return ResultBadLength, true
	}
	return 0, false
}

const hexDigits = "0123456789ABCDEF"

func hexByte(b uint8) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0F]})
}
