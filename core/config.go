package core

import "gobmc/protocol"

// Transport buffer sizes. The receive side holds either a request or a
// long-write payload; the transmit side holds the largest response.
const (
	RxCapacity = protocol.MaxRegisterLen + 8
	TxCapacity = protocol.MaxRegisterLen + protocol.ResponseOverhead + 6

	// TxFiller is clocked out when no response byte is staged
	TxFiller = protocol.FillerByte
)

// Main loop intervals
const (
	LedBlinkIntervalMS   = 1000
	ButtonPollIntervalMS = 75
	SensorPollIntervalMS = 500

	// Ps2IdleTicks is how many quiet button polls abandon a partial PS/2 word
	Ps2IdleTicks = 3

	// Debounce depths, in button polls
	ShortPressPolls = 2
	LongPressPolls  = 16

	// desyncPolls is how many consecutive polls may see a busy transport
	// with chip select released before the peripheral is reset
	desyncPolls = 2
)

// Register defaults applied at power-on
const (
	DefaultUartBaudRate     = 115200
	DefaultI2cBaudRate      = 100000
	DefaultSpeakerDutyCycle = 127
	DefaultSpeakerPeriod    = SpeakerTickHz / 440 // A4
	SpeakerTickHz           = 48000
)

// Control register bits shared by the UART and PS/2 ports
const (
	ControlEnable uint8 = 1 << 0
)

// I2cControl bits
const (
	I2cControlStart uint8 = 1 << 1 // run the queued transaction
)
