package protocol

// Access describes what the host may do with a register
type Access uint8

const (
	// AccessRO registers can only be read.
	AccessRO Access = iota + 1
	// AccessRW registers can be read and written.
	AccessRW
	// AccessRW1C registers read back a bitmask; writing a 1 bit clears it.
	AccessRW1C
	// AccessFIFO registers drain queued bytes on read and queue bytes on write.
	AccessFIFO
)

func (a Access) String() string {
	switch a {
	case AccessRO:
		return "RO"
	case AccessRW:
		return "R/W"
	case AccessRW1C:
		return "R/W1C"
	case AccessFIFO:
		return "FIFO"
	}
	return "?"
}

// Writable reports whether the host may write a register with this access
func (a Access) Writable() bool {
	return a == AccessRW || a == AccessRW1C || a == AccessFIFO
}

// Register addresses
const (
	RegProtocolVersion   uint8 = 0x00
	RegFirmwareVersion   uint8 = 0x01
	RegInterruptStatus   uint8 = 0x10
	RegInterruptControl  uint8 = 0x11
	RegButtonStatus      uint8 = 0x20
	RegSystemTemperature uint8 = 0x21
	RegSystemVoltage33S  uint8 = 0x22
	RegSystemVoltage33   uint8 = 0x23
	RegSystemVoltage55   uint8 = 0x24
	RegPowerControl      uint8 = 0x25
	RegUartBuffer        uint8 = 0x30
	RegUartFifoControl   uint8 = 0x31
	RegUartControl       uint8 = 0x32
	RegUartStatus        uint8 = 0x33
	RegUartBaudRate      uint8 = 0x34
	RegPs2KbBuffer       uint8 = 0x40
	RegPs2KbControl      uint8 = 0x41
	RegPs2KbStatus       uint8 = 0x42
	RegPs2MouseBuffer    uint8 = 0x50
	RegPs2MouseControl   uint8 = 0x51
	RegPs2MouseStatus    uint8 = 0x52
	RegI2cBuffer         uint8 = 0x60
	RegI2cFifoControl    uint8 = 0x61
	RegI2cControl        uint8 = 0x62
	RegI2cStatus         uint8 = 0x63
	RegI2cBaudRate       uint8 = 0x64
	RegSpeakerDuration   uint8 = 0x70
	RegSpeakerPeriodLow  uint8 = 0x71
	RegSpeakerPeriodHigh uint8 = 0x72
	RegSpeakerDutyCycle  uint8 = 0x73
)

// FIFO capacities
const (
	UartFifoCapacity = 64
	Ps2FifoCapacity  = 16
	I2cFifoCapacity  = 16

	// MaxRegisterLen is the largest number of bytes any single register
	// transfer can carry.
	MaxRegisterLen = UartFifoCapacity
)

// InterruptStatus / InterruptControl bits
const (
	IrqPowerButton uint16 = 1 << iota
	IrqResetButton
	IrqUartRx
	IrqUartTx
	IrqPs2KbRx
	IrqPs2MouseRx
	IrqI2c
	IrqPowerState
)

// ButtonStatus bits
const (
	ButtonPower uint8 = 1 << 0
	ButtonReset uint8 = 1 << 1
)

// Status register bits shared by the UART, PS/2 and I2C status registers
const (
	StatusRxReady    uint8 = 1 << 0
	StatusRxOverflow uint8 = 1 << 1
	StatusTxEmpty    uint8 = 1 << 2
	StatusError      uint8 = 1 << 3
)

// PowerControl values
const (
	PowerOff uint8 = 0x00
	PowerOn  uint8 = 0x01
)

// RegisterInfo describes one entry of the register map
type RegisterInfo struct {
	Address     uint8
	Name        string
	Len         uint8 // exact width, or FIFO capacity
	Access      Access
	Description string
}

// IsFIFO reports whether the register is a FIFO
func (r RegisterInfo) IsFIFO() bool {
	return r.Access == AccessFIFO
}

// ValidReadLen reports whether a read of n bytes is acceptable
func (r RegisterInfo) ValidReadLen(n uint8) bool {
	if r.IsFIFO() {
		return n >= 1 && n <= r.Len
	}
	return n == r.Len
}

// ValidWriteLen reports whether a write of n bytes is acceptable
func (r RegisterInfo) ValidWriteLen(n uint8) bool {
	return r.ValidReadLen(n)
}

var registerTable = [...]RegisterInfo{
	{RegProtocolVersion, "ProtocolVersion", 3, AccessRO, "protocol version as major, minor, patch"},
	{RegFirmwareVersion, "FirmwareVersion", FirmwareStringLen, AccessRO, "firmware version, NUL padded UTF-8"},
	{RegInterruptStatus, "InterruptStatus", 2, AccessRW1C, "active interrupts, u16le bitmask"},
	{RegInterruptControl, "InterruptControl", 2, AccessRW, "enabled interrupts, u16le bitmask"},
	{RegButtonStatus, "ButtonStatus", 1, AccessRO, "current state of the buttons"},
	{RegSystemTemperature, "SystemTemperature", 1, AccessRO, "temperature in degrees C, i8"},
	{RegSystemVoltage33S, "SystemVoltage33S", 1, AccessRO, "standby 3.3V rail in V/32"},
	{RegSystemVoltage33, "SystemVoltage33", 1, AccessRO, "main 3.3V rail in V/32"},
	{RegSystemVoltage55, "SystemVoltage55", 1, AccessRO, "5.0V rail in V/32"},
	{RegPowerControl, "PowerControl", 1, AccessRW, "enable/disable the DC power supply"},
	{RegUartBuffer, "UartBuffer", UartFifoCapacity, AccessFIFO, "UART receive/transmit data"},
	{RegUartFifoControl, "UartFifoControl", 1, AccessRW, "UART FIFO settings"},
	{RegUartControl, "UartControl", 1, AccessRW, "UART settings"},
	{RegUartStatus, "UartStatus", 1, AccessRW1C, "UART state"},
	{RegUartBaudRate, "UartBaudRate", 4, AccessRW, "UART baud rate in bps, u32le"},
	{RegPs2KbBuffer, "Ps2KbBuffer", Ps2FifoCapacity, AccessFIFO, "PS/2 keyboard receive/transmit data"},
	{RegPs2KbControl, "Ps2KbControl", 1, AccessRW, "PS/2 keyboard port settings"},
	{RegPs2KbStatus, "Ps2KbStatus", 1, AccessRW1C, "PS/2 keyboard port state"},
	{RegPs2MouseBuffer, "Ps2MouseBuffer", Ps2FifoCapacity, AccessFIFO, "PS/2 mouse receive/transmit data"},
	{RegPs2MouseControl, "Ps2MouseControl", 1, AccessRW, "PS/2 mouse port settings"},
	{RegPs2MouseStatus, "Ps2MouseStatus", 1, AccessRW1C, "PS/2 mouse port state"},
	{RegI2cBuffer, "I2cBuffer", I2cFifoCapacity, AccessFIFO, "I2C receive/transmit data"},
	{RegI2cFifoControl, "I2cFifoControl", 1, AccessRW, "I2C FIFO settings"},
	{RegI2cControl, "I2cControl", 1, AccessRW, "I2C bus settings"},
	{RegI2cStatus, "I2cStatus", 1, AccessRW1C, "I2C bus state"},
	{RegI2cBaudRate, "I2cBaudRate", 4, AccessRW, "I2C clock rate in Hz, u32le"},
	{RegSpeakerDuration, "SpeakerDuration", 1, AccessRW, "note duration in milliseconds"},
	{RegSpeakerPeriodLow, "SpeakerPeriodLow", 1, AccessRW, "low byte of period in 48kHz ticks"},
	{RegSpeakerPeriodHigh, "SpeakerPeriodHigh", 1, AccessRW, "high byte of period in 48kHz ticks"},
	{RegSpeakerDutyCycle, "SpeakerDutyCycle", 1, AccessRW, "duty cycle in 1/255"},
}

// registerIndex maps an address to its position in registerTable plus one,
// so that zero means unknown
var registerIndex = func() (idx [256]uint8) {
	for i := range registerTable {
		idx[registerTable[i].Address] = uint8(i + 1)
	}
	return
}()

// LookupRegister finds the register at address
func LookupRegister(address uint8) (RegisterInfo, bool) {
	i := registerIndex[address]
	if i == 0 {
		return RegisterInfo{}, false
	}
	return registerTable[i-1], true
}

// LookupRegisterByName finds a register by its name
func LookupRegisterByName(name string) (RegisterInfo, bool) {
	for i := range registerTable {
		if registerTable[i].Name == name {
			return registerTable[i], true
		}
	}
	return RegisterInfo{}, false
}

// Registers returns the register map in address order
func Registers() []RegisterInfo {
	out := make([]RegisterInfo, len(registerTable))
	copy(out, registerTable[:])
	return out
}
