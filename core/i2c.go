package core

import "gobmc/protocol"

// I2cBridge runs host-queued transactions on the I2C bus.
//
// The host writes the 7-bit device address followed by any bytes to send
// into I2cBuffer, puts the number of bytes to read back in I2cFifoControl,
// and sets the start bit in I2cControl. The bytes read land in the receive
// side of I2cBuffer and IrqI2c is raised.
type I2cBridge struct {
	bus   I2CDriver
	store *RegisterStore

	scratch [protocol.I2cFifoCapacity]byte
	read    [protocol.I2cFifoCapacity]byte
}

// NewI2cBridge creates a bridge. bus may be nil on boards without one.
func NewI2cBridge(bus I2CDriver, store *RegisterStore) *I2cBridge {
	return &I2cBridge{bus: bus, store: store}
}

// Init applies the power-on bus clock
func (b *I2cBridge) Init() error {
	if b.bus == nil {
		return nil
	}
	return b.bus.SetBaudRate(b.store.Uint32(protocol.RegI2cBaudRate))
}

// HandleWrite reacts to host writes of the I2C registers
func (b *I2cBridge) HandleWrite(address uint8) {
	if b.bus == nil {
		return
	}
	switch address {
	case protocol.RegI2cBaudRate:
		rate := b.store.Uint32(protocol.RegI2cBaudRate)
		if rate == 0 {
			rate = DefaultI2cBaudRate
			b.store.Set(protocol.RegI2cBaudRate, rate)
		}
		if err := b.bus.SetBaudRate(rate); err != nil {
			b.store.SetBits(protocol.RegI2cStatus, uint32(protocol.StatusError))
		}
	case protocol.RegI2cControl:
		if b.store.Uint8(protocol.RegI2cControl)&I2cControlStart != 0 {
			b.run()
			b.store.ClearBits(protocol.RegI2cControl, uint32(I2cControlStart))
		}
	}
}

func (b *I2cBridge) run() {
	tx := b.store.TxFifo(protocol.RegI2cBuffer)
	rx := b.store.RxFifo(protocol.RegI2cBuffer)

	n := tx.Read(b.scratch[:])
	if n == 0 {
		b.store.SetBits(protocol.RegI2cStatus, uint32(protocol.StatusError))
		return
	}
	addr := uint16(b.scratch[0] & 0x7F)
	readLen := int(b.store.Uint8(protocol.RegI2cFifoControl))
	if readLen > rx.Free() {
		readLen = rx.Free()
	}

	if err := b.bus.Tx(addr, b.scratch[1:n], b.read[:readLen]); err != nil {
		DebugAsync("[I2C] tx 0x" + hex8(uint8(addr)) + ": " + err.Error())
		b.store.SetBits(protocol.RegI2cStatus, uint32(protocol.StatusError))
	} else {
		rx.Write(b.read[:readLen])
	}
	b.store.RaiseInterrupt(protocol.IrqI2c)
}

// Poll refreshes I2cStatus
func (b *I2cBridge) Poll() {
	if b.store.RxFifo(protocol.RegI2cBuffer).IsEmpty() {
		b.store.ClearBits(protocol.RegI2cStatus, uint32(protocol.StatusRxReady))
	} else {
		b.store.SetBits(protocol.RegI2cStatus, uint32(protocol.StatusRxReady))
	}
	if b.store.TxFifo(protocol.RegI2cBuffer).IsEmpty() {
		b.store.SetBits(protocol.RegI2cStatus, uint32(protocol.StatusTxEmpty))
	} else {
		b.store.ClearBits(protocol.RegI2cStatus, uint32(protocol.StatusTxEmpty))
	}
}
