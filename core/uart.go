package core

import "gobmc/protocol"

// UartBridge moves bytes between the UART FIFO register and a serial port
type UartBridge struct {
	uart  UARTDriver
	store *RegisterStore

	// Overflows counts received bytes dropped because the FIFO was full
	Overflows uint32
}

// NewUartBridge creates a bridge. uart may be nil on boards without one.
func NewUartBridge(uart UARTDriver, store *RegisterStore) *UartBridge {
	return &UartBridge{uart: uart, store: store}
}

// Init applies the power-on baud rate
func (u *UartBridge) Init() {
	if u.uart != nil {
		u.uart.SetBaudRate(u.store.Uint32(protocol.RegUartBaudRate))
	}
}

// HandleWrite reacts to host writes of the UART registers
func (u *UartBridge) HandleWrite(address uint8) {
	if u.uart == nil {
		return
	}
	switch address {
	case protocol.RegUartBaudRate:
		baud := u.store.Uint32(protocol.RegUartBaudRate)
		if baud == 0 {
			baud = DefaultUartBaudRate
			u.store.Set(protocol.RegUartBaudRate, baud)
		}
		DebugAsync("[UART] baud " + utoa(baud))
		u.uart.SetBaudRate(baud)
	case protocol.RegUartFifoControl:
		// Bit 0 flushes both directions
		if u.store.Uint8(protocol.RegUartFifoControl)&0x01 != 0 {
			u.store.RxFifo(protocol.RegUartBuffer).Reset()
			u.store.TxFifo(protocol.RegUartBuffer).Reset()
			u.store.Set(protocol.RegUartFifoControl, 0)
		}
	}
}

// Poll pumps bytes in both directions while the port is enabled and
// refreshes UartStatus
func (u *UartBridge) Poll() {
	rx := u.store.RxFifo(protocol.RegUartBuffer)
	tx := u.store.TxFifo(protocol.RegUartBuffer)

	if u.uart != nil && u.store.Uint8(protocol.RegUartControl)&ControlEnable != 0 {
		var b [1]byte
		sent := false
		for tx.Read(b[:]) == 1 {
			if err := u.uart.WriteByte(b[0]); err != nil {
				u.store.SetBits(protocol.RegUartStatus, uint32(protocol.StatusError))
				break
			}
			sent = true
		}
		if sent && tx.IsEmpty() {
			u.store.RaiseInterrupt(protocol.IrqUartTx)
		}

		received := false
		for u.uart.Buffered() > 0 {
			c, err := u.uart.ReadByte()
			if err != nil {
				u.store.SetBits(protocol.RegUartStatus, uint32(protocol.StatusError))
				break
			}
			if !rx.Push(c) {
				u.Overflows++
				u.store.SetBits(protocol.RegUartStatus, uint32(protocol.StatusRxOverflow))
				continue
			}
			received = true
		}
		if received {
			u.store.RaiseInterrupt(protocol.IrqUartRx)
		}
	}

	if rx.IsEmpty() {
		u.store.ClearBits(protocol.RegUartStatus, uint32(protocol.StatusRxReady))
	} else {
		u.store.SetBits(protocol.RegUartStatus, uint32(protocol.StatusRxReady))
	}
	if tx.IsEmpty() {
		u.store.SetBits(protocol.RegUartStatus, uint32(protocol.StatusTxEmpty))
	} else {
		u.store.ClearBits(protocol.RegUartStatus, uint32(protocol.StatusTxEmpty))
	}
}
