package protocol

// CRC-8 with polynomial 0x07, init 0x00, no reflection, no final XOR,
// computed bit by bit.
const crcPolynomial = 0x07

func crcInit() uint8 {
	return 0x00
}

// crcUpdate shifts every bit of data, MSB first, through the CRC register
func crcUpdate(crc uint8, data []byte) uint8 {
	for _, c := range data {
		crc = crcUpdateByte(crc, c)
	}
	return crc
}

// crcUpdateByte is the allocation-free single byte step used from
// interrupt context
func crcUpdateByte(crc uint8, c byte) uint8 {
	for i := 0; i < 8; i++ {
		top := crc&0x80 != 0
		crc = (crc << 1) | ((c >> (7 - i)) & 0x01)
		if top {
			crc ^= crcPolynomial
		}
	}
	return crc
}

// crcFinalize pushes eight zero bits so that a frame carrying its own CRC
// reduces to zero
func crcFinalize(crc uint8) uint8 {
	for i := 0; i < 8; i++ {
		top := crc&0x80 != 0
		crc <<= 1
		if top {
			crc ^= crcPolynomial
		}
	}
	return crc
}

// CRCCalc calculates a CRC-8 one byte at a time
type CRCCalc struct {
	state uint8
}

// NewCRCCalc creates a CRC calculator in its initial state
func NewCRCCalc() CRCCalc {
	return CRCCalc{state: crcInit()}
}

// Reset returns the calculator to its initial state
func (c *CRCCalc) Reset() {
	c.state = crcInit()
}

// Add feeds a single byte
func (c *CRCCalc) Add(b byte) {
	c.state = crcUpdateByte(c.state, b)
}

// AddBuffer feeds several bytes
func (c *CRCCalc) AddBuffer(data []byte) {
	c.state = crcUpdate(c.state, data)
}

// Get returns the CRC of everything added so far. It does not disturb the
// running state, so more bytes may be added afterwards.
func (c *CRCCalc) Get() uint8 {
	return crcFinalize(c.state)
}

// CalculateCRC returns the CRC-8 of data
func CalculateCRC(data []byte) uint8 {
	calc := NewCRCCalc()
	calc.AddBuffer(data)
	return calc.Get()
}
