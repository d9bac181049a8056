package protocol

// Request is made by the host to the BMC. It is always four bytes long.
type Request struct {
	Type         RequestType
	Register     uint8
	LengthOrData uint8
	crc          uint8
}

func newRequest(t RequestType, register, lengthOrData uint8) Request {
	req := Request{
		Type:         t,
		Register:     register,
		LengthOrData: lengthOrData,
	}
	b := req.Bytes()
	req.crc = CalculateCRC(b[:RequestCRCOffset])
	return req
}

// NewReadRequest asks for length bytes from register.
// Flip useAlt on every successive read so that the BMC can tell a
// retransmission from a new request.
func NewReadRequest(useAlt bool, register, length uint8) Request {
	t := RequestRead
	if useAlt {
		t = RequestReadAlt
	}
	return newRequest(t, register, length)
}

// NewShortWriteRequest writes a single byte to register
func NewShortWriteRequest(useAlt bool, register, data uint8) Request {
	t := RequestShortWrite
	if useAlt {
		t = RequestShortWriteAlt
	}
	return newRequest(t, register, data)
}

// NewLongWriteRequest announces that length payload bytes for register
// follow the request header
func NewLongWriteRequest(useAlt bool, register, length uint8) Request {
	t := RequestLongWrite
	if useAlt {
		t = RequestLongWriteAlt
	}
	return newRequest(t, register, length)
}

// CRC returns the CRC byte carried by the request
func (r Request) CRC() uint8 {
	return r.crc
}

// Bytes returns the wire form of the request
func (r Request) Bytes() [RequestLen]byte {
	return [RequestLen]byte{uint8(r.Type), r.Register, r.LengthOrData, r.crc}
}

// RenderToBuffer implements Sendable
func (r Request) RenderToBuffer(buffer []byte) (int, error) {
	b := r.Bytes()
	if len(buffer) < len(b) {
		return 0, ErrBufferTooSmall
	}
	return copy(buffer, b[:]), nil
}

// RequestFromBytes decodes a request, checking its CRC
func RequestFromBytes(data []byte) (Request, error) {
	if len(data) < RequestLen {
		return Request{}, ErrBadLength
	}
	return RequestFromBytesWithCRC(data, CalculateCRC(data[:RequestLen]))
}

// RequestFromBytesWithCRC decodes a request whose CRC was accumulated while
// the bytes arrived. calcCRC covers all four bytes, so a valid frame gives 0.
func RequestFromBytesWithCRC(data []byte, calcCRC uint8) (Request, error) {
	if len(data) < RequestLen {
		return Request{}, ErrBadLength
	}
	if calcCRC != 0 {
		return Request{}, ErrBadCrc
	}
	t, err := ParseRequestType(data[0])
	if err != nil {
		return Request{}, err
	}
	return Request{
		Type:         t,
		Register:     data[1],
		LengthOrData: data[2],
		crc:          data[3],
	}, nil
}
