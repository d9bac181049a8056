package protocol

// Response is sent by the BMC in reply to a Request.
//
// Data borrows the caller's buffer; it is only valid until that buffer is
// reused for the next transaction.
type Response struct {
	Result ResponseResult
	Data   []byte
	crc    uint8
}

// NewOkResponse makes an Ok response carrying data
func NewOkResponse(data []byte) Response {
	calc := NewCRCCalc()
	calc.Add(uint8(ResultOk))
	calc.AddBuffer(data)
	return Response{
		Result: ResultOk,
		Data:   data,
		crc:    calc.Get(),
	}
}

// NewErrorResponse makes a response with no data. Error results never carry
// a payload.
func NewErrorResponse(result ResponseResult) Response {
	calc := NewCRCCalc()
	calc.Add(uint8(result))
	return Response{
		Result: result,
		crc:    calc.Get(),
	}
}

// CRC returns the CRC byte carried by the response
func (r Response) CRC() uint8 {
	return r.crc
}

// Len returns the number of bytes on the wire
func (r Response) Len() int {
	return len(r.Data) + ResponseOverhead
}

// RenderToBuffer implements Sendable
func (r Response) RenderToBuffer(buffer []byte) (int, error) {
	n := r.Len()
	if len(buffer) < n {
		return 0, ErrBufferTooSmall
	}
	buffer[0] = uint8(r.Result)
	copy(buffer[1:], r.Data)
	buffer[n-1] = r.crc
	return n, nil
}

// Bytes renders the response into a new slice
func (r Response) Bytes() []byte {
	buf := make([]byte, r.Len())
	r.RenderToBuffer(buf)
	return buf
}

// ResponseFromBytes decodes a response occupying all of data
func ResponseFromBytes(data []byte) (Response, error) {
	return ResponseFromBytesWithCRC(data, CalculateCRC(data))
}

// ResponseFromBytesWithCRC decodes a response whose CRC over all of data was
// already calculated. The caller must know the total frame length; data
// length is taken as len(data) - 2 and not checked against any register.
func ResponseFromBytesWithCRC(data []byte, calcCRC uint8) (Response, error) {
	if len(data) < ResponseMin {
		return Response{}, ErrBadLength
	}
	if calcCRC != 0 {
		return Response{}, ErrBadCrc
	}
	result, err := ParseResponseResult(data[0])
	if err != nil {
		return Response{}, err
	}
	return Response{
		Result: result,
		Data:   data[1 : len(data)-1],
		crc:    data[len(data)-1],
	}, nil
}

// FindResponseEnd returns the length of the response at the start of data,
// which is followed only by 0x00 filler. The frame ends at the first point
// where the CRC residual is zero and every byte after it is filler. Data
// bytes may zero the residual early, so a zero residual alone does not mark
// the end.
func FindResponseEnd(data []byte) (int, bool) {
	if len(data) < ResponseMin {
		return 0, false
	}
	if _, err := ParseResponseResult(data[0]); err != nil {
		return 0, false
	}
	last := len(data) - 1
	for last > 0 && data[last] == FillerByte {
		last--
	}
	calc := NewCRCCalc()
	calc.Add(data[0])
	for i := 1; i < len(data); i++ {
		calc.Add(data[i])
		if i >= last && calc.Get() == 0 {
			return i + 1, true
		}
	}
	return 0, false
}
