package protocol

// FifoBuffer is a fixed-capacity circular byte queue. It backs the FIFO
// registers on the BMC and the receive buffer of the serial bridge.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a FifoBuffer that holds up to capacity bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	// One slot stays empty to tell full from empty
	return &FifoBuffer{
		buf:  make([]byte, capacity+1),
		size: capacity + 1,
	}
}

// Capacity returns the number of bytes the buffer can hold
func (f *FifoBuffer) Capacity() int {
	return f.size - 1
}

// Push appends one byte, returning false if the buffer is full
func (f *FifoBuffer) Push(b byte) bool {
	nextWrite := (f.write + 1) % f.size
	if nextWrite == f.read {
		return false
	}
	f.buf[f.write] = b
	f.write = nextWrite
	return true
}

// Write appends as much of data as fits and returns how many bytes that was
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		if !f.Push(b) {
			break
		}
		written++
	}
	return written
}

// Read moves up to len(data) bytes out of the buffer
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		if f.read == f.write {
			break
		}
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % f.size
		read++
	}
	return read
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// Pop discards up to n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	for i := 0; i < n && f.read != f.write; i++ {
		f.read = (f.read + 1) % f.size
	}
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
