package protocol

import "testing"

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(10)

	if fifo.Capacity() != 10 {
		t.Errorf("Expected capacity 10, got %d", fifo.Capacity())
	}
	if !fifo.IsEmpty() {
		t.Error("Expected new FIFO to be empty")
	}

	data := []byte{1, 2, 3, 4, 5}
	written := fifo.Write(data)
	if written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}
	if fifo.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", fifo.Available())
	}
	if fifo.Free() != 5 {
		t.Errorf("Expected 5 bytes free, got %d", fifo.Free())
	}

	readBuf := make([]byte, 3)
	read := fifo.Read(readBuf)
	if read != 3 {
		t.Errorf("Expected to read 3 bytes, read %d", read)
	}
	if readBuf[0] != 1 || readBuf[1] != 2 || readBuf[2] != 3 {
		t.Errorf("Expected [1,2,3], got %v", readBuf)
	}

	fifo.Pop(1)
	if fifo.Available() != 1 {
		t.Errorf("Expected 1 byte after Pop, got %d", fifo.Available())
	}

	fifo.Reset()
	if !fifo.IsEmpty() {
		t.Error("Expected FIFO to be empty after reset")
	}
}

func TestFifoBufferFull(t *testing.T) {
	fifo := NewFifoBuffer(4)

	if n := fifo.Write([]byte{1, 2, 3, 4, 5, 6}); n != 4 {
		t.Errorf("Expected to write 4 bytes into a full FIFO, wrote %d", n)
	}
	if fifo.Push(7) {
		t.Error("Expected Push on a full FIFO to fail")
	}
	if fifo.Free() != 0 {
		t.Errorf("Expected 0 free, got %d", fifo.Free())
	}

	// Wrap around
	out := make([]byte, 2)
	fifo.Read(out)
	fifo.Write([]byte{8, 9})
	all := make([]byte, 8)
	n := fifo.Read(all)
	if n != 4 || all[0] != 3 || all[1] != 4 || all[2] != 8 || all[3] != 9 {
		t.Errorf("Expected [3 4 8 9], got %v", all[:n])
	}
}
