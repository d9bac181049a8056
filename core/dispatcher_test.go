package core

import (
	"bytes"
	"testing"

	"gobmc/protocol"
)

func dispatch(d *Dispatcher, req protocol.Request, payload []byte) protocol.Response {
	buf := make([]byte, protocol.MaxRegisterLen)
	return d.Dispatch(req, payload, buf)
}

func TestDispatchReadVersion(t *testing.T) {
	d := NewDispatcher(NewRegisterStore())

	resp := dispatch(d, protocol.NewReadRequest(false, protocol.RegProtocolVersion, 3), nil)
	if resp.Result != protocol.ResultOk {
		t.Fatalf("Expected Ok, got %v", resp.Result)
	}
	v := protocol.CurrentProtocolVersion.Bytes()
	if !bytes.Equal(resp.Data, v[:]) {
		t.Errorf("Expected % X, got % X", v, resp.Data)
	}
}

func TestDispatchErrors(t *testing.T) {
	testCases := []struct {
		name     string
		req      protocol.Request
		payload  []byte
		expected protocol.ResponseResult
	}{
		{"unknown register", protocol.NewReadRequest(false, 0x12, 1), nil, protocol.ResultBadRegister},
		{"read wrong width", protocol.NewReadRequest(false, protocol.RegProtocolVersion, 2), nil, protocol.ResultBadLength},
		{"read fifo zero", protocol.NewReadRequest(false, protocol.RegUartBuffer, 0), nil, protocol.ResultBadLength},
		{"read fifo too long", protocol.NewReadRequest(false, protocol.RegPs2KbBuffer, 17), nil, protocol.ResultBadLength},
		{"write read-only", protocol.NewShortWriteRequest(false, protocol.RegButtonStatus, 1), nil, protocol.ResultBadRequestType},
		{"short write wide register", protocol.NewShortWriteRequest(false, protocol.RegInterruptControl, 1), nil, protocol.ResultBadLength},
		{"long write wrong width", protocol.NewLongWriteRequest(false, protocol.RegUartBaudRate, 2), []byte{1, 2}, protocol.ResultBadLength},
		{"long write short payload", protocol.NewLongWriteRequest(false, protocol.RegUartBaudRate, 4), []byte{1, 2}, protocol.ResultBadLength},
		{"long write read-only", protocol.NewLongWriteRequest(false, protocol.RegFirmwareVersion, 1), []byte{1}, protocol.ResultBadRequestType},
	}

	for _, tc := range testCases {
		d := NewDispatcher(NewRegisterStore())
		resp := dispatch(d, tc.req, tc.payload)
		if resp.Result != tc.expected {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.expected, resp.Result)
		}
		if len(resp.Data) != 0 {
			t.Errorf("%s: error response carried % X", tc.name, resp.Data)
		}
	}
}

func TestDispatchReadWrite(t *testing.T) {
	store := NewRegisterStore()
	d := NewDispatcher(store)

	resp := dispatch(d, protocol.NewLongWriteRequest(false, protocol.RegUartBaudRate, 4), []byte{0x00, 0xC2, 0x01, 0x00})
	if resp.Result != protocol.ResultOk {
		t.Fatalf("Write failed: %v", resp.Result)
	}
	if store.Uint32(protocol.RegUartBaudRate) != 115200 {
		t.Errorf("Expected 115200, got %d", store.Uint32(protocol.RegUartBaudRate))
	}

	resp = dispatch(d, protocol.NewReadRequest(false, protocol.RegUartBaudRate, 4), nil)
	if !bytes.Equal(resp.Data, []byte{0x00, 0xC2, 0x01, 0x00}) {
		t.Errorf("Expected little-endian 115200, got % X", resp.Data)
	}
}

func TestDispatchW1C(t *testing.T) {
	store := NewRegisterStore()
	d := NewDispatcher(store)
	store.RaiseInterrupt(protocol.IrqUartRx | protocol.IrqPowerButton)

	resp := dispatch(d, protocol.NewLongWriteRequest(false, protocol.RegInterruptStatus, 2),
		[]byte{uint8(protocol.IrqPowerButton), 0})
	if resp.Result != protocol.ResultOk {
		t.Fatalf("Write failed: %v", resp.Result)
	}
	if got := store.Uint16(protocol.RegInterruptStatus); got != protocol.IrqUartRx {
		t.Errorf("Expected only IrqUartRx left, got 0x%04X", got)
	}
}

func TestDispatchFifo(t *testing.T) {
	store := NewRegisterStore()
	d := NewDispatcher(store)
	store.RxFifo(protocol.RegUartBuffer).Write([]byte("hello"))

	resp := dispatch(d, protocol.NewReadRequest(false, protocol.RegUartBuffer, 3), nil)
	if string(resp.Data) != "hel" {
		t.Errorf("Expected hel, got %q", resp.Data)
	}
	resp = dispatch(d, protocol.NewReadRequest(true, protocol.RegUartBuffer, 10), nil)
	if string(resp.Data) != "lo" {
		t.Errorf("Expected lo, got %q", resp.Data)
	}

	// Writes are all or nothing
	full := bytes.Repeat([]byte{'x'}, protocol.Ps2FifoCapacity)
	resp = dispatch(d, protocol.NewLongWriteRequest(false, protocol.RegPs2KbBuffer, uint8(len(full))), full)
	if resp.Result != protocol.ResultOk {
		t.Fatalf("Filling the FIFO failed: %v", resp.Result)
	}
	resp = dispatch(d, protocol.NewShortWriteRequest(false, protocol.RegPs2KbBuffer, 'y'), nil)
	if resp.Result != protocol.ResultBadLength {
		t.Errorf("Expected BadLength on a full FIFO, got %v", resp.Result)
	}
	if store.TxFifo(protocol.RegPs2KbBuffer).Available() != protocol.Ps2FifoCapacity {
		t.Error("A rejected write changed the FIFO")
	}
}

func TestDispatchReplaysDuplicate(t *testing.T) {
	store := NewRegisterStore()
	d := NewDispatcher(store)
	writes := 0
	d.OnWrite(func(uint8) { writes++ })

	req := protocol.NewShortWriteRequest(false, protocol.RegUartBuffer, 'a')
	first := dispatch(d, req, nil)
	second := dispatch(d, req, nil)

	if first.Result != protocol.ResultOk || second.Result != protocol.ResultOk {
		t.Fatalf("Expected Ok twice, got %v and %v", first.Result, second.Result)
	}
	if got := store.TxFifo(protocol.RegUartBuffer).Available(); got != 1 {
		t.Errorf("Expected the retransmission not to queue again, FIFO has %d", got)
	}
	if writes != 1 {
		t.Errorf("Expected one write hook call, got %d", writes)
	}
	if d.Replays != 1 {
		t.Errorf("Expected 1 replay, got %d", d.Replays)
	}

	// Flipping Alt makes it a new request
	dispatch(d, protocol.NewShortWriteRequest(true, protocol.RegUartBuffer, 'a'), nil)
	if got := store.TxFifo(protocol.RegUartBuffer).Available(); got != 2 {
		t.Errorf("Expected the Alt request to execute, FIFO has %d", got)
	}
}

func TestDispatchReplayedReadDoesNotDrain(t *testing.T) {
	store := NewRegisterStore()
	d := NewDispatcher(store)
	store.RxFifo(protocol.RegUartBuffer).Write([]byte("abcd"))

	req := protocol.NewReadRequest(false, protocol.RegUartBuffer, 2)
	first := dispatch(d, req, nil)
	firstData := string(first.Data)
	second := dispatch(d, req, nil)

	if firstData != "ab" || string(second.Data) != "ab" {
		t.Errorf("Expected ab twice, got %q and %q", firstData, second.Data)
	}
	if store.RxFifo(protocol.RegUartBuffer).Available() != 2 {
		t.Error("The replayed read drained the FIFO again")
	}
}

func TestDispatchReplaysFullFifoRead(t *testing.T) {
	store := NewRegisterStore()
	d := NewDispatcher(store)
	full := make([]byte, protocol.MaxRegisterLen)
	for i := range full {
		full[i] = byte(i + 1)
	}
	store.RxFifo(protocol.RegUartBuffer).Write(full)

	req := protocol.NewReadRequest(false, protocol.RegUartBuffer, protocol.MaxRegisterLen)
	first := dispatch(d, req, nil)
	if !bytes.Equal(first.Data, full) {
		t.Fatalf("Expected %d bytes, got %d", len(full), len(first.Data))
	}

	second := dispatch(d, req, nil)
	if second.Result != protocol.ResultOk {
		t.Fatalf("Expected Ok, got %v", second.Result)
	}
	if !bytes.Equal(second.Data, full) {
		t.Errorf("Expected the cached %d bytes, got %d", len(full), len(second.Data))
	}
	if d.Replays != 1 {
		t.Errorf("Expected 1 replay, got %d", d.Replays)
	}
}

func TestDispatchLongWritePayloadIsPartOfKey(t *testing.T) {
	store := NewRegisterStore()
	d := NewDispatcher(store)

	req := protocol.NewLongWriteRequest(false, protocol.RegUartBuffer, 2)
	dispatch(d, req, []byte("ab"))
	dispatch(d, req, []byte("cd"))

	if got := store.TxFifo(protocol.RegUartBuffer).Available(); got != 4 {
		t.Errorf("Expected both payloads queued, FIFO has %d", got)
	}
}
