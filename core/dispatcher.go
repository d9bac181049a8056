package core

import (
	"bytes"

	"gobmc/protocol"
)

// WriteHook is told about every host write that changed a register
type WriteHook func(address uint8)

// Dispatcher executes decoded requests against the register store and
// remembers the last response so that a retransmitted request is answered
// without running its side effects again.
type Dispatcher struct {
	store *RegisterStore
	hooks []WriteHook

	last struct {
		valid    bool
		request  [protocol.RequestLen]byte
		payload  [protocol.MaxRegisterLen]byte
		payloadN int
		response [TxCapacity]byte
		n        int
	}

	// Replays counts requests answered from the cache
	Replays uint32
}

// NewDispatcher creates a dispatcher for store
func NewDispatcher(store *RegisterStore) *Dispatcher {
	return &Dispatcher{store: store}
}

// OnWrite registers a hook run after each successful host write
func (d *Dispatcher) OnWrite(h WriteHook) {
	d.hooks = append(d.hooks, h)
}

// Forget drops the cached response, so the next request always executes
func (d *Dispatcher) Forget() {
	d.last.valid = false
}

// Dispatch executes req. payload carries the data phase of a long write and
// is nil otherwise. The response data borrows buf, which must hold at least
// MaxRegisterLen bytes, or the replay cache for a retransmitted request.
// Either is valid only until the next call.
func (d *Dispatcher) Dispatch(req protocol.Request, payload []byte, buf []byte) protocol.Response {
	reqBytes := req.Bytes()
	if d.isRepeat(reqBytes, payload) {
		d.Replays++
		RecordEvent(EvtReplay, req.Register, d.Replays)
		// The replayed data borrows the cache, which stays put until the
		// next Dispatch
		resp, err := protocol.ResponseFromBytes(d.last.response[:d.last.n])
		if err == nil {
			return resp
		}
		// A cache that no longer decodes is treated as absent
		d.Forget()
	}

	resp := d.execute(req, payload, buf)
	d.remember(reqBytes, payload, resp)
	return resp
}

func (d *Dispatcher) isRepeat(req [protocol.RequestLen]byte, payload []byte) bool {
	if !d.last.valid || d.last.request != req {
		return false
	}
	return bytes.Equal(d.last.payload[:d.last.payloadN], payload)
}

func (d *Dispatcher) remember(req [protocol.RequestLen]byte, payload []byte, resp protocol.Response) {
	n, err := resp.RenderToBuffer(d.last.response[:])
	if err != nil || len(payload) > len(d.last.payload) {
		d.last.valid = false
		return
	}
	d.last.request = req
	d.last.payloadN = copy(d.last.payload[:], payload)
	d.last.n = n
	d.last.valid = true
}

func (d *Dispatcher) execute(req protocol.Request, payload []byte, buf []byte) protocol.Response {
	reg, ok := protocol.LookupRegister(req.Register)
	if !ok {
		return protocol.NewErrorResponse(protocol.ResultBadRegister)
	}

	switch {
	case req.Type.IsRead():
		n := req.LengthOrData
		if !reg.ValidReadLen(n) || int(n) > len(buf) {
			return protocol.NewErrorResponse(protocol.ResultBadLength)
		}
		got := d.store.Read(reg, buf[:n])
		return protocol.NewOkResponse(buf[:got])

	case req.Type.IsShortWrite():
		buf[0] = req.LengthOrData
		return d.write(reg, buf[:1])

	case req.Type.IsLongWrite():
		if int(req.LengthOrData) != len(payload) {
			return protocol.NewErrorResponse(protocol.ResultBadLength)
		}
		return d.write(reg, payload)
	}

	return protocol.NewErrorResponse(protocol.ResultBadRequestType)
}

func (d *Dispatcher) write(reg protocol.RegisterInfo, data []byte) protocol.Response {
	if !reg.Access.Writable() {
		return protocol.NewErrorResponse(protocol.ResultBadRequestType)
	}
	if len(data) > 255 || !reg.ValidWriteLen(uint8(len(data))) {
		return protocol.NewErrorResponse(protocol.ResultBadLength)
	}
	if err := d.store.Write(reg, data); err != nil {
		result, ok := protocol.ResultForError(err)
		if !ok {
			result = protocol.ResultBadLength
		}
		return protocol.NewErrorResponse(result)
	}

	for _, h := range d.hooks {
		h(reg.Address)
	}
	return protocol.NewOkResponse(nil)
}
