package core

import (
	"errors"

	"gobmc/protocol"
)

// LinkStats counts what the link service has seen since boot
type LinkStats struct {
	Frames      uint32
	CrcErrors   uint32
	BadRequests uint32
	LongWrites  uint32
	LateReplies uint32
	Resets      uint32
}

// Link is the main-loop half of the protocol. It picks up frames from the
// transport, runs them through the dispatcher and stages the replies.
type Link struct {
	transport  *Transport
	dispatcher *Dispatcher

	// header of a long write whose payload is being received
	pending        protocol.Request
	pendingPayload bool
	pendingTxn     uint32

	scratch [protocol.MaxRegisterLen]byte
	desync  int

	Stats LinkStats
}

// NewLink connects a transport to a dispatcher
func NewLink(t *Transport, d *Dispatcher) *Link {
	return &Link{transport: t, dispatcher: d}
}

// Poll handles at most one completed frame. It returns true if a frame was
// processed.
func (l *Link) Poll() bool {
	if !l.transport.Acquire() {
		l.checkDesync()
		return false
	}
	l.desync = 0

	data, crc := l.transport.Received()

	if l.pendingPayload && l.pendingTxn != l.transport.Transaction() {
		// CS was released before the payload arrived
		l.pendingPayload = false
	}
	if l.pendingPayload {
		l.pendingPayload = false
		resp := l.dispatcher.Dispatch(l.pending, data, l.scratch[:])
		l.reply(resp)
		return true
	}

	req, err := protocol.RequestFromBytesWithCRC(data, crc)
	if err != nil {
		l.rejectFrame(data, err)
		return true
	}
	l.Stats.Frames++
	RecordEvent(EvtFrame, req.Register, uint32(req.Type))

	if req.Type.IsLongWrite() {
		l.startPayload(req)
		return true
	}

	resp := l.dispatcher.Dispatch(req, nil, l.scratch[:])
	l.reply(resp)
	return true
}

// Reset abandons any two-phase transfer and resets the transport
func (l *Link) Reset() {
	l.pendingPayload = false
	l.desync = 0
	l.transport.Reset()
}

func (l *Link) rejectFrame(data []byte, err error) {
	if errors.Is(err, protocol.ErrBadCrc) {
		// A corrupted frame is never answered; the host times out and retries
		l.Stats.CrcErrors++
		var reg uint8
		if len(data) > 1 {
			reg = data[1]
		}
		RecordEvent(EvtCrcError, reg, l.Stats.CrcErrors)
		l.transport.Release()
		return
	}

	l.Stats.BadRequests++
	result, ok := protocol.ResultForError(err)
	if !ok {
		l.transport.Release()
		return
	}
	l.reply(protocol.NewErrorResponse(result))
}

// startPayload arms the transport for the data phase of a long write. The
// header is only validated once the payload is in, so the host sees one
// response per transaction either way.
func (l *Link) startPayload(req protocol.Request) {
	n := int(req.LengthOrData)
	if n == 0 || n > protocol.MaxRegisterLen {
		l.reply(protocol.NewErrorResponse(protocol.ResultBadLength))
		return
	}

	txn := l.transport.Transaction()
	if err := l.transport.Rearm(n); err != nil {
		if errors.Is(err, ErrNoTransaction) {
			l.Stats.LateReplies++
			RecordEvent(EvtNoTxn, req.Register, 0)
			return
		}
		Halt("link: " + err.Error())
	}
	l.Stats.LongWrites++
	RecordEvent(EvtLongWrite, req.Register, uint32(n))
	l.pending = req
	l.pendingPayload = true
	l.pendingTxn = txn
}

func (l *Link) reply(resp protocol.Response) {
	err := l.transport.SetTransmitSendable(resp)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoTransaction):
		// The host released CS before the reply was ready
		l.Stats.LateReplies++
		RecordEvent(EvtNoTxn, 0, uint32(resp.Result))
	default:
		Halt("link: " + err.Error())
	}
}

// checkDesync resets the peripheral if the transport is stuck mid-frame
// while chip select is released
func (l *Link) checkDesync() {
	if l.transport.Selected() || l.transport.State() == StateIdle {
		l.desync = 0
		return
	}
	l.desync++
	if l.desync < desyncPolls {
		return
	}
	l.Stats.Resets++
	RecordEvent(EvtDesync, 0, uint32(l.transport.State()))
	DebugAsync("[LINK] desync in state " + l.transport.State().String() + ", resetting")
	l.Reset()
}
