package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// LinkEvent captures a protocol event for post-mortem analysis
type LinkEvent struct {
	EventType uint8  // Event type code
	Register  uint8  // Register addressed, if any
	Clock     uint32 // System clock at event
	Value     uint32 // Context-dependent value
}

// Event type codes
const (
	EvtFrame     = 1 // Request decoded
	EvtCrcError  = 2 // Request failed its CRC
	EvtReplay    = 3 // Cached response replayed
	EvtLongWrite = 4 // Long-write payload phase armed
	EvtBusyDrop  = 5 // Transaction ignored, frame still held
	EvtRetract   = 6 // Unclaimed frame withdrawn on CS release
	EvtNoTxn     = 7 // Response ready after CS release
	EvtDesync    = 8 // Peripheral reset after desync
	EvtPower     = 9 // DC power state changed
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event capture ring buffer (non-blocking, for post-mortem)
	eventRing     [EventRingSize]LinkEvent
	eventRingHead uint8        // Next write position
	eventsEnabled bool  = true // Always capture events

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if !debugEnabled || debugChan == nil {
		return
	}
	select {
	case debugChan <- msg:
	default:
		// Channel full, drop message
	}
}

// RecordEvent captures an event in the ring buffer.
// Safe to call from interrupt context.
func RecordEvent(eventType, register uint8, value uint32) {
	if !eventsEnabled {
		return
	}
	idx := eventRingHead
	eventRing[idx] = LinkEvent{
		EventType: eventType,
		Register:  register,
		Clock:     GetTime(),
		Value:     value,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the captured events, oldest first
func Events() []LinkEvent {
	out := make([]LinkEvent, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

func eventName(eventType uint8) string {
	switch eventType {
	case EvtFrame:
		return "FRAME"
	case EvtCrcError:
		return "CRC_ERROR"
	case EvtReplay:
		return "REPLAY"
	case EvtLongWrite:
		return "LONG_WRITE"
	case EvtBusyDrop:
		return "BUSY_DROP"
	case EvtRetract:
		return "RETRACT"
	case EvtNoTxn:
		return "NO_TXN"
	case EvtDesync:
		return "DESYNC!"
	case EvtPower:
		return "POWER"
	}
	return "UNKNOWN"
}

// DumpEventRing outputs the event ring buffer (call on halt or on request)
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENT] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENT] " + eventName(evt.EventType) +
			" reg=0x" + hex8(evt.Register) +
			" clock=" + utoa(evt.Clock) +
			" v=" + utoa(evt.Value))
	}
	debugPrintln("[EVENT] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i] = LinkEvent{}
	}
	eventRingHead = 0
}

// HaltError is the panic value raised by Halt
type HaltError struct {
	Reason string
}

func (e HaltError) Error() string {
	return "halt: " + e.Reason
}

// Halt reports a fatal firmware error and stops. Main loops that recover
// panics must re-raise a HaltError (see IsHalt) rather than carry on.
func Halt(reason string) {
	debugPrintln("[HALT] " + reason)
	DumpEventRing()
	panic(HaltError{Reason: reason})
}

// IsHalt reports whether a recovered panic value came from Halt
func IsHalt(r interface{}) bool {
	_, ok := r.(HaltError)
	return ok
}
