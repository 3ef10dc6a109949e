package rs485

// Signal is an out-of-band condition raised by the character decoders.
// The device keeps only the most recent one.
type Signal uint8

const (
	SignalNone Signal = iota
	SignalWouldBlock
	SignalEOL
	SignalKill     // ETX (^C), CAN (^X), ESC
	SignalPause    // DC3 / XOFF (^S)
	SignalResume   // DC1 / XON (^Q)
	SignalShiftOut // SO
	SignalShiftIn  // SI
	SignalDelete   // BS, DEL
)

var signalNames = [...]string{
	SignalNone:       "none",
	SignalWouldBlock: "would-block",
	SignalEOL:        "eol",
	SignalKill:       "kill",
	SignalPause:      "pause",
	SignalResume:     "resume",
	SignalShiftOut:   "shift-out",
	SignalShiftIn:    "shift-in",
	SignalDelete:     "delete",
}

func (s Signal) String() string {
	if int(s) < len(signalNames) {
		return signalNames[s]
	}
	return "unknown"
}

// SignalFunc handles a signal trapped by Readln. Its error is returned
// from Readln unchanged.
type SignalFunc func(sig Signal) error

// LineFunc receives a completed line from Readln, without its terminator.
// The slice aliases the caller's buffer and is only valid until the next
// Readln call starts a new line. Its error is returned from Readln unchanged.
type LineFunc func(line []byte) error

func nullSignal(Signal) error { return nil }

func nullLine([]byte) error { return nil }
