package rs485

// action is what a decoder does with a received 7-bit character.
type action uint8

const (
	actChar action = iota
	actNewline
	actSemicolon
	actDelete
	actKill
	actPause
	actResume
	actShiftOut
	actShiftIn
)

var actionNames = [...]string{
	actChar:      "char",
	actNewline:   "newline",
	actSemicolon: "semicolon",
	actDelete:    "delete",
	actKill:      "kill",
	actPause:     "pause",
	actResume:    "resume",
	actShiftOut:  "shift-out",
	actShiftIn:   "shift-in",
}

func (a action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// signal returns the signal raised by the control-character actions.
func (a action) signal() (Signal, bool) {
	switch a {
	case actDelete:
		return SignalDelete, true
	case actKill:
		return SignalKill, true
	case actPause:
		return SignalPause, true
	case actResume:
		return SignalResume, true
	case actShiftOut:
		return SignalShiftOut, true
	case actShiftIn:
		return SignalShiftIn, true
	}
	return SignalNone, false
}

// getcActions classifies characters for Getc. Unlisted entries are actChar.
var getcActions = [128]action{
	0x00: actNewline,   // NUL
	0x03: actKill,      // ETX ^C
	0x08: actDelete,    // BS
	0x0A: actNewline,   // LF
	0x0D: actNewline,   // CR
	0x0E: actShiftOut,  // SO
	0x0F: actShiftIn,   // SI
	0x11: actResume,    // DC1 XON ^Q
	0x13: actPause,     // DC3 XOFF ^S
	0x18: actKill,      // CAN ^X
	0x1B: actKill,      // ESC
	';':  actSemicolon, // conditional EOL
	0x7F: actDelete,    // DEL
}

// readlnActions classifies characters for Readln. The classes match
// getcActions; the handlers differ.
var readlnActions = [128]action{
	0x00: actNewline,
	0x03: actKill,
	0x08: actDelete,
	0x0A: actNewline,
	0x0D: actNewline,
	0x0E: actShiftOut,
	0x0F: actShiftIn,
	0x11: actResume,
	0x13: actPause,
	0x18: actKill,
	0x1B: actKill,
	';':  actSemicolon,
	0x7F: actDelete,
}
