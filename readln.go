package rs485

// Status is the outcome of one Readln call.
type Status uint8

const (
	// StatusContinue means the line is still being collected, or no byte
	// was waiting.
	StatusContinue Status = iota
	// StatusLine means a terminator arrived and the line handler ran.
	StatusLine
	// StatusBufferFull means the line overflowed the buffer and was abandoned.
	StatusBufferFull
	// StatusSignal means a control character arrived and the signal handler ran.
	StatusSignal
)

var statusNames = [...]string{
	StatusContinue:   "continue",
	StatusLine:       "line",
	StatusBufferFull: "buffer-full",
	StatusSignal:     "signal",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Readln advances line assembly by at most one received byte. It never
// sleeps. It is meant to be called from the main loop whenever input may
// have arrived.
//
// The first call after a completed or abandoned line binds buf. Later
// calls ignore their argument until that line ends. The line may hold
// len(buf)-1 bytes; the last slot is reserved for the NUL terminator.
// A line that outgrows the buffer returns StatusBufferFull once. The rest
// of it, up to and including its terminator, is discarded without reaching
// the line handler.
//
// Line mode is always on here: NUL, CR and LF (and ';' with
// FlagSemicolons) end the line. The terminator is stripped and the line
// handler gets the line; its error is returned with StatusLine. BS and DEL
// step the cursor back without scrubbing the buffer. Kill, pause, resume,
// shift-in and shift-out leave the partial line in place and return
// StatusSignal with the signal handler's error. To drop the partial line
// the handler calls ResetLine.
func (d *Device) Readln(buf []byte) (Status, error) {
	if !d.discard && !d.flags.has(FlagInLine) {
		d.line = buf
		d.cursor = 0
		d.flags.set(FlagInLine)
	}
	c, ok := d.next()
	if !ok {
		return StatusContinue, nil
	}
	d.reportDrops()
	f := d.flags.load()
	a := readlnActions[c]
	if d.discard {
		return d.readlnDiscard(a, f)
	}

	switch a {
	case actChar:
		return d.readlnChar(c, f)
	case actNewline:
		return d.readlnNewline(f)
	case actSemicolon:
		if f.Has(FlagSemicolons) {
			return d.readlnNewline(f)
		}
		return d.readlnChar(c, f)
	case actDelete:
		return d.readlnDelete(c, f)
	default:
		sig, _ := a.signal()
		return d.readlnSignal(sig)
	}
}

// ResetLine abandons the line in progress, or the tail of an overflowed
// line being discarded. The next Readln binds a fresh buffer.
func (d *Device) ResetLine() {
	d.flags.clear(FlagInLine)
	d.cursor = 0
	d.discard = false
}

// Partial returns the bytes collected so far for the line in progress.
func (d *Device) Partial() []byte {
	if !d.flags.has(FlagInLine) {
		return nil
	}
	return d.line[:d.cursor]
}

func (d *Device) readlnChar(c byte, f Flags) (Status, error) {
	bound := len(d.line) - 1
	if d.cursor >= bound {
		d.raise(SignalEOL)
		d.terminate(bound)
		d.flags.clear(FlagInLine)
		d.discard = true
		d.stats.overflows.Inc()
		d.log.Warn().
			Str("device", d.name).
			Int("limit", bound).
			Msg("rs485 line overflow, discarding to end of line")
		return StatusBufferFull, ErrBufferFull
	}
	d.line[d.cursor] = c
	d.cursor++
	if f.Has(FlagEcho) {
		d.echo(c)
	}
	return StatusContinue, nil
}

// readlnDiscard swallows the tail of an overflowed line. Signals still
// reach the signal handler.
func (d *Device) readlnDiscard(a action, f Flags) (Status, error) {
	switch a {
	case actNewline:
		d.discard = false
	case actSemicolon:
		if f.Has(FlagSemicolons) {
			d.discard = false
		}
	case actChar, actDelete:
	default:
		sig, _ := a.signal()
		return d.readlnSignal(sig)
	}
	return StatusContinue, nil
}

func (d *Device) readlnNewline(f Flags) (Status, error) {
	d.raise(SignalEOL)
	d.terminate(d.cursor)
	d.flags.clear(FlagInLine)
	if f.Has(FlagEcho) {
		d.echo('\n')
	}
	d.stats.lines.Inc()
	return StatusLine, d.lineFunc(d.line[:d.cursor])
}

func (d *Device) readlnDelete(c byte, f Flags) (Status, error) {
	if d.cursor > 0 {
		d.cursor--
		if f.Has(FlagEcho) {
			d.echo(c)
		}
	}
	return StatusContinue, nil
}

func (d *Device) readlnSignal(sig Signal) (Status, error) {
	d.raise(sig)
	d.stats.signals.Inc()
	d.log.Debug().
		Str("device", d.name).
		Stringer("signal", sig).
		Int("partial", d.cursor).
		Msg("rs485 signal")
	return StatusSignal, d.sigFunc(sig)
}

// terminate writes the NUL terminator at i when the buffer has room for it.
func (d *Device) terminate(i int) {
	if i >= 0 && i < len(d.line) {
		d.line[i] = 0
	}
}
