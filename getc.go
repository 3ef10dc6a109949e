package rs485

// Getc returns the next received character.
//
// With an empty RX ring Getc sleeps until a byte arrives (FlagBlock) or
// returns ErrWouldBlock with SignalWouldBlock raised. The byte is masked to
// seven bits and classified:
//
//   - NUL, CR and LF become '\n' when FlagLineMode is set;
//   - ';' is treated like a newline when FlagSemicolons is set;
//   - BS/DEL, ETX/CAN/ESC, XOFF, XON, SO and SI raise the matching signal
//     and return a *SignalError instead of data;
//   - anything else is returned unchanged.
//
// With FlagEcho set the returned character is written back through Putc.
func (d *Device) Getc() (byte, error) {
	for d.rx.Empty() {
		if !d.flags.has(FlagBlock) {
			d.raise(SignalWouldBlock)
			return 0, ErrWouldBlock
		}
		d.sleep()
	}
	d.reportDrops()
	c, _ := d.next()
	f := d.flags.load()

	switch a := getcActions[c]; a {
	case actChar:
		return d.getcChar(c, f)
	case actNewline:
		return d.getcNewline(c, f)
	case actSemicolon:
		if f.Has(FlagSemicolons) {
			return d.getcNewline(c, f)
		}
		return d.getcChar(c, f)
	default:
		sig, _ := a.signal()
		d.raise(sig)
		d.stats.signals.Inc()
		return 0, &SignalError{Signal: sig}
	}
}

func (d *Device) getcChar(c byte, f Flags) (byte, error) {
	if f.Has(FlagEcho) {
		d.echo(c)
	}
	return c, nil
}

func (d *Device) getcNewline(c byte, f Flags) (byte, error) {
	if f.Has(FlagLineMode) {
		c = '\n'
	}
	if f.Has(FlagEcho) {
		d.echo(c)
	}
	return c, nil
}

// echo writes c back to the line. A full TX ring in non-blocking mode loses
// the echo; the read itself still succeeds.
func (d *Device) echo(c byte) {
	_ = d.Putc(c)
}
