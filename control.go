package rs485

import (
	"fmt"

	"go.uber.org/atomic"
)

// Control is a set of configuration requests passed to New and
// (*Device).Control. The low nibble carries a Baud selector. Paired bits
// (CtlEcho/CtlNoEcho, ...) are applied set-then-clear, so when both are
// given the clearing bit wins.
type Control uint16

const (
	// CtlBaudMask selects the Baud field.
	CtlBaudMask Control = 0x000F

	CtlRead         Control = 1 << 4  // enable reads
	CtlWrite        Control = 1 << 5  // enable writes
	CtlBlock        Control = 1 << 6  // Getc/Putc sleep until data/space
	CtlNoBlock      Control = 1 << 7  // Getc/Putc fail with ErrWouldBlock
	CtlEcho         Control = 1 << 8  // echo received characters
	CtlNoEcho       Control = 1 << 9
	CtlCRLF         Control = 1 << 10 // send CR before every LF
	CtlNoCRLF       Control = 1 << 11
	CtlLineMode     Control = 1 << 12 // Getc folds NUL/CR/LF into '\n'
	CtlNoLineMode   Control = 1 << 13
	CtlSemicolons   Control = 1 << 14 // ';' terminates a line
	CtlNoSemicolons Control = 1 << 15
)

// Baud returns the baud selector carried by c.
func (c Control) Baud() Baud { return Baud(c & CtlBaudMask) }

// Flags is the device flag word.
type Flags uint32

const (
	FlagRead Flags = 1 << iota
	FlagWrite
	FlagBlock
	FlagEcho
	FlagCRLF
	FlagLineMode
	FlagSemicolons
	FlagInLine  // a Readln line is being collected
	FlagTxMutex // TX ring consumer side is claimed
)

// defaultFlags are applied by New before the caller's Control bits.
const defaultFlags = FlagRead | FlagWrite | FlagBlock | FlagEcho | FlagCRLF

// Has reports whether all bits of m are set.
func (f Flags) Has(m Flags) bool { return f&m == m }

func (f Flags) String() string {
	names := []string{"RD", "WR", "BLOCK", "ECHO", "CRLF", "LINEMODE", "SEMICOLONS", "INLINE", "TXMUTEX"}
	s := ""
	for i, n := range names {
		if f&(1<<i) != 0 {
			if s != "" {
				s += "|"
			}
			s += n
		}
	}
	if s == "" {
		return "0"
	}
	return s
}

// controlPairs maps each set/clear control pair onto its flag.
var controlPairs = [...]struct {
	set, clear Control
	flag       Flags
}{
	{CtlBlock, CtlNoBlock, FlagBlock},
	{CtlEcho, CtlNoEcho, FlagEcho},
	{CtlCRLF, CtlNoCRLF, FlagCRLF},
	{CtlLineMode, CtlNoLineMode, FlagLineMode},
	{CtlSemicolons, CtlNoSemicolons, FlagSemicolons},
}

// apply folds the control bits into f.
func (c Control) apply(f Flags) Flags {
	if c&CtlRead != 0 {
		f |= FlagRead
	}
	if c&CtlWrite != 0 {
		f |= FlagWrite
	}
	for _, p := range controlPairs {
		if c&p.set != 0 {
			f |= p.flag
		}
		if c&p.clear != 0 {
			f &^= p.flag
		}
	}
	return f
}

// flagWord is the flag bitset shared between mainline and interrupt context.
type flagWord struct {
	v atomic.Uint32
}

func (w *flagWord) load() Flags { return Flags(w.v.Load()) }

func (w *flagWord) has(m Flags) bool { return w.load().Has(m) }

func (w *flagWord) set(m Flags) {
	for {
		old := w.v.Load()
		if w.v.CompareAndSwap(old, old|uint32(m)) {
			return
		}
	}
}

func (w *flagWord) clear(m Flags) {
	for {
		old := w.v.Load()
		if w.v.CompareAndSwap(old, old&^uint32(m)) {
			return
		}
	}
}

// update replaces the configuration bits with fn(current), leaving the
// runtime bits (FlagInLine, FlagTxMutex) as they are at the time of the swap.
func (w *flagWord) update(fn func(Flags) Flags) Flags {
	const runtime = FlagInLine | FlagTxMutex
	for {
		old := w.v.Load()
		nf := fn(Flags(old))&^runtime | Flags(old)&runtime
		if w.v.CompareAndSwap(old, uint32(nf)) {
			return nf
		}
	}
}

// tryLock sets m if it is clear and reports whether it did.
func (w *flagWord) tryLock(m Flags) bool {
	for {
		old := w.v.Load()
		if Flags(old)&m != 0 {
			return false
		}
		if w.v.CompareAndSwap(old, old|uint32(m)) {
			return true
		}
	}
}

// Baud is a line rate selector.
type Baud uint8

const (
	BaudUnspecified Baud = iota
	Baud9600
	Baud19200
	Baud38400
	Baud57600
	Baud115200
	Baud230400
	Baud460800
	Baud921600
	Baud500000
	Baud1000000
)

// BaudDefault is used when New is given BaudUnspecified.
const BaudDefault = Baud115200

var baudRates = [...]uint32{
	BaudUnspecified: 0,
	Baud9600:        9600,
	Baud19200:       19200,
	Baud38400:       38400,
	Baud57600:       57600,
	Baud115200:      115200,
	Baud230400:      230400,
	Baud460800:      460800,
	Baud921600:      921600,
	Baud500000:      500000,
	Baud1000000:     1000000,
}

// Rate returns the bit rate for b, or 0 for BaudUnspecified and unknown selectors.
func (b Baud) Rate() uint32 {
	if int(b) >= len(baudRates) {
		return 0
	}
	return baudRates[b]
}

// Control returns b as a Control value that can be or-ed with other bits.
func (b Baud) Control() Control { return Control(b) & CtlBaudMask }

func (b Baud) String() string {
	if b == BaudUnspecified {
		return "unspecified"
	}
	if r := b.Rate(); r != 0 {
		return fmt.Sprintf("%d", r)
	}
	return fmt.Sprintf("Baud(%d)", uint8(b))
}

// BaudFor returns the selector for a bit rate.
func BaudFor(rate uint32) (Baud, bool) {
	for i, r := range baudRates {
		if r != 0 && r == rate {
			return Baud(i), true
		}
	}
	return BaudUnspecified, false
}
