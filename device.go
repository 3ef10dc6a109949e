package rs485

import (
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Transceiver is the UART behind a Device. Implementations are register
// level and must not block.
type Transceiver interface {
	// ReadData returns the byte in the receive data register.
	ReadData() byte
	// WriteData loads b into the transmit data register.
	WriteData(b byte)
	// DataRegisterEmpty reports whether the transmit data register can take a byte.
	DataRegisterEmpty() bool
	// EnableRxInterrupt arms or disarms the receive-complete interrupt.
	EnableRxInterrupt(on bool)
	// EnableTxInterrupt arms or disarms the data-register-empty interrupt.
	EnableTxInterrupt(on bool)
	// SetBaudRate programs the line rate in bits per second.
	SetBaudRate(bps uint32) error
}

// DirectionControl drives the direction pins of a half-duplex RS-485
// transceiver. Polarity is the implementation's business: true always
// means "enabled".
type DirectionControl interface {
	SetDriverEnable(on bool)   // DE
	SetReceiverEnable(on bool) // RE
}

// DirectionPolicy says when the Device touches DE/RE.
type DirectionPolicy uint8

const (
	// DirectionStatic sets DE off and RE on at New and never changes them.
	// The transmitter only reaches the bus if the board straps DE
	// elsewhere.
	DirectionStatic DirectionPolicy = iota
	// DirectionToggle asserts DE before each byte is loaded into the data
	// register and releases it when the transmit interrupt finds the TX
	// ring empty.
	DirectionToggle
)

func (p DirectionPolicy) String() string {
	if p == DirectionToggle {
		return "toggle"
	}
	return "static"
}

// Device is one RS-485 line: RX and TX rings, the flag word, the signal
// register, the Readln cursor and the callbacks.
//
// RxISR and TxISR are called from interrupt context. Every other method
// belongs to a single mainline goroutine.
type Device struct {
	hw     Transceiver
	dir    DirectionControl
	policy DirectionPolicy
	name   string
	log    zerolog.Logger

	flags  flagWord
	signal atomic.Uint32
	baud   Baud

	rx *Ring
	tx *Ring

	// Readln state, valid while FlagInLine is set.
	line   []byte
	cursor int
	// discard is set from a line overflow until the next terminator.
	discard bool

	sigFunc  SignalFunc
	lineFunc LineFunc

	wake    chan struct{}
	driving atomic.Bool
	stats   counters
	dropsAt uint64

	rxSize, txSize int
}

// Option customizes New.
type Option func(*Device)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Device) { d.log = l }
}

// WithName labels log output.
func WithName(name string) Option {
	return func(d *Device) { d.name = name }
}

// WithBufferSize sets the declared sizes of the RX and TX rings.
func WithBufferSize(rx, tx int) Option {
	return func(d *Device) { d.rxSize, d.txSize = rx, tx }
}

// WithDirection binds the direction pins and the policy for driving them.
func WithDirection(dc DirectionControl, policy DirectionPolicy) Option {
	return func(d *Device) { d.dir, d.policy = dc, policy }
}

// New initializes a device on hw. Flags start at read, write, blocking,
// echo and CRLF, and ctl is applied on top. A BaudUnspecified selector
// means BaudDefault. Both interrupts are armed before New returns.
func New(hw Transceiver, ctl Control, opts ...Option) (*Device, error) {
	if hw == nil {
		return nil, ErrNoTransceiver
	}
	d := &Device{
		hw:       hw,
		name:     "rs485",
		log:      zerolog.Nop(),
		sigFunc:  nullSignal,
		lineFunc: nullLine,
		wake:     make(chan struct{}, 1),
		rxSize:   DefaultRingSize,
		txSize:   DefaultRingSize,
	}
	if dc, ok := hw.(DirectionControl); ok {
		d.dir = dc
	}
	for _, opt := range opts {
		opt(d)
	}
	d.rx = NewRing(d.rxSize)
	d.tx = NewRing(d.txSize)

	d.flags.v.Store(uint32(ctl.apply(defaultFlags)))
	d.signal.Store(uint32(SignalNone))

	baud := ctl.Baud()
	if baud == BaudUnspecified {
		baud = BaudDefault
	}
	if err := d.setBaud(baud); err != nil {
		return nil, err
	}

	if d.dir != nil {
		d.dir.SetDriverEnable(false)
		d.dir.SetReceiverEnable(true)
	}
	hw.EnableRxInterrupt(true)
	hw.EnableTxInterrupt(true)

	d.log.Debug().
		Str("device", d.name).
		Stringer("flags", d.Flags()).
		Stringer("baud", d.baud).
		Stringer("direction", d.policy).
		Int("rx_size", d.rx.Size()).
		Int("tx_size", d.tx.Size()).
		Msg("rs485 device initialized")
	return d, nil
}

// Control applies ctl to a running device. A baud selector other than
// BaudUnspecified reprograms the line rate. Read/write enables can only be
// set here, never cleared.
func (d *Device) Control(ctl Control) error {
	if b := ctl.Baud(); b != BaudUnspecified {
		if err := d.setBaud(b); err != nil {
			return err
		}
	}
	f := d.flags.update(ctl.apply)
	d.log.Debug().Str("device", d.name).Stringer("flags", f).Msg("rs485 control")
	return nil
}

func (d *Device) setBaud(b Baud) error {
	rate := b.Rate()
	if rate == 0 {
		return ErrInvalidBaud
	}
	if err := d.hw.SetBaudRate(rate); err != nil {
		return err
	}
	d.baud = b
	return nil
}

// SetSignalFunc registers the Readln signal handler. nil restores the no-op handler.
func (d *Device) SetSignalFunc(fn SignalFunc) {
	if fn == nil {
		fn = nullSignal
	}
	d.sigFunc = fn
}

// SetLineFunc registers the Readln line handler. nil restores the no-op handler.
func (d *Device) SetLineFunc(fn LineFunc) {
	if fn == nil {
		fn = nullLine
	}
	d.lineFunc = fn
}

// Flags returns a snapshot of the flag word.
func (d *Device) Flags() Flags { return d.flags.load() }

// Signal returns the last signal raised.
func (d *Device) Signal() Signal { return Signal(d.signal.Load()) }

func (d *Device) raise(s Signal) { d.signal.Store(uint32(s)) }

// Baud returns the current baud selector.
func (d *Device) Baud() Baud { return d.baud }

// InLine reports whether Readln is collecting a line.
func (d *Device) InLine() bool { return d.flags.has(FlagInLine) }

// Buffered returns the number of bytes waiting in the RX ring.
func (d *Device) Buffered() int { return d.rx.Used() }

// TxPending returns the number of bytes waiting in the TX ring.
func (d *Device) TxPending() int { return d.tx.Used() }

// Wakeup delivers a coalesced notification after every interrupt that moved
// data. Receivers must re-check state after waking. Getc and Putc consume the
// same notifications while they sleep, so the channel must only be read by
// the mainline goroutine that calls them; any other reader can steal the
// wakeup a sleeping Getc or Putc is waiting for.
func (d *Device) Wakeup() <-chan struct{} { return d.wake }

func (d *Device) notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// sleep suspends the mainline until the next interrupt notification.
func (d *Device) sleep() { <-d.wake }
