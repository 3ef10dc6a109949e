// Package usart emulates the register interface of an interrupt-driven
// UART on top of an ordinary byte stream, so an rs485.Device can run on a
// host serial port.
//
// The receive side is fed by the backend's reader goroutine through
// Deliver. The transmit side is a synchronous data register: WriteData
// writes the byte to the stream and the register is busy only for the
// duration of that write. The transmit interrupt is level triggered: Run
// keeps calling TxISR while it is armed and the handler makes progress.
// All handler calls are serialized, as they would be on a single
// interrupt priority level.
package usart

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Handler is the pair of interrupt entry points a device exposes.
type Handler interface {
	RxISR()
	TxISR()
}

// USART is an emulated UART register block.
type USART struct {
	w   io.Writer
	log zerolog.Logger

	mu sync.Mutex // interrupt context
	h  Handler

	rxData  atomic.Uint32
	rxie    atomic.Bool
	txie    atomic.Bool
	busy    atomic.Bool
	writes  atomic.Uint64
	overrun atomic.Uint64
	kick    chan struct{}
}

// New returns a USART that transmits on w. Both interrupts start disarmed.
func New(w io.Writer, log zerolog.Logger) *USART {
	return &USART{
		w:    w,
		log:  log,
		kick: make(chan struct{}, 1),
	}
}

// Bind sets the interrupt handler. It must be called before Deliver or Run.
func (u *USART) Bind(h Handler) {
	u.mu.Lock()
	u.h = h
	u.mu.Unlock()
}

// ReadData returns the byte latched by the last Deliver.
func (u *USART) ReadData() byte { return byte(u.rxData.Load()) }

// WriteData writes b to the stream. Write errors are logged; an ISR has no
// one to return them to.
func (u *USART) WriteData(b byte) {
	u.busy.Store(true)
	buf := [1]byte{b}
	if _, err := u.w.Write(buf[:]); err != nil {
		u.log.Warn().Err(err).Msg("usart: transmit failed")
	}
	u.writes.Inc()
	u.busy.Store(false)
}

// DataRegisterEmpty reports whether no write is in progress.
func (u *USART) DataRegisterEmpty() bool { return !u.busy.Load() }

func (u *USART) EnableRxInterrupt(on bool) { u.rxie.Store(on) }

// EnableTxInterrupt arms or disarms the transmit interrupt. Arming wakes Run.
func (u *USART) EnableTxInterrupt(on bool) {
	u.txie.Store(on)
	if on {
		select {
		case u.kick <- struct{}{}:
		default:
		}
	}
}

// Deliver latches each byte of p and runs the receive handler for it.
// Bytes that arrive while the receive interrupt is disarmed are lost, as
// on a real UART, and counted as overruns.
func (u *USART) Deliver(p []byte) {
	for _, b := range p {
		u.mu.Lock()
		u.rxData.Store(uint32(b))
		if u.rxie.Load() && u.h != nil {
			u.h.RxISR()
		} else {
			u.overrun.Inc()
		}
		u.mu.Unlock()
	}
}

// Overruns returns the number of bytes lost with the receive interrupt disarmed.
func (u *USART) Overruns() uint64 { return u.overrun.Load() }

// Written returns the number of bytes written through the data register.
func (u *USART) Written() uint64 { return u.writes.Load() }

// Run services the transmit interrupt until ctx is done.
func (u *USART) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-u.kick:
		}
		u.serviceTx()
	}
}

// serviceTx fires the transmit interrupt while it stays armed. A call that
// writes nothing means the mainline owns the TX ring right now; its next
// arm will kick again.
func (u *USART) serviceTx() {
	for u.txie.Load() {
		before := u.writes.Load()
		u.mu.Lock()
		if u.h != nil {
			u.h.TxISR()
		}
		u.mu.Unlock()
		if u.writes.Load() == before {
			return
		}
	}
}
