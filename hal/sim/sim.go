// Package sim is an in-memory UART for exercising an rs485.Device without
// hardware. Nothing happens on its own: tests deliver received bytes with
// Receive and clock the transmitter with Shift or Drain, calling the
// device's interrupt handlers the way real hardware would.
package sim

import (
	"errors"
	"sync"
)

// Handler is the pair of interrupt entry points a device exposes.
type Handler interface {
	RxISR()
	TxISR()
}

// ErrBaud is returned by SetBaudRate after FailBaud.
var ErrBaud = errors.New("sim: baud rate rejected")

// maxSteps bounds Drain in case a handler never disarms.
const maxSteps = 1 << 16

// Transceiver models a UART with a single-byte transmit holding register
// and DE/RE direction pins.
type Transceiver struct {
	mu sync.Mutex

	rxData byte
	hold   byte
	full   bool
	wire   []byte

	rxie, txie bool
	baud       uint32
	failBaud   bool

	de, re      bool
	deChanges   int
	overruns    int
	txArmCalls  int
	wireOnDrive []bool // DE level when each wire byte was shifted
}

// New returns an idle transceiver.
func New() *Transceiver { return &Transceiver{} }

// ReadData returns the receive data register.
func (t *Transceiver) ReadData() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rxData
}

// WriteData loads the holding register. Loading a full register counts as
// an overrun and replaces the pending byte.
func (t *Transceiver) WriteData(b byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.full {
		t.overruns++
	}
	t.hold = b
	t.full = true
}

// DataRegisterEmpty reports whether the holding register is free.
func (t *Transceiver) DataRegisterEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.full
}

func (t *Transceiver) EnableRxInterrupt(on bool) {
	t.mu.Lock()
	t.rxie = on
	t.mu.Unlock()
}

func (t *Transceiver) EnableTxInterrupt(on bool) {
	t.mu.Lock()
	t.txie = on
	if on {
		t.txArmCalls++
	}
	t.mu.Unlock()
}

// SetBaudRate records bps, or fails after FailBaud(true).
func (t *Transceiver) SetBaudRate(bps uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failBaud {
		return ErrBaud
	}
	t.baud = bps
	return nil
}

// FailBaud makes subsequent SetBaudRate calls fail.
func (t *Transceiver) FailBaud(fail bool) {
	t.mu.Lock()
	t.failBaud = fail
	t.mu.Unlock()
}

func (t *Transceiver) SetDriverEnable(on bool) {
	t.mu.Lock()
	if t.de != on {
		t.deChanges++
	}
	t.de = on
	t.mu.Unlock()
}

func (t *Transceiver) SetReceiverEnable(on bool) {
	t.mu.Lock()
	t.re = on
	t.mu.Unlock()
}

// Receive latches b into the receive data register and raises the receive
// interrupt if it is armed. It reports whether the handler ran.
func (t *Transceiver) Receive(h Handler, b byte) bool {
	t.mu.Lock()
	t.rxData = b
	armed := t.rxie
	t.mu.Unlock()
	if armed {
		h.RxISR()
	}
	return armed
}

// ReceiveString calls Receive for every byte of s.
func (t *Transceiver) ReceiveString(h Handler, s string) {
	for i := 0; i < len(s); i++ {
		t.Receive(h, s[i])
	}
}

// Shift moves the holding register onto the wire.
func (t *Transceiver) Shift() (byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return 0, false
	}
	t.full = false
	t.wire = append(t.wire, t.hold)
	t.wireOnDrive = append(t.wireOnDrive, t.de)
	return t.hold, true
}

// Drain clocks the transmitter until the device stops feeding it: each
// step shifts the holding register out and, while the transmit interrupt
// is armed, calls h.TxISR. It returns the number of bytes shifted.
func (t *Transceiver) Drain(h Handler) int {
	n := 0
	for i := 0; i < maxSteps; i++ {
		if _, ok := t.Shift(); ok {
			n++
		}
		if !t.TxInterruptEnabled() {
			return n
		}
		h.TxISR()
		if t.DataRegisterEmpty() {
			return n
		}
	}
	return n
}

// Wire returns a copy of everything shifted out so far.
func (t *Transceiver) Wire() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.wire...)
}

// TakeWire returns the wire contents and clears them.
func (t *Transceiver) TakeWire() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.wire
	t.wire = nil
	t.wireOnDrive = nil
	return w
}

// DrivenWire reports, per byte on the wire, whether DE was asserted when
// the byte was shifted.
func (t *Transceiver) DrivenWire() []bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]bool(nil), t.wireOnDrive...)
}

func (t *Transceiver) TxInterruptEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.txie
}

func (t *Transceiver) RxInterruptEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rxie
}

// TxArmCount returns how many times the transmit interrupt was armed.
func (t *Transceiver) TxArmCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.txArmCalls
}

func (t *Transceiver) BaudRate() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baud
}

func (t *Transceiver) DriverEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.de
}

func (t *Transceiver) ReceiverEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.re
}

// DriverTransitions counts changes of the DE pin.
func (t *Transceiver) DriverTransitions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deChanges
}

// Overruns counts bytes written over a full holding register.
func (t *Transceiver) Overruns() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overruns
}
