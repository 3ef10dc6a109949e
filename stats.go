package rs485

import "go.uber.org/atomic"

// Stats holds counters since New.
type Stats struct {
	RxBytes   uint64 // bytes stored in the RX ring
	RxDropped uint64 // bytes dropped because the RX ring was full
	TxBytes   uint64 // bytes loaded into the transmit data register
	TxISR     uint64 // bytes moved by the transmit interrupt
	TxDrains  uint64 // bytes moved by Putc itself
	Lines     uint64 // lines handed to the line handler
	Overflows uint64 // lines abandoned with ErrBufferFull
	Signals   uint64 // signals raised by Getc or Readln
}

type counters struct {
	rxBytes   atomic.Uint64
	rxDropped atomic.Uint64
	txBytes   atomic.Uint64
	txISR     atomic.Uint64
	txDrains  atomic.Uint64
	lines     atomic.Uint64
	overflows atomic.Uint64
	signals   atomic.Uint64
}

// Stats returns a snapshot of the device counters.
func (d *Device) Stats() Stats {
	c := &d.stats
	return Stats{
		RxBytes:   c.rxBytes.Load(),
		RxDropped: c.rxDropped.Load(),
		TxBytes:   c.txBytes.Load(),
		TxISR:     c.txISR.Load(),
		TxDrains:  c.txDrains.Load(),
		Lines:     c.lines.Load(),
		Overflows: c.overflows.Load(),
		Signals:   c.signals.Load(),
	}
}

// reportDrops logs RX overflow since the last call. Mainline only; the
// receive interrupt only counts.
func (d *Device) reportDrops() {
	n := d.stats.rxDropped.Load()
	if n == d.dropsAt {
		return
	}
	d.log.Warn().
		Str("device", d.name).
		Uint64("dropped", n-d.dropsAt).
		Uint64("total", n).
		Msg("rs485 rx ring overflow")
	d.dropsAt = n
}
