package rs485

// TxISR services the data-register-empty interrupt. An empty TX ring
// disarms the interrupt, since the UART would otherwise keep firing with
// nothing to send. Otherwise one byte is moved to the data register
// unless Putc currently holds the TX mutex.
func (d *Device) TxISR() {
	if d.tx.Empty() {
		d.disarmTx()
		return
	}
	if !d.flags.tryLock(FlagTxMutex) {
		return
	}
	// only the mutex holder loads the register, so this check cannot go stale
	if d.hw.DataRegisterEmpty() {
		if b, ok := d.tx.Pop(); ok {
			d.transmit(b)
			d.stats.txISR.Inc()
		}
	}
	d.flags.clear(FlagTxMutex)
	d.notify()
}

// disarmTx turns the transmit interrupt off, then looks at the ring again:
// a Putc that slipped in between the emptiness check and the disarm has
// already re-armed or is about to, so the interrupt is restored for it.
func (d *Device) disarmTx() {
	d.hw.EnableTxInterrupt(false)
	if !d.tx.Empty() {
		d.hw.EnableTxInterrupt(true)
		return
	}
	if d.policy == DirectionToggle && d.flags.tryLock(FlagTxMutex) {
		if d.tx.Empty() {
			d.releaseBus()
		}
		d.flags.clear(FlagTxMutex)
	}
	d.notify()
}

// Putc queues c for transmission. With FlagCRLF set a '\n' is queued as
// "\r\n". When the TX ring has no free slot Putc sleeps (FlagBlock) or
// returns ErrWouldBlock with SignalWouldBlock raised.
//
// If the data register is already empty Putc moves one byte into it
// itself, holding FlagTxMutex for that single pop and write. The transmit
// interrupt is armed before returning.
func (d *Device) Putc(c byte) error {
	seq := [2]byte{'\r', c}
	out := seq[1:]
	if c == '\n' && d.flags.has(FlagCRLF) {
		out = seq[:]
	}
	var err error
	queued := 0
	for _, b := range out {
		if err = d.enqueue(b); err != nil {
			break
		}
		queued++
	}
	if queued > 0 {
		d.kick()
	}
	return err
}

func (d *Device) enqueue(b byte) error {
	for d.tx.Full() {
		if !d.flags.has(FlagBlock) {
			d.raise(SignalWouldBlock)
			return ErrWouldBlock
		}
		d.hw.EnableTxInterrupt(true)
		d.sleep()
	}
	d.tx.Push(b)
	return nil
}

// kick is the opportunistic drain plus re-arm at the end of Putc.
func (d *Device) kick() {
	if d.flags.tryLock(FlagTxMutex) {
		if d.hw.DataRegisterEmpty() {
			if b, ok := d.tx.Pop(); ok {
				d.transmit(b)
				d.stats.txDrains.Inc()
			}
		}
		d.flags.clear(FlagTxMutex)
	}
	d.hw.EnableTxInterrupt(true)
}

// transmit loads b into the data register. Caller holds FlagTxMutex.
func (d *Device) transmit(b byte) {
	if d.policy == DirectionToggle {
		d.driveBus()
	}
	d.hw.WriteData(b)
	d.stats.txBytes.Inc()
}

// driveBus turns the line around for transmit: receiver off, driver on.
func (d *Device) driveBus() {
	if d.dir == nil || d.driving.Swap(true) {
		return
	}
	d.dir.SetReceiverEnable(false)
	d.dir.SetDriverEnable(true)
}

// releaseBus hands the line back to the receiver.
func (d *Device) releaseBus() {
	if d.dir == nil || !d.driving.Swap(false) {
		return
	}
	d.dir.SetDriverEnable(false)
	d.dir.SetReceiverEnable(true)
}
