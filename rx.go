package rs485

// RxISR services the receive-complete interrupt: it reads the data
// register and queues the byte. When the RX ring is full the byte is
// dropped; there is no flow control and the far end is not told.
func (d *Device) RxISR() {
	d.receive(d.hw.ReadData())
	d.notify()
}

func (d *Device) receive(b byte) bool {
	if !d.rx.Push(b) {
		d.stats.rxDropped.Inc()
		return false
	}
	d.stats.rxBytes.Inc()
	return true
}

// QueueRX puts b in the RX ring as if it had been received, with the same
// drop policy as RxISR. It is the producer side of the RX ring and must
// not run concurrently with RxISR.
func (d *Device) QueueRX(b byte) bool {
	ok := d.receive(b)
	d.notify()
	return ok
}

// QueueRXString queues the bytes of s up to the first NUL and returns how
// many were stored.
func (d *Device) QueueRXString(s string) int {
	n := 0
	for i := 0; i < len(s) && s[i] != 0; i++ {
		if d.receive(s[i]) {
			n++
		}
	}
	d.notify()
	return n
}

// next pops one received byte with its top bit masked off.
func (d *Device) next() (byte, bool) {
	b, ok := d.rx.Pop()
	return b & 0x7F, ok
}
