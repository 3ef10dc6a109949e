package rs485

import (
	"testing"

	"github.com/luhtfiimanal/go-rs485/hal/sim"
	"github.com/stretchr/testify/require"
)

// newTestDevice returns a device on a fresh simulated UART.
func newTestDevice(t *testing.T, ctl Control, opts ...Option) (*Device, *sim.Transceiver) {
	t.Helper()
	hw := sim.New()
	d, err := New(hw, ctl, opts...)
	require.NoError(t, err)
	return d, hw
}

// feed queues s and runs Readln once per byte, collecting the statuses.
func feed(d *Device, buf []byte, s string) []Status {
	d.QueueRXString(s)
	var out []Status
	for range s {
		st, _ := d.Readln(buf)
		out = append(out, st)
	}
	return out
}
