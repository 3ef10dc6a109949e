package rs485

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetc_NonBlockingEmpty(t *testing.T) {
	dev, _ := newTestDevice(t, CtlNoBlock)

	c, err := dev.Getc()
	require.ErrorIs(t, err, ErrWouldBlock)
	require.Zero(t, c)
	require.Equal(t, SignalWouldBlock, dev.Signal())
	require.Zero(t, dev.Stats().Signals)
}

func TestGetc_PlainCharacterEchoed(t *testing.T) {
	dev, hw := newTestDevice(t, 0)
	hw.Receive(dev, 'G')

	c, err := dev.Getc()
	require.NoError(t, err)
	require.Equal(t, byte('G'), c)
	hw.Drain(dev)
	require.Equal(t, "G", string(hw.Wire()))
}

func TestGetc_NoEcho(t *testing.T) {
	dev, hw := newTestDevice(t, CtlNoEcho)
	hw.Receive(dev, 'G')

	_, err := dev.Getc()
	require.NoError(t, err)
	hw.Drain(dev)
	require.Empty(t, hw.Wire())
	require.Zero(t, dev.TxPending())
}

func TestGetc_LineModeFoldsTerminators(t *testing.T) {
	for _, term := range []byte{'\r', '\n', 0} {
		dev, hw := newTestDevice(t, CtlLineMode|CtlNoCRLF)
		dev.QueueRX(term)

		c, err := dev.Getc()
		require.NoError(t, err)
		require.Equal(t, byte('\n'), c, "terminator 0x%02x", term)
		hw.Drain(dev)
		require.Equal(t, []byte{'\n'}, hw.Wire(), "a single newline is echoed")
	}
}

func TestGetc_LineModeEchoWithCRLF(t *testing.T) {
	dev, hw := newTestDevice(t, CtlLineMode)
	dev.QueueRX('\r')

	c, err := dev.Getc()
	require.NoError(t, err)
	require.Equal(t, byte('\n'), c)
	hw.Drain(dev)
	require.Equal(t, "\r\n", string(hw.Wire()))
}

func TestGetc_RawTerminatorWithoutLineMode(t *testing.T) {
	dev, _ := newTestDevice(t, CtlNoEcho)
	dev.QueueRX('\r')

	c, err := dev.Getc()
	require.NoError(t, err)
	require.Equal(t, byte('\r'), c)
}

func TestGetc_Semicolon(t *testing.T) {
	dev, _ := newTestDevice(t, CtlNoEcho|CtlLineMode)
	dev.QueueRX(';')
	c, err := dev.Getc()
	require.NoError(t, err)
	require.Equal(t, byte(';'), c)

	require.NoError(t, dev.Control(CtlSemicolons))
	dev.QueueRX(';')
	c, err = dev.Getc()
	require.NoError(t, err)
	require.Equal(t, byte('\n'), c)
}

func TestGetc_HighBitMasked(t *testing.T) {
	dev, _ := newTestDevice(t, CtlNoEcho)
	dev.QueueRX('A' | 0x80)

	c, err := dev.Getc()
	require.NoError(t, err)
	require.Equal(t, byte('A'), c)
}

func TestGetc_Signals(t *testing.T) {
	tests := []struct {
		name string
		in   byte
		sig  Signal
	}{
		{"etx", 0x03, SignalKill},
		{"can", 0x18, SignalKill},
		{"esc", 0x1B, SignalKill},
		{"bs", 0x08, SignalDelete},
		{"del", 0x7F, SignalDelete},
		{"xoff", 0x13, SignalPause},
		{"xon", 0x11, SignalResume},
		{"so", 0x0E, SignalShiftOut},
		{"si", 0x0F, SignalShiftIn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, hw := newTestDevice(t, 0)
			dev.QueueRX(tt.in)

			c, err := dev.Getc()
			require.Zero(t, c)
			require.ErrorIs(t, err, ErrSignal)
			var se *SignalError
			require.True(t, errors.As(err, &se))
			require.Equal(t, tt.sig, se.Signal)
			require.Equal(t, tt.sig, dev.Signal())
			require.EqualValues(t, 1, dev.Stats().Signals)

			// control characters are never echoed
			hw.Drain(dev)
			require.Empty(t, hw.Wire())
		})
	}
}

func TestGetc_BlocksUntilReceive(t *testing.T) {
	dev, hw := newTestDevice(t, CtlNoEcho)

	type result struct {
		c   byte
		err error
	}
	got := make(chan result, 1)
	go func() {
		c, err := dev.Getc()
		got <- result{c, err}
	}()

	select {
	case r := <-got:
		t.Fatalf("Getc returned early: %q %v", r.c, r.err)
	case <-time.After(20 * time.Millisecond):
	}

	hw.Receive(dev, 'Z')
	select {
	case r := <-got:
		require.NoError(t, r.err)
		require.Equal(t, byte('Z'), r.c)
	case <-time.After(time.Second):
		t.Fatal("Getc did not wake up")
	}
}

func TestGetc_ConcurrentReceiver(t *testing.T) {
	const n = 500
	dev, hw := newTestDevice(t, CtlNoEcho, WithBufferSize(n+1, 16))

	go func() {
		for i := 0; i < n; i++ {
			hw.Receive(dev, byte('a'+i%26))
		}
	}()

	for i := 0; i < n; i++ {
		c, err := dev.Getc()
		require.NoError(t, err)
		require.Equal(t, byte('a'+i%26), c, "byte %d", i)
	}
	require.Zero(t, dev.Stats().RxDropped)
}

func TestGetc_AfterWakeupConsumed(t *testing.T) {
	dev, hw := newTestDevice(t, CtlNoEcho)
	hw.Receive(dev, 'a')
	hw.Receive(dev, 'b')

	// the mainline took the notification; Getc must still see the queued bytes
	<-dev.Wakeup()
	got := make(chan byte, 2)
	go func() {
		for i := 0; i < 2; i++ {
			c, _ := dev.Getc()
			got <- c
		}
	}()
	for _, want := range []byte("ab") {
		select {
		case c := <-got:
			require.Equal(t, want, c)
		case <-time.After(time.Second):
			t.Fatal("Getc slept on queued input")
		}
	}
}
