package rs485

import (
	"testing"

	"github.com/luhtfiimanal/go-rs485/hal/sim"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	dev, hw := newTestDevice(t, 0)

	require.Equal(t, defaultFlags, dev.Flags())
	require.Equal(t, BaudDefault, dev.Baud())
	require.EqualValues(t, 115200, hw.BaudRate())
	require.Equal(t, SignalNone, dev.Signal())
	require.True(t, hw.RxInterruptEnabled())
	require.True(t, hw.TxInterruptEnabled())
	require.False(t, hw.DriverEnabled())
	require.True(t, hw.ReceiverEnabled())
	require.False(t, dev.InLine())
	require.Zero(t, dev.Buffered())
	require.Zero(t, dev.TxPending())
	require.Equal(t, Stats{}, dev.Stats())
}

func TestNew_ControlApplied(t *testing.T) {
	dev, hw := newTestDevice(t, Baud9600.Control()|CtlNoBlock|CtlNoEcho|CtlLineMode)

	f := dev.Flags()
	require.False(t, f.Has(FlagBlock))
	require.False(t, f.Has(FlagEcho))
	require.True(t, f.Has(FlagLineMode|FlagCRLF|FlagRead|FlagWrite))
	require.Equal(t, Baud9600, dev.Baud())
	require.EqualValues(t, 9600, hw.BaudRate())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, 0)
	require.ErrorIs(t, err, ErrNoTransceiver)

	_, err = New(sim.New(), Baud(12).Control())
	require.ErrorIs(t, err, ErrInvalidBaud)

	hw := sim.New()
	hw.FailBaud(true)
	_, err = New(hw, 0)
	require.ErrorIs(t, err, sim.ErrBaud)
}

func TestNew_BufferSizes(t *testing.T) {
	dev, hw := newTestDevice(t, CtlNoEcho, WithBufferSize(3, 3))
	hw.ReceiveString(dev, "xyz")
	require.Equal(t, 2, dev.Buffered())
}

func TestControl_Live(t *testing.T) {
	dev, hw := newTestDevice(t, 0)

	require.NoError(t, dev.Control(CtlNoEcho|CtlSemicolons))
	f := dev.Flags()
	require.False(t, f.Has(FlagEcho))
	require.True(t, f.Has(FlagSemicolons))
	require.Equal(t, BaudDefault, dev.Baud(), "unspecified baud leaves the rate alone")

	require.NoError(t, dev.Control(Baud57600.Control()))
	require.Equal(t, Baud57600, dev.Baud())
	require.EqualValues(t, 57600, hw.BaudRate())

	require.ErrorIs(t, dev.Control(Baud(14).Control()), ErrInvalidBaud)
	require.Equal(t, Baud57600, dev.Baud())

	hw.FailBaud(true)
	require.ErrorIs(t, dev.Control(Baud9600.Control()), sim.ErrBaud)
	require.Equal(t, Baud57600, dev.Baud())
}

func TestControl_KeepsLineInProgress(t *testing.T) {
	dev, _ := newTestDevice(t, CtlNoEcho)
	buf := make([]byte, 8)
	feed(dev, buf, "G0")
	require.True(t, dev.InLine())

	require.NoError(t, dev.Control(CtlNoBlock|CtlNoCRLF))
	require.True(t, dev.InLine())
	require.Equal(t, "G0", string(dev.Partial()))
}

func TestSignal_String(t *testing.T) {
	require.Equal(t, "kill", SignalKill.String())
	require.Equal(t, "would-block", SignalWouldBlock.String())
	require.Equal(t, "unknown", Signal(99).String())

	err := &SignalError{Signal: SignalPause}
	require.EqualError(t, err, "rs485: signal pause")
}
