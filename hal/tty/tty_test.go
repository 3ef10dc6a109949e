//go:build linux

package tty_test

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	rs485 "github.com/luhtfiimanal/go-rs485"
	"github.com/luhtfiimanal/go-rs485/hal/tty"
	"github.com/stretchr/testify/require"
)

// openPair opens a pty and a port on its slave side.
func openPair(t *testing.T) (master io.ReadWriteCloser, port *tty.Port) {
	t.Helper()
	m, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { m.Close(); slave.Close() })

	port, err = tty.Open(tty.Config{Device: slave.Name(), BaudRate: 115200})
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })
	return m, port
}

// readlnUntil runs the Readln main loop until done reports true.
func readlnUntil(t *testing.T, dev *rs485.Device, buf []byte, done func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !done() {
		if dev.Buffered() > 0 {
			_, _ = dev.Readln(buf)
			continue
		}
		select {
		case <-dev.Wakeup():
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("timeout waiting for line")
		}
	}
}

func readN(r io.Reader, n int) <-chan string {
	ch := make(chan string, 1)
	go func() {
		buf := make([]byte, n)
		_, err := io.ReadFull(r, buf)
		if err != nil {
			ch <- "error: " + err.Error()
			return
		}
		ch <- string(buf)
	}()
	return ch
}

func TestPort_ReceiveLine(t *testing.T) {
	master, port := openPair(t)
	dev, err := rs485.New(port, rs485.CtlNoEcho)
	require.NoError(t, err)

	errs := make(chan error, 1)
	port.Start(dev, func(err error) { errs <- err })

	var line string
	dev.SetLineFunc(func(b []byte) error {
		line = string(b)
		return nil
	})

	_, err = master.Write([]byte("ping\n"))
	require.NoError(t, err)

	readlnUntil(t, dev, make([]byte, 64), func() bool { return line != "" })
	require.Equal(t, "ping", line)
	select {
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	default:
	}
}

func TestPort_Transmit(t *testing.T) {
	master, port := openPair(t)
	dev, err := rs485.New(port, 0)
	require.NoError(t, err)
	port.Start(dev, nil)

	got := readN(master, len("pong\r\n"))
	_, err = rs485.NewStream(dev).WriteString("pong\n")
	require.NoError(t, err)

	select {
	case msg := <-got:
		require.Equal(t, "pong\r\n", msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for master to receive")
	}
	require.Eventually(t, func() bool { return port.Written() == 6 }, time.Second, 5*time.Millisecond)
}

func TestPort_EchoChat(t *testing.T) {
	master, port := openPair(t)
	dev, err := rs485.New(port, 0)
	require.NoError(t, err)
	port.Start(dev, nil)

	var line string
	dev.SetLineFunc(func(b []byte) error {
		line = string(b)
		return nil
	})

	echo := readN(master, len("G0\r\n"))
	_, err = master.Write([]byte("G0\r"))
	require.NoError(t, err)

	readlnUntil(t, dev, make([]byte, 64), func() bool { return line != "" })
	require.Equal(t, "G0", line)

	select {
	case msg := <-echo:
		require.Equal(t, "G0\r\n", msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for echo")
	}
}

func TestPort_Close(t *testing.T) {
	master, port := openPair(t)
	dev, err := rs485.New(port, rs485.CtlNoEcho)
	require.NoError(t, err)

	errs := make(chan error, 1)
	port.Start(dev, func(err error) { errs <- err })

	_, err = master.Write([]byte("test data\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return dev.Buffered() == len("test data\n") }, time.Second, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- port.Close() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for Close")
	}

	select {
	case err := <-errs:
		t.Fatalf("reader reported an error on Close: %v", err)
	default:
	}

	// Should be a no-op due to closeOnce
	require.NoError(t, port.Close())
}

func TestPort_ErrorPropagation(t *testing.T) {
	master, port := openPair(t)
	dev, err := rs485.New(port, rs485.CtlNoEcho)
	require.NoError(t, err)

	errs := make(chan error, 1)
	port.Start(dev, func(err error) { errs <- err })

	// Simulate device disconnect by closing master
	require.NoError(t, master.Close())

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for error after device disconnect")
	}
}

func TestPort_SetBaudRate(t *testing.T) {
	_, port := openPair(t)
	dev, err := rs485.New(port, rs485.Baud9600.Control())
	require.NoError(t, err)
	require.Equal(t, rs485.Baud9600, dev.Baud())

	require.NoError(t, dev.Control(rs485.Baud230400.Control()))
	require.Error(t, port.SetBaudRate(12345))
}

func TestOpen_MissingDevice(t *testing.T) {
	_, err := tty.Open(tty.Config{Device: "/dev/does-not-exist-rs485"})
	require.Error(t, err)
}

// stallHandler holds the transmit interrupt until released.
type stallHandler struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	port    *tty.Port
}

func (h *stallHandler) RxISR() {}

func (h *stallHandler) TxISR() {
	h.once.Do(func() { close(h.entered) })
	<-h.release
	h.port.EnableTxInterrupt(false)
}

func TestPort_CloseWaitsForHandler(t *testing.T) {
	_, port := openPair(t)
	h := &stallHandler{entered: make(chan struct{}), release: make(chan struct{}), port: port}
	port.Start(h, nil)
	port.EnableTxInterrupt(true)
	<-h.entered

	closed := make(chan error, 1)
	go func() { closed <- port.Close() }()
	select {
	case <-closed:
		t.Fatal("Close returned while the transmit interrupt was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(h.release)
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
}
