package main

import (
	"context"
	"fmt"
	"io"

	rs485 "github.com/luhtfiimanal/go-rs485"
	"github.com/luhtfiimanal/go-rs485/hal/usart"
	"github.com/rs/zerolog"
)

// port is what both backends provide.
type port interface {
	rs485.Transceiver
	rs485.DirectionControl
	Start(h usart.Handler, onError func(error))
	Name() string
	Close() error
}

// newDevice builds the device for cfg on p.
func newDevice(cfg Config, p rs485.Transceiver, dc rs485.DirectionControl, name string, log zerolog.Logger) (*rs485.Device, error) {
	policy, err := cfg.policy()
	if err != nil {
		return nil, err
	}
	return rs485.New(p, cfg.control(),
		rs485.WithLogger(log),
		rs485.WithName(name),
		rs485.WithBufferSize(cfg.RxBuffer, cfg.TxBuffer),
		rs485.WithDirection(dc, policy),
	)
}

// terminal is the mainline loop: it assembles received lines, prints them
// to out and transmits the lines read from in. Every Device call happens
// on the goroutine running run.
type terminal struct {
	dev  *rs485.Device
	out  io.Writer
	log  zerolog.Logger
	line []byte
}

func newTerminal(dev *rs485.Device, out io.Writer, lineLength int, log zerolog.Logger) *terminal {
	t := &terminal{
		dev:  dev,
		out:  out,
		log:  log,
		line: make([]byte, lineLength),
	}
	dev.SetLineFunc(t.onLine)
	dev.SetSignalFunc(t.onSignal)
	return t
}

func (t *terminal) onLine(line []byte) error {
	_, err := fmt.Fprintf(t.out, "%s\n", line)
	return err
}

func (t *terminal) onSignal(sig rs485.Signal) error {
	if sig == rs485.SignalKill {
		t.dev.ResetLine()
	}
	t.log.Debug().Stringer("signal", sig).Msg("signal received")
	return nil
}

// run serves the device until ctx is done, the backend fails or the
// handler returns an error. in is closed when there is no more input.
func (t *terminal) run(ctx context.Context, in <-chan string, portErr <-chan error) error {
	w := rs485.NewStream(t.dev)
	defer func() {
		s := t.dev.Stats()
		t.log.Info().
			Uint64("rx_bytes", s.RxBytes).
			Uint64("rx_dropped", s.RxDropped).
			Uint64("tx_bytes", s.TxBytes).
			Uint64("lines", s.Lines).
			Uint64("overflows", s.Overflows).
			Msg("terminal stopped")
	}()

	for {
		for t.dev.Buffered() > 0 {
			st, err := t.dev.Readln(t.line)
			switch {
			case st == rs485.StatusBufferFull:
				t.log.Warn().Int("limit", len(t.line)-1).Msg("received line too long, dropped")
			case err != nil:
				return fmt.Errorf("%s: %w", st, err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case err := <-portErr:
			return err
		case s, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			if _, err := w.WriteString(s + "\n"); err != nil {
				t.log.Warn().Err(err).Msg("transmit failed")
			}
		case <-t.dev.Wakeup():
		}
	}
}
