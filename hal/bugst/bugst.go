// Package bugst runs an rs485.Device on any serial port go.bug.st/serial
// can open (Linux, macOS, Windows, BSD).
//
// Received bytes are collected by a reader goroutine that polls the port
// with a short read timeout. DE and RE are driven through RTS and DTR.
package bugst

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luhtfiimanal/go-rs485/hal/usart"
	"github.com/rs/zerolog"
	"go.bug.st/serial"
	"go.uber.org/atomic"
)

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device      string
	BaudRate    int           // default 115200
	ReadTimeout time.Duration // reader poll interval, default 50ms
	Logger      *zerolog.Logger
}

// portHandle is the part of serial.Port the backend uses.
type portHandle interface {
	SetMode(mode *serial.Mode) error
	SetReadTimeout(timeout time.Duration) error
	SetDTR(bool) error
	SetRTS(bool) error
	Drain() error
	Write([]byte) (int, error)
	Read([]byte) (int, error)
	Close() error
}

// allow tests to swap the OS port
var openPort = func(name string, mode *serial.Mode) (portHandle, error) { return serial.Open(name, mode) }

// Port is a serial port that implements rs485.Transceiver and
// rs485.DirectionControl.
type Port struct {
	*usart.USART

	handle    portHandle
	config    Config
	log       zerolog.Logger
	isOpen    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	cancel    context.CancelFunc
	reader    sync.WaitGroup
	isr       sync.WaitGroup
}

func modeFor(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Open opens a serial port. Interrupt delivery starts with Start.
func Open(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, errors.New("serial port path is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 50 * time.Millisecond
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	handle, err := openPort(cfg.Device, modeFor(cfg.BaudRate))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	if err := handle.SetReadTimeout(cfg.ReadTimeout); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	p := &Port{
		handle: handle,
		config: cfg,
		log:    log,
		done:   make(chan struct{}),
		cancel: func() {},
	}
	p.USART = usart.New(handle, log)
	p.isOpen.Store(true)
	log.Info().Str("device", cfg.Device).Int("baud", cfg.BaudRate).Msg("serial port opened")
	return p, nil
}

// Name returns the port name.
func (p *Port) Name() string { return p.config.Device }

// IsOpen reports whether Close has not been called yet.
func (p *Port) IsOpen() bool { return p.isOpen.Load() }

// Start binds the interrupt handler and begins delivering interrupts.
// onError, if not nil, is called once when the reader stops on an error.
func (p *Port) Start(h usart.Handler, onError func(error)) {
	p.Bind(h)
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.isr.Add(1)
	go func() {
		defer p.isr.Done()
		p.USART.Run(ctx)
	}()
	p.reader.Add(1)
	go func() {
		defer p.reader.Done()
		if err := p.readLoop(); err != nil && onError != nil {
			onError(err)
		}
	}()
}

func (p *Port) readLoop() error {
	buf := make([]byte, 256)
	for {
		select {
		case <-p.done:
			return nil
		default:
		}
		n, err := p.handle.Read(buf)
		if err != nil {
			if !p.isOpen.Load() {
				return nil
			}
			var portErr *serial.PortError
			if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
				return nil
			}
			return fmt.Errorf("read %s: %w", p.config.Device, err)
		}
		if n > 0 {
			p.Deliver(buf[:n])
		}
	}
}

// SetBaudRate reprograms the line rate.
func (p *Port) SetBaudRate(bps uint32) error {
	if err := p.handle.SetMode(modeFor(int(bps))); err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	p.config.BaudRate = int(bps)
	return nil
}

// SetDriverEnable drives DE through RTS. Releasing DE first waits for
// the output buffer to drain.
func (p *Port) SetDriverEnable(on bool) {
	if !on {
		if err := p.handle.Drain(); err != nil {
			p.log.Warn().Err(err).Str("device", p.config.Device).Msg("failed to drain output")
		}
	}
	if err := p.handle.SetRTS(on); err != nil {
		p.log.Warn().Err(err).Str("device", p.config.Device).Bool("on", on).Msg("failed to set RTS")
	}
}

// SetReceiverEnable drives the active-low /RE through DTR.
func (p *Port) SetReceiverEnable(on bool) {
	if err := p.handle.SetDTR(!on); err != nil {
		p.log.Warn().Err(err).Str("device", p.config.Device).Bool("on", on).Msg("failed to set DTR")
	}
}

// Close stops interrupt delivery and closes the port. It returns once
// no interrupt handler is running.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.isOpen.Store(false)
		close(p.done)
		p.cancel()
		p.isr.Wait()
		err = p.handle.Close()
		p.reader.Wait()
		p.log.Info().Str("device", p.config.Device).Msg("serial port closed")
	})
	return err
}
