//go:build linux

// Package tty runs an rs485.Device on a Linux serial port.
//
// The port is configured for raw 8N1 operation through termios. A reader
// goroutine polls the port and a self-pipe, and feeds every received byte
// to the device's receive interrupt. DE and RE are driven through the RTS
// and DTR modem lines, which is how most USB RS-485 adapters wire them.
package tty

import (
	"context"
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/luhtfiimanal/go-rs485/hal/usart"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device   string
	BaudRate int // default 115200
	Logger   *zerolog.Logger
}

// Port is a Linux serial port that implements rs485.Transceiver and
// rs485.DirectionControl. It is safe for concurrent use by the mainline
// and interrupt goroutines.
type Port struct {
	*usart.USART

	fd        int
	file      *os.File
	done      chan struct{}
	closeOnce sync.Once
	config    Config
	log       zerolog.Logger
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
	cancel    context.CancelFunc
	reader    sync.WaitGroup
	isr       sync.WaitGroup
}

// drainOutput blocks until the kernel has shifted out every byte written
// to fd (tcdrain).
var drainOutput = func(fd int) error { return unix.IoctlSetInt(fd, unix.TCSBRK, 1) }

// Open opens and configures a serial port. Interrupt delivery starts with Start.
func Open(cfg Config) (*Port, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	fd, err := syscall.Open(cfg.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	baud, ok := baudToUnix(cfg.BaudRate)
	if !ok {
		syscall.Close(fd)
		return nil, fmt.Errorf("unsupported baud rate %d", cfg.BaudRate)
	}
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud

	// VMIN=1, VTIME=0: a read returns as soon as one byte is there
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	// Turn back into blocking mode now that config is done
	if err := syscall.SetNonblock(fd, false); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	// Self-pipe to wake poll on Close
	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	file := os.NewFile(uintptr(fd), cfg.Device)
	p := &Port{
		fd:     fd,
		file:   file,
		done:   make(chan struct{}),
		config: cfg,
		log:    log,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
		cancel: func() {},
	}
	p.USART = usart.New(file, log)
	log.Info().Str("device", cfg.Device).Int("baud", cfg.BaudRate).Msg("tty port opened")
	return p, nil
}

// Name returns the device path.
func (p *Port) Name() string { return p.config.Device }

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

// readLoop waits on the port and the self-pipe and hands received bytes
// to the receive interrupt. It returns nil when the port is closed.
func (p *Port) readLoop() error {
	buf := make([]byte, 256)
	for {
		pfd := []unix.PollFd{
			{Fd: int32(p.fd), Events: unix.POLLIN},
			{Fd: int32(p.pipeR), Events: unix.POLLIN},
		}
		_, err := unix.Poll(pfd, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		select {
		case <-p.done:
			return nil
		default:
		}
		if pfd[1].Revents&unix.POLLIN != 0 {
			return nil
		}
		if pfd[0].Revents&(unix.POLLHUP|unix.POLLERR) != 0 && pfd[0].Revents&unix.POLLIN == 0 {
			return fmt.Errorf("port hung up")
		}
		if pfd[0].Revents&unix.POLLIN != 0 {
			n, err := p.file.Read(buf)
			if err != nil {
				return err
			}
			p.Deliver(buf[:n])
		}
	}
}

// SetBaudRate reprograms the line rate.
func (p *Port) SetBaudRate(bps uint32) error {
	baud, ok := baudToUnix(int(bps))
	if !ok {
		return fmt.Errorf("unsupported baud rate %d", bps)
	}
	termios, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud
	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	p.config.BaudRate = int(bps)
	return nil
}

// SetDriverEnable drives DE through RTS. Releasing DE first waits for
// the output queue to drain so the tail of a frame is not cut off.
func (p *Port) SetDriverEnable(on bool) {
	if !on {
		if err := drainOutput(p.fd); err != nil {
			p.log.Warn().Err(err).Str("device", p.config.Device).Msg("tty drain failed")
		}
	}
	p.setModem(unix.TIOCM_RTS, on, "rts")
}

// SetReceiverEnable drives the active-low /RE through DTR: asserting DTR
// turns the receiver off.
func (p *Port) SetReceiverEnable(on bool) {
	p.setModem(unix.TIOCM_DTR, !on, "dtr")
}

func (p *Port) setModem(bit int, on bool, name string) {
	var req uint = unix.TIOCMBIC
	if on {
		req = unix.TIOCMBIS
	}
	if err := unix.IoctlSetPointerInt(p.fd, req, bit); err != nil {
		p.log.Warn().Err(err).Str("device", p.config.Device).Str("line", name).Bool("on", on).Msg("tty modem control failed")
	}
}

// Close stops interrupt delivery and closes the port. It returns once
// no interrupt handler is running.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.cancel()
		// Wake up poll using self-pipe
		if p.pipeW > 0 {
			unix.Write(p.pipeW, []byte{1})
		}
		p.isr.Wait()
		p.reader.Wait()
		if p.file != nil {
			err = p.file.Close()
		}
		if p.pipeR > 0 {
			unix.Close(p.pipeR)
		}
		if p.pipeW > 0 {
			unix.Close(p.pipeW)
		}
		p.log.Info().Str("device", p.config.Device).Msg("tty port closed")
	})
	return err
}

func baudToUnix(baud int) (uint32, bool) {
	switch baud {
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	case 230400:
		return unix.B230400, true
	case 460800:
		return unix.B460800, true
	case 500000:
		return unix.B500000, true
	case 921600:
		return unix.B921600, true
	case 1000000:
		return unix.B1000000, true
	default:
		return 0, false
	}
}
