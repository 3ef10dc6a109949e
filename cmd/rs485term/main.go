// Command rs485term is a line terminal for an RS-485 bus.
//
// Lines typed on stdin are sent on the bus; complete lines received from
// the bus are printed to stdout.
//
//	rs485term -config rs485.yaml -device /dev/ttyUSB1 -baud 57600
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	device := flag.String("device", "", "serial device (overrides config)")
	baud := flag.Int("baud", 0, "baud rate (overrides config)")
	backend := flag.String("backend", "", "tty or bugst (overrides config)")
	direction := flag.String("direction", "", "static or toggle (overrides config)")
	echo := flag.Bool("echo", false, "echo received characters back on the bus")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device = *device
		case "baud":
			cfg.Baud = *baud
		case "backend":
			cfg.Backend = *backend
		case "direction":
			cfg.Direction = *direction
		case "echo":
			cfg.Echo = *echo
		case "debug":
			if *debug {
				cfg.LogLevel = "debug"
			}
		}
	})
	if err := cfg.validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(cfg.level()).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("rs485term stopped")
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg Config, log zerolog.Logger) error {
	p, err := openPort(cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	dev, err := newDevice(cfg, p, p, p.Name(), log)
	if err != nil {
		return err
	}
	portErr := make(chan error, 1)
	p.Start(dev, func(err error) { portErr <- err })

	in := make(chan string)
	go func() {
		defer close(in)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case in <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info().Str("device", p.Name()).Int("baud", cfg.Baud).Str("direction", cfg.Direction).Msg("rs485term ready")
	return newTerminal(dev, os.Stdout, cfg.LineLength, log).run(ctx, in, portErr)
}
