package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	rs485 "github.com/luhtfiimanal/go-rs485"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the rs485term configuration file.
type Config struct {
	Backend     string        `yaml:"backend"`   // tty or bugst
	Device      string        `yaml:"device"`    // serial device path
	Baud        int           `yaml:"baud"`      // line rate in bits per second
	Direction   string        `yaml:"direction"` // static or toggle
	Echo        bool          `yaml:"echo"`
	CRLF        bool          `yaml:"crlf"`
	Semicolons  bool          `yaml:"semicolons"`
	Blocking    bool          `yaml:"blocking"`
	LineLength  int           `yaml:"line_length"`
	RxBuffer    int           `yaml:"rx_buffer"`
	TxBuffer    int           `yaml:"tx_buffer"`
	ReadTimeout time.Duration `yaml:"read_timeout"` // bugst reader poll interval
	LogLevel    string        `yaml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Backend:     "tty",
		Device:      "/dev/ttyUSB0",
		Baud:        115200,
		Direction:   "static",
		CRLF:        true,
		Blocking:    true,
		LineLength:  255,
		RxBuffer:    rs485.DefaultRingSize,
		TxBuffer:    rs485.DefaultRingSize,
		ReadTimeout: 50 * time.Millisecond,
		LogLevel:    "info",
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Backend {
	case "tty", "bugst":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Device == "" {
		return errors.New("device is required")
	}
	if _, ok := rs485.BaudFor(uint32(c.Baud)); !ok {
		return fmt.Errorf("unsupported baud rate %d", c.Baud)
	}
	if _, err := c.policy(); err != nil {
		return err
	}
	if c.LineLength < 2 {
		return fmt.Errorf("line_length %d is too small", c.LineLength)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

func (c Config) policy() (rs485.DirectionPolicy, error) {
	switch c.Direction {
	case "", "static":
		return rs485.DirectionStatic, nil
	case "toggle":
		return rs485.DirectionToggle, nil
	}
	return rs485.DirectionStatic, fmt.Errorf("unknown direction policy %q", c.Direction)
}

// control translates the configuration into device control bits.
func (c Config) control() rs485.Control {
	baud, _ := rs485.BaudFor(uint32(c.Baud))
	ctl := baud.Control() | rs485.CtlRead | rs485.CtlWrite
	pick := func(on bool, set, clear rs485.Control) rs485.Control {
		if on {
			return set
		}
		return clear
	}
	ctl |= pick(c.Echo, rs485.CtlEcho, rs485.CtlNoEcho)
	ctl |= pick(c.CRLF, rs485.CtlCRLF, rs485.CtlNoCRLF)
	ctl |= pick(c.Semicolons, rs485.CtlSemicolons, rs485.CtlNoSemicolons)
	ctl |= pick(c.Blocking, rs485.CtlBlock, rs485.CtlNoBlock)
	return ctl
}

func (c Config) level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
