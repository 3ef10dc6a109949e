//go:build linux

package main

import (
	"fmt"

	"github.com/luhtfiimanal/go-rs485/hal/tty"
	"github.com/rs/zerolog"
)

func openPort(cfg Config, log zerolog.Logger) (port, error) {
	switch cfg.Backend {
	case "tty":
		p, err := tty.Open(tty.Config{Device: cfg.Device, BaudRate: cfg.Baud, Logger: &log})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "bugst":
		return openBugst(cfg, log)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
