package main

import (
	"github.com/luhtfiimanal/go-rs485/hal/bugst"
	"github.com/rs/zerolog"
)

func openBugst(cfg Config, log zerolog.Logger) (port, error) {
	p, err := bugst.Open(bugst.Config{
		Device:      cfg.Device,
		BaudRate:    cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
		Logger:      &log,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
