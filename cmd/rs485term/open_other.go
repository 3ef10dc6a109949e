//go:build !linux

package main

import (
	"fmt"

	"github.com/rs/zerolog"
)

func openPort(cfg Config, log zerolog.Logger) (port, error) {
	if cfg.Backend != "bugst" {
		return nil, fmt.Errorf("backend %q is not available on this platform", cfg.Backend)
	}
	return openBugst(cfg, log)
}
