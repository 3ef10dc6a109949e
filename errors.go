package rs485

import (
	"errors"
	"fmt"
)

var (
	// ErrWouldBlock is returned by non-blocking Getc/Putc when the RX ring
	// is empty or the TX ring has no free slot.
	ErrWouldBlock = errors.New("rs485: operation would block")

	// ErrBufferFull is returned by Readln when a line exceeds the caller's
	// buffer. The line is abandoned.
	ErrBufferFull = errors.New("rs485: line buffer full")

	// ErrSignal matches every *SignalError.
	ErrSignal = errors.New("rs485: signal")

	// ErrInvalidBaud is returned for a baud selector outside the table.
	ErrInvalidBaud = errors.New("rs485: invalid baud selector")

	// ErrNoTransceiver is returned by New when no transceiver is given.
	ErrNoTransceiver = errors.New("rs485: nil transceiver")
)

// SignalError is returned by Getc when the received byte is a control
// character. No data byte accompanies it.
type SignalError struct {
	Signal Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("rs485: signal %s", e.Signal)
}

// Is makes errors.Is(err, ErrSignal) true for every SignalError.
func (e *SignalError) Is(target error) bool { return target == ErrSignal }
