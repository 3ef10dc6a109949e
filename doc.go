// Package rs485 provides an interrupt-driven, half-duplex RS-485 character
// transport for a motion controller's serial line.
//
// A Device owns two fixed-size byte rings. The receive interrupt fills the
// RX ring. The transmit interrupt drains the TX ring, and so does Putc when
// it finds the UART idle. On top of the rings sit two decoders:
//
//   - Getc: one character at a time. It blocks or fails when no data is
//     waiting, and maps control characters to signals. NewStream wraps it
//     as an io.Reader/io.Writer.
//   - Readln: a resumable, never-blocking line assembler for a command
//     parser. Call it once per received byte, or whenever the main loop
//     runs. It hands completed lines to a LineFunc and control characters
//     to a SignalFunc.
//
// Features:
//   - Lock-free single-producer/single-consumer rings with one reserved slot
//   - Blocking and non-blocking modes, echo, CRLF expansion, line mode,
//     semicolon-as-EOL
//   - Kill (^C, ^X, ESC), pause/resume (XOFF/XON), shift-in/out and delete signals
//   - Optional DE/RE direction control for half-duplex buses
//   - Backends: hal/tty (Linux termios), hal/bugst (go.bug.st/serial) and
//     hal/sim (in-memory, for tests)
//
// There is no flow control. Bytes that arrive while the RX ring is full
// are dropped and counted in Stats.RxDropped.
//
// Example usage:
//
//	port, err := tty.Open(tty.Config{Device: "/dev/ttyUSB0", BaudRate: 115200})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	dev, err := rs485.New(port, rs485.CtlNoEcho|rs485.CtlSemicolons)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dev.SetLineFunc(func(line []byte) error {
//	    fmt.Printf("Received: %s\n", line)
//	    return nil
//	})
//	port.Start(dev, nil)
//
//	buf := make([]byte, 255)
//	for range dev.Wakeup() {
//	    for dev.Buffered() > 0 {
//	        dev.Readln(buf)
//	    }
//	}
package rs485
