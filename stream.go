package rs485

import "io"

// Stream adapts a Device to the io byte-stream interfaces so generic text
// I/O (bufio, fmt.Fprintf, ...) can run over it. Reads go through Getc and
// writes through Putc, so the device flags apply unchanged.
type Stream struct {
	d *Device
}

var (
	_ io.Reader     = (*Stream)(nil)
	_ io.Writer     = (*Stream)(nil)
	_ io.ByteReader = (*Stream)(nil)
	_ io.ByteWriter = (*Stream)(nil)
)

// NewStream returns a Stream over d.
func NewStream(d *Device) *Stream { return &Stream{d: d} }

// ReadByte implements io.ByteReader.
func (s *Stream) ReadByte() (byte, error) { return s.d.Getc() }

// Read implements io.Reader. The first byte follows the Getc blocking
// policy. Read returns early, with what it has, when the RX ring runs dry.
// A signal ends the read and is returned with the bytes gathered before it.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(p) {
		if n > 0 && s.d.rx.Empty() {
			break
		}
		c, err := s.d.Getc()
		if err != nil {
			return n, err
		}
		p[n] = c
		n++
	}
	return n, nil
}

// WriteByte implements io.ByteWriter.
func (s *Stream) WriteByte(c byte) error { return s.d.Putc(c) }

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := s.d.Putc(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// WriteString implements io.StringWriter.
func (s *Stream) WriteString(str string) (int, error) {
	for i := 0; i < len(str); i++ {
		if err := s.d.Putc(str[i]); err != nil {
			return i, err
		}
	}
	return len(str), nil
}
