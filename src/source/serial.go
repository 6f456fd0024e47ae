package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// maxPending bounds the bytes held while waiting for a newline
const maxPending = 4096

// Serial reads newline-terminated frames from a serial port.
// The port's read timeout makes Read return (0, nil) when idle.
type Serial struct {
	port    io.ReadWriteCloser
	name    string
	buf     []byte
	pending []byte
	writeMu sync.Mutex
}

// OpenSerial opens the configured port
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Port, err)
	}
	return newSerial(port, cfg.Port), nil
}

func newSerial(port io.ReadWriteCloser, name string) *Serial {
	return &Serial{
		port: port,
		name: name,
		buf:  make([]byte, 256),
	}
}

// ListPorts returns the serial ports present on the machine
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

// ReadLine returns the next complete line. When the port times out first it
// returns an empty line; bytes already received stay buffered for the next
// call.
func (s *Serial) ReadLine(ctx context.Context) (string, error) {
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			return s.take(i + 1), nil
		}
		if len(s.pending) >= maxPending {
			return s.take(len(s.pending)), nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := s.port.Read(s.buf)
		if n > 0 {
			s.pending = append(s.pending, s.buf[:n]...)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", s.name, err)
		}
		return "", nil
	}
}

func (s *Serial) take(n int) string {
	line := cleanLine(s.pending[:n])
	rest := copy(s.pending, s.pending[n:])
	s.pending = s.pending[:rest]
	return line
}

// Send writes a command line to the firmware
func (s *Serial) Send(cmd string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.port.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	return nil
}

// Close closes the port
func (s *Serial) Close() error {
	return s.port.Close()
}
